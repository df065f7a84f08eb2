package audio

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Player plays a clip and returns once playback has finished
type Player interface {
	Play(ctx context.Context, clip Clip) error
}

// ErrPlaybackTimedOut is returned when the listener never reports the end of
// playback
var ErrPlaybackTimedOut = errors.New("playback did not finish")

// RemotePlayer hands clips to a listener (the browser) and blocks until the
// listener reports the end of playback
type RemotePlayer struct {
	mu       sync.Mutex
	deliver  func(Clip)
	finished chan struct{}
	slack    time.Duration
}

// NewRemotePlayer creates a player delivering clips through deliver. slack is
// added to the clip duration before giving up on a finish signal.
func NewRemotePlayer(deliver func(Clip), slack time.Duration) *RemotePlayer {
	return &RemotePlayer{deliver: deliver, slack: slack}
}

// Play delivers the clip and waits for Finished
func (p *RemotePlayer) Play(ctx context.Context, clip Clip) error {
	done := make(chan struct{})
	p.mu.Lock()
	p.finished = done
	deliver := p.deliver
	p.mu.Unlock()

	if deliver != nil {
		deliver(clip)
	}

	var timeout <-chan time.Time
	if p.slack > 0 {
		timer := time.NewTimer(clip.Duration() + p.slack)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timeout:
		return ErrPlaybackTimedOut
	}
}

// Finished signals the end of the current playback. It reports false when
// nothing is playing.
func (p *RemotePlayer) Finished() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished == nil {
		return false
	}
	close(p.finished)
	p.finished = nil
	return true
}
