package agent

import (
	"sync"
	"time"

	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/interview"
)

// playbackSlack is how long past the end of a clip we wait for the client
// to report the end of playback
const playbackSlack = 45 * time.Second

// LiveInterview is one running mock interview and the remote audio devices
// it plays to and records from
type LiveInterview struct {
	ID    string
	Email string

	token string

	runner   *interview.Runner
	recorder *audio.Recorder
	player   *audio.RemotePlayer

	mu        sync.RWMutex
	clip      audio.Clip
	clipSeq   int
	listeners map[int]func(seq int, clip audio.Clip)
	nextID    int
}

func newLiveInterview(id, email string, recorder *audio.Recorder) *LiveInterview {
	li := &LiveInterview{
		ID:        id,
		Email:     email,
		recorder:  recorder,
		listeners: make(map[int]func(int, audio.Clip)),
	}
	li.player = audio.NewRemotePlayer(li.deliver, playbackSlack)
	return li
}

// deliver publishes a question clip to audio listeners
func (li *LiveInterview) deliver(clip audio.Clip) {
	li.mu.Lock()
	li.clip = clip
	li.clipSeq++
	seq := li.clipSeq
	fns := make([]func(int, audio.Clip), 0, len(li.listeners))
	for _, fn := range li.listeners {
		fns = append(fns, fn)
	}
	li.mu.Unlock()

	for _, fn := range fns {
		fn(seq, clip)
	}
}

// Snapshot returns the current interview state
func (li *LiveInterview) Snapshot() interview.Session {
	return li.runner.Snapshot()
}

// Subscribe registers fn for state changes
func (li *LiveInterview) Subscribe(fn func(interview.Session)) func() {
	return li.runner.Subscribe(fn)
}

// SubscribeAudio registers fn for every question clip
func (li *LiveInterview) SubscribeAudio(fn func(seq int, clip audio.Clip)) func() {
	li.mu.Lock()
	id := li.nextID
	li.nextID++
	li.listeners[id] = fn
	li.mu.Unlock()

	return func() {
		li.mu.Lock()
		delete(li.listeners, id)
		li.mu.Unlock()
	}
}

// QuestionAudio returns the latest question clip and its sequence number.
// ok is false before the first question has been synthesized.
func (li *LiveInterview) QuestionAudio() (clip audio.Clip, seq int, ok bool) {
	li.mu.RLock()
	defer li.mu.RUnlock()
	return li.clip, li.clipSeq, li.clipSeq > 0
}

// WriteAudio appends a recorded chunk to the running answer
func (li *LiveInterview) WriteAudio(mimeType string, chunk []byte) error {
	li.recorder.SetMIMEType(mimeType)
	_, err := li.recorder.Write(chunk)
	return err
}

// StopRecording ends the current answer
func (li *LiveInterview) StopRecording() error {
	return li.runner.StopRecording()
}

// PlaybackFinished reports that the client has played the question in full
func (li *LiveInterview) PlaybackFinished() bool {
	return li.player.Finished()
}

// Done is closed once the interview has stopped
func (li *LiveInterview) Done() <-chan struct{} {
	return li.runner.Done()
}

// Close abandons the interview
func (li *LiveInterview) Close() {
	li.runner.Close()
}
