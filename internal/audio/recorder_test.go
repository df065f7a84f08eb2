package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRecorderPermissionDenied(t *testing.T) {
	r := NewRecorder(false, "", 0)
	if err := r.Acquire(); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("Expected ErrPermissionDenied, got %v", err)
	}
	if err := r.Start(func(Blob) {}); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("Expected Start to fail without a handle, got %v", err)
	}
}

func TestRecorderLifecycle(t *testing.T) {
	r := NewRecorder(true, "audio/ogg", 0)
	if err := r.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if _, err := r.Write([]byte("early")); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording before Start, got %v", err)
	}

	var got Blob
	calls := 0
	if err := r.Start(func(b Blob) { got = b; calls++ }); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := r.Start(func(Blob) {}); !errors.Is(err, ErrCaptureActive) {
		t.Errorf("Expected ErrCaptureActive on second Start, got %v", err)
	}
	if !r.Recording() {
		t.Error("Expected recorder to be recording")
	}

	r.Write([]byte("abc"))
	r.Write([]byte("def"))

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("Expected one callback, got %d", calls)
	}
	if string(got.Data) != "abcdef" || got.MIMEType != "audio/ogg" {
		t.Errorf("Unexpected blob %+v", got)
	}
	if err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording on second Stop, got %v", err)
	}
}

func TestRecorderEmptyRecording(t *testing.T) {
	r := NewRecorder(true, "", 0)
	r.Acquire()

	var got Blob
	r.Start(func(b Blob) { got = b })
	r.Stop()

	if !got.Empty() {
		t.Errorf("Expected empty blob, got %d bytes", len(got.Data))
	}
}

func TestRecorderSizeLimit(t *testing.T) {
	r := NewRecorder(true, "", 4)
	r.Acquire()
	r.Start(func(Blob) {})

	if _, err := r.Write([]byte("1234")); err != nil {
		t.Fatalf("Write within limit failed: %v", err)
	}
	if _, err := r.Write([]byte("5")); !errors.Is(err, ErrAnswerTooLarge) {
		t.Errorf("Expected ErrAnswerTooLarge, got %v", err)
	}
}

func TestRecorderRelease(t *testing.T) {
	r := NewRecorder(true, "", 0)
	r.Acquire()

	called := false
	r.Start(func(Blob) { called = true })
	r.Release()

	if err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("Expected ErrNotRecording after Release, got %v", err)
	}
	if called {
		t.Error("Released recording must not be delivered")
	}
	if err := r.Acquire(); !errors.Is(err, ErrReleased) {
		t.Errorf("Expected ErrReleased, got %v", err)
	}
}

func TestRemotePlayerBlocksUntilFinished(t *testing.T) {
	delivered := make(chan Clip, 1)
	p := NewRemotePlayer(func(c Clip) { delivered <- c }, 0)

	if p.Finished() {
		t.Error("Finished should report false when nothing plays")
	}

	done := make(chan error, 1)
	go func() {
		done <- p.Play(context.Background(), Clip{Samples: []float32{0}, SampleRate: 24000})
	}()

	<-delivered
	select {
	case <-done:
		t.Fatal("Play returned before playback finished")
	case <-time.After(20 * time.Millisecond):
	}

	if !p.Finished() {
		t.Fatal("Expected Finished to release the player")
	}
	if err := <-done; err != nil {
		t.Errorf("Play returned %v", err)
	}
}

func TestRemotePlayerTimeoutAndCancel(t *testing.T) {
	p := NewRemotePlayer(nil, 10*time.Millisecond)
	if err := p.Play(context.Background(), Clip{}); !errors.Is(err, ErrPlaybackTimedOut) {
		t.Errorf("Expected ErrPlaybackTimedOut, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p = NewRemotePlayer(nil, 0)
	if err := p.Play(ctx, Clip{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}
