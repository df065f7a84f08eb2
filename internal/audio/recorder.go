package audio

import (
	"bytes"
	"errors"
	"sync"
)

var (
	// ErrPermissionDenied is returned when the microphone cannot be acquired
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrCaptureActive is returned when a capture is already running
	ErrCaptureActive = errors.New("a capture is already active")
	// ErrNotRecording is returned when audio arrives with no capture running
	ErrNotRecording = errors.New("no capture is active")
	// ErrReleased is returned after the capture handle was released
	ErrReleased = errors.New("capture handle released")
	// ErrAnswerTooLarge is returned when a recording exceeds the size limit
	ErrAnswerTooLarge = errors.New("recording exceeds size limit")
)

// Blob is one finalized recording
type Blob struct {
	Data     []byte
	MIMEType string
}

// Empty reports whether the recording holds no audio
func (b Blob) Empty() bool {
	return len(b.Data) == 0
}

// Capture is the microphone as seen by an interview: one handle per session,
// one recording at a time
type Capture interface {
	Acquire() error
	Start(onStop func(Blob)) error
	Stop() error
	Release()
}

// Recorder buffers audio chunks pushed by a remote microphone (the browser)
// and hands them over as a single blob when the recording stops
type Recorder struct {
	mu       sync.Mutex
	granted  bool
	acquired bool
	released bool
	active   bool
	mimeType string
	maxBytes int
	buf      bytes.Buffer
	onStop   func(Blob)
}

// NewRecorder creates a recorder. granted reflects whether the user allowed
// microphone access when the session was opened.
func NewRecorder(granted bool, mimeType string, maxBytes int) *Recorder {
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	return &Recorder{granted: granted, mimeType: mimeType, maxBytes: maxBytes}
}

// Acquire takes the capture handle for the session
func (r *Recorder) Acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.released {
		return ErrReleased
	}
	if !r.granted {
		return ErrPermissionDenied
	}
	r.acquired = true
	return nil
}

// Start begins a recording; onStop receives the blob when it ends
func (r *Recorder) Start(onStop func(Blob)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.released:
		return ErrReleased
	case !r.acquired:
		return ErrPermissionDenied
	case r.active:
		return ErrCaptureActive
	}
	r.active = true
	r.buf.Reset()
	r.onStop = onStop
	return nil
}

// SetMIMEType records the container the client is uploading
func (r *Recorder) SetMIMEType(mimeType string) {
	if mimeType == "" {
		return
	}
	r.mu.Lock()
	r.mimeType = mimeType
	r.mu.Unlock()
}

// Write appends a chunk to the running recording
func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return 0, ErrNotRecording
	}
	if r.maxBytes > 0 && r.buf.Len()+len(p) > r.maxBytes {
		return 0, ErrAnswerTooLarge
	}
	return r.buf.Write(p)
}

// Recording reports whether a capture is running
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Stop ends the recording and delivers the blob to the Start callback
func (r *Recorder) Stop() error {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return ErrNotRecording
	}
	r.active = false
	blob := Blob{Data: append([]byte(nil), r.buf.Bytes()...), MIMEType: r.mimeType}
	r.buf.Reset()
	cb := r.onStop
	r.onStop = nil
	r.mu.Unlock()

	if cb != nil {
		cb(blob)
	}
	return nil
}

// Release drops the capture handle. Any running recording is discarded.
func (r *Recorder) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = true
	r.acquired = false
	r.active = false
	r.onStop = nil
	r.buf.Reset()
}
