package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/turns"
)

var (
	// ErrSessionClosed is returned when messages are sent to a closed runner
	ErrSessionClosed = errors.New("interview session closed")
	// ErrExchangeInFlight is returned if a second turn call is attempted
	// while one is still running
	ErrExchangeInFlight = errors.New("a question exchange is already in flight")
)

// TurnGenerator produces the next interview step
type TurnGenerator interface {
	Next(ctx context.Context, in turns.Input) (turns.Step, error)
}

// Transcriber turns a recorded answer into text
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// ReportSink persists finished reports
type ReportSink interface {
	SaveReport(ctx context.Context, report models.InterviewReport) error
}

// Deps are the collaborators a runner drives
type Deps struct {
	Turns        TurnGenerator
	Transcriber  Transcriber
	Speech       llm.Synthesizer
	SpeechPolicy llm.CallPolicy
	Player       audio.Player
	Capture      audio.Capture
	Reports      ReportSink
	Rules        Rules
	SampleRate   int
	Now          func() time.Time
}

// Runner executes the effects Reduce asks for. All state changes happen on
// one goroutine; remote calls and playback run on their own goroutines and
// report back through the inbox.
type Runner struct {
	deps   Deps
	inbox  chan Message
	flight *semaphore.Weighted

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.RWMutex
	started   bool
	session   Session
	listeners map[int]func(Session)
	nextID    int
}

// NewRunner creates a runner for the session. Call Run to start it.
func NewRunner(s Session, deps Deps) *Runner {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SampleRate <= 0 {
		deps.SampleRate = llm.DefaultSpeechSampleRate
	}
	if deps.Rules.MinAnswerLength <= 0 && len(deps.Rules.PlaceholderAnswers) == 0 {
		deps.Rules = DefaultRules()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		deps:      deps,
		inbox:     make(chan Message, 16),
		flight:    semaphore.NewWeighted(1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		session:   s,
		listeners: make(map[int]func(Session)),
	}
}

// Run starts the interview loop. It returns immediately.
func (r *Runner) Run() {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go r.loop()
	r.post(Start{})
}

// Snapshot returns the current session
func (r *Runner) Snapshot() Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.session
}

// Subscribe registers fn for every state change. The returned function
// removes it.
func (r *Runner) Subscribe(fn func(Session)) func() {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

// Send delivers a user message such as StopRequested
func (r *Runner) Send(msg Message) error {
	select {
	case <-r.done:
		return ErrSessionClosed
	default:
	}
	select {
	case r.inbox <- msg:
		return nil
	case <-r.done:
		return ErrSessionClosed
	}
}

// StopRecording is the user pressing stop
func (r *Runner) StopRecording() error {
	if s := r.Snapshot(); !s.CanStopRecording() {
		return fmt.Errorf("%w: interview is %s", audio.ErrNotRecording, s.Status)
	}
	return r.Send(StopRequested{})
}

// Close abandons the session. In-flight remote calls are cancelled and their
// results discarded.
func (r *Runner) Close() {
	r.cancel()
	r.mu.RLock()
	started := r.started
	r.mu.RUnlock()
	if !started {
		r.deps.Capture.Release()
		return
	}
	<-r.done
}

// Done is closed once the loop has exited
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) loop() {
	defer close(r.done)
	defer r.deps.Capture.Release()

	for {
		select {
		case <-r.ctx.Done():
			return
		case msg := <-r.inbox:
			r.dispatch(msg)
			if r.Snapshot().Status.Terminal() {
				r.cancel()
				return
			}
		}
	}
}

// dispatch reduces msg and any messages produced synchronously by its effects
func (r *Runner) dispatch(msg Message) {
	queue := []Message{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		r.mu.Lock()
		s, effects := Reduce(r.deps.Rules, r.session, next)
		r.session = s
		r.mu.Unlock()

		r.notify(s)

		for _, e := range effects {
			if m := r.execute(s, e); m != nil {
				queue = append(queue, m)
			}
		}
	}
}

// execute runs one effect. Quick local effects return their result message
// directly; remote calls and playback run asynchronously.
func (r *Runner) execute(s Session, e Effect) Message {
	switch eff := e.(type) {
	case Log:
		log.Print(eff.Message)

	case AcquireCapture:
		if err := r.deps.Capture.Acquire(); err != nil {
			return CaptureDenied{Err: err}
		}
		return CaptureAcquired{}

	case StartCapture:
		err := r.deps.Capture.Start(func(b audio.Blob) {
			r.post(AudioCaptured{Blob: b})
		})
		if err != nil {
			return CaptureFailed{Err: err}
		}

	case StopCapture:
		if err := r.deps.Capture.Stop(); err != nil {
			log.Printf("session %s: stop capture: %v", s.ID, err)
		}

	case ReleaseCapture:
		r.deps.Capture.Release()

	case SaveReport:
		if r.deps.Reports == nil {
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.deps.Reports.SaveReport(ctx, eff.Report); err != nil {
			log.Printf("session %s: failed to save report: %v", s.ID, err)
		}

	case RequestTurn:
		if !r.flight.TryAcquire(1) {
			return TurnFailed{Err: ErrExchangeInFlight}
		}
		r.async(turnFailed, func(ctx context.Context) Message {
			defer r.flight.Release(1)
			step, err := r.deps.Turns.Next(ctx, eff.Input)
			if err != nil {
				return TurnFailed{Err: err}
			}
			return TurnGenerated{Step: step, At: r.deps.Now()}
		})

	case SynthesizeSpeech:
		r.async(speechFailed, func(ctx context.Context) Message {
			speech, err := llm.Call(ctx, r.deps.SpeechPolicy, "speech synthesis", func(ctx context.Context) (llm.Speech, error) {
				return r.deps.Speech.Synthesize(ctx, eff.Text)
			})
			if err != nil {
				return SpeechFailed{Err: err}
			}
			rate := speech.SampleRate
			if rate <= 0 {
				rate = r.deps.SampleRate
			}
			clip, err := audio.DecodeBase64PCM16(speech.Base64, rate)
			if err != nil {
				return SpeechFailed{Err: err}
			}
			return SpeechReady{Clip: clip}
		})

	case PlayAudio:
		r.async(playbackFailedMsg, func(ctx context.Context) Message {
			if err := r.deps.Player.Play(ctx, eff.Clip); err != nil {
				return PlaybackFailed{Err: err}
			}
			return PlaybackFinished{}
		})

	case Transcribe:
		r.async(transcriptionFailed, func(ctx context.Context) Message {
			text, err := r.deps.Transcriber.Transcribe(ctx, eff.Blob.Data, eff.Blob.MIMEType)
			if err != nil {
				return TranscriptionFailed{Err: err}
			}
			return Transcribed{Text: text}
		})

	default:
		log.Printf("session %s: unknown effect %T", s.ID, e)
	}
	return nil
}

func (r *Runner) async(fail func(error) Message, fn func(ctx context.Context) Message) {
	go func() {
		msg := r.guard(fail, fn)
		if r.ctx.Err() != nil {
			return
		}
		r.post(msg)
	}()
}

// guard runs fn and converts a panic into the message built by fail
func (r *Runner) guard(fail func(error) Message, fn func(ctx context.Context) Message) (msg Message) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("session %s: recovered from panic: %v", r.Snapshot().ID, p)
			msg = fail(fmt.Errorf("panic: %v", p))
		}
	}()
	return fn(r.ctx)
}

func turnFailed(err error) Message          { return TurnFailed{Err: err} }
func speechFailed(err error) Message        { return SpeechFailed{Err: err} }
func playbackFailedMsg(err error) Message   { return PlaybackFailed{Err: err} }
func transcriptionFailed(err error) Message { return TranscriptionFailed{Err: err} }

// post enqueues msg without blocking the caller, which may be the loop itself
func (r *Runner) post(msg Message) {
	go func() {
		select {
		case r.inbox <- msg:
		case <-r.done:
		}
	}()
}

func (r *Runner) notify(s Session) {
	r.mu.RLock()
	fns := make([]func(Session), 0, len(r.listeners))
	for _, fn := range r.listeners {
		fns = append(fns, fn)
	}
	r.mu.RUnlock()

	for _, fn := range fns {
		fn(s)
	}
}
