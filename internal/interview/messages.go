package interview

import (
	"time"

	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/turns"
)

// Message is an event fed to Reduce: a user action or the result of an effect
type Message interface {
	isMessage()
}

// Start opens the session
type Start struct{}

// CaptureAcquired reports the microphone handle was granted
type CaptureAcquired struct{}

// CaptureDenied reports the microphone was refused
type CaptureDenied struct{ Err error }

// TurnGenerated carries the model's next step
type TurnGenerated struct {
	Step turns.Step
	At   time.Time
}

// TurnFailed reports a failed turn call
type TurnFailed struct{ Err error }

// SpeechReady carries the decoded question audio
type SpeechReady struct{ Clip audio.Clip }

// SpeechFailed reports a failed synthesis or decode
type SpeechFailed struct{ Err error }

// PlaybackFinished reports the question has been heard in full
type PlaybackFinished struct{}

// PlaybackFailed reports playback could not complete
type PlaybackFailed struct{ Err error }

// CaptureFailed reports a recording could not start
type CaptureFailed struct{ Err error }

// StopRequested is the user pressing stop
type StopRequested struct{}

// AudioCaptured carries the finalized recording
type AudioCaptured struct{ Blob audio.Blob }

// Transcribed carries the transcription of the answer
type Transcribed struct{ Text string }

// TranscriptionFailed reports a failed transcription
type TranscriptionFailed struct{ Err error }

func (Start) isMessage()               {}
func (CaptureAcquired) isMessage()     {}
func (CaptureDenied) isMessage()       {}
func (TurnGenerated) isMessage()       {}
func (TurnFailed) isMessage()          {}
func (SpeechReady) isMessage()         {}
func (SpeechFailed) isMessage()        {}
func (PlaybackFinished) isMessage()    {}
func (PlaybackFailed) isMessage()      {}
func (CaptureFailed) isMessage()       {}
func (StopRequested) isMessage()       {}
func (AudioCaptured) isMessage()       {}
func (Transcribed) isMessage()         {}
func (TranscriptionFailed) isMessage() {}

// Effect is work Reduce asks the runner to perform
type Effect interface {
	isEffect()
}

// AcquireCapture takes the microphone handle
type AcquireCapture struct{}

// RequestTurn calls the turn generator
type RequestTurn struct{ Input turns.Input }

// SynthesizeSpeech turns the question into audio
type SynthesizeSpeech struct{ Text string }

// PlayAudio plays the question and waits for it to end
type PlayAudio struct{ Clip audio.Clip }

// StartCapture begins recording the answer
type StartCapture struct{}

// StopCapture finalizes the recording
type StopCapture struct{}

// Transcribe sends the recording for transcription
type Transcribe struct{ Blob audio.Blob }

// ReleaseCapture drops the microphone handle
type ReleaseCapture struct{}

// SaveReport persists the final report
type SaveReport struct{ Report models.InterviewReport }

// Log records a diagnostic line
type Log struct{ Message string }

func (AcquireCapture) isEffect()   {}
func (RequestTurn) isEffect()      {}
func (SynthesizeSpeech) isEffect() {}
func (PlayAudio) isEffect()        {}
func (StartCapture) isEffect()     {}
func (StopCapture) isEffect()      {}
func (Transcribe) isEffect()       {}
func (ReleaseCapture) isEffect()   {}
func (SaveReport) isEffect()       {}
func (Log) isEffect()              {}
