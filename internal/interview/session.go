package interview

import (
	"fmt"
	"strings"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// Status is where a session is in the question/answer cycle
type Status string

const (
	StatusInitializing            Status = "Initializing"
	StatusAwaitingQuestion        Status = "AwaitingQuestion"
	StatusAwaitingAudioGeneration Status = "AwaitingAudioGeneration"
	StatusPlayingQuestion         Status = "PlayingQuestion"
	StatusRecording               Status = "Recording"
	StatusTranscribing            Status = "Transcribing"
	StatusAwaitingAnalysis        Status = "AwaitingAnalysis"
	StatusComplete                Status = "Complete"
	StatusFailed                  Status = "Failed"
)

// Terminal reports whether no further transitions are possible
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusFailed
}

// FailureKind classifies why a session failed
type FailureKind string

const (
	FailurePermission FailureKind = "permission"
	FailureGeneration FailureKind = "generation"
	FailureSynthesis  FailureKind = "synthesis"
	FailurePlayback   FailureKind = "playback"
	FailureCapture    FailureKind = "capture"
)

// Session is the full state of one mock interview. Values are treated as
// immutable: Reduce returns a new Session and never mutates the old one's
// transcript.
type Session struct {
	ID                    string                   `json:"id"`
	UserEmail             string                   `json:"userEmail"`
	JobDescription        string                   `json:"jobDescription"`
	Material              models.CandidateMaterial `json:"-"`
	Transcript            []models.Turn            `json:"transcript"`
	Status                Status                   `json:"status"`
	CurrentQuestionNumber int                      `json:"currentQuestionNumber"`
	CurrentQuestionText   string                   `json:"currentQuestionText"`
	NominalQuestions      int                      `json:"nominalQuestions"`
	Warning               string                   `json:"warning,omitempty"`
	Error                 string                   `json:"error,omitempty"`
	FailureKind           FailureKind              `json:"failureKind,omitempty"`
	Report                *models.InterviewReport  `json:"report,omitempty"`
}

// NewSession validates the inputs and returns a session in Initializing
func NewSession(id, userEmail, jobDescription string, material models.CandidateMaterial, nominalQuestions int) (Session, error) {
	if strings.TrimSpace(jobDescription) == "" {
		return Session{}, fmt.Errorf("job description is required")
	}
	if err := material.Validate(); err != nil {
		return Session{}, err
	}
	if nominalQuestions <= 0 {
		nominalQuestions = 7
	}
	return Session{
		ID:               id,
		UserEmail:        userEmail,
		JobDescription:   strings.TrimSpace(jobDescription),
		Material:         material,
		Transcript:       []models.Turn{},
		Status:           StatusInitializing,
		NominalQuestions: nominalQuestions,
	}, nil
}

// CanStopRecording reports whether the stop control is enabled
func (s Session) CanStopRecording() bool {
	return s.Status == StatusRecording
}

// Progress is a cosmetic estimate in [0, 1] based on the nominal question
// count. The interview ends only when the model says so.
func (s Session) Progress() float64 {
	if s.Status == StatusComplete {
		return 1
	}
	if s.NominalQuestions <= 0 {
		return 0
	}
	n := min(s.CurrentQuestionNumber, s.NominalQuestions)
	return float64(n) / float64(s.NominalQuestions)
}

// currentTurn returns the last turn, if any
func (s Session) currentTurn() (models.Turn, bool) {
	if len(s.Transcript) == 0 {
		return models.Turn{}, false
	}
	return s.Transcript[len(s.Transcript)-1], true
}

// withLastTurn returns a copy of the transcript with the last turn replaced
func (s Session) withLastTurn(fn func(t *models.Turn)) []models.Turn {
	out := make([]models.Turn, len(s.Transcript))
	copy(out, s.Transcript)
	if len(out) > 0 {
		fn(&out[len(out)-1])
	}
	return out
}
