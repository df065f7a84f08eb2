package interview

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/turns"
)

func newTestSession(t *testing.T) Session {
	t.Helper()
	s, err := NewSession("sess-1", "ada@example.com", strings.Repeat("j", 200), models.CandidateMaterial{
		Document: &models.Document{Name: "cv.pdf", MIMEType: "application/pdf", Data: []byte("%PDF-1.4")},
	}, 7)
	require.NoError(t, err)
	return s
}

func question(n int, text string) turns.QuestionStep {
	return turns.QuestionStep{Question: turns.NextQuestion{Number: n, Text: text, Source: models.SourceJD}}
}

func analysis(feedback string, v int) *models.Analysis {
	return &models.Analysis{Feedback: feedback, Scores: models.Scores{
		Relevance: v, Structure: v, Metrics: v, Alignment: v, Communication: v,
	}}
}

// drive feeds messages through Reduce and returns the effects of the last one
func drive(t *testing.T, s Session, msgs ...Message) (Session, []Effect) {
	t.Helper()
	var effects []Effect
	for _, m := range msgs {
		var out []Effect
		s, out = Reduce(DefaultRules(), s, m)
		effects = out
	}
	return s, effects
}

func findEffect[T Effect](effects []Effect) (T, bool) {
	for _, e := range effects {
		if v, ok := e.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// recordingAt returns a session recording its first answer
func recordingAt(t *testing.T) Session {
	s, _ := drive(t, newTestSession(t),
		Start{},
		CaptureAcquired{},
		TurnGenerated{Step: question(1, "Tell me about a team you led.")},
		SpeechReady{Clip: audio.Clip{Samples: []float32{0}, SampleRate: 24000}},
		PlaybackFinished{},
	)
	require.Equal(t, StatusRecording, s.Status)
	return s
}

func TestNewSessionValidation(t *testing.T) {
	doc := &models.Document{Name: "cv.txt", MIMEType: "text/plain", Text: "Go engineer"}
	tests := []struct {
		name     string
		jd       string
		material models.CandidateMaterial
		wantErr  bool
	}{
		{"valid document", "Backend role", models.CandidateMaterial{Document: doc}, false},
		{"valid profile", "Backend role", models.CandidateMaterial{Profile: &models.CandidateProfile{FullName: "Ada", Skills: []string{"Go"}}}, false},
		{"blank job description", "   ", models.CandidateMaterial{Document: doc}, true},
		{"no material", "Backend role", models.CandidateMaterial{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSession("id", "a@b.c", tt.jd, tt.material, 0)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, StatusInitializing, s.Status)
			assert.Equal(t, 7, s.NominalQuestions)
			assert.Empty(t, s.Transcript)
		})
	}
}

func TestStartRequestsFirstQuestionWithoutAnswer(t *testing.T) {
	s := newTestSession(t)

	s, effects := Reduce(DefaultRules(), s, Start{})
	assert.Equal(t, StatusInitializing, s.Status)
	assert.Equal(t, []Effect{AcquireCapture{}}, effects)

	s, effects = Reduce(DefaultRules(), s, CaptureAcquired{})
	assert.Equal(t, StatusAwaitingQuestion, s.Status)
	require.Len(t, effects, 1)
	req, ok := effects[0].(RequestTurn)
	require.True(t, ok)
	assert.Nil(t, req.Input.Answer)
	assert.Empty(t, req.Input.Transcript)
	assert.Equal(t, s.JobDescription, req.Input.JobDescription)
}

func TestPermissionDeniedFailsBeforeLoop(t *testing.T) {
	s, effects := drive(t, newTestSession(t), Start{}, CaptureDenied{Err: audio.ErrPermissionDenied})
	assert.Equal(t, StatusFailed, s.Status)
	assert.Equal(t, FailurePermission, s.FailureKind)
	assert.NotEmpty(t, s.Error)
	_, requested := findEffect[RequestTurn](effects)
	assert.False(t, requested)
}

func TestFirstQuestionAppendedWithPlaceholders(t *testing.T) {
	s, effects := drive(t, newTestSession(t),
		Start{}, CaptureAcquired{}, TurnGenerated{Step: question(1, "Tell me about a team you led.")})

	assert.Equal(t, StatusAwaitingAudioGeneration, s.Status)
	require.Len(t, s.Transcript, 1)
	turn := s.Transcript[0]
	assert.Equal(t, 1, turn.QuestionNumber)
	assert.Equal(t, models.PlaceholderScores(), turn.Scores)
	assert.Equal(t, models.Scores{Relevance: 1, Structure: 1, Metrics: 1, Alignment: 1, Communication: 1}, turn.Scores)
	assert.Equal(t, models.PlaceholderFeedback, turn.Feedback)
	assert.False(t, turn.Analyzed)
	assert.Equal(t, 1, s.CurrentQuestionNumber)

	synth, ok := findEffect[SynthesizeSpeech](effects)
	require.True(t, ok)
	assert.Equal(t, "Tell me about a team you led.", synth.Text)
}

func TestAnswerPatchesPreviousTurnBeforeAppending(t *testing.T) {
	s := recordingAt(t)
	s, _ = drive(t, s, StopRequested{}, AudioCaptured{Blob: audio.Blob{Data: []byte{1, 2}, MIMEType: "audio/webm"}})
	require.Equal(t, StatusTranscribing, s.Status)

	s, effects := Reduce(DefaultRules(), s, Transcribed{Text: "I led a team of five engineers"})
	assert.Equal(t, StatusAwaitingAnalysis, s.Status)
	req, ok := findEffect[RequestTurn](effects)
	require.True(t, ok)
	require.NotNil(t, req.Input.Answer)
	assert.Equal(t, "I led a team of five engineers", *req.Input.Answer)
	require.Len(t, req.Input.Transcript, 1)
	assert.Equal(t, "I led a team of five engineers", req.Input.Transcript[0].CandidateAnswer)

	step := question(2, "How do you handle incidents?")
	step.PreviousAnalysis = analysis("Add numbers.", 4)
	s, _ = Reduce(DefaultRules(), s, TurnGenerated{Step: step})

	require.Len(t, s.Transcript, 2)
	assert.True(t, s.Transcript[0].Analyzed)
	assert.Equal(t, "Add numbers.", s.Transcript[0].Feedback)
	assert.Equal(t, 4, s.Transcript[0].Scores.Metrics)
	assert.False(t, s.Transcript[1].Analyzed)
	assert.Equal(t, 2, s.Transcript[1].QuestionNumber)
}

func TestZeroLengthAudioSkipsTranscription(t *testing.T) {
	s := recordingAt(t)
	s, _ = Reduce(DefaultRules(), s, StopRequested{})
	require.Equal(t, StatusTranscribing, s.Status)

	s, effects := Reduce(DefaultRules(), s, AudioCaptured{Blob: audio.Blob{MIMEType: "audio/webm"}})
	assert.Equal(t, StatusRecording, s.Status)
	assert.NotEmpty(t, s.Warning)
	_, transcribed := findEffect[Transcribe](effects)
	assert.False(t, transcribed)
	_, restarted := findEffect[StartCapture](effects)
	assert.True(t, restarted)
	assert.Equal(t, 1, s.CurrentQuestionNumber)
}

func TestDegenerateTranscriptionRetriesInPlace(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
	}{
		{"empty", Transcribed{Text: ""}},
		{"too short", Transcribed{Text: " ok "}},
		{"placeholder", Transcribed{Text: "[No speech detected]"}},
		{"remote error", TranscriptionFailed{Err: errors.New("unavailable")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := recordingAt(t)
			s, _ = drive(t, s, StopRequested{}, AudioCaptured{Blob: audio.Blob{Data: []byte{1}}})

			s, effects := Reduce(DefaultRules(), s, tt.msg)
			assert.Equal(t, StatusRecording, s.Status)
			assert.NotEmpty(t, s.Warning)
			assert.Equal(t, 1, s.CurrentQuestionNumber)
			require.Len(t, s.Transcript, 1)
			assert.Empty(t, s.Transcript[0].CandidateAnswer)
			_, requested := findEffect[RequestTurn](effects)
			assert.False(t, requested)
		})
	}
}

func TestReportPatchesFinalTurn(t *testing.T) {
	s := recordingAt(t)
	s, _ = drive(t, s,
		StopRequested{},
		AudioCaptured{Blob: audio.Blob{Data: []byte{1}}},
		Transcribed{Text: "I led a team of five engineers"},
	)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	final := analysis("Strong close.", 5)
	summary := models.ReportSummary{
		CompanyDetected: "Acme", RoleDetected: "Engineer", OverallScore: 88,
		TopStrengths:    []string{"Leadership"},
		TopImprovements: []models.Improvement{{Point: "Metrics", Suggestion: "Quantify"}},
	}
	s, effects := Reduce(DefaultRules(), s, TurnGenerated{Step: turns.ReportStep{Summary: summary, FinalAnalysis: final}, At: at})

	assert.Equal(t, StatusComplete, s.Status)
	require.NotNil(t, s.Report)
	last := s.Report.Transcript[len(s.Report.Transcript)-1]
	assert.Equal(t, final.Feedback, last.Feedback)
	assert.Equal(t, final.Scores, last.Scores)
	assert.Equal(t, at, s.Report.CreatedAt)
	assert.Equal(t, s.ID, s.Report.ID)
	assert.Contains(t, s.Report.TextRendering, "Acme")
	assert.Contains(t, s.Report.MarkdownRendering, "Acme")

	save, ok := findEffect[SaveReport](effects)
	require.True(t, ok)
	assert.Equal(t, *s.Report, save.Report)
	assert.Equal(t, 1.0, s.Progress())
}

func TestQuestionNumbersAssignedLocally(t *testing.T) {
	s := newTestSession(t)
	s, _ = drive(t, s, Start{}, CaptureAcquired{})

	// the model repeats number 1 on every question
	for i := 1; i <= 3; i++ {
		step := question(1, "Question")
		if i > 1 {
			step.PreviousAnalysis = analysis("ok", 3)
		}
		var effects []Effect
		s, effects = Reduce(DefaultRules(), s, TurnGenerated{Step: step})
		if i > 1 {
			_, logged := findEffect[Log](effects)
			assert.True(t, logged)
		}
		s, _ = drive(t, s,
			SpeechReady{}, PlaybackFinished{}, StopRequested{},
			AudioCaptured{Blob: audio.Blob{Data: []byte{1}}},
			Transcribed{Text: "A sufficiently long answer"},
		)
	}

	require.Len(t, s.Transcript, 3)
	for i, turn := range s.Transcript {
		assert.Equal(t, i+1, turn.QuestionNumber)
	}
}

func TestTerminalFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup []Message
		msg   Message
		kind  FailureKind
	}{
		{"turn generation", []Message{Start{}, CaptureAcquired{}}, TurnFailed{Err: errors.New("boom")}, FailureGeneration},
		{"speech synthesis", []Message{Start{}, CaptureAcquired{}, TurnGenerated{Step: question(1, "Q")}}, SpeechFailed{Err: errors.New("boom")}, FailureSynthesis},
		{"playback", []Message{Start{}, CaptureAcquired{}, TurnGenerated{Step: question(1, "Q")}, SpeechReady{}}, PlaybackFailed{Err: errors.New("boom")}, FailurePlayback},
		{"capture", []Message{Start{}, CaptureAcquired{}, TurnGenerated{Step: question(1, "Q")}, SpeechReady{}, PlaybackFinished{}}, CaptureFailed{Err: errors.New("boom")}, FailureCapture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := drive(t, newTestSession(t), tt.setup...)
			s, effects := Reduce(DefaultRules(), s, tt.msg)
			assert.Equal(t, StatusFailed, s.Status)
			assert.Equal(t, tt.kind, s.FailureKind)
			assert.NotEmpty(t, s.Error)
			_, released := findEffect[ReleaseCapture](effects)
			assert.True(t, released)

			after, effects := Reduce(DefaultRules(), s, Start{})
			assert.Equal(t, StatusFailed, after.Status)
			assert.Empty(t, effects)
		})
	}
}

func TestStopIgnoredOutsideRecording(t *testing.T) {
	s, _ := drive(t, newTestSession(t), Start{}, CaptureAcquired{})
	assert.False(t, s.CanStopRecording())

	after, effects := Reduce(DefaultRules(), s, StopRequested{})
	assert.Equal(t, StatusAwaitingQuestion, after.Status)
	_, stopped := findEffect[StopCapture](effects)
	assert.False(t, stopped)
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := recordingAt(t)
	s, _ = drive(t, s, StopRequested{}, AudioCaptured{Blob: audio.Blob{Data: []byte{1}}})
	before := s.Transcript[0]

	_, _ = Reduce(DefaultRules(), s, Transcribed{Text: "I led a team of five engineers"})
	assert.Equal(t, before, s.Transcript[0])
}

func TestProgress(t *testing.T) {
	s := newTestSession(t)
	assert.Equal(t, 0.0, s.Progress())
	s.CurrentQuestionNumber = 3
	assert.InDelta(t, 3.0/7.0, s.Progress(), 1e-9)
	s.CurrentQuestionNumber = 12
	assert.Equal(t, 1.0, s.Progress())
}

func TestIsDegenerate(t *testing.T) {
	rules := DefaultRules()
	tests := []struct {
		text string
		want bool
	}{
		{"", true},
		{"    ", true},
		{"yes", true},
		{"héllo", false},
		{"I led a team of five engineers", false},
		{"Transcription not available.", true},
		{"[inaudible]", true},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.IsDegenerate(tt.text))
		})
	}
}
