package interview

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/turns"
)

type fakeTurns struct {
	mu          sync.Mutex
	steps       []turns.Step
	inputs      []turns.Input
	inFlight    int
	maxInFlight int
	block       bool
}

func (f *fakeTurns) Next(ctx context.Context, in turns.Input) (turns.Step, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	i := len(f.inputs)
	f.inputs = append(f.inputs, in)
	block := f.block
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	time.Sleep(5 * time.Millisecond)
	return f.steps[i], nil
}

func (f *fakeTurns) calls() []turns.Input {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]turns.Input(nil), f.inputs...)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	texts []string
	n     int
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, data []byte, mimeType string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	text := f.texts[f.n]
	f.n++
	return text, nil
}

func (f *fakeTranscriber) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

type fakeSpeech struct{}

func (fakeSpeech) Synthesize(ctx context.Context, text string) (llm.Speech, error) {
	pcm := []byte{0x00, 0x80, 0x00, 0x00}
	return llm.Speech{Base64: base64.StdEncoding.EncodeToString(pcm), MIMEType: "audio/L16;rate=24000", SampleRate: 24000}, nil
}

type instantPlayer struct{}

func (instantPlayer) Play(ctx context.Context, clip audio.Clip) error { return nil }

type memoryReports struct {
	mu      sync.Mutex
	reports []models.InterviewReport
}

func (m *memoryReports) SaveReport(ctx context.Context, r models.InterviewReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

func (m *memoryReports) saved() []models.InterviewReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.InterviewReport(nil), m.reports...)
}

func newTestRunner(t *testing.T, gen *fakeTurns, tr *fakeTranscriber, rec *audio.Recorder, reports *memoryReports) *Runner {
	t.Helper()
	r := NewRunner(newTestSession(t), Deps{
		Turns:        gen,
		Transcriber:  tr,
		Speech:       fakeSpeech{},
		SpeechPolicy: llm.CallPolicy{Timeout: time.Second, Retry: llm.RetryPolicy{MaxRetries: 1}},
		Player:       instantPlayer{},
		Capture:      rec,
		Reports:      reports,
		Rules:        DefaultRules(),
		Now:          func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	})
	t.Cleanup(r.Close)
	return r
}

func waitForStatus(t *testing.T, r *Runner, want Status) Session {
	t.Helper()
	require.Eventually(t, func() bool {
		return r.Snapshot().Status == want
	}, 2*time.Second, 5*time.Millisecond, "status never became %s (is %s)", want, r.Snapshot().Status)
	return r.Snapshot()
}

func TestRunnerFullInterview(t *testing.T) {
	final := analysis("Clear and specific.", 4)
	gen := &fakeTurns{steps: []turns.Step{
		question(1, "Tell me about a team you led."),
		turns.ReportStep{
			Summary: models.ReportSummary{
				CompanyDetected: "Acme", RoleDetected: "Engineer", OverallScore: 80,
				TopStrengths:    []string{"Leadership"},
				TopImprovements: []models.Improvement{{Point: "Depth", Suggestion: "Go deeper"}},
			},
			FinalAnalysis: final,
		},
	}}
	tr := &fakeTranscriber{texts: []string{"I led a team of five engineers"}}
	rec := audio.NewRecorder(true, "audio/webm", 0)
	reports := &memoryReports{}
	r := newTestRunner(t, gen, tr, rec, reports)

	var mu sync.Mutex
	var seen []Status
	unsubscribe := r.Subscribe(func(s Session) {
		mu.Lock()
		seen = append(seen, s.Status)
		mu.Unlock()
	})
	defer unsubscribe()

	r.Run()
	waitForStatus(t, r, StatusRecording)
	require.Eventually(t, rec.Recording, time.Second, 5*time.Millisecond)

	_, err := rec.Write([]byte("webm-bytes"))
	require.NoError(t, err)
	require.NoError(t, r.StopRecording())

	s := waitForStatus(t, r, StatusComplete)
	<-r.Done()

	calls := gen.calls()
	require.Len(t, calls, 2)
	assert.Nil(t, calls[0].Answer)
	require.NotNil(t, calls[1].Answer)
	assert.Equal(t, "I led a team of five engineers", *calls[1].Answer)
	require.Len(t, calls[1].Transcript, 1)
	assert.Equal(t, 1, gen.maxInFlight)

	require.NotNil(t, s.Report)
	require.Len(t, s.Report.Transcript, 1)
	assert.Equal(t, final.Scores, s.Report.Transcript[0].Scores)
	assert.True(t, s.Report.Transcript[0].Analyzed)

	saved := reports.saved()
	require.Len(t, saved, 1)
	assert.Equal(t, s.ID, saved[0].ID)

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, seen, StatusPlayingQuestion)
	assert.Contains(t, seen, StatusTranscribing)
	assert.Contains(t, seen, StatusAwaitingAnalysis)
	assert.Equal(t, StatusComplete, seen[len(seen)-1])
}

func TestRunnerEmptyRecordingSkipsTranscriber(t *testing.T) {
	gen := &fakeTurns{steps: []turns.Step{question(1, "Why this company?")}}
	tr := &fakeTranscriber{}
	rec := audio.NewRecorder(true, "audio/webm", 0)
	r := newTestRunner(t, gen, tr, rec, &memoryReports{})

	r.Run()
	waitForStatus(t, r, StatusRecording)
	require.Eventually(t, rec.Recording, time.Second, 5*time.Millisecond)
	require.NoError(t, r.StopRecording())

	require.Eventually(t, func() bool {
		s := r.Snapshot()
		return s.Status == StatusRecording && s.Warning != ""
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, tr.count())
	assert.Equal(t, 1, r.Snapshot().CurrentQuestionNumber)
	assert.Len(t, gen.calls(), 1)
}

func TestRunnerPermissionDenied(t *testing.T) {
	gen := &fakeTurns{}
	rec := audio.NewRecorder(false, "audio/webm", 0)
	r := newTestRunner(t, gen, &fakeTranscriber{}, rec, &memoryReports{})

	r.Run()
	s := waitForStatus(t, r, StatusFailed)
	assert.Equal(t, FailurePermission, s.FailureKind)
	assert.Empty(t, gen.calls())
	<-r.Done()
	assert.ErrorIs(t, r.Send(StopRequested{}), ErrSessionClosed)
}

func TestRunnerCloseAbandonsInFlightCall(t *testing.T) {
	gen := &fakeTurns{block: true}
	rec := audio.NewRecorder(true, "audio/webm", 0)
	r := newTestRunner(t, gen, &fakeTranscriber{}, rec, &memoryReports{})

	r.Run()
	waitForStatus(t, r, StatusAwaitingQuestion)
	require.Eventually(t, func() bool { return len(gen.calls()) == 1 }, time.Second, 5*time.Millisecond)

	r.Close()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Error(t, rec.Acquire())
}

func TestRunnerStopRecordingRejectedWhenNotRecording(t *testing.T) {
	r := newTestRunner(t, &fakeTurns{block: true}, &fakeTranscriber{}, audio.NewRecorder(true, "", 0), &memoryReports{})
	assert.Error(t, r.StopRecording())
}

type panickingTurns struct{}

func (panickingTurns) Next(ctx context.Context, in turns.Input) (turns.Step, error) {
	var seen map[string]bool
	seen["boom"] = true
	return nil, nil
}

func TestRunnerRecoversFromCollaboratorPanic(t *testing.T) {
	rec := audio.NewRecorder(true, "audio/webm", 0)
	r := NewRunner(newTestSession(t), Deps{
		Turns:        panickingTurns{},
		Transcriber:  &fakeTranscriber{},
		Speech:       fakeSpeech{},
		SpeechPolicy: llm.CallPolicy{Timeout: time.Second},
		Player:       instantPlayer{},
		Capture:      rec,
		Reports:      &memoryReports{},
		Rules:        DefaultRules(),
		Now:          time.Now,
	})
	t.Cleanup(r.Close)

	r.Run()
	s := waitForStatus(t, r, StatusFailed)
	assert.Equal(t, FailureGeneration, s.FailureKind)
	assert.NotEmpty(t, s.Error)
	<-r.Done()
	assert.Error(t, rec.Acquire(), "capture should be released after the failure")
}
