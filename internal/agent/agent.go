package agent

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/faseelanwar-cpu/interview-coach/internal/audio"
	"github.com/faseelanwar-cpu/interview-coach/internal/auth"
	"github.com/faseelanwar-cpu/interview-coach/internal/config"
	"github.com/faseelanwar-cpu/interview-coach/internal/export"
	"github.com/faseelanwar-cpu/interview-coach/internal/interview"
	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/store"
)

var (
	// ErrInterviewNotFound is returned for unknown or foreign interview ids
	ErrInterviewNotFound = errors.New("interview not found")
	// ErrNoProfile is returned when a profile is requested as material but none is saved
	ErrNoProfile = errors.New("no saved profile")
	// ErrUnknownFormat is returned for unsupported download formats
	ErrUnknownFormat = errors.New("unknown download format")
)

// CVScorer analyzes and rewrites CVs
type CVScorer interface {
	AnalyzeCV(ctx context.Context, email, jobDescription string, material models.CandidateMaterial) (models.CVAnalysis, error)
	RewriteCV(ctx context.Context, email, jobDescription string, material models.CandidateMaterial, analysis *models.CVAnalysis) (models.GeneratedCV, error)
}

// Deps are the services a Coach is built from
type Deps struct {
	Store       store.Store
	Auth        *auth.Session
	Turns       interview.TurnGenerator
	Transcriber interview.Transcriber
	Speech      llm.Synthesizer
	Scorer      CVScorer
	Settings    config.InterviewSettings
	// FinishedRetention is how long a finished interview stays readable
	// before it is dropped from memory. Zero means defaultFinishedRetention.
	FinishedRetention time.Duration
}

const defaultFinishedRetention = 10 * time.Minute

// Owner identifies who starts an interview. Token is the sign-in session the
// interview belongs to; signing that session out abandons the interview.
type Owner struct {
	Email string
	Token string
}

// MaterialSource says where the candidate material comes from: an uploaded
// document or the saved profile
type MaterialSource struct {
	Document   *models.Document
	UseProfile bool
}

// Coach runs interviews and CV flows for signed-in users
type Coach struct {
	deps        Deps
	unsubscribe func()

	mu         sync.RWMutex
	interviews map[string]*LiveInterview
}

// NewCoach creates a coach. When an auth session is given, a user's running
// interviews are abandoned when they sign out.
func NewCoach(deps Deps) *Coach {
	c := &Coach{
		deps:       deps,
		interviews: make(map[string]*LiveInterview),
	}
	if deps.Auth != nil {
		c.unsubscribe = deps.Auth.Subscribe(c.onAuthEvent)
	}
	return c
}

// Policy builds the call policy for a generative call with the given timeout
func Policy(s config.InterviewSettings, timeout time.Duration) llm.CallPolicy {
	return llm.CallPolicy{
		Timeout: timeout,
		Retry:   llm.RetryPolicy{MaxRetries: s.MaxRetries, Backoff: s.RetryBackoff},
	}
}

func (c *Coach) onAuthEvent(e auth.Event) {
	if e.Kind != auth.SignedOut {
		return
	}
	for _, li := range c.interviewsOf(e.User.Email) {
		if li.token != e.Token {
			continue
		}
		log.Printf("Abandoning interview %s after %s signed out", li.ID, e.User.Email)
		c.EndInterview(e.User.Email, li.ID)
	}
}

// material resolves a MaterialSource into candidate material
func (c *Coach) material(ctx context.Context, email string, src MaterialSource) (models.CandidateMaterial, error) {
	if src.UseProfile {
		if src.Document != nil {
			return models.CandidateMaterial{}, fmt.Errorf("choose either a document or the saved profile")
		}
		p, err := c.deps.Store.GetProfile(ctx, email)
		if errors.Is(err, store.ErrNotFound) || (err == nil && p.IsEmpty()) {
			return models.CandidateMaterial{}, ErrNoProfile
		}
		if err != nil {
			return models.CandidateMaterial{}, err
		}
		return models.CandidateMaterial{Profile: &p}, nil
	}
	m := models.CandidateMaterial{Document: src.Document}
	if err := m.Validate(); err != nil {
		return models.CandidateMaterial{}, err
	}
	return m, nil
}

// StartInterview opens a new mock interview. microphoneGranted is the
// client's answer to the microphone permission prompt.
func (c *Coach) StartInterview(ctx context.Context, owner Owner, jobDescription string, src MaterialSource, microphoneGranted bool) (*LiveInterview, error) {
	material, err := c.material(ctx, owner.Email, src)
	if err != nil {
		return nil, err
	}

	settings := c.deps.Settings
	id := uuid.NewString()
	session, err := interview.NewSession(id, store.NormalizeEmail(owner.Email), jobDescription, material, settings.NominalQuestions)
	if err != nil {
		return nil, err
	}

	li := newLiveInterview(id, session.UserEmail, audio.NewRecorder(microphoneGranted, "audio/webm", settings.MaxAnswerBytes))
	li.token = owner.Token
	li.runner = interview.NewRunner(session, interview.Deps{
		Turns:        c.deps.Turns,
		Transcriber:  c.deps.Transcriber,
		Speech:       c.deps.Speech,
		SpeechPolicy: Policy(settings, settings.SpeechTimeout),
		Player:       li.player,
		Capture:      li.recorder,
		Reports:      c.deps.Store,
		Rules: interview.Rules{
			MinAnswerLength:    settings.MinAnswerLength,
			PlaceholderAnswers: settings.PlaceholderAnswers,
		},
		SampleRate: settings.SpeechSampleRate,
	})

	c.mu.Lock()
	c.interviews[id] = li
	c.mu.Unlock()

	log.Printf("Starting interview %s for %s", id, session.UserEmail)
	li.runner.Run()
	go func() {
		<-li.Done()
		s := li.Snapshot()
		log.Printf("Interview %s ended: %s after %d questions", id, s.Status, len(s.Transcript))
		time.AfterFunc(c.retention(), func() { c.forget(li) })
	}()
	return li, nil
}

func (c *Coach) retention() time.Duration {
	if c.deps.FinishedRetention > 0 {
		return c.deps.FinishedRetention
	}
	return defaultFinishedRetention
}

// forget drops li from the registry unless it has already been replaced
func (c *Coach) forget(li *LiveInterview) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interviews[li.ID] == li {
		delete(c.interviews, li.ID)
	}
}

// Interview returns a running or finished interview owned by email
func (c *Coach) Interview(email, id string) (*LiveInterview, error) {
	c.mu.RLock()
	li, ok := c.interviews[id]
	c.mu.RUnlock()
	if !ok || li.Email != store.NormalizeEmail(email) {
		return nil, ErrInterviewNotFound
	}
	return li, nil
}

// EndInterview abandons and forgets an interview
func (c *Coach) EndInterview(email, id string) error {
	li, err := c.Interview(email, id)
	if err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.interviews, id)
	c.mu.Unlock()
	li.Close()
	return nil
}

func (c *Coach) interviewsOf(email string) []*LiveInterview {
	key := store.NormalizeEmail(email)
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*LiveInterview
	for _, li := range c.interviews {
		if li.Email == key {
			out = append(out, li)
		}
	}
	return out
}

// Profile returns the user's profile, or an empty current-version profile
func (c *Coach) Profile(ctx context.Context, email string) (models.CandidateProfile, error) {
	p, err := c.deps.Store.GetProfile(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return models.CandidateProfile{SchemaVersion: models.ProfileSchemaVersion, Email: store.NormalizeEmail(email)}, nil
	}
	return p, err
}

// SaveProfile stores the user's profile and returns it as saved
func (c *Coach) SaveProfile(ctx context.Context, email string, p models.CandidateProfile) (models.CandidateProfile, error) {
	if err := c.deps.Store.SaveProfile(ctx, email, p); err != nil {
		return models.CandidateProfile{}, err
	}
	return c.deps.Store.GetProfile(ctx, email)
}

// AnalyzeCV runs and stores a CV analysis
func (c *Coach) AnalyzeCV(ctx context.Context, email, jobDescription string, src MaterialSource) (models.CVAnalysis, error) {
	material, err := c.material(ctx, email, src)
	if err != nil {
		return models.CVAnalysis{}, err
	}

	log.Printf("Analyzing CV for %s", email)
	a, err := c.deps.Scorer.AnalyzeCV(ctx, store.NormalizeEmail(email), jobDescription, material)
	if err != nil {
		return models.CVAnalysis{}, fmt.Errorf("cv analysis failed: %w", err)
	}
	if err := c.deps.Store.SaveCVAnalysis(ctx, a); err != nil {
		return models.CVAnalysis{}, fmt.Errorf("failed to save cv analysis: %w", err)
	}
	return a, nil
}

// CVAnalyses lists the user's analyses, newest first
func (c *Coach) CVAnalyses(ctx context.Context, email string) ([]models.CVAnalysis, error) {
	return c.deps.Store.ListCVAnalyses(ctx, email)
}

// GenerateCV rewrites and stores a CV. analysisID optionally names an
// earlier analysis to steer the rewrite.
func (c *Coach) GenerateCV(ctx context.Context, email, jobDescription string, src MaterialSource, analysisID string) (models.GeneratedCV, error) {
	material, err := c.material(ctx, email, src)
	if err != nil {
		return models.GeneratedCV{}, err
	}

	var analysis *models.CVAnalysis
	if analysisID != "" {
		a, err := c.deps.Store.GetCVAnalysis(ctx, analysisID)
		if err != nil || a.UserEmail != store.NormalizeEmail(email) {
			return models.GeneratedCV{}, fmt.Errorf("cv analysis %s: %w", analysisID, store.ErrNotFound)
		}
		analysis = &a
		if strings.TrimSpace(jobDescription) == "" {
			jobDescription = a.JobDescription
		}
	}

	log.Printf("Generating CV for %s", email)
	cv, err := c.deps.Scorer.RewriteCV(ctx, store.NormalizeEmail(email), jobDescription, material, analysis)
	if err != nil {
		return models.GeneratedCV{}, fmt.Errorf("cv rewrite failed: %w", err)
	}
	if err := c.deps.Store.SaveGeneratedCV(ctx, cv); err != nil {
		return models.GeneratedCV{}, fmt.Errorf("failed to save generated cv: %w", err)
	}
	return cv, nil
}

// GeneratedCVs lists the user's rewritten CVs, newest first
func (c *Coach) GeneratedCVs(ctx context.Context, email string) ([]models.GeneratedCV, error) {
	return c.deps.Store.ListGeneratedCVs(ctx, email)
}

// GeneratedCVPDF renders a stored CV as PDF
func (c *Coach) GeneratedCVPDF(ctx context.Context, email, id string) ([]byte, error) {
	cv, err := c.deps.Store.GetGeneratedCV(ctx, id)
	if err != nil {
		return nil, err
	}
	if cv.UserEmail != store.NormalizeEmail(email) {
		return nil, fmt.Errorf("generated cv %s: %w", id, store.ErrNotFound)
	}
	var buf bytes.Buffer
	if err := export.CVPDF(&buf, cv); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Reports lists the user's interview reports, newest first
func (c *Coach) Reports(ctx context.Context, email string) ([]models.InterviewReport, error) {
	return c.deps.Store.ListReports(ctx, email)
}

// Report returns one of the user's reports
func (c *Coach) Report(ctx context.Context, email, id string) (models.InterviewReport, error) {
	r, err := c.deps.Store.GetReport(ctx, id)
	if err != nil {
		return models.InterviewReport{}, err
	}
	if r.UserEmail != store.NormalizeEmail(email) {
		return models.InterviewReport{}, fmt.Errorf("report %s: %w", id, store.ErrNotFound)
	}
	return r, nil
}

// Download is a rendered report file
type Download struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportDownload renders a stored report. It never calls a remote service.
func (c *Coach) ReportDownload(ctx context.Context, email, id, format string) (Download, error) {
	r, err := c.Report(ctx, email, id)
	if err != nil {
		return Download{}, err
	}

	base := "interview-report-" + r.CreatedAt.Format("2006-01-02")
	switch strings.ToLower(format) {
	case "", "txt":
		text := r.TextRendering
		if text == "" {
			text = export.ReportText(r)
		}
		return Download{Filename: base + ".txt", ContentType: "text/plain; charset=utf-8", Data: []byte(text)}, nil
	case "md", "markdown":
		md := r.MarkdownRendering
		if md == "" {
			md = export.ReportMarkdown(r)
		}
		return Download{Filename: base + ".md", ContentType: "text/markdown; charset=utf-8", Data: []byte(md)}, nil
	case "pdf":
		var buf bytes.Buffer
		if err := export.ReportPDF(&buf, r); err != nil {
			return Download{}, err
		}
		return Download{Filename: base + ".pdf", ContentType: "application/pdf", Data: buf.Bytes()}, nil
	case "xlsx":
		var buf bytes.Buffer
		if err := export.ReportToExcel(&buf, r); err != nil {
			return Download{}, err
		}
		return Download{
			Filename:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        buf.Bytes(),
		}, nil
	}
	return Download{}, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
}

// Close abandons every running interview
func (c *Coach) Close() error {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}

	c.mu.Lock()
	interviews := make([]*LiveInterview, 0, len(c.interviews))
	for id, li := range c.interviews {
		interviews = append(interviews, li)
		delete(c.interviews, id)
	}
	c.mu.Unlock()

	for _, li := range interviews {
		li.Close()
	}
	return nil
}
