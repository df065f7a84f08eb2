package models

import (
	"fmt"
	"strings"
	"time"
)

// QuestionSource tells which input a question was drawn from
type QuestionSource string

const (
	SourceJD               QuestionSource = "JD"
	SourceCandidateProfile QuestionSource = "CandidateProfile"
	SourceMixed            QuestionSource = "Mixed"
)

// QuestionSources lists every accepted source value, in wire order
var QuestionSources = []QuestionSource{SourceJD, SourceCandidateProfile, SourceMixed}

// IsValid reports whether s is one of the known sources
func (s QuestionSource) IsValid() bool {
	switch s {
	case SourceJD, SourceCandidateProfile, SourceMixed:
		return true
	}
	return false
}

// Score bounds for a single answer dimension
const (
	MinScore = 1
	MaxScore = 5
)

// PlaceholderFeedback is shown on a turn until its analysis arrives
const PlaceholderFeedback = "Awaiting analysis."

// Scores rates one answer on five dimensions, each 1..5
type Scores struct {
	Relevance     int `json:"relevance"`
	Structure     int `json:"structure"`
	Metrics       int `json:"metrics"`
	Alignment     int `json:"alignment"`
	Communication int `json:"communication"`
}

// PlaceholderScores returns the sentinel scores carried by an unanalyzed turn
func PlaceholderScores() Scores {
	return Scores{Relevance: 1, Structure: 1, Metrics: 1, Alignment: 1, Communication: 1}
}

// Validate checks every dimension is within range
func (s Scores) Validate() error {
	fields := []struct {
		name  string
		value int
	}{
		{"relevance", s.Relevance},
		{"structure", s.Structure},
		{"metrics", s.Metrics},
		{"alignment", s.Alignment},
		{"communication", s.Communication},
	}
	for _, f := range fields {
		if f.value < MinScore || f.value > MaxScore {
			return fmt.Errorf("score %s=%d out of range %d..%d", f.name, f.value, MinScore, MaxScore)
		}
	}
	return nil
}

// Average returns the mean of the five dimensions
func (s Scores) Average() float64 {
	return float64(s.Relevance+s.Structure+s.Metrics+s.Alignment+s.Communication) / 5
}

// Analysis is the AI's verdict on one answer
type Analysis struct {
	Feedback string `json:"feedback"`
	Scores   Scores `json:"scores"`
}

// Validate checks the analysis is usable
func (a Analysis) Validate() error {
	if strings.TrimSpace(a.Feedback) == "" {
		return fmt.Errorf("feedback is empty")
	}
	return a.Scores.Validate()
}

// Turn is one question/answer exchange of an interview
type Turn struct {
	QuestionNumber   int            `json:"questionNumber"`
	Question         string         `json:"question"`
	SourceOfQuestion QuestionSource `json:"sourceOfQuestion"`
	CandidateAnswer  string         `json:"candidateAnswer,omitempty"`
	Feedback         string         `json:"feedback"`
	Scores           Scores         `json:"scores"`
	Analyzed         bool           `json:"analyzed"`
}

// NewTurn creates a turn with placeholder feedback and scores
func NewTurn(number int, question string, source QuestionSource) Turn {
	return Turn{
		QuestionNumber:   number,
		Question:         question,
		SourceOfQuestion: source,
		Feedback:         PlaceholderFeedback,
		Scores:           PlaceholderScores(),
	}
}

// Answered reports whether the candidate's answer has been recorded
func (t Turn) Answered() bool {
	return t.CandidateAnswer != ""
}

// ApplyAnalysis attaches feedback and scores to the turn
func (t *Turn) ApplyAnalysis(a Analysis) {
	t.Feedback = a.Feedback
	t.Scores = a.Scores
	t.Analyzed = true
}

// Improvement is one area to work on with a concrete suggestion
type Improvement struct {
	Point      string `json:"point"`
	Suggestion string `json:"suggestion"`
}

// ReportSummary is the headline of a finished interview
type ReportSummary struct {
	CompanyDetected string        `json:"companyDetected"`
	RoleDetected    string        `json:"roleDetected"`
	OverallScore    int           `json:"overallScore"` // 0-100
	TopStrengths    []string      `json:"topStrengths"`
	TopImprovements []Improvement `json:"topImprovements"`
}

// Validate checks the summary fields and score range
func (s ReportSummary) Validate() error {
	if s.OverallScore < 0 || s.OverallScore > 100 {
		return fmt.Errorf("overallScore=%d out of range 0..100", s.OverallScore)
	}
	for i, imp := range s.TopImprovements {
		if strings.TrimSpace(imp.Point) == "" {
			return fmt.Errorf("topImprovements[%d].point is empty", i)
		}
	}
	return nil
}

// InterviewReport is the terminal artifact of a completed interview
type InterviewReport struct {
	ID                string        `json:"id"`
	UserEmail         string        `json:"userEmail"`
	JobDescription    string        `json:"jobDescription"`
	Summary           ReportSummary `json:"summary"`
	Transcript        []Turn        `json:"transcript"`
	TextRendering     string        `json:"textRendering"`
	MarkdownRendering string        `json:"markdownRendering"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// Document is an uploaded file passed to the model as-is
type Document struct {
	Name     string `json:"name"`
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
	Text     string `json:"text,omitempty"` // set for plain-text uploads
}

// IsText reports whether the document is sent as text rather than inline bytes
func (d Document) IsText() bool {
	return d.Text != ""
}

// CandidateMaterial is either an uploaded document or the stored profile
type CandidateMaterial struct {
	Document *Document        `json:"document,omitempty"`
	Profile  *CandidateProfile `json:"profile,omitempty"`
}

// Validate ensures exactly one kind of material is present
func (m CandidateMaterial) Validate() error {
	switch {
	case m.Document == nil && m.Profile == nil:
		return fmt.Errorf("candidate material is required")
	case m.Document != nil && m.Profile != nil:
		return fmt.Errorf("candidate material must be a document or a profile, not both")
	case m.Document != nil && len(m.Document.Data) == 0 && m.Document.Text == "":
		return fmt.Errorf("candidate document %q is empty", m.Document.Name)
	}
	return nil
}

// User is an approved account
type User struct {
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName,omitempty"`
	ApprovedAt  time.Time `json:"approvedAt"`
}
