package turns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/faseelanwar-cpu/interview-coach/internal/ingestion"
	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// ErrMalformedResponse is returned when the model's answer breaks the contract
var ErrMalformedResponse = errors.New("malformed turn response")

// Input is everything the model sees on one turn
type Input struct {
	JobDescription string
	Material       models.CandidateMaterial
	Transcript     []models.Turn
	// Answer is the latest transcribed answer, nil on the opening call
	Answer *string
}

// Step is the tagged result of a turn call: a QuestionStep or a ReportStep
type Step interface {
	isStep()
}

// NextQuestion is the question the interviewer asks next
type NextQuestion struct {
	Number int
	Text   string
	Source models.QuestionSource
}

// QuestionStep continues the interview
type QuestionStep struct {
	Question         NextQuestion
	PreviousAnalysis *models.Analysis
}

// ReportStep ends the interview
type ReportStep struct {
	Summary       models.ReportSummary
	FinalAnalysis *models.Analysis
}

func (QuestionStep) isStep() {}
func (ReportStep) isStep()   {}

// Generator asks the model for the next interview step
type Generator struct {
	gen     llm.Generator
	policy  llm.CallPolicy
	nominal int
}

// NewGenerator creates a turn generator. nominalQuestions only guides the
// model; it never ends an interview by itself.
func NewGenerator(gen llm.Generator, policy llm.CallPolicy, nominalQuestions int) *Generator {
	return &Generator{gen: gen, policy: policy, nominal: nominalQuestions}
}

// Next runs one turn call
func (g *Generator) Next(ctx context.Context, in Input) (Step, error) {
	if strings.TrimSpace(in.JobDescription) == "" {
		return nil, fmt.Errorf("job description is required")
	}

	req, err := g.buildRequest(in)
	if err != nil {
		return nil, err
	}

	return llm.Call(ctx, g.policy, "turn generation", func(ctx context.Context) (Step, error) {
		text, err := g.gen.Generate(ctx, req)
		if err != nil {
			return nil, err
		}
		return parseStep(text, in.Answer != nil)
	})
}

// apiTurn is how a transcript turn is shown to the model
type apiTurn struct {
	QuestionNumber   int                   `json:"questionNumber"`
	Question         string                `json:"question"`
	SourceOfQuestion models.QuestionSource `json:"sourceOfQuestion"`
	CandidateAnswer  string                `json:"candidateAnswer"`
	Feedback         string                `json:"feedback,omitempty"`
	Scores           *models.Scores        `json:"scores,omitempty"`
}

// transcriptForAPI leaves out the placeholder analysis of turns still
// waiting for one
func transcriptForAPI(transcript []models.Turn) []apiTurn {
	out := make([]apiTurn, 0, len(transcript))
	for _, t := range transcript {
		at := apiTurn{
			QuestionNumber:   t.QuestionNumber,
			Question:         t.Question,
			SourceOfQuestion: t.SourceOfQuestion,
			CandidateAnswer:  t.CandidateAnswer,
		}
		if t.Analyzed {
			scores := t.Scores
			at.Feedback = t.Feedback
			at.Scores = &scores
		}
		out = append(out, at)
	}
	return out
}

func (g *Generator) buildRequest(in Input) (llm.Request, error) {
	material, err := ingestion.MaterialParts(in.Material)
	if err != nil {
		return llm.Request{}, err
	}

	transcript, err := json.MarshalIndent(transcriptForAPI(in.Transcript), "", "  ")
	if err != nil {
		return llm.Request{}, fmt.Errorf("failed to encode transcript: %w", err)
	}

	parts := []genai.Part{genai.Text("## JOB DESCRIPTION\n" + ingestion.Truncate(in.JobDescription, ingestion.MaxPromptTextLength))}
	parts = append(parts, material...)
	parts = append(parts, genai.Text("## TRANSCRIPT SO FAR\n"+string(transcript)))

	if in.Answer == nil {
		parts = append(parts, genai.Text("The interview is starting. Ask question 1. Set previousAnswerAnalysis to null."))
	} else {
		parts = append(parts, genai.Text(fmt.Sprintf(
			"## LATEST ANSWER (to question %d)\n%s\n\nAnalyze this answer in previousAnswerAnalysis, then either ask question %d or, if the interview is complete, set interviewComplete to true and write the finalReport.",
			len(in.Transcript), *in.Answer, len(in.Transcript)+1)))
	}

	return llm.Request{
		System:      g.systemInstruction(),
		Parts:       parts,
		Schema:      responseSchema(),
		Temperature: 0.4,
	}, nil
}

func (g *Generator) systemInstruction() string {
	var sb strings.Builder
	sb.WriteString("You are an experienced hiring manager running a spoken mock interview.\n")
	sb.WriteString("Ask one question at a time. Draw questions from the job description (JD), the candidate's material (CandidateProfile), or both (Mixed), and label each with sourceOfQuestion.\n")
	sb.WriteString(fmt.Sprintf("Aim for about %d questions in total, but end earlier or later if the conversation calls for it.\n", g.nominal))
	sb.WriteString("Keep questions short enough to be read aloud.\n\n")
	sb.WriteString("When analyzing an answer, score each dimension from 1 to 5:\n")
	sb.WriteString("- relevance: does it answer the question asked\n")
	sb.WriteString("- structure: clear situation, action and result\n")
	sb.WriteString("- metrics: concrete numbers and outcomes\n")
	sb.WriteString("- alignment: fit with the job description\n")
	sb.WriteString("- communication: clarity and concision\n\n")
	sb.WriteString("When the interview is complete, set nextQuestion to null and fill finalReport with an overallScore from 0 to 100.\n")
	return sb.String()
}

// wireResponse mirrors responseSchema
type wireResponse struct {
	InterviewComplete      *bool            `json:"interviewComplete"`
	PreviousAnswerAnalysis *models.Analysis `json:"previousAnswerAnalysis"`
	NextQuestion           *wireQuestion    `json:"nextQuestion"`
	FinalReport            *wireReport      `json:"finalReport"`
}

type wireQuestion struct {
	QuestionNumber   int                   `json:"questionNumber"`
	Question         string                `json:"question"`
	SourceOfQuestion models.QuestionSource `json:"sourceOfQuestion"`
}

type wireReport struct {
	Summary *models.ReportSummary `json:"summary"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// parseStep decodes and validates a turn response. answered tells whether
// the call carried an answer, which makes the analysis mandatory.
func parseStep(text string, answered bool) (Step, error) {
	var resp wireResponse
	if err := llm.DecodeStrict(text, &resp); err != nil {
		return nil, malformed("%v", err)
	}
	if resp.InterviewComplete == nil {
		return nil, malformed("interviewComplete is missing")
	}

	var analysis *models.Analysis
	switch {
	case answered && resp.PreviousAnswerAnalysis == nil:
		return nil, malformed("previousAnswerAnalysis is missing")
	case !answered && resp.PreviousAnswerAnalysis != nil:
		return nil, malformed("previousAnswerAnalysis given before any answer")
	case answered:
		if err := resp.PreviousAnswerAnalysis.Validate(); err != nil {
			return nil, malformed("previousAnswerAnalysis: %v", err)
		}
		a := *resp.PreviousAnswerAnalysis
		a.Feedback = strings.TrimSpace(a.Feedback)
		analysis = &a
	}

	if *resp.InterviewComplete {
		if !answered {
			return nil, malformed("interview completed before any question")
		}
		if resp.NextQuestion != nil {
			return nil, malformed("nextQuestion given with interviewComplete")
		}
		if resp.FinalReport == nil || resp.FinalReport.Summary == nil {
			return nil, malformed("finalReport is missing")
		}
		if err := resp.FinalReport.Summary.Validate(); err != nil {
			return nil, malformed("finalReport: %v", err)
		}
		return ReportStep{Summary: *resp.FinalReport.Summary, FinalAnalysis: analysis}, nil
	}

	if resp.FinalReport != nil {
		return nil, malformed("finalReport given without interviewComplete")
	}
	q := resp.NextQuestion
	if q == nil {
		return nil, malformed("nextQuestion is missing")
	}
	if strings.TrimSpace(q.Question) == "" {
		return nil, malformed("nextQuestion.question is empty")
	}
	if !q.SourceOfQuestion.IsValid() {
		return nil, malformed("nextQuestion.sourceOfQuestion %q is not one of JD, CandidateProfile, Mixed", q.SourceOfQuestion)
	}
	if q.QuestionNumber < 1 {
		return nil, malformed("nextQuestion.questionNumber %d must be positive", q.QuestionNumber)
	}

	return QuestionStep{
		Question: NextQuestion{
			Number: q.QuestionNumber,
			Text:   strings.TrimSpace(q.Question),
			Source: q.SourceOfQuestion,
		},
		PreviousAnalysis: analysis,
	}, nil
}
