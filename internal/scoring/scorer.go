package scoring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/google/uuid"

	"github.com/faseelanwar-cpu/interview-coach/internal/ingestion"
	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// ErrInvalidResult is returned when the model's answer fails validation
var ErrInvalidResult = errors.New("invalid CV result")

const maxKeywords = 20

// Scorer evaluates and rewrites CVs against a job description
type Scorer struct {
	gen    llm.Generator
	policy llm.CallPolicy
	now    func() time.Time
}

// NewScorer creates a new scorer instance
func NewScorer(gen llm.Generator, policy llm.CallPolicy) *Scorer {
	return &Scorer{gen: gen, policy: policy, now: time.Now}
}

// AnalyzeCV compares the candidate's material with the job description
func (s *Scorer) AnalyzeCV(ctx context.Context, email, jobDescription string, material models.CandidateMaterial) (models.CVAnalysis, error) {
	jd := sanitizeUTF8(strings.TrimSpace(jobDescription))
	if jd == "" {
		return models.CVAnalysis{}, fmt.Errorf("job description is required")
	}

	parts, err := materialPrompt(jd, material)
	if err != nil {
		return models.CVAnalysis{}, err
	}
	parts = append(parts, genai.Text(buildAnalysisPrompt()))

	req := llm.Request{
		System:      analysisInstruction,
		Parts:       parts,
		Schema:      analysisSchema(),
		Temperature: 0.2,
	}

	analysis, err := llm.Call(ctx, s.policy, "cv analysis", func(ctx context.Context) (models.CVAnalysis, error) {
		response, err := s.gen.Generate(ctx, req)
		if err != nil {
			return models.CVAnalysis{}, fmt.Errorf("failed to get LLM response: %w", err)
		}
		return parseAnalysis(response)
	})
	if err != nil {
		return models.CVAnalysis{}, err
	}

	analysis.ID = uuid.NewString()
	analysis.UserEmail = email
	analysis.JobDescription = jd
	analysis.CreatedAt = s.now().UTC()
	return analysis, nil
}

// RewriteCV produces a CV tailored to the job description. A previous
// analysis, when given, steers the rewrite.
func (s *Scorer) RewriteCV(ctx context.Context, email, jobDescription string, material models.CandidateMaterial, analysis *models.CVAnalysis) (models.GeneratedCV, error) {
	jd := sanitizeUTF8(strings.TrimSpace(jobDescription))
	if jd == "" {
		return models.GeneratedCV{}, fmt.Errorf("job description is required")
	}

	parts, err := materialPrompt(jd, material)
	if err != nil {
		return models.GeneratedCV{}, err
	}
	parts = append(parts, genai.Text(buildRewritePrompt(analysis)))

	req := llm.Request{
		System:      rewriteInstruction,
		Parts:       parts,
		Schema:      rewriteSchema(),
		Temperature: 0.3,
	}

	cv, err := llm.Call(ctx, s.policy, "cv rewrite", func(ctx context.Context) (models.GeneratedCV, error) {
		response, err := s.gen.Generate(ctx, req)
		if err != nil {
			return models.GeneratedCV{}, fmt.Errorf("failed to get LLM response: %w", err)
		}
		return parseRewrite(response)
	})
	if err != nil {
		return models.GeneratedCV{}, err
	}

	cv.ID = uuid.NewString()
	cv.UserEmail = email
	cv.JobDescription = jd
	cv.CreatedAt = s.now().UTC()
	return cv, nil
}

func materialPrompt(jd string, material models.CandidateMaterial) ([]genai.Part, error) {
	candidate, err := ingestion.MaterialParts(material)
	if err != nil {
		return nil, err
	}
	parts := []genai.Part{genai.Text("## JOB DESCRIPTION\n" + ingestion.Truncate(jd, ingestion.MaxPromptTextLength))}
	return append(parts, candidate...), nil
}

const analysisInstruction = "You are an expert recruiter and CV coach. You compare a candidate's CV with a job " +
	"description and explain, section by section, how to align the CV with the role without inventing experience."

const rewriteInstruction = "You are an expert CV writer. You rewrite a candidate's CV for a specific job " +
	"description. Keep every fact truthful to the source material; reorder, rephrase and emphasise, never invent."

// buildAnalysisPrompt creates the evaluation instructions
func buildAnalysisPrompt() string {
	var sb strings.Builder

	sb.WriteString("## EVALUATION INSTRUCTIONS\n")
	sb.WriteString("Evaluate how well the candidate matches the job description.\n\n")
	sb.WriteString("SCORING CRITERIA:\n")
	sb.WriteString("- matchScore (0-100): weight required skills and experience heavily. Each missing requirement should cost 10-15 points; missing nice-to-haves 2-5 points.\n")
	sb.WriteString("- strengths: what already matches the role well.\n")
	sb.WriteString("- gaps: requirements the CV does not show.\n")
	sb.WriteString("- missingKeywords: terms from the job description absent from the CV.\n")
	sb.WriteString("- suggestions: concrete edits. For each give the CV section, the original text (empty if new), the suggested text and a one-sentence rationale.\n\n")
	sb.WriteString("Return ONLY the JSON object, no additional text.\n")

	return sb.String()
}

// buildRewritePrompt creates the rewrite instructions
func buildRewritePrompt(analysis *models.CVAnalysis) string {
	var sb strings.Builder

	if analysis != nil {
		sb.WriteString("## PREVIOUS ANALYSIS\n")
		sb.WriteString(fmt.Sprintf("Match score: %d/100\n", analysis.MatchScore))
		if len(analysis.Gaps) > 0 {
			sb.WriteString("Gaps to address where the material supports it:\n")
			for _, g := range analysis.Gaps {
				sb.WriteString(fmt.Sprintf("- %s\n", g))
			}
		}
		if len(analysis.MissingKeywords) > 0 {
			sb.WriteString(fmt.Sprintf("Keywords to include where truthful: %s\n", strings.Join(analysis.MissingKeywords, ", ")))
		}
		for _, sug := range analysis.Suggestions {
			sb.WriteString(fmt.Sprintf("- [%s] %s\n", sug.Section, sug.Suggested))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## REWRITE INSTRUCTIONS\n")
	sb.WriteString("Write a complete one or two page CV tailored to the job description.\n")
	sb.WriteString("- headline: a one-line professional title aimed at the role.\n")
	sb.WriteString("- contact: email, phone, location and links on one line, taken from the material.\n")
	sb.WriteString("- summary: three to four sentences.\n")
	sb.WriteString("- experience: most recent first; three to six bullets per role starting with a verb and quantified where the material allows.\n")
	sb.WriteString("- period fields use the form \"Jan 2020 - Present\".\n\n")
	sb.WriteString("Return ONLY the JSON object, no additional text.\n")

	return sb.String()
}

// wireAnalysis mirrors analysisSchema
type wireAnalysis struct {
	MatchScore      *int                `json:"matchScore"`
	Summary         string              `json:"summary"`
	Strengths       []string            `json:"strengths"`
	Gaps            []string            `json:"gaps"`
	MissingKeywords []string            `json:"missingKeywords"`
	Suggestions     []models.Suggestion `json:"suggestions"`
}

// parseAnalysis decodes and validates an analysis response
func parseAnalysis(response string) (models.CVAnalysis, error) {
	var w wireAnalysis
	if err := llm.DecodeStrict(response, &w); err != nil {
		return models.CVAnalysis{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if w.MatchScore == nil {
		return models.CVAnalysis{}, fmt.Errorf("%w: matchScore is missing", ErrInvalidResult)
	}
	if *w.MatchScore < 0 || *w.MatchScore > 100 {
		return models.CVAnalysis{}, fmt.Errorf("%w: matchScore %d is outside 0-100", ErrInvalidResult, *w.MatchScore)
	}
	if strings.TrimSpace(w.Summary) == "" {
		return models.CVAnalysis{}, fmt.Errorf("%w: summary is empty", ErrInvalidResult)
	}

	suggestions := make([]models.Suggestion, 0, len(w.Suggestions))
	for _, sug := range w.Suggestions {
		sug.Section = strings.TrimSpace(sug.Section)
		sug.Suggested = strings.TrimSpace(sug.Suggested)
		if sug.Suggested == "" {
			continue
		}
		suggestions = append(suggestions, sug)
	}

	return models.CVAnalysis{
		MatchScore:      *w.MatchScore,
		Summary:         strings.TrimSpace(w.Summary),
		Strengths:       condenseList(w.Strengths, 0),
		Gaps:            condenseList(w.Gaps, 0),
		MissingKeywords: condenseList(w.MissingKeywords, maxKeywords),
		Suggestions:     suggestions,
	}, nil
}

// wireCV mirrors rewriteSchema
type wireCV struct {
	FullName       string                      `json:"fullName"`
	Headline       string                      `json:"headline"`
	Contact        string                      `json:"contact"`
	Summary        string                      `json:"summary"`
	Skills         []string                    `json:"skills"`
	Experience     []models.GeneratedRole      `json:"experience"`
	Education      []models.GeneratedEducation `json:"education"`
	Certifications []string                    `json:"certifications"`
}

// parseRewrite decodes and validates a rewrite response
func parseRewrite(response string) (models.GeneratedCV, error) {
	var w wireCV
	if err := llm.DecodeStrict(response, &w); err != nil {
		return models.GeneratedCV{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}
	if strings.TrimSpace(w.FullName) == "" {
		return models.GeneratedCV{}, fmt.Errorf("%w: fullName is empty", ErrInvalidResult)
	}
	if strings.TrimSpace(w.Summary) == "" {
		return models.GeneratedCV{}, fmt.Errorf("%w: summary is empty", ErrInvalidResult)
	}

	experience := make([]models.GeneratedRole, 0, len(w.Experience))
	for i, role := range w.Experience {
		role.Title = strings.TrimSpace(role.Title)
		if role.Title == "" {
			return models.GeneratedCV{}, fmt.Errorf("%w: experience[%d].title is empty", ErrInvalidResult, i)
		}
		role.Bullets = condenseList(role.Bullets, 0)
		experience = append(experience, role)
	}

	return models.GeneratedCV{
		FullName:       strings.TrimSpace(w.FullName),
		Headline:       strings.TrimSpace(w.Headline),
		Contact:        strings.TrimSpace(w.Contact),
		Summary:        strings.TrimSpace(w.Summary),
		Skills:         condenseList(w.Skills, 0),
		Experience:     experience,
		Education:      w.Education,
		Certifications: condenseList(w.Certifications, 0),
	}, nil
}

// condenseList trims entries, drops blanks and case-insensitive duplicates,
// and keeps at most limit entries when limit > 0
func condenseList(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		key := strings.ToLower(item)
		if item == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// sanitizeUTF8 replaces invalid byte sequences so the text can be sent to the API
func sanitizeUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}
