package export

import (
	"fmt"
	"strings"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

// ReportText renders an interview report as plain text
func ReportText(r models.InterviewReport) string {
	var sb strings.Builder
	s := r.Summary

	sb.WriteString("MOCK INTERVIEW REPORT\n")
	sb.WriteString(strings.Repeat("=", 21) + "\n\n")
	sb.WriteString(fmt.Sprintf("Role: %s\n", orDash(s.RoleDetected)))
	sb.WriteString(fmt.Sprintf("Company: %s\n", orDash(s.CompanyDetected)))
	sb.WriteString(fmt.Sprintf("Overall score: %d/100\n", s.OverallScore))
	if !r.CreatedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Date: %s\n", r.CreatedAt.Format("2006-01-02 15:04")))
	}

	if len(s.TopStrengths) > 0 {
		sb.WriteString("\nTOP STRENGTHS\n")
		for _, st := range s.TopStrengths {
			sb.WriteString(fmt.Sprintf("  - %s\n", st))
		}
	}

	if len(s.TopImprovements) > 0 {
		sb.WriteString("\nAREAS TO IMPROVE\n")
		for _, imp := range s.TopImprovements {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", imp.Point, imp.Suggestion))
		}
	}

	sb.WriteString("\nTRANSCRIPT\n")
	for _, t := range r.Transcript {
		sb.WriteString(fmt.Sprintf("\nQ%d [%s]: %s\n", t.QuestionNumber, t.SourceOfQuestion, t.Question))
		sb.WriteString(fmt.Sprintf("Answer: %s\n", orDash(t.CandidateAnswer)))
		sb.WriteString(fmt.Sprintf("Feedback: %s\n", t.Feedback))
		sb.WriteString(fmt.Sprintf("Scores: %s\n", scoreLine(t.Scores)))
	}

	return sb.String()
}

// ReportMarkdown renders an interview report as markdown
func ReportMarkdown(r models.InterviewReport) string {
	var sb strings.Builder
	s := r.Summary

	title := "Mock Interview Report"
	if s.RoleDetected != "" {
		title += ": " + s.RoleDetected
	}
	sb.WriteString("# " + title + "\n\n")
	if s.CompanyDetected != "" {
		sb.WriteString(fmt.Sprintf("**Company:** %s  \n", s.CompanyDetected))
	}
	sb.WriteString(fmt.Sprintf("**Overall score:** %d/100\n", s.OverallScore))

	if len(s.TopStrengths) > 0 {
		sb.WriteString("\n## Top strengths\n\n")
		for _, st := range s.TopStrengths {
			sb.WriteString(fmt.Sprintf("- %s\n", st))
		}
	}

	if len(s.TopImprovements) > 0 {
		sb.WriteString("\n## Areas to improve\n\n")
		for _, imp := range s.TopImprovements {
			sb.WriteString(fmt.Sprintf("- **%s** %s\n", imp.Point, imp.Suggestion))
		}
	}

	sb.WriteString("\n## Transcript\n")
	for _, t := range r.Transcript {
		sb.WriteString(fmt.Sprintf("\n### Question %d (%s)\n\n", t.QuestionNumber, t.SourceOfQuestion))
		sb.WriteString(fmt.Sprintf("> %s\n\n", t.Question))
		sb.WriteString(fmt.Sprintf("**Answer:** %s\n\n", orDash(t.CandidateAnswer)))
		sb.WriteString(fmt.Sprintf("**Feedback:** %s\n\n", t.Feedback))
		sb.WriteString("| Relevance | Structure | Metrics | Alignment | Communication |\n")
		sb.WriteString("|---|---|---|---|---|\n")
		sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d |\n",
			t.Scores.Relevance, t.Scores.Structure, t.Scores.Metrics, t.Scores.Alignment, t.Scores.Communication))
	}

	return sb.String()
}

func scoreLine(s models.Scores) string {
	return fmt.Sprintf("relevance %d, structure %d, metrics %d, alignment %d, communication %d (avg %.1f)",
		s.Relevance, s.Structure, s.Metrics, s.Alignment, s.Communication, s.Average())
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
