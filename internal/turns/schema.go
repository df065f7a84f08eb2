package turns

import (
	"cloud.google.com/go/vertexai/genai"

	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
	"github.com/faseelanwar-cpu/interview-coach/internal/models"
)

var (
	str     = llm.StringField
	integer = llm.IntegerField
	strList = llm.StringList
)

func scoresSchema() *genai.Schema {
	dims := []string{"relevance", "structure", "metrics", "alignment", "communication"}
	props := make(map[string]*genai.Schema, len(dims))
	for _, d := range dims {
		props[d] = integer("Score from 1 (poor) to 5 (excellent)")
	}
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: dims}
}

func sourceEnum() []string {
	out := make([]string, len(models.QuestionSources))
	for i, s := range models.QuestionSources {
		out[i] = string(s)
	}
	return out
}

// responseSchema is the structured output contract of every turn call
func responseSchema() *genai.Schema {
	analysis := &genai.Schema{
		Type:        genai.TypeObject,
		Nullable:    true,
		Description: "Analysis of the candidate's latest answer. Null on the first call.",
		Properties: map[string]*genai.Schema{
			"feedback": str("Specific, actionable feedback on the answer"),
			"scores":   scoresSchema(),
		},
		Required: []string{"feedback", "scores"},
	}

	next := &genai.Schema{
		Type:        genai.TypeObject,
		Nullable:    true,
		Description: "The next question. Null when the interview is complete.",
		Properties: map[string]*genai.Schema{
			"questionNumber": integer("1-based number of this question"),
			"question":       str("The question to ask, phrased as spoken by an interviewer"),
			"sourceOfQuestion": {
				Type:        genai.TypeString,
				Description: "Which input the question is drawn from",
				Enum:        sourceEnum(),
			},
		},
		Required: []string{"questionNumber", "question", "sourceOfQuestion"},
	}

	improvement := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"point":      str("What to improve"),
			"suggestion": str("How to improve it"),
		},
		Required: []string{"point", "suggestion"},
	}

	report := &genai.Schema{
		Type:        genai.TypeObject,
		Nullable:    true,
		Description: "The final report. Present only when the interview is complete.",
		Properties: map[string]*genai.Schema{
			"summary": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"companyDetected": str("Company named in the job description, or empty"),
					"roleDetected":    str("Role named in the job description"),
					"overallScore":    integer("Overall interview score from 0 to 100"),
					"topStrengths":    strList("The candidate's strongest points"),
					"topImprovements": {Type: genai.TypeArray, Items: improvement},
				},
				Required: []string{"companyDetected", "roleDetected", "overallScore", "topStrengths", "topImprovements"},
			},
		},
		Required: []string{"summary"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"interviewComplete":      {Type: genai.TypeBoolean, Description: "True when no further questions will be asked"},
			"previousAnswerAnalysis": analysis,
			"nextQuestion":           next,
			"finalReport":            report,
		},
		Required: []string{"interviewComplete"},
	}
}
