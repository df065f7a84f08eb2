package scoring

import (
	"cloud.google.com/go/vertexai/genai"

	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
)

func analysisSchema() *genai.Schema {
	suggestion := llm.Object(map[string]*genai.Schema{
		"section":   llm.StringField("CV section the change applies to"),
		"original":  llm.StringField("Current text, empty for additions"),
		"suggested": llm.StringField("Replacement text"),
		"rationale": llm.StringField("Why the change helps for this role"),
	})

	return llm.Object(map[string]*genai.Schema{
		"matchScore":      llm.IntegerField("Match between CV and job description from 0 to 100"),
		"summary":         llm.StringField("Two or three sentence overview"),
		"strengths":       llm.StringList("What already matches the role"),
		"gaps":            llm.StringList("Requirements the CV does not show"),
		"missingKeywords": llm.StringList("Job description terms missing from the CV"),
		"suggestions":     llm.ObjectList("Concrete edits", suggestion),
	})
}

func rewriteSchema() *genai.Schema {
	role := llm.Object(map[string]*genai.Schema{
		"title":   llm.StringField("Job title"),
		"company": llm.StringField("Employer"),
		"period":  llm.StringField("Dates, e.g. Jan 2020 - Present"),
		"bullets": llm.StringList("Achievements, each starting with a verb"),
	})
	education := llm.Object(map[string]*genai.Schema{
		"degree":      llm.StringField("Degree or qualification"),
		"institution": llm.StringField("School or university"),
		"period":      llm.StringField("Dates"),
	})

	return llm.Object(map[string]*genai.Schema{
		"fullName":       llm.StringField("Candidate's name"),
		"headline":       llm.StringField("One-line professional title"),
		"contact":        llm.StringField("Contact details on one line"),
		"summary":        llm.StringField("Professional summary"),
		"skills":         llm.StringList("Skills relevant to the role"),
		"experience":     llm.ObjectList("Roles, most recent first", role),
		"education":      llm.ObjectList("Education entries", education),
		"certifications": llm.StringList("Certifications"),
	})
}
