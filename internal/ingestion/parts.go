package ingestion

import (
	"fmt"

	"cloud.google.com/go/vertexai/genai"

	"github.com/faseelanwar-cpu/interview-coach/internal/models"
	"github.com/faseelanwar-cpu/interview-coach/internal/profile"
)

// MaxPromptTextLength caps candidate text placed in a prompt
const MaxPromptTextLength = 20000

// MaterialParts turns candidate material into model parts: a labelled text
// part, plus the raw file for binary documents
func MaterialParts(m models.CandidateMaterial) ([]genai.Part, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	if m.Profile != nil {
		return []genai.Part{
			genai.Text("## CANDIDATE PROFILE\n" + Truncate(profile.Text(*m.Profile), MaxPromptTextLength)),
		}, nil
	}

	doc := m.Document
	if doc.IsText() {
		return []genai.Part{
			genai.Text(fmt.Sprintf("## CANDIDATE CV (%s)\n%s", doc.Name, Truncate(doc.Text, MaxPromptTextLength))),
		}, nil
	}

	return []genai.Part{
		genai.Text(fmt.Sprintf("## CANDIDATE CV\nThe candidate's CV is attached as %s.", doc.Name)),
		genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data},
	}, nil
}

// Truncate shortens s to at most maxLen bytes on a rune boundary, marking the cut
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "\n[truncated for length]"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
