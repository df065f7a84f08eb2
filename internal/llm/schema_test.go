package llm

import (
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
)

func TestObjectRequiresEveryProperty(t *testing.T) {
	s := Object(map[string]*genai.Schema{
		"summary":    StringField("text"),
		"matchScore": IntegerField("0-100"),
		"gaps":       StringList("gaps"),
	})

	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"gaps", "matchScore", "summary"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["gaps"].Items.Type)
}
