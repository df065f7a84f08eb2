package llm

import (
	"slices"

	"cloud.google.com/go/vertexai/genai"
)

// StringField is a described string property
func StringField(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: desc}
}

// IntegerField is a described integer property
func IntegerField(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger, Description: desc}
}

// StringList is a described array of strings
func StringList(desc string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: &genai.Schema{Type: genai.TypeString}}
}

// ObjectList is a described array of objects
func ObjectList(desc string, item *genai.Schema) *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Description: desc, Items: item}
}

// Object is an object whose listed properties are all required
func Object(props map[string]*genai.Schema) *genai.Schema {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	slices.Sort(required)
	return &genai.Schema{Type: genai.TypeObject, Properties: props, Required: required}
}
