package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSON is returned when a response holds no JSON object
var ErrNoJSON = errors.New("no JSON found in response")

// ExtractJSON strips markdown fences and any text around the outermost
// JSON object
func ExtractJSON(response string) (string, error) {
	s := strings.TrimSpace(response)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	startIdx := strings.Index(s, "{")
	endIdx := strings.LastIndex(s, "}")
	if startIdx == -1 || endIdx == -1 || endIdx < startIdx {
		return "", ErrNoJSON
	}

	return s[startIdx : endIdx+1], nil
}

// DecodeStrict decodes the JSON object in response into v, rejecting unknown
// fields and trailing data
func DecodeStrict(response string, v any) error {
	raw, err := ExtractJSON(response)
	if err != nil {
		return err
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to unmarshal JSON: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON object")
	}
	return nil
}
