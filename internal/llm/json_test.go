package llm

import (
	"errors"
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{"plain", `{"a":1}`, `{"a":1}`, false},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`, false},
		{"text around", "Here you go:\n{\"a\":{\"b\":2}}\nThanks", `{"a":{"b":2}}`, false},
		{"no object", "sorry, I cannot help", "", true},
		{"reversed braces", "} nope {", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExtractJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecodeStrict(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	var p payload
	if err := DecodeStrict(`{"name":"ok"}`, &p); err != nil {
		t.Fatalf("DecodeStrict() failed: %v", err)
	}
	if p.Name != "ok" {
		t.Errorf("Name = %q, want ok", p.Name)
	}

	if err := DecodeStrict(`{"name":"ok","extra":true}`, &p); err == nil {
		t.Error("Expected unknown field to be rejected")
	}

	if err := DecodeStrict(`no json`, &p); !errors.Is(err, ErrNoJSON) {
		t.Errorf("Expected ErrNoJSON, got %v", err)
	}
}
