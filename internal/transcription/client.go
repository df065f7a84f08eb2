package transcription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
)

// ErrEmptyAudio is returned for a zero-byte recording, before any remote call
var ErrEmptyAudio = errors.New("audio is empty")

const instruction = "You transcribe interview answers. Return only the verbatim transcription of the " +
	"candidate's speech as plain text, without timestamps, speaker labels, quotes or commentary. " +
	"If no speech can be heard, return an empty response."

// Client turns a recorded answer into text. It never retries; the interview
// decides what to do with a failure.
type Client struct {
	gen     llm.Generator
	timeout time.Duration
}

// NewClient creates a transcription client
func NewClient(gen llm.Generator, timeout time.Duration) *Client {
	return &Client{gen: gen, timeout: timeout}
}

// Transcribe sends one recording to the model and returns its text
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}

	req := llm.Request{
		System: instruction,
		Parts: []genai.Part{
			genai.Blob{MIMEType: normalizeMIMEType(mimeType), Data: audio},
			genai.Text("Transcribe this answer."),
		},
		Temperature: 0.1,
	}

	text, err := llm.WithTimeout(ctx, c.timeout, func(ctx context.Context) (string, error) {
		return c.gen.Generate(ctx, req)
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}

	return cleanTranscript(text), nil
}

// normalizeMIMEType drops codec parameters ("audio/webm;codecs=opus") that
// the model rejects
func normalizeMIMEType(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		return "audio/webm"
	}
	return base
}

func cleanTranscript(text string) string {
	text = strings.TrimSpace(text)
	text = strings.Trim(text, "\"'`")
	return strings.Join(strings.Fields(text), " ")
}
