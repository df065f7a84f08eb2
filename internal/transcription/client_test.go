package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/faseelanwar-cpu/interview-coach/internal/llm"
)

type fakeGenerator struct {
	calls    int
	lastReq  llm.Request
	response string
	err      error
	block    chan struct{}
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	f.lastReq = req
	if f.block != nil {
		<-f.block
	}
	return f.response, f.err
}

func TestTranscribeEmptyAudioFailsFast(t *testing.T) {
	gen := &fakeGenerator{response: "should not be used"}
	c := NewClient(gen, time.Second)

	_, err := c.Transcribe(context.Background(), nil, "audio/webm")
	if !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("Expected ErrEmptyAudio, got %v", err)
	}
	if gen.calls != 0 {
		t.Errorf("Expected no remote call, got %d", gen.calls)
	}
}

func TestTranscribeSendsAudioBlob(t *testing.T) {
	gen := &fakeGenerator{response: "  \"I led a team of\n five engineers\"  "}
	c := NewClient(gen, time.Second)

	text, err := c.Transcribe(context.Background(), []byte{1, 2, 3}, "audio/webm;codecs=opus")
	if err != nil {
		t.Fatalf("Transcribe failed: %v", err)
	}
	if text != "I led a team of five engineers" {
		t.Errorf("Unexpected transcript %q", text)
	}

	blob, ok := gen.lastReq.Parts[0].(genai.Blob)
	if !ok {
		t.Fatalf("Expected first part to be a blob, got %T", gen.lastReq.Parts[0])
	}
	if blob.MIMEType != "audio/webm" || len(blob.Data) != 3 {
		t.Errorf("Unexpected blob %s with %d bytes", blob.MIMEType, len(blob.Data))
	}
	if gen.lastReq.Schema != nil {
		t.Error("Transcription should not request JSON output")
	}
}

func TestTranscribeDoesNotRetry(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("429 rate limit")}
	c := NewClient(gen, time.Second)

	if _, err := c.Transcribe(context.Background(), []byte{1}, "audio/ogg"); err == nil {
		t.Fatal("Expected error")
	}
	if gen.calls != 1 {
		t.Errorf("Expected exactly one call, got %d", gen.calls)
	}
}

func TestTranscribeTimeout(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	defer close(gen.block)
	c := NewClient(gen, 10*time.Millisecond)

	_, err := c.Transcribe(context.Background(), []byte{1}, "audio/ogg")
	if !errors.Is(err, llm.ErrGenerationTimedOut) {
		t.Errorf("Expected ErrGenerationTimedOut, got %v", err)
	}
}

func TestNormalizeMIMEType(t *testing.T) {
	tests := map[string]string{
		"audio/webm;codecs=opus": "audio/webm",
		" Audio/OGG ":            "audio/ogg",
		"":                       "audio/webm",
	}
	for in, want := range tests {
		if got := normalizeMIMEType(in); got != want {
			t.Errorf("normalizeMIMEType(%q) = %q, want %q", in, got, want)
		}
	}
}
