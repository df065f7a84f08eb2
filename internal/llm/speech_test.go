package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestSpeechClient(t *testing.T, handler http.HandlerFunc) *SpeechClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewSpeechClient(context.Background(), SpeechOptions{
		ProjectID:  "demo",
		Location:   "us-central1",
		Voice:      "Puck",
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("NewSpeechClient failed: %v", err)
	}
	return client
}

func TestSynthesizeSuccess(t *testing.T) {
	client := newTestSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/projects/demo/locations/us-central1/publishers/google/models/gemini-2.5-flash-preview-tts:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req speechRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.GenerationConfig.ResponseModalities[0] != "AUDIO" {
			t.Errorf("expected AUDIO modality, got %v", req.GenerationConfig.ResponseModalities)
		}
		if req.GenerationConfig.SpeechConfig.VoiceConfig.PrebuiltVoiceConfig.VoiceName != "Puck" {
			t.Errorf("unexpected voice in request")
		}
		if req.Contents[0].Parts[0].Text != "Tell me about a hard bug." {
			t.Errorf("unexpected text %q", req.Contents[0].Parts[0].Text)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"inlineData":{"mimeType":"audio/L16;codec=pcm;rate=24000","data":"AIAAAA=="}}]},"finishReason":"STOP"}]}`))
	})

	speech, err := client.Synthesize(context.Background(), "  Tell me about a hard bug. ")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	if speech.Base64 != "AIAAAA==" {
		t.Errorf("unexpected audio %q", speech.Base64)
	}
	if speech.SampleRate != 24000 {
		t.Errorf("expected 24000 Hz, got %d", speech.SampleRate)
	}
}

func TestSynthesizeFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"quota"}`, isRateLimitError},
		{"server error", http.StatusInternalServerError, `oops`, IsRetryable},
		{"no audio", http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"hi"}]}}]}`, func(err error) bool { return errors.Is(err, ErrNoAudio) }},
		{"bad json", http.StatusOK, `{`, func(err error) bool { return err != nil && !IsRetryable(err) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})
			_, err := client.Synthesize(context.Background(), "hello")
			if err == nil || !tt.check(err) {
				t.Errorf("unexpected error %v", err)
			}
		})
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	client := newTestSpeechClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("remote should not be called")
	})
	if _, err := client.Synthesize(context.Background(), "   "); err == nil {
		t.Error("Expected error for empty text")
	}
}

func TestSampleRateFromMIME(t *testing.T) {
	tests := map[string]int{
		"audio/L16;codec=pcm;rate=24000": 24000,
		"audio/L16; rate=16000":          16000,
		"audio/L16":                      DefaultSpeechSampleRate,
		"audio/L16;rate=abc":             DefaultSpeechSampleRate,
	}
	for in, want := range tests {
		if got := sampleRateFromMIME(in); got != want {
			t.Errorf("sampleRateFromMIME(%q) = %d, want %d", in, got, want)
		}
	}
}
