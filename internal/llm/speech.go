package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// DefaultSpeechSampleRate is the PCM rate of the speech model's output
const DefaultSpeechSampleRate = 24000

// ErrNoAudio is returned when the speech model answers without audio
var ErrNoAudio = errors.New("no audio returned")

// Speech is synthesized audio as returned by the model: base64 encoded mono
// 16-bit little-endian PCM
type Speech struct {
	Base64     string
	MIMEType   string
	SampleRate int
}

// Synthesizer turns question text into speech
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (Speech, error)
}

// SpeechOptions configures a SpeechClient
type SpeechOptions struct {
	ProjectID         string
	Location          string
	Model             string
	Voice             string
	CredentialsFile   string
	RequestsPerMinute int
	// HTTPClient and BaseURL replace the authenticated client and the regional
	// endpoint, mainly for tests
	HTTPClient *http.Client
	BaseURL    string
}

// SpeechClient calls the Gemini text-to-speech model over REST, since the
// genai SDK does not expose audio response modalities
type SpeechClient struct {
	http     *http.Client
	endpoint string
	voice    string
	limiter  *rate.Limiter
}

// NewSpeechClient creates a speech client authenticated with application
// default credentials
func NewSpeechClient(ctx context.Context, opts SpeechOptions) (*SpeechClient, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("google cloud project is not set")
	}
	if opts.Location == "" {
		opts.Location = "us-central1"
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash-preview-tts"
	}
	if opts.Voice == "" {
		opts.Voice = "Kore"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = defaultHTTPClient(ctx, opts.CredentialsFile)
		if err != nil {
			return nil, err
		}
	}

	base := opts.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s-aiplatform.googleapis.com", opts.Location)
	}
	endpoint := fmt.Sprintf("%s/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		strings.TrimRight(base, "/"), opts.ProjectID, opts.Location, opts.Model)

	return &SpeechClient{
		http:     httpClient,
		endpoint: endpoint,
		voice:    opts.Voice,
		limiter:  newLimiter(opts.RequestsPerMinute),
	}, nil
}

type speechRequest struct {
	Contents         []restContent   `json:"contents"`
	GenerationConfig speechGenConfig `json:"generationConfig"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type speechGenConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoice `json:"prebuiltVoiceConfig"`
}

type prebuiltVoice struct {
	VoiceName string `json:"voiceName"`
}

type speechResponse struct {
	Candidates []struct {
		Content      restContent `json:"content"`
		FinishReason string      `json:"finishReason"`
	} `json:"candidates"`
}

// Synthesize speaks text with the configured voice
func (s *SpeechClient) Synthesize(ctx context.Context, text string) (Speech, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Speech{}, fmt.Errorf("nothing to synthesize")
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return Speech{}, err
	}

	body, err := json.Marshal(speechRequest{
		Contents: []restContent{{Role: "user", Parts: []restPart{{Text: text}}}},
		GenerationConfig: speechGenConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoice{VoiceName: s.voice}},
			},
		},
	})
	if err != nil {
		return Speech{}, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Speech{}, fmt.Errorf("failed to build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return Speech{}, fmt.Errorf("speech request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return Speech{}, fmt.Errorf("failed to read speech response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Speech{}, &StatusError{Code: resp.StatusCode, Body: truncateBody(payload)}
	}

	var decoded speechResponse
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Speech{}, fmt.Errorf("failed to decode speech response: %w", err)
	}

	for _, cand := range decoded.Candidates {
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && part.InlineData.Data != "" {
				return Speech{
					Base64:     part.InlineData.Data,
					MIMEType:   part.InlineData.MIMEType,
					SampleRate: sampleRateFromMIME(part.InlineData.MIMEType),
				}, nil
			}
		}
	}
	return Speech{}, ErrNoAudio
}

// sampleRateFromMIME reads the rate parameter of a type such as
// "audio/L16;codec=pcm;rate=24000"
func sampleRateFromMIME(mimeType string) int {
	for _, param := range strings.Split(mimeType, ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(param), "=")
		if ok && strings.EqualFold(key, "rate") {
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				return n
			}
		}
	}
	return DefaultSpeechSampleRate
}

func truncateBody(b []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
