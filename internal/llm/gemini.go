package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// ErrNoCandidates is returned when the model answers with nothing usable
var ErrNoCandidates = errors.New("no response candidates returned")

// Request is one call to the text model
type Request struct {
	System string
	Parts  []genai.Part
	// Schema switches the call to JSON output constrained by the schema
	Schema *genai.Schema
	// Temperature overrides the client default when non-zero
	Temperature float32
}

// Generator produces text from a request
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeminiOptions configures a GeminiClient
type GeminiOptions struct {
	ProjectID         string
	Location          string
	Model             string
	CredentialsFile   string
	RequestsPerMinute int
}

// GeminiClient wraps the Vertex AI Gemini API
type GeminiClient struct {
	client    *genai.Client
	modelName string
	limiter   *rate.Limiter
	projectID string
	location  string
}

// NewGeminiClient creates a new Vertex AI client
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.ProjectID == "" {
		return nil, fmt.Errorf("google cloud project is not set")
	}
	if opts.Location == "" {
		opts.Location = "us-central1"
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}

	var clientOpts []option.ClientOption
	if opts.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	client, err := genai.NewClient(ctx, opts.ProjectID, opts.Location, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	return &GeminiClient{
		client:    client,
		modelName: opts.Model,
		limiter:   newLimiter(opts.RequestsPerMinute),
		projectID: opts.ProjectID,
		location:  opts.Location,
	}, nil
}

func newLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

// Generate sends a request to the model and returns the concatenated text of
// the first candidate
func (g *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	if len(req.Parts) == 0 {
		return "", fmt.Errorf("request has no parts")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(0.2)
	if req.Temperature != 0 {
		model.SetTemperature(req.Temperature)
	}
	model.SetTopK(40)
	model.SetTopP(0.95)
	model.SetMaxOutputTokens(8192)

	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		model.ResponseSchema = req.Schema
	}

	resp, err := model.GenerateContent(ctx, req.Parts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return responseText(resp)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ErrNoCandidates
	}

	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", fmt.Errorf("%w: finish reason %s", ErrNoCandidates, cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: empty text (finish reason %s)", ErrNoCandidates, cand.FinishReason)
	}
	return sb.String(), nil
}

// Close closes the Vertex AI client
func (g *GeminiClient) Close() error {
	return g.client.Close()
}
