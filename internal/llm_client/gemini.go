package llm_client

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiDefault = "gemini-2.0-flash"

var errEmptyGemini = errors.New("gemini returned no text")

// geminiProvider talks to the Gemini API with a key; Vertex credentials are
// not used by the night worker.
type geminiProvider struct {
	client *genai.Client
	model  string
}

func (p *geminiProvider) Init(cfg Config) error {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return errors.New("gemini: API key is not set")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("gemini client init: %w", err)
	}
	p.client = client
	p.model = firstModel(cfg.Model, geminiDefault)
	return nil
}

func (p *geminiProvider) DefaultModel() string { return geminiDefault }

// AllowedModelOrDefault only accepts gemini-* names; anything else falls back
// to the default so a model meant for another backend never reaches the API.
func (p *geminiProvider) AllowedModelOrDefault(model string) string {
	m := strings.TrimSpace(model)
	switch {
	case m == "":
		return p.model
	case strings.HasPrefix(strings.ToLower(m), "gemini-"):
		return m
	default:
		return geminiDefault
	}
}

func (p *geminiProvider) Generate(ctx context.Context, prompt, model string) (string, error) {
	return p.ask(ctx, prompt, model, nil)
}

func (p *geminiProvider) GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	gc := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	if schema != nil {
		gc.ResponseJsonSchema = schema
	}
	return p.ask(ctx, prompt, model, gc)
}

func (p *geminiProvider) ask(ctx context.Context, prompt, model string, gc *genai.GenerateContentConfig) (string, error) {
	if p.client == nil {
		return "", ErrNotInitialized
	}
	resp, err := p.client.Models.GenerateContent(ctx, p.AllowedModelOrDefault(model), genai.Text(prompt), gc)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyGemini
	}
	return text, nil
}

func firstModel(configured, fallback string) string {
	if m := strings.TrimSpace(configured); m != "" {
		return m
	}
	return fallback
}
