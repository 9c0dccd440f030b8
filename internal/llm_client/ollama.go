package llm_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

const (
	ollamaDefault = "phi4:latest"
	jsonOnlyHint  = "\n\nReturn ONLY strict JSON. No extra text."
)

// ollamaProvider targets a local or self-hosted Ollama server. It needs no
// API key; OllamaHost overrides OLLAMA_HOST.
type ollamaProvider struct {
	client *api.Client
	model  string
}

func (p *ollamaProvider) Init(cfg Config) error {
	client, err := ollamaClient(strings.TrimSpace(cfg.OllamaHost))
	if err != nil {
		return err
	}
	p.client = client
	p.model = firstModel(cfg.Model, ollamaDefault)
	return nil
}

func ollamaClient(host string) (*api.Client, error) {
	if host == "" {
		c, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client init: %w", err)
		}
		return c, nil
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("ollama: bad host %q: %w", host, err)
	}
	return api.NewClient(u, http.DefaultClient), nil
}

func (p *ollamaProvider) DefaultModel() string { return ollamaDefault }

func (p *ollamaProvider) AllowedModelOrDefault(model string) string {
	return firstModel(model, p.model)
}

func (p *ollamaProvider) Generate(ctx context.Context, prompt, model string) (string, error) {
	return p.ask(ctx, &api.GenerateRequest{Model: p.AllowedModelOrDefault(model), Prompt: prompt})
}

// GenerateJSON passes schema as the request format, or plain "json" mode when
// no schema is given.
func (p *ollamaProvider) GenerateJSON(ctx context.Context, prompt, model string, schema any) (string, error) {
	format := json.RawMessage(`"json"`)
	if schema != nil {
		b, err := json.Marshal(schema)
		if err != nil {
			return "", fmt.Errorf("ollama marshal schema: %w", err)
		}
		format = b
	}
	return p.ask(ctx, &api.GenerateRequest{
		Model:  p.AllowedModelOrDefault(model),
		Prompt: prompt + jsonOnlyHint,
		Format: format,
	})
}

func (p *ollamaProvider) ask(ctx context.Context, req *api.GenerateRequest) (string, error) {
	if p.client == nil {
		return "", ErrNotInitialized
	}
	stream := false
	req.Stream = &stream
	var sb strings.Builder
	err := p.client.Generate(ctx, req, func(gr api.GenerateResponse) error {
		sb.WriteString(gr.Response)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return sb.String(), nil
}
