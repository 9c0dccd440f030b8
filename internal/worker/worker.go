// Package worker talks to the LLM worker that answers mission bundles and
// normalizes whatever happens into a Result.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"nightrunner/internal/config"
	"nightrunner/internal/llm_client"
	"nightrunner/internal/logger"
	"nightrunner/internal/mission"
)

const (
	EnvEnableAPI = "NIGHT_WORKER_ENABLE_API"
	EnvAPIKey    = "NIGHT_WORKER_API_KEY"

	StatusOK    = "ok"
	StatusError = "error"
)

// Bundle is the context handed to the worker for one mission.
type Bundle struct {
	RequestID string         `json:"request_id"`
	MissionID string         `json:"mission_id"`
	Title     string         `json:"title,omitempty"`
	Goal      string         `json:"goal,omitempty"`
	Doctrine  string         `json:"doctrine,omitempty"`
	Repo      string         `json:"repo,omitempty"`
	Branch    string         `json:"branch,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// NewBundle builds a bundle with a fresh request id.
func NewBundle(m mission.Mission, repo, branch, doctrine string) Bundle {
	return Bundle{
		RequestID: uuid.NewString(),
		MissionID: m.ID,
		Title:     m.Title,
		Goal:      m.Goal,
		Doctrine:  doctrine,
		Repo:      repo,
		Branch:    branch,
		Fields:    m.Fields,
	}
}

// Result is what the worker produced. Metadata may carry probe_unavailable,
// missing_credentials and reason.
type Result struct {
	WorkerName   string         `json:"worker_name"`
	Status       string         `json:"status"`
	Success      bool           `json:"success"`
	Message      string         `json:"message,omitempty"`
	Patch        string         `json:"patch,omitempty"`
	ErrorMessage string         `json:"error_message,omitempty"`
	ErrorCode    string         `json:"error_code,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// ProbeUnavailable reports whether the worker never actually answered.
func (r Result) ProbeUnavailable() bool {
	v, _ := r.Metadata["probe_unavailable"].(bool)
	return v
}

// Client sends bundles to one configured worker backend.
type Client struct {
	cfg config.WorkerConfig
	// NewProvider is only called once credentials are present.
	NewProvider func(llm_client.Config) (llm_client.Provider, error)
}

func NewClient(cfg config.WorkerConfig) *Client {
	return &Client{cfg: cfg, NewProvider: llm_client.New}
}

func (c *Client) Name() string {
	if c.cfg.Name == "" {
		return "grok"
	}
	return c.cfg.Name
}

// MissingCredentials lists the settings that keep the worker from being called.
func MissingCredentials(cfg config.WorkerConfig) []string {
	var missing []string
	if !cfg.APIEnabled {
		missing = append(missing, EnvEnableAPI)
	}
	if llm_client.RequiresAPIKey(cfg.Backend) && strings.TrimSpace(cfg.APIKey) == "" {
		missing = append(missing, EnvAPIKey)
	}
	return missing
}

type response struct {
	Message string `json:"message"`
	Patch   string `json:"patch"`
}

var responseSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"message": map[string]any{"type": "string"},
		"patch":   map[string]any{"type": "string"},
	},
	"required": []string{"message"},
}

// Run asks the worker about b. It never returns an error: every failure is
// folded into the Result.
func (c *Client) Run(ctx context.Context, b Bundle) Result {
	if missing := MissingCredentials(c.cfg); len(missing) > 0 {
		logger.Log.Printf("[worker] %s unavailable for %s; missing %s", c.Name(), b.MissionID, strings.Join(missing, ", "))
		return c.unavailable("missing worker credentials", "missing_credentials", missing)
	}

	provider, err := c.NewProvider(llm_client.Config{
		Backend:    c.cfg.Backend,
		Model:      c.cfg.Model,
		APIKey:     c.cfg.APIKey,
		OllamaHost: c.cfg.OllamaHost,
	})
	if err != nil {
		return c.failure(err)
	}

	prompt, err := buildPrompt(b)
	if err != nil {
		return c.failure(err)
	}
	raw, err := provider.GenerateJSON(ctx, prompt, c.cfg.Model, responseSchema)
	if err != nil {
		return c.failure(err)
	}

	var resp response
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		resp.Message = strings.TrimSpace(raw)
	}
	return Result{
		WorkerName: c.Name(),
		Status:     StatusOK,
		Success:    true,
		Message:    resp.Message,
		Patch:      resp.Patch,
		Metadata:   map[string]any{"request_id": b.RequestID},
	}
}

func (c *Client) failure(err error) Result {
	if llm_client.IsAuthError(err) {
		logger.Log.Printf("[worker] %s rejected credentials: %v", c.Name(), err)
		return c.unavailable(err.Error(), "auth_error", nil)
	}
	logger.Log.Printf("[worker] %s failed: %v", c.Name(), err)
	return Result{
		WorkerName:   c.Name(),
		Status:       StatusError,
		ErrorMessage: err.Error(),
		ErrorCode:    "worker_error",
	}
}

func (c *Client) unavailable(message, reason string, missing []string) Result {
	meta := map[string]any{
		"probe_unavailable": true,
		"reason":            reason,
	}
	if len(missing) > 0 {
		meta["missing_credentials"] = missing
	}
	return Result{
		WorkerName:   c.Name(),
		Status:       StatusError,
		ErrorMessage: message,
		ErrorCode:    reason,
		Metadata:     meta,
	}
}

func buildPrompt(b Bundle) (string, error) {
	payload, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal bundle: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("You are a night-shift engineering worker operating inside a sandbox branch.\n")
	sb.WriteString("Answer the mission below. Put your answer in \"message\" and any proposed unified diff in \"patch\".\n\n")
	sb.Write(payload)
	return sb.String(), nil
}
