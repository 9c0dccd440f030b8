package worker

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"nightrunner/internal/config"
)

const SecretsMarker = "BOOTSTRAP_SECRETS_STATUS:"

// SecretStatus fields are declared in key order so the logged line is sorted.
type SecretStatus struct {
	APIEnabled bool     `json:"api_enabled"`
	ConfigOK   bool     `json:"config_ok"`
	HasKey     bool     `json:"has_key"`
	Missing    []string `json:"missing"`
}

// CheckSecrets reports the key as missing even when the API is off, but only
// treats the config as broken when the API is on without a key.
func CheckSecrets(cfg config.WorkerConfig) SecretStatus {
	hasKey := strings.TrimSpace(cfg.APIKey) != ""
	missing := []string{}
	if !hasKey {
		missing = append(missing, EnvAPIKey)
	}
	return SecretStatus{
		APIEnabled: cfg.APIEnabled,
		ConfigOK:   !(cfg.APIEnabled && !hasKey),
		HasKey:     hasKey,
		Missing:    missing,
	}
}

// LogSecretStatus prints the tagged diagnostics line and returns the status.
func LogSecretStatus(w io.Writer, cfg config.WorkerConfig) (SecretStatus, error) {
	status := CheckSecrets(cfg)
	data, err := json.Marshal(status)
	if err != nil {
		return status, fmt.Errorf("marshal secret status: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s %s\n", SecretsMarker, data)
	return status, err
}
