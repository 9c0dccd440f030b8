// Package results appends mission outcomes to per-run JSONL files.
package results

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"nightrunner/internal/logger"
	"nightrunner/internal/utils"
)

const runIDLayout = "20060102T150405Z"

// MakeRunID formats now in UTC as a compact sortable id.
func MakeRunID(now time.Time) string {
	return now.UTC().Format(runIDLayout)
}

// ResolveRoot prefers preferred and falls back to fallback. It never fails; if
// neither directory can be created the fallback is returned anyway and later
// writes will surface the error.
func ResolveRoot(preferred, fallback string) string {
	if preferred != "" {
		err := os.MkdirAll(preferred, 0o755)
		if err == nil {
			return preferred
		}
		logger.Log.Printf("[results] cannot use %s: %v; falling back to %s", preferred, err, fallback)
	}
	if err := os.MkdirAll(fallback, 0o755); err != nil {
		logger.Log.Printf("[results] cannot create fallback %s: %v", fallback, err)
	}
	return fallback
}

// Recorder appends one JSON line per result. Safe for concurrent use.
type Recorder struct {
	root string
	now  func() time.Time
	mu   sync.Mutex
}

func NewRecorder(root string) *Recorder {
	return &Recorder{root: root, now: time.Now}
}

func (r *Recorder) Root() string { return r.root }

// Path is the JSONL file that collects results for runID.
func (r *Recorder) Path(runID string) string {
	return filepath.Join(r.root, fmt.Sprintf("mission_results_%s.jsonl", runID))
}

// Record enriches fields with run_id and timestamp and appends them. fields is
// not modified.
func (r *Recorder) Record(runID string, fields map[string]any) error {
	enriched := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		enriched[k] = v
	}
	enriched["run_id"] = runID
	enriched["timestamp"] = r.now().UTC().Format(time.RFC3339)

	line, err := json.Marshal(enriched)
	if err != nil {
		return fmt.Errorf("marshal mission result: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := utils.AppendLine(r.Path(runID), line); err != nil {
		return fmt.Errorf("record mission result: %w", err)
	}
	return nil
}
