// Package cycle fetches one execution's output, locally or from the remote job,
// and runs it through the artifact pipeline.
package cycle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"nightrunner/internal/artifacts"
	"nightrunner/internal/results"
	"nightrunner/internal/utils"
)

// LatestExecution picks the execution with the newest properties.startTime.
// Missing or unparseable times sort as the zero time; ties keep the earlier
// entry.
func LatestExecution(execs []map[string]any) (string, error) {
	if len(execs) == 0 {
		return "", fmt.Errorf("no executions found for job")
	}
	best := 0
	bestTime := startTime(execs[0])
	for i := 1; i < len(execs); i++ {
		if t := startTime(execs[i]); t.After(bestTime) {
			best, bestTime = i, t
		}
	}
	name := utils.StringField(execs[best], "name")
	if name == "" {
		return "", fmt.Errorf("could not determine execution name")
	}
	return name, nil
}

// startLayouts are tried in order. Times without a zone are read as UTC.
var startLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func startTime(exec map[string]any) time.Time {
	raw := utils.StringField(utils.MapField(exec, "properties"), "startTime")
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range startLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// EnsureRunDir creates base/runs/<YYYY-MM-DD>/<execution>.
func EnsureRunDir(base, execution string, now time.Time) (string, error) {
	dir := filepath.Join(base, "runs", now.Format("2006-01-02"), execution)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create run dir: %w", err)
	}
	return dir, nil
}

// ResolveExecutionDir finds the run directory for a local cycle: an explicit
// override, then envDir, then the newest runs/<date>/<execution>.
func ResolveExecutionDir(base, override, envDir string) (string, string, error) {
	if override != "" {
		dir := absUnder(base, override)
		if isDir(dir) {
			return dir, filepath.Base(dir), nil
		}
		return "", "", fmt.Errorf("execution directory not found: %s", dir)
	}
	if envDir != "" {
		if dir := absUnder(base, envDir); isDir(dir) {
			return dir, filepath.Base(dir), nil
		}
	}

	runsRoot := filepath.Join(base, "runs")
	if !isDir(runsRoot) {
		return "", "", fmt.Errorf("no runs/ directory found for local cycle")
	}
	for _, dateDir := range subdirsDesc(runsRoot) {
		if execs := subdirsDesc(dateDir); len(execs) > 0 {
			return execs[0], filepath.Base(execs[0]), nil
		}
	}
	return "", "", fmt.Errorf("no execution directories found under runs/")
}

func absUnder(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func isDir(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

func subdirsDesc(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// Driver runs one cycle.
type Driver struct {
	Runner      JobRunner
	Pipeline    *artifacts.Pipeline
	Base        string
	MaxLogLines int
	Out         io.Writer
	Now         func() time.Time
}

func (d *Driver) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *Driver) printf(format string, args ...any) {
	fmt.Fprintf(d.Out, "[cycle] "+format+"\n", args...)
}

// RunRemote triggers the job and processes its newest execution. External
// command failures abort with their error; a pipeline failure is printed and
// yields a nil set without an error.
func (d *Driver) RunRemote(ctx context.Context) (*artifacts.ArtifactSet, error) {
	if err := d.Runner.Trigger(ctx); err != nil {
		return nil, err
	}
	execs, err := d.Runner.ListExecutions(ctx)
	if err != nil {
		return nil, err
	}
	name, err := LatestExecution(execs)
	if err != nil {
		return nil, err
	}
	d.printf("Latest execution: %s", name)

	runDir, err := EnsureRunDir(d.Base, name, d.now())
	if err != nil {
		return nil, err
	}
	logs, err := d.Runner.FetchLogs(ctx, name, d.MaxLogLines)
	if err != nil {
		return nil, err
	}
	meta, err := d.Runner.FetchMetadata(ctx, name)
	if err != nil {
		return nil, err
	}
	return d.process(ctx, runDir, name, &logs, meta), nil
}

// LocalOptions selects the run directory and an optional in-process probe.
type LocalOptions struct {
	Override string
	EnvDir   string
	// Probe, when set, runs in a fresh execution directory and its output
	// becomes the raw log.
	Probe func(ctx context.Context, w io.Writer) error
}

// RunLocal processes an existing run directory, or a new one produced by the
// local probe.
func (d *Driver) RunLocal(ctx context.Context, opts LocalOptions) (*artifacts.ArtifactSet, error) {
	if opts.Probe == nil {
		runDir, name, err := ResolveExecutionDir(d.Base, opts.Override, opts.EnvDir)
		if err != nil {
			return nil, err
		}
		d.printf("Local cycle using %s", runDir)
		return d.process(ctx, runDir, name, nil, nil), nil
	}

	name := results.MakeRunID(d.now())
	runDir, err := EnsureRunDir(d.Base, name, d.now())
	if err != nil {
		return nil, err
	}
	d.printf("Running local probe into %s", runDir)
	var buf bytes.Buffer
	if err := opts.Probe(ctx, &buf); err != nil {
		d.printf("Warning: local probe failed: %v", err)
	}
	logs := buf.String()
	meta := map[string]any{
		"name":       name,
		"properties": map[string]any{"status": "local"},
	}
	return d.process(ctx, runDir, name, &logs, meta), nil
}

func (d *Driver) process(ctx context.Context, runDir, name string, logs *string, meta map[string]any) *artifacts.ArtifactSet {
	set, err := d.Pipeline.Process(ctx, runDir, name, logs, meta)
	if err != nil {
		d.printf("Artifact processing failed: %s", strings.TrimSpace(err.Error()))
		return nil
	}
	return set
}
