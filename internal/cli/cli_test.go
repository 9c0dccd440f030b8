package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nightrunner/internal/config"
	"nightrunner/internal/cycle"
	"nightrunner/internal/supervisor"
	"nightrunner/internal/worker"
)

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: 0},
		{name: "plain", err: errors.New("boom"), want: 1},
		{name: "command", err: &cycle.CommandError{Args: []string{"az"}, ExitCode: 3}, want: 3},
		{name: "wrapped command", err: fmt.Errorf("trigger: %w", &cycle.CommandError{ExitCode: 2}), want: 2},
		{name: "command without status", err: &cycle.CommandError{ExitCode: -1}, want: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := exitCode(tc.err); got != tc.want {
				t.Errorf("exitCode = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestLocalProbeWithoutCredentials(t *testing.T) {
	base := filepath.Join(t.TempDir(), "ls-azure-night-runner")
	c := &config.Config{Worker: config.WorkerConfig{Name: "grok", ProbeMission: "NM-910"}}

	var buf bytes.Buffer
	probe := localProbe(c, base, worker.NewClient(c.Worker))
	if err := probe(context.Background(), &buf); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines, got:\n%s", out)
	}
	for i, marker := range []string{worker.SecretsMarker, worker.RecordMarker, supervisor.ResultMarker} {
		if !strings.HasPrefix(lines[i], marker) {
			t.Errorf("line %d = %q, want prefix %s", i+1, lines[i], marker)
		}
	}
	if !strings.Contains(lines[2], `"branch":"local-cycle"`) || !strings.Contains(lines[2], `"repo":"ls-azure-night-runner"`) {
		t.Errorf("mission result = %s", lines[2])
	}
	if !strings.Contains(lines[1], `"probe_unavailable":true`) {
		t.Errorf("worker record = %s", lines[1])
	}
}

func TestLoadReady(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "ops", "night_missions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"NM-020.yaml": "mission_id: NM-020\nstatus: ready\nrisk:\n  tier: L1\npriority: 10\nrepos:\n  - name: ls-backend\n",
		"NM-030.yaml": "mission_id: NM-030\nstatus: ready\nrisk:\n  tier: L2\n",
		"NM-bad.yaml": "mission_id: [unclosed\n",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var warn bytes.Buffer
	ready, err := loadReady(&config.Config{SpecRoot: root, MaxMissions: 5}, &warn)
	if err != nil {
		t.Fatal(err)
	}
	if len(ready) != 1 || ready[0].ID != "NM-020" {
		t.Errorf("ready = %+v", ready)
	}
	if !strings.Contains(warn.String(), "NM-bad.yaml") {
		t.Errorf("warnings = %q", warn.String())
	}
}

func TestLoadReadyMissingSpecRoot(t *testing.T) {
	_, err := loadReady(&config.Config{SpecRoot: filepath.Join(t.TempDir(), "nope")}, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "NIGHT_SPEC_ROOT") {
		t.Errorf("err = %v", err)
	}
}
