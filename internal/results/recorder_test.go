package results

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestMakeRunID(t *testing.T) {
	ts := time.Date(2026, 4, 5, 6, 7, 8, 0, time.FixedZone("X", 2*3600))
	if got := MakeRunID(ts); got != "20260405T040708Z" {
		t.Errorf("MakeRunID = %q", got)
	}
}

func TestRecordAppendsEnrichedLines(t *testing.T) {
	root := t.TempDir()
	r := NewRecorder(root)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	in := map[string]any{"mission": "NM-020", "success": true}
	if err := r.Record("RUN1", in); err != nil {
		t.Fatal(err)
	}
	if err := r.Record("RUN1", map[string]any{"mission": "NM-011", "success": false}); err != nil {
		t.Fatal(err)
	}
	if _, ok := in["run_id"]; ok {
		t.Error("input map was mutated")
	}

	lines := readLines(t, filepath.Join(root, "mission_results_RUN1.jsonl"))
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatal(err)
	}
	if first["run_id"] != "RUN1" || first["timestamp"] != "2026-01-02T03:04:05Z" || first["mission"] != "NM-020" {
		t.Errorf("first = %v", first)
	}
}

func TestRecordConcurrentLinesStayWhole(t *testing.T) {
	r := NewRecorder(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := r.Record("RUN", map[string]any{"i": i, "pad": strings.Repeat("x", 512)}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	for _, line := range readLines(t, r.Path("RUN")) {
		var v map[string]any
		if err := json.Unmarshal([]byte(line), &v); err != nil {
			t.Fatalf("interleaved line %q: %v", line, err)
		}
	}
}

func TestResolveRoot(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name      string
		preferred string
		fallback  string
		want      string
	}{
		{name: "preferred usable", preferred: filepath.Join(base, "pref"), fallback: filepath.Join(base, "fb"), want: filepath.Join(base, "pref")},
		{name: "preferred blocked", preferred: filepath.Join(blocker, "sub"), fallback: filepath.Join(base, "fb2"), want: filepath.Join(base, "fb2")},
		{name: "both blocked", preferred: filepath.Join(blocker, "a"), fallback: filepath.Join(blocker, "b"), want: filepath.Join(blocker, "b")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveRoot(tc.preferred, tc.fallback); got != tc.want {
				t.Errorf("ResolveRoot = %q, want %q", got, tc.want)
			}
		})
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}
