package artifacts

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"nightrunner/internal/utils"
)

// ParseMissionResults scans the log file at path. A missing file yields no
// results and no error.
func ParseMissionResults(path string) ([]map[string]any, []utils.LineIssue, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read log: %w", err)
	}
	records, issues := utils.ParseMarkedLines(utils.SplitLines(string(data)), MissionResultMarker)
	return records, issues, nil
}

// writeJSONL rewrites path with one object per line. Map keys are emitted in
// sorted order so identical input gives identical bytes.
func writeJSONL(path string, records []map[string]any) error {
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := utils.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readJSONL returns every object line of path, skipping blanks and junk.
func readJSONL(path string) ([]map[string]any, []utils.LineIssue) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	var out []map[string]any
	var issues []utils.LineIssue
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		obj, err := utils.DecodeObject([]byte(line))
		if err != nil {
			issues = append(issues, utils.LineIssue{Line: n, Reason: err.Error()})
			continue
		}
		out = append(out, obj)
	}
	return out, issues
}

// globSorted lists run dir files matching pattern in lexical order.
func globSorted(runDir, pattern string) []string {
	matches, _ := filepath.Glob(filepath.Join(runDir, pattern))
	sort.Strings(matches)
	return matches
}
