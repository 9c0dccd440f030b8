package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"nightrunner/internal/utils"
)

// SummaryLines renders one "- id: success=… (detail)" line per result.
func SummaryLines(results []map[string]any) []string {
	if len(results) == 0 {
		return []string{"- (no mission results found)"}
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		line := fmt.Sprintf("- %s: success=%s", missionIDOf(r), successText(r))
		if d := detailOf(r); d != "" {
			line += " (" + d + ")"
		}
		lines = append(lines, line)
	}
	return lines
}

func missionIDOf(r map[string]any) string {
	if id := utils.FirstNonEmpty(r, "mission", "mission_id", "id"); id != "" {
		return id
	}
	return "unknown-mission"
}

func detailOf(r map[string]any) string {
	return utils.FirstNonEmpty(r, "reason", "message", "details")
}

func successText(r map[string]any) string {
	v, ok := r["success"]
	if !ok || v == nil {
		return "unknown"
	}
	if b, ok := v.(bool); ok {
		return fmt.Sprintf("%t", b)
	}
	return fmt.Sprintf("%v", v)
}

var runArtifacts = []string{
	"logs_%s.txt",
	"exec_%s.json",
	"mission_results_%s.jsonl",
	"worker_results_%s.jsonl",
	"night_report_%s.md",
}

// WriteRunSummary writes run_memory_{name}.md from the execution's metadata and
// mission results.
func WriteRunSummary(runDir, name string) (string, error) {
	var status string
	if data, err := os.ReadFile(filepath.Join(runDir, "exec_"+name+".json")); err == nil {
		if obj, err := utils.DecodeObject(data); err == nil {
			status = StatusOf(obj)
		}
	}
	if status == "" {
		status = "unknown"
	}
	results, _ := readJSONL(filepath.Join(runDir, "mission_results_"+name+".jsonl"))

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Run Memory – %s\n\n", name)
	fmt.Fprintf(&sb, "Status: %s\n\n", status)
	sb.WriteString("## Missions\n\n")
	for _, l := range SummaryLines(results) {
		sb.WriteString(l + "\n")
	}
	sb.WriteString("\n## Artifacts\n\n")
	for _, pattern := range runArtifacts {
		file := fmt.Sprintf(pattern, name)
		state := "present"
		if !utils.FileExists(filepath.Join(runDir, file)) {
			state = "absent"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", file, state)
	}

	path := filepath.Join(runDir, "run_memory_"+name+".md")
	if err := utils.WriteFileAtomic(path, []byte(sb.String())); err != nil {
		return "", err
	}
	return path, nil
}

// WriteWorkerSummary writes worker_memory_{name}.md listing what workerName
// answered in this execution.
func WriteWorkerSummary(runDir, name, workerName string) (string, error) {
	if workerName == "" {
		workerName = "grok"
	}
	records, _ := readJSONL(filepath.Join(runDir, "worker_results_"+name+".jsonl"))

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Worker Memory (%s) – %s\n\n", workerName, name)
	n := 0
	for _, rec := range records {
		if !fromWorker(rec, workerName) {
			continue
		}
		n++
		nested := utils.MapField(rec, "worker")
		status := utils.StringField(nested, "status")
		if status == "" {
			status = "unknown"
		}
		fmt.Fprintf(&sb, "- %s: status=%s success=%s", missionIDOf(rec), status, successText(nested))
		if answer := probeAnswer(rec); answer != "" {
			fmt.Fprintf(&sb, "\n  %s", strings.ReplaceAll(answer, "\n", "\n  "))
		}
		sb.WriteString("\n")
	}
	if n == 0 {
		fmt.Fprintf(&sb, "(no worker results for %s)\n", workerName)
	}

	path := filepath.Join(runDir, "worker_memory_"+name+".md")
	if err := utils.WriteFileAtomic(path, []byte(sb.String())); err != nil {
		return "", err
	}
	return path, nil
}

// WriteProbeSummary collects the probe mission's answers across every worker
// results file in runDir. It returns "" without writing when the probe did not
// run or left nothing to report.
func WriteProbeSummary(runDir, name, probeMission, workerName string) (string, error) {
	if probeMission == "" {
		probeMission = "NM-910"
	}
	if workerName == "" {
		workerName = "grok"
	}

	var answers []string
	unavailable := false
	var missing []string
	for _, path := range globSorted(runDir, "worker_results_*.jsonl") {
		records, _ := readJSONL(path)
		for _, rec := range records {
			if utils.StringField(rec, "mission_id") != probeMission || !fromWorker(rec, workerName) {
				continue
			}
			meta := utils.MapField(utils.MapField(rec, "worker"), "metadata")
			if flag, _ := utils.BoolField(meta, "probe_unavailable"); flag {
				unavailable = true
				if creds := stringList(meta["missing_credentials"]); len(creds) > 0 {
					missing = creds
				}
			}
			if a := probeAnswer(rec); a != "" {
				answers = append(answers, a)
			}
		}
	}
	if len(answers) == 0 && !unavailable {
		return "", nil
	}

	lines := []string{
		"# Memory Probe – " + name,
		"",
		"Mission: " + probeMission,
		"",
		"## Probe responses",
		"",
	}
	if unavailable {
		creds := "unknown"
		if len(missing) > 0 {
			creds = strings.Join(missing, ", ")
		}
		lines = append(lines, "probe_unavailable: true", "missing_credentials: "+creds, "")
	}
	if len(answers) > 0 {
		lines = append(lines, strings.Join(answers, "\n\n"))
	}

	path := filepath.Join(runDir, "memory_probe_"+name+".md")
	if err := utils.WriteFileAtomic(path, []byte(strings.Join(lines, "\n"))); err != nil {
		return "", err
	}
	return path, nil
}

// fromWorker accepts records tagged with workerName either at the top level
// or inside the nested worker result. Untagged records count as a match.
func fromWorker(rec map[string]any, workerName string) bool {
	top := strings.ToLower(utils.StringField(rec, "worker_name"))
	nested := strings.ToLower(utils.StringField(utils.MapField(rec, "worker"), "worker_name"))
	want := strings.ToLower(workerName)
	return top == want || top == "" || nested == want
}

func probeAnswer(rec map[string]any) string {
	nested := utils.MapField(rec, "worker")
	for _, v := range []string{
		utils.StringField(rec, "content"),
		utils.StringField(rec, "message"),
		utils.StringField(nested, "message"),
		utils.StringField(nested, "patch"),
		utils.StringField(nested, "error_message"),
	} {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, it := range items {
		if s := strings.TrimSpace(fmt.Sprintf("%v", it)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
