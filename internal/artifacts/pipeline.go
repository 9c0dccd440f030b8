// Package artifacts turns a raw execution log into the per-execution files
// operators and tooling read after a night run.
package artifacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nightrunner/internal/logger"
	"nightrunner/internal/utils"
	"nightrunner/internal/worker"
)

const MissionResultMarker = "MISSION_RESULT_JSON:"

// ArtifactSet describes what Process produced. Optional paths are empty when
// the artifact was not generated.
type ArtifactSet struct {
	ExecutionName      string
	Status             string
	LogsPath           string
	ExecPath           string
	MissionResultsPath string
	MissionResults     []map[string]any
	Issues             []utils.LineIssue
	WorkerResultsPath  string
	ReportPath         string
	RunSummaryPath     string
	WorkerSummaryPath  string
	ProbeSummaryPath   string
	Indexed            bool
}

// Reporter renders the night report from a non-empty mission results file.
type Reporter interface {
	WriteReport(resultsPath, reportPath string) error
}

// Indexer receives the completed run directory. A false result is logged and
// otherwise ignored.
type Indexer interface {
	Ingest(ctx context.Context, runDir string) bool
}

type Pipeline struct {
	Reporter     Reporter
	Indexer      Indexer
	ProbeMission string
	WorkerName   string
	Out          io.Writer
}

func NewPipeline(out io.Writer, indexer Indexer, probeMission, workerName string) *Pipeline {
	if out == nil {
		out = io.Discard
	}
	return &Pipeline{
		Reporter:     MarkdownReporter{},
		Indexer:      indexer,
		ProbeMission: probeMission,
		WorkerName:   workerName,
		Out:          out,
	}
}

func (p *Pipeline) printf(format string, args ...any) {
	fmt.Fprintf(p.Out, "[cycle] "+format+"\n", args...)
}

// Process runs every step against runDir. Each step can be repeated on the
// same directory with the same outcome. rawLog nil means reuse what is on
// disk; an empty execution means the same for metadata.
func (p *Pipeline) Process(ctx context.Context, runDir, name string, rawLog *string, execution map[string]any) (*ArtifactSet, error) {
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	set := &ArtifactSet{ExecutionName: name}

	// 1. log
	set.LogsPath = filepath.Join(runDir, "logs_"+name+".txt")
	logText, err := materializeLog(set.LogsPath, rawLog)
	if err != nil {
		return nil, err
	}
	p.printf("Logs written to: %s", set.LogsPath)

	// 2. metadata
	set.ExecPath = filepath.Join(runDir, "exec_"+name+".json")
	execution, err = materializeExec(set.ExecPath, execution)
	if err != nil {
		return nil, err
	}
	p.printf("Execution metadata path: %s", set.ExecPath)

	// 3. mission results, read back from the materialized log
	set.MissionResultsPath = filepath.Join(runDir, "mission_results_"+name+".jsonl")
	results, issues, err := ParseMissionResults(set.LogsPath)
	if err != nil {
		return nil, err
	}
	for _, is := range issues {
		p.printf("Warning: failed to parse mission result JSON on line %d: %s", is.Line, is.Reason)
		logger.Log.Printf("[artifacts] %s line %d: %s", set.LogsPath, is.Line, is.Reason)
	}
	set.MissionResults, set.Issues = results, issues
	if err := writeJSONL(set.MissionResultsPath, results); err != nil {
		return nil, err
	}
	p.printf("Mission results JSONL: %s", set.MissionResultsPath)

	// 4. worker results
	workerPath := filepath.Join(runDir, "worker_results_"+name+".jsonl")
	records, workerIssues := worker.ExtractRecords(utils.SplitLines(logText))
	for _, is := range workerIssues {
		logger.Log.Printf("[artifacts] worker record on line %d skipped: %s", is.Line, is.Reason)
	}
	switch {
	case len(records) > 0:
		if err := writeJSONL(workerPath, records); err != nil {
			return nil, err
		}
		set.WorkerResultsPath = workerPath
		p.printf("Worker results JSONL: %s", workerPath)
	case utils.FileExists(workerPath):
		set.WorkerResultsPath = workerPath
		p.printf("Worker results JSONL: %s (kept from a previous pass)", workerPath)
	default:
		p.printf("Worker results JSONL: (not generated)")
	}

	// 5. report
	reportPath := filepath.Join(runDir, "night_report_"+name+".md")
	if utils.FileNonEmpty(set.MissionResultsPath) && p.Reporter != nil {
		if err := p.Reporter.WriteReport(set.MissionResultsPath, reportPath); err != nil {
			p.printf("Warning: night report failed: %v", err)
		}
	} else {
		p.printf("No mission results to report; skipping night_report.")
		if err := os.Remove(reportPath); err != nil && !os.IsNotExist(err) {
			p.printf("Warning: could not remove stale night report: %v", err)
		}
	}
	if utils.FileNonEmpty(reportPath) {
		set.ReportPath = reportPath
	}

	// 6. summaries
	if set.RunSummaryPath, err = WriteRunSummary(runDir, name); err != nil {
		p.printf("Warning: run memory summary failed: %v", err)
	}
	if set.WorkerSummaryPath, err = WriteWorkerSummary(runDir, name, p.WorkerName); err != nil {
		p.printf("Warning: worker memory summary failed: %v", err)
	}
	if set.ProbeSummaryPath, err = WriteProbeSummary(runDir, name, p.ProbeMission, p.WorkerName); err != nil {
		p.printf("Warning: memory probe summary failed: %v", err)
	}
	p.printf("Run memory summary: %s", set.RunSummaryPath)
	p.printf("Worker memory summary (%s): %s", p.workerLabel(), set.WorkerSummaryPath)
	if set.ProbeSummaryPath != "" {
		p.printf("Memory probe summary: %s", set.ProbeSummaryPath)
	} else {
		p.printf("Memory probe summary: (not generated)")
	}
	if set.ReportPath != "" {
		p.printf("Night report: %s", set.ReportPath)
	} else {
		p.printf("Night report: (not generated)")
	}

	// 7. indexing
	if p.Indexer != nil {
		p.printf("Ingesting execution directory into index: %s", runDir)
		set.Indexed = p.Indexer.Ingest(ctx, runDir)
		p.printf("Ingest execution result: %t", set.Indexed)
	}

	// 8. status
	set.Status = StatusOf(execution)
	return set, nil
}

func (p *Pipeline) workerLabel() string {
	if p.WorkerName == "" {
		return "grok"
	}
	return p.WorkerName
}

func materializeLog(path string, rawLog *string) (string, error) {
	var text string
	switch {
	case rawLog != nil:
		text = *rawLog
	case utils.FileExists(path):
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read existing log: %w", err)
		}
		text = string(data)
	}
	if err := utils.WriteFileAtomic(path, []byte(text)); err != nil {
		return "", fmt.Errorf("write log: %w", err)
	}
	return text, nil
}

func materializeExec(path string, execution map[string]any) (map[string]any, error) {
	if len(execution) == 0 && utils.FileExists(path) {
		data, err := os.ReadFile(path)
		if err == nil {
			if obj, err := utils.DecodeObject(data); err == nil {
				return obj, nil
			}
		}
		logger.Log.Printf("[artifacts] unreadable %s; treating metadata as empty", path)
		return map[string]any{}, nil
	}
	if execution == nil {
		execution = map[string]any{}
	}
	data, err := json.MarshalIndent(execution, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal execution metadata: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return nil, fmt.Errorf("write execution metadata: %w", err)
	}
	return execution, nil
}

// StatusOf reads properties.status, defaulting to "unknown".
func StatusOf(execution map[string]any) string {
	props := utils.MapField(execution, "properties")
	if s := utils.StringField(props, "status"); s != "" {
		return s
	}
	return "unknown"
}
