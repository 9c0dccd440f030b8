package worker

import (
	"encoding/json"
	"fmt"
	"io"

	"nightrunner/internal/utils"
)

const RecordMarker = "WORKER_RESULT_JSON:"

// Record is one worker exchange as it appears in a run log.
type Record struct {
	MissionID  string `json:"mission_id"`
	WorkerName string `json:"worker_name"`
	RunID      string `json:"run_id,omitempty"`
	Worker     Result `json:"worker"`
}

// LogRecord writes rec as a single marked line to w.
func LogRecord(w io.Writer, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal worker record: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s %s\n", RecordMarker, data)
	return err
}

// ExtractRecords returns every worker record found in lines.
func ExtractRecords(lines []string) ([]map[string]any, []utils.LineIssue) {
	return utils.ParseMarkedLines(lines, RecordMarker)
}
