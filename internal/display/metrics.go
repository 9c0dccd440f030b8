package display

import (
	"fmt"
	"strings"

	"nightrunner/internal/metrics"
)

func FormatRunMetrics(rm *metrics.RunMetrics) string {
	if rm == nil {
		return "No metrics available."
	}
	ok, failed, skipped := rm.Counts()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run %s metrics:\n", rm.RunID))
	sb.WriteString(fmt.Sprintf("- Total: %d ms  (succeeded=%d failed=%d skipped=%d)\n", rm.DurationMs, ok, failed, skipped))
	for _, m := range rm.Missions {
		sb.WriteString(fmt.Sprintf("  %s: %d ms\n", m.MissionID, m.DurationMs))
		for _, r := range m.Repos {
			status := "ok"
			switch {
			case r.Skipped:
				status = "skip"
			case !r.Success:
				status = "err"
			}
			repo := r.Repo
			if repo == "" {
				repo = "-"
			}
			line := fmt.Sprintf("    • %-16s %-40s [%s]", repo, r.Branch, status)
			if r.Err != "" {
				line += " " + formatValueForDisplay(r.Err, maxValueLength)
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}
