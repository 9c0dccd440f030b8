package display

import (
	"fmt"
	"strings"

	"nightrunner/internal/artifacts"
)

const notGenerated = "(not generated)"

// FormatCycleSummary is the operator-facing recap printed after a cycle.
func FormatCycleSummary(set *artifacts.ArtifactSet) string {
	var sb strings.Builder
	sb.WriteString("\n[Cycle Summary]\n\n")
	sb.WriteString(fmt.Sprintf("Execution: %s\n", set.ExecutionName))
	sb.WriteString(fmt.Sprintf("Status: %s\n", set.Status))
	sb.WriteString("Missions:\n")
	for _, line := range artifacts.SummaryLines(set.MissionResults) {
		sb.WriteString("  " + line + "\n")
	}
	sb.WriteString("\nArtifacts:\n")
	sb.WriteString(fmt.Sprintf("  - Logs: %s\n", set.LogsPath))
	sb.WriteString(fmt.Sprintf("  - Exec JSON: %s\n", set.ExecPath))
	sb.WriteString(fmt.Sprintf("  - Mission results: %s\n", set.MissionResultsPath))
	sb.WriteString(fmt.Sprintf("  - Worker results: %s\n", orNotGenerated(set.WorkerResultsPath)))
	sb.WriteString(fmt.Sprintf("  - Memory summary: %s\n", orNotGenerated(set.RunSummaryPath)))
	sb.WriteString(fmt.Sprintf("  - Worker memory summary: %s\n", orNotGenerated(set.WorkerSummaryPath)))
	sb.WriteString(fmt.Sprintf("  - Memory probe summary: %s\n", orNotGenerated(set.ProbeSummaryPath)))
	sb.WriteString(fmt.Sprintf("  - Night report: %s\n", orNotGenerated(set.ReportPath)))
	return sb.String()
}

func orNotGenerated(path string) string {
	if path == "" {
		return notGenerated
	}
	return path
}
