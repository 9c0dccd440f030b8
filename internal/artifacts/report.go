package artifacts

import (
	"fmt"
	"path/filepath"
	"strings"

	"nightrunner/internal/utils"
)

// MarkdownReporter writes a one-table night report.
type MarkdownReporter struct{}

func (MarkdownReporter) WriteReport(resultsPath, reportPath string) error {
	results, _ := readJSONL(resultsPath)
	if len(results) == 0 {
		return nil
	}

	name := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(reportPath), "night_report_"), ".md")
	succeeded := 0
	for _, r := range results {
		if ok, found := utils.BoolField(r, "success"); found && ok {
			succeeded++
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Night Report – %s\n\n", name)
	fmt.Fprintf(&sb, "Missions: %d, succeeded: %d, failed or skipped: %d\n\n", len(results), succeeded, len(results)-succeeded)
	sb.WriteString("| Mission | Repo | Branch | Success | Detail |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s |\n",
			cell(missionIDOf(r)),
			cell(utils.StringField(r, "repo")),
			cell(utils.StringField(r, "branch")),
			successText(r),
			cell(detailOf(r)),
		)
	}
	return utils.WriteFileAtomic(reportPath, []byte(sb.String()))
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	s = strings.ReplaceAll(s, "\n", " ")
	if s == "" {
		return "-"
	}
	return s
}
