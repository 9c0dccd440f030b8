package display

import (
	"fmt"
	"strings"

	"nightrunner/internal/mission"
)

const maxValueLength = 100

// FormatPlan lists the missions a night run would dispatch.
func FormatPlan(missions []mission.Mission) string {
	var sb strings.Builder
	sb.WriteString("Night Plan (dry-run)\n")
	if len(missions) == 0 {
		sb.WriteString("  (no ready missions)")
		return sb.String()
	}
	for i, m := range missions {
		title := m.Title
		if title == "" {
			title = "Untitled mission"
		}
		sb.WriteString(fmt.Sprintf("  - %s (priority=%d) - %s [%s]", m.ID, m.Priority, title, repoList(m)))
		if m.Goal != "" {
			sb.WriteString("\n      goal: " + formatValueForDisplay(m.Goal, maxValueLength))
		}
		if i < len(missions)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func repoList(m mission.Mission) string {
	if len(m.Repos) == 0 {
		return "no repos listed"
	}
	names := make([]string, 0, len(m.Repos))
	for _, r := range m.Repos {
		if r.Name != "" {
			names = append(names, r.Name)
		} else {
			names = append(names, "repo")
		}
	}
	return strings.Join(names, ", ")
}

// Limit stdout length (limit < 0 means no limit)
func formatValueForDisplay(value any, limit int) string {
	s := fmt.Sprintf("%v", value)
	s = strings.ReplaceAll(s, "\n", "\\n")
	if limit >= 0 && len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
