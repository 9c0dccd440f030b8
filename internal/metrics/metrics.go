package metrics

import "time"

type RepoMetrics struct {
	Repo    string `json:"repo"`
	Branch  string `json:"branch"`
	Success bool   `json:"success"`
	Skipped bool   `json:"skipped,omitempty"`
	Err     string `json:"err,omitempty"`
}

type MissionMetrics struct {
	MissionID  string        `json:"mission_id"`
	Start      time.Time     `json:"start"`
	End        time.Time     `json:"end"`
	DurationMs int64         `json:"duration_ms"`
	Succeeded  bool          `json:"succeeded"`
	Repos      []RepoMetrics `json:"repos"`
}

type RunMetrics struct {
	RunID      string           `json:"run_id"`
	Start      time.Time        `json:"start"`
	End        time.Time        `json:"end"`
	DurationMs int64            `json:"duration_ms"`
	Missions   []MissionMetrics `json:"missions"`
}

// Compute derived fields for a mission. A mission succeeded when it touched at
// least one repo and every repo succeeded.
func (m *MissionMetrics) Finalize() {
	m.DurationMs = m.End.Sub(m.Start).Milliseconds()
	m.Succeeded = len(m.Repos) > 0
	for _, r := range m.Repos {
		if !r.Success {
			m.Succeeded = false
		}
	}
}

func (r *RunMetrics) Finalize() {
	r.DurationMs = r.End.Sub(r.Start).Milliseconds()
}

// Counts returns how many missions succeeded, failed and were skipped.
func (r *RunMetrics) Counts() (succeeded, failed, skipped int) {
	for _, m := range r.Missions {
		switch {
		case m.Succeeded:
			succeeded++
		case len(m.Repos) == 1 && m.Repos[0].Skipped:
			skipped++
		default:
			failed++
		}
	}
	return
}
