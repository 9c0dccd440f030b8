package supervisor

import (
	"nightrunner/internal/artifacts"
	"nightrunner/internal/executor"
	"nightrunner/internal/metrics"
	"nightrunner/internal/mission"
)

// ResultMarker prefixes each result line so the artifact pipeline can find it
// in the job log.
const ResultMarker = artifacts.MissionResultMarker

// MissionResult is everything one mission produced in a run.
type MissionResult struct {
	Mission mission.Mission
	Results []executor.Result
	Metrics metrics.MissionMetrics
}

// RunSummary lists mission results in selection order.
type RunSummary struct {
	RunID    string
	Missions []MissionResult
	Metrics  *metrics.RunMetrics
}
