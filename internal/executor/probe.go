package executor

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"nightrunner/internal/logger"
	"nightrunner/internal/mission"
	"nightrunner/internal/worker"
)

// Asker is the slice of the worker client the probe needs.
type Asker interface {
	Name() string
	Run(ctx context.Context, b worker.Bundle) worker.Result
}

// MemoryProbe asks the worker what it remembers about the mission. It never
// touches the checkout. Each exchange is written to Out as a worker record so
// the run log carries it.
type MemoryProbe struct {
	Worker   Asker
	Out      io.Writer
	Doctrine string
}

func (p MemoryProbe) Execute(ctx context.Context, repoPath string, m mission.Mission, branch string) Result {
	res := Result{Mission: m.ID, Branch: branch}
	if p.Worker == nil {
		res.Message = "no worker configured"
		return res
	}

	bundle := worker.NewBundle(m, filepath.Base(repoPath), branch, p.Doctrine)
	answer := p.Worker.Run(ctx, bundle)

	if p.Out != nil {
		rec := worker.Record{MissionID: m.ID, WorkerName: answer.WorkerName, Worker: answer}
		if err := worker.LogRecord(p.Out, rec); err != nil {
			logger.Log.Printf("[probe] could not log worker record for %s: %v", m.ID, err)
		}
	}

	res.set("worker", answer)
	switch {
	case answer.ProbeUnavailable():
		missing, _ := answer.Metadata["missing_credentials"].([]string)
		detail := answer.ErrorMessage
		if len(missing) > 0 {
			detail = "missing " + strings.Join(missing, ", ")
		}
		res.Message = fmt.Sprintf("%s memory probe unavailable: %s", m.ID, detail)
	case answer.Success:
		res.Success = true
		res.Message = fmt.Sprintf("%s memory probe answered by %s", m.ID, p.Worker.Name())
	default:
		res.Message = fmt.Sprintf("%s memory probe failed: %s", m.ID, answer.ErrorMessage)
	}
	return res
}

// Standard wires the built-in executors. probe may be nil, in which case
// memory probe missions are skipped as having no executor.
func Standard(probe *MemoryProbe) map[Kind]Executor {
	m := map[Kind]Executor{
		KindVersionConstant: VersionConstant{},
		KindSchedulerReadme: SchedulerReadme{},
	}
	if probe != nil {
		m[KindMemoryProbe] = *probe
	}
	return m
}
