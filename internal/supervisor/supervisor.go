// Package supervisor runs one night: it prepares sandbox branches, dispatches
// the selected missions and records every result.
package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"nightrunner/internal/executor"
	"nightrunner/internal/github"
	"nightrunner/internal/logger"
	"nightrunner/internal/metrics"
	"nightrunner/internal/mission"
	"nightrunner/internal/sandbox"
)

// Dispatcher runs a mission against all of its repos.
type Dispatcher interface {
	DispatchAll(ctx context.Context, m mission.Mission) []executor.Result
}

type Recorder interface {
	Record(runID string, fields map[string]any) error
}

type PROpener interface {
	CreatePR(ctx context.Context, owner, repo, head, base, title, body string) github.PRResult
}

type Options struct {
	RunID string
	// Concurrency above 1 dispatches missions in parallel; results are still
	// written by one goroutine in selection order.
	Concurrency int
	// PrepareBranches resets sandbox branches onto the default branch first.
	PrepareBranches bool
	PROwner         string
	PRBase          string
}

type Supervisor struct {
	Router    Dispatcher
	Recorder  Recorder
	PRs       PROpener
	ReposRoot string
	Agent     string
	Out       io.Writer
	Now       func() time.Time
	Opts      Options
}

func (s *Supervisor) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

type outcome struct {
	index int
	res   MissionResult
}

// Run dispatches missions and returns once every result has been recorded.
// Mission failures are part of the summary, not errors.
func (s *Supervisor) Run(ctx context.Context, missions []mission.Mission) (*RunSummary, error) {
	rm := &metrics.RunMetrics{RunID: s.Opts.RunID, Start: s.now()}
	summary := &RunSummary{RunID: s.Opts.RunID, Metrics: rm}

	if s.Opts.PrepareBranches {
		prepared := sandbox.PrepareBranches(ctx, missions, s.ReposRoot, s.Agent, s.now())
		for _, p := range prepared {
			fmt.Fprintf(s.Out, "[supervisor] sandbox branch %s ready in %s\n", p.Branch, p.Repo)
		}
	}

	outcomes := make(chan outcome)
	written := make(chan []MissionResult, 1)
	go func() {
		written <- s.writeInOrder(outcomes, len(missions))
	}()

	limit := s.Opts.Concurrency
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, m := range missions {
		g.Go(func() error {
			outcomes <- outcome{index: i, res: s.runMission(gctx, m)}
			return nil
		})
	}
	err := g.Wait()
	close(outcomes)
	summary.Missions = <-written

	for _, mr := range summary.Missions {
		rm.Missions = append(rm.Missions, mr.Metrics)
	}
	rm.End = s.now()
	rm.Finalize()
	return summary, err
}

func (s *Supervisor) runMission(ctx context.Context, m mission.Mission) MissionResult {
	logger.Log.Printf("[Supervisor] Starting mission '%s' (%s)", m.ID, m.Title)
	mm := metrics.MissionMetrics{MissionID: m.ID, Start: s.now()}

	results := s.Router.DispatchAll(ctx, m)
	for i := range results {
		if s.PRs != nil {
			s.maybeOpenPR(ctx, m, &results[i])
		}
		r := results[i]
		rep := metrics.RepoMetrics{Repo: r.Repo, Branch: r.Branch, Success: r.Success, Skipped: r.Skipped}
		if !r.Success {
			rep.Err = r.Message
			if r.Skipped {
				rep.Err = r.Reason
			}
		}
		mm.Repos = append(mm.Repos, rep)
	}
	mm.End = s.now()
	mm.Finalize()
	logger.Log.Printf("[Supervisor] Mission '%s' finished in %dms (succeeded=%t)", m.ID, mm.DurationMs, mm.Succeeded)
	return MissionResult{Mission: m, Results: results, Metrics: mm}
}

func (s *Supervisor) maybeOpenPR(ctx context.Context, m mission.Mission, r *executor.Result) {
	if pushed, _ := r.Extra["pushed"].(bool); !pushed {
		return
	}
	title := m.ID
	if m.Title != "" {
		title += ": " + m.Title
	}
	body := fmt.Sprintf("Automated night run for %s on branch `%s`.\n\n%s", m.ID, r.Branch, m.Goal)
	pr := s.PRs.CreatePR(ctx, s.Opts.PROwner, r.Repo, r.Branch, s.Opts.PRBase, title, body)
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
	r.Extra["pr"] = pr
}

// writeInOrder is the only goroutine that touches the Recorder and Out. It
// holds back early finishers until every earlier mission has been written.
func (s *Supervisor) writeInOrder(in <-chan outcome, total int) []MissionResult {
	ordered := make([]MissionResult, total)
	have := make([]bool, total)
	next := 0
	for o := range in {
		ordered[o.index], have[o.index] = o.res, true
		for next < total && have[next] {
			s.write(ordered[next])
			next++
		}
	}
	return ordered[:next]
}

func (s *Supervisor) write(mr MissionResult) {
	for _, r := range mr.Results {
		fields := r.Fields()
		if err := s.Recorder.Record(s.Opts.RunID, fields); err != nil {
			logger.Log.Printf("[Supervisor] record %s: %v", mr.Mission.ID, err)
			fmt.Fprintf(s.Out, "[supervisor] warning: could not record %s: %v\n", mr.Mission.ID, err)
		}
		line, err := json.Marshal(fields)
		if err != nil {
			continue
		}
		fmt.Fprintf(s.Out, "%s %s\n", ResultMarker, line)
	}
}
