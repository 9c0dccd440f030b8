// Package executor routes missions to the code that carries them out and
// defines the result every executor returns.
package executor

import (
	"context"
	"path/filepath"
	"time"

	"nightrunner/internal/logger"
	"nightrunner/internal/mission"
	"nightrunner/internal/sandbox"
)

const (
	ReasonNoExecutor   = "no executor"
	ReasonNoValidRepos = "no valid repos"
)

// Executor performs one mission against one repository checkout. Failures are
// reported in the Result, never panicked or returned as errors.
type Executor interface {
	Execute(ctx context.Context, repoPath string, m mission.Mission, branch string) Result
}

// Router picks an executor by mission kind and runs it once per named repo.
type Router struct {
	ReposRoot string
	Agent     string
	Now       func() time.Time
	executors map[Kind]Executor
}

func NewRouter(reposRoot, agent string, executors map[Kind]Executor) *Router {
	return &Router{
		ReposRoot: reposRoot,
		Agent:     agent,
		Now:       time.Now,
		executors: executors,
	}
}

// Dispatch returns the result for the mission's first valid repo. Results for
// further repos are computed but dropped with a warning; use DispatchAll to
// keep them.
func (r *Router) Dispatch(ctx context.Context, m mission.Mission) Result {
	all := r.DispatchAll(ctx, m)
	if len(all) > 1 {
		logger.Log.Printf("[router] %s produced %d results; returning only the first", m.ID, len(all))
	}
	return all[0]
}

// DispatchAll returns one result per valid repo, in descriptor order. It always
// returns at least one result.
func (r *Router) DispatchAll(ctx context.Context, m mission.Mission) []Result {
	kind := KindOf(m.ID)
	exec, ok := r.executors[kind]
	if kind == KindUnknown || !ok || exec == nil {
		return []Result{Skip(m.ID, ReasonNoExecutor)}
	}

	names := m.RepoNames()
	if len(names) == 0 {
		return []Result{Skip(m.ID, ReasonNoValidRepos)}
	}

	branch := sandbox.BranchName(m.ID, r.Agent, r.Now())
	results := make([]Result, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			res := Result{Message: "cancelled: " + err.Error()}
			results = append(results, fill(res, m.ID, name, branch))
			continue
		}
		res := exec.Execute(ctx, filepath.Join(r.ReposRoot, name), m, branch)
		results = append(results, fill(res, m.ID, name, branch))
	}
	return results
}

func fill(res Result, missionID, repo, branch string) Result {
	if res.Mission == "" {
		res.Mission = missionID
	}
	if res.Repo == "" {
		res.Repo = repo
	}
	if res.Branch == "" {
		res.Branch = branch
	}
	return res
}
