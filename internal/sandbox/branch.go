// Package sandbox manages the per-mission, per-day git branches that isolate
// nightly changes from the default branch.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"nightrunner/internal/logger"
	"nightrunner/internal/mission"
)

const DefaultAgent = "codex"

// defaultBranches are tried in order when a sandbox branch must be created.
var defaultBranches = []string{"main", "master"}

// BranchName is a pure function of its inputs: the same mission, agent and UTC
// day always yield the same branch.
func BranchName(missionID, agent string, day time.Time) string {
	if missionID == "" {
		missionID = "mission"
	}
	if agent == "" {
		agent = DefaultAgent
	}
	return fmt.Sprintf("night/%s/%s-%s", day.UTC().Format("20060102"), missionID, agent)
}

// OwnsBranch reports whether branch follows the sandbox naming convention for
// missionID. Executors refuse to push anywhere else.
func OwnsBranch(branch, missionID string) bool {
	return strings.HasPrefix(branch, "night/") && missionID != "" && strings.Contains(branch, missionID)
}

// SyncWithRemote brings the local sandbox branch in line with origin. A branch
// that does not exist on origin yet is the expected first-run state and is not
// an error.
func SyncWithRemote(ctx context.Context, repoPath, branch string) (bool, string) {
	g := Git{Dir: repoPath}

	missingRemote := false
	if _, err := g.Run(ctx, "fetch", "origin", branch); err != nil {
		msg := stderrOf(err)
		if !isMissingRemoteRef(msg) {
			return false, failureDetail(err, "git fetch failed")
		}
		missingRemote = true
	}

	if err := ensureLocalBranch(ctx, g, branch); err != nil {
		return false, failureDetail(err, "git checkout failed")
	}

	if missingRemote {
		return true, "no remote branch; using local sandbox"
	}

	if _, err := g.Run(ctx, "reset", "--hard", "origin/"+branch); err != nil {
		msg := stderrOf(err)
		if strings.Contains(msg, "unknown revision") || strings.Contains(msg, "not a valid object") {
			return true, "remote branch missing after fetch; using local only"
		}
		return false, failureDetail(err, "git reset failed")
	}
	return true, "synced with remote sandbox"
}

func isMissingRemoteRef(stderr string) bool {
	return strings.Contains(stderr, "couldn't find remote ref") || strings.Contains(stderr, "could not find remote ref")
}

// ensureLocalBranch checks out branch, creating it from the default branch
// when it does not exist yet.
func ensureLocalBranch(ctx context.Context, g Git, branch string) error {
	if _, err := g.Run(ctx, "checkout", branch); err == nil {
		return nil
	}
	var lastErr error
	for _, base := range defaultBranches {
		if _, err := g.Run(ctx, "checkout", "-b", branch, base); err != nil {
			lastErr = err
			continue
		}
		logger.Log.Printf("[sandbox] created %s from %s in %s", branch, base, g.Dir)
		return nil
	}
	return fmt.Errorf("create %s from main/master: %w", branch, lastErr)
}

func failureDetail(err error, fallback string) string {
	var ge *GitError
	if errors.As(err, &ge) {
		if s := strings.TrimSpace(ge.Stderr); s != "" {
			return s
		}
	}
	if err != nil && err.Error() != "" {
		return err.Error()
	}
	return fallback
}

// Prepared names a sandbox branch that was reset onto the default branch.
type Prepared struct {
	Repo   string
	Branch string
}

// PrepareBranches points each selected mission's sandbox branch at the tip of
// the default branch in every cloned target repo. Missing clones are skipped.
func PrepareBranches(ctx context.Context, missions []mission.Mission, reposRoot, agent string, day time.Time) []Prepared {
	var prepared []Prepared
	for _, m := range missions {
		branch := BranchName(m.ID, agent, day)
		for _, name := range m.RepoNames() {
			repoPath := filepath.Join(reposRoot, name)
			if !IsWorkingCopy(repoPath) {
				logger.Log.Printf("[sandbox] repo %s missing under %s; clone skipped?", name, repoPath)
				continue
			}
			g := Git{Dir: repoPath}
			g.Run(ctx, "fetch", "--all", "--prune")
			if !checkoutDefault(ctx, g) {
				logger.Log.Printf("[sandbox] could not checkout main/master in %s; skipping sandbox branch", repoPath)
				continue
			}
			if _, err := g.Run(ctx, "checkout", "-B", branch); err != nil {
				continue
			}
			prepared = append(prepared, Prepared{Repo: name, Branch: branch})
		}
	}
	return prepared
}

func checkoutDefault(ctx context.Context, g Git) bool {
	for _, base := range defaultBranches {
		if _, err := g.Run(ctx, "checkout", base); err == nil {
			return true
		}
	}
	return false
}
