package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"nightrunner/internal/sandbox"
)

const pushSkipped = " (push skipped: unexpected branch name)"

// begin checks the checkout and syncs the sandbox branch. It returns false when
// res already holds a terminal failure.
func begin(ctx context.Context, repoPath, missionID, branch string, res *Result) (sandbox.Git, bool) {
	g := sandbox.Git{Dir: repoPath}
	res.set("committed", false)
	res.set("pushed", false)
	if !sandbox.IsWorkingCopy(repoPath) {
		res.Message = "not a git repo"
		return g, false
	}
	ok, detail := sandbox.SyncWithRemote(ctx, repoPath, branch)
	if !ok {
		res.Message = fmt.Sprintf("%s failed to sync sandbox branch: %s", missionID, detail)
		return g, false
	}
	return g, true
}

// commitAndPush stages paths, commits with commitMsg and pushes the branch
// when it is this mission's sandbox branch. done is the success message for a
// local commit.
func commitAndPush(ctx context.Context, g sandbox.Git, res *Result, missionID, branch, commitMsg, done string, paths ...string) {
	status, err := g.StatusPorcelain(ctx, paths...)
	if err != nil {
		res.Message = "git status failed: " + gitDetail(err)
		return
	}
	if status == "" {
		res.Success = true
		res.Message = missionID + " unchanged"
		return
	}

	if _, err := g.Run(ctx, append([]string{"add", "--"}, paths...)...); err != nil {
		res.Message = "git add failed: " + gitDetail(err)
		return
	}
	if _, err := g.Run(ctx, "commit", "-m", commitMsg); err != nil {
		res.Message = "git commit failed: " + gitDetail(err)
		return
	}
	res.set("committed", true)
	res.Success = true
	res.Message = done

	if !sandbox.OwnsBranch(branch, missionID) {
		res.Message += pushSkipped
		return
	}
	if _, err := g.Run(ctx, "push", "origin", branch); err != nil {
		res.Message += " but git push failed: " + gitDetail(err)
		return
	}
	res.set("pushed", true)
	res.Message += " and pushed origin/" + branch
}

func gitDetail(err error) string {
	var ge *sandbox.GitError
	if errors.As(err, &ge) {
		if s := strings.TrimSpace(ge.Stderr); s != "" {
			return s
		}
	}
	return err.Error()
}
