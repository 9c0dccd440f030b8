package sandbox

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nightrunner/internal/mission"
)

func TestBranchName(t *testing.T) {
	day := time.Date(2026, 3, 9, 23, 59, 0, 0, time.UTC)

	testCases := []struct {
		name      string
		missionID string
		agent     string
		want      string
	}{
		{name: "explicit agent", missionID: "NM-911", agent: "claude", want: "night/20260309/NM-911-claude"},
		{name: "default agent", missionID: "NM-020", want: "night/20260309/NM-020-codex"},
		{name: "missing id", want: "night/20260309/mission-codex"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			first := BranchName(tc.missionID, tc.agent, day)
			second := BranchName(tc.missionID, tc.agent, day)
			if first != tc.want || second != tc.want {
				t.Errorf("got %q / %q, want %q", first, second, tc.want)
			}
		})
	}
}

func TestBranchNameUsesUTCDay(t *testing.T) {
	east := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2026, 3, 10, 2, 0, 0, 0, east)
	if got := BranchName("NM-1", "", local); got != "night/20260309/NM-1-codex" {
		t.Errorf("got %q", got)
	}
}

func TestBranchNameDistinctMissionsNeverCollide(t *testing.T) {
	day := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := map[string]string{}
	for _, id := range []string{"NM-001", "NM-010", "NM-100", "NM-1", "NM-01"} {
		b := BranchName(id, "codex", day)
		if prev, ok := seen[b]; ok {
			t.Fatalf("%s and %s collide on %s", prev, id, b)
		}
		seen[b] = id
	}
}

func TestOwnsBranch(t *testing.T) {
	if !OwnsBranch("night/20260101/NM-011-codex", "NM-011") {
		t.Error("sandbox branch should be owned")
	}
	if OwnsBranch("main", "NM-011") {
		t.Error("main must never be owned")
	}
	if OwnsBranch("night/20260101/NM-020-codex", "NM-011") {
		t.Error("another mission's branch must not be owned")
	}
}

func TestSyncWithRemote_NoRemoteBranch(t *testing.T) {
	_, clone := initRemoteAndClone(t)
	branch := BranchName("NM-042", "codex", time.Now())

	ok, detail := SyncWithRemote(context.Background(), clone, branch)
	if !ok {
		t.Fatalf("ok = false, detail = %q", detail)
	}
	if !strings.Contains(detail, "no remote") {
		t.Errorf("detail = %q, want mention of no remote", detail)
	}
	if got := strings.TrimSpace(gitOutput(t, clone, "rev-parse", "--abbrev-ref", "HEAD")); got != branch {
		t.Errorf("HEAD = %q, want %q", got, branch)
	}
}

func TestSyncWithRemote_ResetsToRemote(t *testing.T) {
	remote, clone := initRemoteAndClone(t)
	branch := "night/20260101/NM-050-codex"

	other := filepath.Join(t.TempDir(), "other")
	runGit(t, "", "clone", remote, other)
	runGit(t, other, "checkout", "-b", branch)
	if err := os.WriteFile(filepath.Join(other, "remote.txt"), []byte("remote\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runGit(t, other, "add", "remote.txt")
	runGit(t, other, "-c", "user.name=Test", "-c", "user.email=test@example.com", "commit", "-m", "remote change")
	runGit(t, other, "push", "origin", branch)

	ok, detail := SyncWithRemote(context.Background(), clone, branch)
	if !ok {
		t.Fatalf("ok = false, detail = %q", detail)
	}
	if detail != "synced with remote sandbox" {
		t.Errorf("detail = %q", detail)
	}
	if _, err := os.Stat(filepath.Join(clone, "remote.txt")); err != nil {
		t.Errorf("remote commit not present after sync: %v", err)
	}
}

func TestSyncWithRemote_ResetFailureFallsBackToLocal(t *testing.T) {
	_, clone := initRemoteAndClone(t)
	branch := "night/20260101/NM-060-codex"

	// A tag with the branch's name makes the fetch succeed while
	// origin/<branch> never exists, so the reset cannot resolve it.
	runGit(t, clone, "tag", branch)
	runGit(t, clone, "push", "origin", "refs/tags/"+branch)
	runGit(t, clone, "tag", "-d", branch)

	ok, detail := SyncWithRemote(context.Background(), clone, branch)
	if !ok {
		t.Fatalf("ok = false, detail = %q", detail)
	}
	if detail != "remote branch missing after fetch; using local only" {
		t.Errorf("detail = %q", detail)
	}
}

func TestSyncWithRemote_CreatesBranchFromMaster(t *testing.T) {
	_, clone := initRemoteAndCloneOn(t, "master")
	branch := BranchName("NM-070", "codex", time.Now())

	ok, detail := SyncWithRemote(context.Background(), clone, branch)
	if !ok {
		t.Fatalf("ok = false, detail = %q", detail)
	}
	if got := strings.TrimSpace(gitOutput(t, clone, "rev-parse", "--abbrev-ref", "HEAD")); got != branch {
		t.Errorf("HEAD = %q, want %q", got, branch)
	}
	head := gitOutput(t, clone, "rev-parse", "HEAD")
	master := gitOutput(t, clone, "rev-parse", "master")
	if head != master {
		t.Errorf("sandbox branch starts at %s, want master %s", head, master)
	}
}

func TestSyncWithRemote_FetchFailureIsFatal(t *testing.T) {
	repo := initRepo(t)
	ok, detail := SyncWithRemote(context.Background(), repo, "night/20260101/NM-1-codex")
	if ok {
		t.Fatalf("expected failure without an origin remote, got detail %q", detail)
	}
}

func TestPrepareBranches(t *testing.T) {
	_, clone := initRemoteAndClone(t)
	root := filepath.Dir(clone)
	day := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	missions := []mission.Mission{{
		ID:    "NM-020",
		Repos: []mission.Repo{{Name: filepath.Base(clone)}, {Name: "absent"}, {}},
	}}

	prepared := PrepareBranches(context.Background(), missions, root, "", day)
	if len(prepared) != 1 {
		t.Fatalf("prepared = %+v, want one entry", prepared)
	}
	if prepared[0].Branch != "night/20260201/NM-020-codex" {
		t.Errorf("branch = %q", prepared[0].Branch)
	}
}

func initRepo(t *testing.T) string {
	t.Helper()
	return initRepoOn(t, "main")
}

func initRepoOn(t *testing.T, base string) string {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	repo := t.TempDir()
	runGit(t, repo, "init")
	runGit(t, repo, "checkout", "-b", base)
	if err := os.WriteFile(filepath.Join(repo, "main.txt"), []byte("initial\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	runGit(t, repo, "add", "main.txt")
	runGit(t, repo, "-c", "user.name=Test", "-c", "user.email=test@example.com", "commit", "-m", "initial commit")
	return repo
}

// initRemoteAndClone returns a bare origin with one commit on main and a clone of it.
func initRemoteAndClone(t *testing.T) (string, string) {
	t.Helper()
	return initRemoteAndCloneOn(t, "main")
}

func initRemoteAndCloneOn(t *testing.T, base string) (string, string) {
	t.Helper()
	seed := initRepoOn(t, base)
	remote := filepath.Join(t.TempDir(), "origin.git")
	runGit(t, "", "clone", "--bare", seed, remote)
	clone := filepath.Join(t.TempDir(), "work")
	runGit(t, "", "clone", remote, clone)
	return remote, clone
}

func gitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %s failed: %v\n%s", strings.Join(args, " "), err, string(out))
	}
	return string(out)
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	_ = gitOutput(t, dir, args...)
}
