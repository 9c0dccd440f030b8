package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"nightrunner/internal/logger"
)

// Git runs git commands inside one working copy.
type Git struct {
	Dir string
}

// GitError keeps stderr so callers can classify expected failures.
type GitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *GitError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s: %s", strings.Join(e.Args, " "), msg)
}

func (e *GitError) Unwrap() error { return e.Err }

// Run executes git with args and returns trimmed stdout. Messages are forced to
// the C locale so stderr matching is stable.
func (g Git) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	cmd.Env = append(os.Environ(), "LC_ALL=C", "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		logger.Log.Printf("[sandbox] git %s failed in %s: %s", strings.Join(args, " "), g.Dir, strings.TrimSpace(stderr.String()))
		return stdout.String(), &GitError{Args: args, Stderr: stderr.String(), Err: err}
	}
	return stdout.String(), nil
}

// IsWorkingCopy reports whether dir contains a .git entry.
func IsWorkingCopy(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ".git"))
	return err == nil
}

// StatusPorcelain lists changed paths; empty means a clean tree.
func (g Git) StatusPorcelain(ctx context.Context, paths ...string) (string, error) {
	args := append([]string{"status", "--porcelain"}, paths...)
	out, err := g.Run(ctx, args...)
	return strings.TrimSpace(out), err
}

func stderrOf(err error) string {
	if err == nil {
		return ""
	}
	var ge *GitError
	if errors.As(err, &ge) {
		return strings.ToLower(ge.Stderr)
	}
	return strings.ToLower(err.Error())
}
