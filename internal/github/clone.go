// Package github clones the night runner's repositories and opens pull
// requests for sandbox branches.
package github

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nightrunner/internal/logger"
	"nightrunner/internal/sandbox"
	"nightrunner/internal/utils"
)

const DefaultRemoteBase = "https://github.com"

// Cloner makes shallow clones of owner's repositories.
type Cloner struct {
	Owner      string
	Token      string
	RemoteBase string
	Out        io.Writer
}

func (c *Cloner) repoURL(repo string) string {
	base := c.RemoteBase
	if base == "" {
		base = DefaultRemoteBase
	}
	raw := strings.TrimRight(base, "/") + "/" + c.Owner + "/" + repo + ".git"
	return utils.WithToken(raw, c.Token)
}

func (c *Cloner) printf(format string, args ...any) {
	if c.Out != nil {
		fmt.Fprintf(c.Out, format+"\n", args...)
	}
}

// Clone clones repo into dest unless dest already exists.
func (c *Cloner) Clone(ctx context.Context, repo, dest string) bool {
	if _, err := os.Stat(dest); err == nil {
		c.printf("Repo %s already present at %s, skipping clone.", repo, dest)
		return true
	}
	if c.Token == "" {
		c.printf("Warning: GITHUB_TOKEN is not set; cloning public-only.")
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		c.printf("Failed to clone %s: %v", repo, err)
		return false
	}

	url := c.repoURL(repo)
	c.printf("Cloning %s into %s...", repo, dest)
	logger.Log.Printf("[github] clone %s -> %s", utils.Redact(url), dest)
	if _, err := (sandbox.Git{}).Run(ctx, "clone", "--depth", "1", url, dest); err != nil {
		c.printf("Failed to clone %s: %s", repo, strings.ReplaceAll(err.Error(), url, utils.Redact(url)))
		return false
	}
	c.printf("Cloned %s successfully.", repo)
	return true
}

// CloneAll clones each repo under root and returns the names that are present
// afterwards.
func (c *Cloner) CloneAll(ctx context.Context, repos []string, root string) []string {
	var cloned []string
	for _, repo := range repos {
		if c.Clone(ctx, repo, filepath.Join(root, repo)) {
			cloned = append(cloned, repo)
		}
	}
	return cloned
}

// EnsureSpecRepo makes sure specRoot is a clone of repo that contains the
// missions folder. A stale specRoot without missions is replaced.
func (c *Cloner) EnsureSpecRepo(ctx context.Context, specRoot, repo string) error {
	missions := filepath.Join(specRoot, "ops", "night_missions")
	if info, err := os.Stat(missions); err == nil && info.IsDir() {
		return nil
	}
	if _, err := os.Stat(specRoot); err == nil {
		c.printf("Removing existing %s at %s before bootstrap...", repo, specRoot)
		if err := os.RemoveAll(specRoot); err != nil {
			return fmt.Errorf("clear %s: %w", specRoot, err)
		}
	}
	if c.Token == "" && c.RemoteBase == "" {
		return fmt.Errorf("GITHUB_TOKEN not set; cannot bootstrap %s", repo)
	}
	c.printf("Bootstrapping %s into %s...", repo, specRoot)
	if !c.Clone(ctx, repo, specRoot) {
		return fmt.Errorf("clone %s failed", repo)
	}
	if info, err := os.Stat(missions); err != nil || !info.IsDir() {
		return fmt.Errorf("%s cloned into %s but ops/night_missions missing", repo, specRoot)
	}
	return nil
}
