package executor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"nightrunner/internal/mission"
	"nightrunner/internal/utils"
)

const (
	versionPackage = "ls_backend"
	versionFile    = "ls_backend/version.py"
	versionBody    = "\"\"\"Package version constant for ls-backend (Night Runner NM-020).\"\"\"\nversion = \"0.1.0\"\n"
)

// VersionConstant makes sure the backend package exports a version constant.
type VersionConstant struct {
	// Python is the interpreter used for the syntax check; empty means look up
	// python3 and skip the check when it is absent.
	Python string
}

func (v VersionConstant) Execute(ctx context.Context, repoPath string, m mission.Mission, branch string) Result {
	res := Result{Mission: m.ID, Branch: branch}
	res.set("version_file", versionFile)

	g, ok := begin(ctx, repoPath, m.ID, branch, &res)
	if !ok {
		return res
	}

	if info, err := os.Stat(filepath.Join(repoPath, versionPackage)); err != nil || !info.IsDir() {
		res.Message = "ls_backend package not found"
		return res
	}
	target := filepath.Join(repoPath, filepath.FromSlash(versionFile))
	if !utils.FileExists(target) {
		if err := utils.WriteFileAtomic(target, []byte(versionBody)); err != nil {
			res.Message = "write version file: " + err.Error()
			return res
		}
	}

	if msg, ok := v.compileCheck(ctx, repoPath); !ok {
		res.Message = "compileall failed: " + msg
		return res
	}

	commitAndPush(ctx, g, &res, m.ID, branch,
		m.ID+": Night Runner version setup",
		m.ID+" version change committed locally",
		versionFile)
	return res
}

func (v VersionConstant) compileCheck(ctx context.Context, repoPath string) (string, bool) {
	python := v.Python
	if python == "" {
		p, err := exec.LookPath("python3")
		if err != nil {
			return "", true
		}
		python = p
	}
	cmd := exec.CommandContext(ctx, python, "-B", "-m", "compileall", "-q", versionPackage)
	cmd.Dir = repoPath
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return s, false
		}
		return err.Error(), false
	}
	return "", true
}
