package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"nightrunner/internal/mission"
)

const (
	readmeFile    = "README.md"
	readmeHeading = "## Night Runner (Autonomous Night Work)"
)

var readmeSection = readmeHeading + "\n\n" +
	"- This service participates in the Living Shield Night Runner system, " +
	"which runs in sandbox branches (`night/YYYYMMDD/...`) overnight and ships " +
	"PRs for daytime review.\n" +
	"- Night Runner operates under doctrine such as `ls-d100-night-v1-scope` " +
	"and `ls-d101-night-sandbox-only`, ensuring factory/ops-scope work with " +
	"no direct pushes to `main`, deployments, or release branches.\n" +
	"- Every Night Runner change is small (capped files/LOC), validated in CI, " +
	"reviewed/merged by humans, and auditable via Proof Chain entries and Night Reports.\n"

// SchedulerReadme appends the Night Runner section to the repo README once.
type SchedulerReadme struct{}

func (SchedulerReadme) Execute(ctx context.Context, repoPath string, m mission.Mission, branch string) Result {
	res := Result{Mission: m.ID, Branch: branch}
	res.set("readme_file", readmeFile)

	g, ok := begin(ctx, repoPath, m.ID, branch, &res)
	if !ok {
		return res
	}

	path := filepath.Join(repoPath, readmeFile)
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		content = []byte("# " + filepath.Base(repoPath) + "\n\n")
	} else if err != nil {
		res.Message = "read README: " + err.Error()
		return res
	}

	text := string(content)
	if strings.Contains(text, readmeHeading) {
		res.Success = true
		res.Message = m.ID + " README already contains Night Runner section"
		return res
	}

	if !strings.HasSuffix(text, "\n\n") {
		text += "\n"
	}
	text += "\n" + readmeSection + "\n"
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		res.Message = "write README: " + err.Error()
		return res
	}

	commitAndPush(ctx, g, &res, m.ID, branch,
		m.ID+": add Night Runner section to README",
		m.ID+" README section committed locally",
		readmeFile)
	return res
}
