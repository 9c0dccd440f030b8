package cycle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"nightrunner/internal/config"
	"nightrunner/internal/logger"
)

// JobRunner is the remote job host.
type JobRunner interface {
	Trigger(ctx context.Context) error
	ListExecutions(ctx context.Context) ([]map[string]any, error)
	FetchLogs(ctx context.Context, execution string, maxLines int) (string, error)
	FetchMetadata(ctx context.Context, execution string) (map[string]any, error)
}

// CommandError is an external command that exited non-zero. The CLI exits
// with ExitCode.
type CommandError struct {
	Args     []string
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s exited with status %d", strings.Join(e.Args, " "), e.ExitCode)
}

// CommandFunc runs one external command and returns its stdout.
type CommandFunc func(ctx context.Context, name string, args ...string) (string, error)

// AzureCLI drives an Azure Container Apps job through the az CLI.
type AzureCLI struct {
	Job config.JobConfig
	Out io.Writer
	Run CommandFunc
}

func NewAzureCLI(job config.JobConfig, out io.Writer) *AzureCLI {
	a := &AzureCLI{Job: job, Out: out}
	a.Run = a.runCommand
	return a
}

// runCommand echoes the command, and on failure echoes captured output before
// returning a *CommandError.
func (a *AzureCLI) runCommand(ctx context.Context, name string, args ...string) (string, error) {
	full := append([]string{name}, args...)
	fmt.Fprintf(a.Out, "$ %s\n", strings.Join(full, " "))
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stdout.String(), nil
	}

	if stdout.Len() > 0 {
		fmt.Fprintln(a.Out, stdout.String())
	}
	if stderr.Len() > 0 {
		fmt.Fprintln(a.Out, stderr.String())
	}
	code := 1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		code = exitErr.ExitCode()
	}
	logger.Log.Printf("[cycle] %s failed: %v", strings.Join(full, " "), err)
	return stdout.String(), &CommandError{Args: full, ExitCode: code, Stdout: stdout.String(), Stderr: stderr.String()}
}

func (a *AzureCLI) image() string {
	return a.Job.ImageRepository + ":" + a.Job.ImageTag
}

// Trigger builds and pushes the image unless skipped, points the job at it and
// starts an execution.
func (a *AzureCLI) Trigger(ctx context.Context) error {
	if a.Job.ImageRepository != "" {
		if a.Job.SkipBuild {
			fmt.Fprintln(a.Out, "[cycle] skip-build set; using the existing image without docker build/push.")
		} else {
			if _, err := a.Run(ctx, "docker", "build", "-t", a.image(), "."); err != nil {
				return err
			}
			if _, err := a.Run(ctx, "docker", "push", a.image()); err != nil {
				return err
			}
		}
		if _, err := a.Run(ctx, "az", "containerapp", "job", "update",
			"--name", a.Job.JobName,
			"--resource-group", a.Job.ResourceGroup,
			"--image", a.image()); err != nil {
			return err
		}
	}
	_, err := a.Run(ctx, "az", "containerapp", "job", "start",
		"--name", a.Job.JobName,
		"--resource-group", a.Job.ResourceGroup)
	return err
}

func (a *AzureCLI) ListExecutions(ctx context.Context) ([]map[string]any, error) {
	out, err := a.Run(ctx, "az", "containerapp", "job", "execution", "list",
		"--name", a.Job.JobName,
		"--resource-group", a.Job.ResourceGroup,
		"-o", "json")
	if err != nil {
		return nil, err
	}
	var execs []map[string]any
	if strings.TrimSpace(out) == "" {
		return nil, nil
	}
	if err := json.Unmarshal([]byte(out), &execs); err != nil {
		return nil, fmt.Errorf("parse execution list: %w", err)
	}
	return execs, nil
}

func (a *AzureCLI) FetchLogs(ctx context.Context, execution string, maxLines int) (string, error) {
	return a.Run(ctx, "az", "containerapp", "job", "logs", "show",
		"--name", a.Job.JobName,
		"--resource-group", a.Job.ResourceGroup,
		"--job-execution-name", execution,
		"--format", "text",
		"--tail", strconv.Itoa(maxLines))
}

func (a *AzureCLI) FetchMetadata(ctx context.Context, execution string) (map[string]any, error) {
	out, err := a.Run(ctx, "az", "containerapp", "job", "execution", "show",
		"--name", a.Job.JobName,
		"--resource-group", a.Job.ResourceGroup,
		"--job-execution-name", execution,
		"-o", "json")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(out) == "" {
		return map[string]any{}, nil
	}
	var meta map[string]any
	if err := json.Unmarshal([]byte(out), &meta); err != nil {
		return nil, fmt.Errorf("parse execution metadata: %w", err)
	}
	return meta, nil
}
