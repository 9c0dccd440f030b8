package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"nightrunner/internal/artifacts"
	"nightrunner/internal/config"
	"nightrunner/internal/cycle"
	"nightrunner/internal/display"
	"nightrunner/internal/executor"
	"nightrunner/internal/index"
	"nightrunner/internal/mission"
	"nightrunner/internal/results"
	"nightrunner/internal/supervisor"
	"nightrunner/internal/worker"
)

const localBranch = "local-cycle"

var (
	cycleLocal        bool
	cycleProbe        bool
	cycleExecutionDir string
	cycleSkipBuild    bool
	cycleImageTag     string
	cycleMaxLogLines  int
	cycleRepoRoot     string
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run the job and build the run's artifacts",
	Long: `Without flags, builds and pushes the job image (unless --skip-build), starts the
remote job, then fetches the newest execution's logs and metadata into
runs/{date}/{execution} and builds the artifact set.

--local rebuilds artifacts from an existing run directory; --probe runs the
memory probe in-process first and uses its output as the log.`,
	RunE: runCycle,
}

func init() {
	cycleCmd.Flags().BoolVar(&cycleLocal, "local", false, "Process an existing run directory instead of triggering the job")
	cycleCmd.Flags().BoolVar(&cycleProbe, "probe", false, "Run the memory probe locally, then process its output (implies --local)")
	cycleCmd.Flags().StringVar(&cycleExecutionDir, "execution-dir", "", "Run directory to process, relative to --repo-root")
	cycleCmd.Flags().BoolVar(&cycleSkipBuild, "skip-build", false, "Skip the docker build/push step")
	cycleCmd.Flags().StringVar(&cycleImageTag, "image-tag", "", "Container image tag to run")
	cycleCmd.Flags().IntVar(&cycleMaxLogLines, "max-log-lines", 0, "Maximum log lines to fetch from the job")
	cycleCmd.Flags().StringVar(&cycleRepoRoot, "repo-root", ".", "Directory containing runs/")
	rootCmd.AddCommand(cycleCmd)
}

func runCycle(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	base, err := filepath.Abs(cycleRepoRoot)
	if err != nil {
		return fmt.Errorf("resolve repo root: %w", err)
	}

	job := cfg.Job
	if cycleSkipBuild {
		job.SkipBuild = true
	}
	if cycleImageTag != "" {
		job.ImageTag = cycleImageTag
	}
	if cycleMaxLogLines > 0 {
		job.MaxLogLines = cycleMaxLogLines
	}

	d := &cycle.Driver{
		Pipeline:    artifacts.NewPipeline(out, index.New(cfg.Index), cfg.Worker.ProbeMission, cfg.Worker.Name),
		Base:        base,
		MaxLogLines: job.MaxLogLines,
		Out:         out,
	}

	var set *artifacts.ArtifactSet
	if cycleLocal || cycleProbe {
		opts := cycle.LocalOptions{Override: cycleExecutionDir, EnvDir: cfg.ExecutionDir}
		if cycleProbe {
			opts.Probe = localProbe(cfg, base, worker.NewClient(cfg.Worker))
		}
		set, err = d.RunLocal(ctx, opts)
	} else {
		fmt.Fprintf(out, "Starting Night Runner cycle (run_id=%s)...\n", results.MakeRunID(time.Now()))
		if job.SkipBuild {
			fmt.Fprintln(out, "[cycle] skip-build set; starting the job without docker build/push.")
		}
		d.Runner = cycle.NewAzureCLI(job, out)
		set, err = d.RunRemote(ctx)
	}
	if err != nil {
		return err
	}
	if set != nil {
		fmt.Fprint(out, display.FormatCycleSummary(set))
	}
	return nil
}

// localProbe runs the probe mission against base and writes what the remote
// job would have logged: the secrets line, the worker record and the mission
// result.
func localProbe(c *config.Config, base string, asker executor.Asker) func(ctx context.Context, w io.Writer) error {
	return func(ctx context.Context, w io.Writer) error {
		if _, err := worker.LogSecretStatus(w, c.Worker); err != nil {
			return err
		}
		repo := filepath.Base(base)
		m := mission.Mission{
			ID:       c.Worker.ProbeMission,
			Status:   mission.StatusReady,
			RiskTier: mission.TierAutomatic,
			Priority: mission.DefaultPriority,
			Repos:    []mission.Repo{{Name: repo}},
		}
		branch := c.BranchName
		if branch == "" {
			branch = localBranch
		}
		probe := executor.MemoryProbe{Worker: asker, Out: w, Doctrine: c.Worker.Doctrine}
		res := probe.Execute(ctx, base, m, branch)
		res.Repo = repo
		line, err := json.Marshal(res.Fields())
		if err != nil {
			return fmt.Errorf("marshal probe result: %w", err)
		}
		_, err = fmt.Fprintf(w, "%s %s\n", supervisor.ResultMarker, line)
		return err
	}
}
