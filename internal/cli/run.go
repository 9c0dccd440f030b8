package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"nightrunner/internal/display"
	"nightrunner/internal/executor"
	"nightrunner/internal/github"
	"nightrunner/internal/listener"
	"nightrunner/internal/results"
	"nightrunner/internal/supervisor"
	"nightrunner/internal/worker"
)

var (
	runClone       bool
	runConfirm     bool
	runConcurrency int
	runNoPrepare   bool
	runNoPRs       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Dispatch tonight's ready missions",
	Long: `Selects the ready missions, resets their sandbox branches, runs each mission's
executor against every target repo and appends one MISSION_RESULT_JSON record per
result to the run's JSONL file. Pushed sandbox branches get a pull request.`,
	RunE: runNight,
}

func init() {
	runCmd.Flags().BoolVar(&runClone, "clone", false, "Bootstrap the spec repo and clone target repos before running")
	runCmd.Flags().BoolVar(&runConfirm, "confirm", false, "Ask before dispatching (needs a terminal)")
	runCmd.Flags().IntVar(&runConcurrency, "concurrency", 1, "Missions dispatched in parallel")
	runCmd.Flags().BoolVar(&runNoPrepare, "no-prepare", false, "Do not reset sandbox branches onto the default branch")
	runCmd.Flags().BoolVar(&runNoPRs, "no-prs", false, "Do not open pull requests for pushed branches")
	rootCmd.AddCommand(runCmd)
}

func runNight(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	now := time.Now()
	runID := results.MakeRunID(now)
	fmt.Fprintf(out, "Starting Night Runner (run_id=%s)...\n", runID)

	cloner := &github.Cloner{Owner: cfg.GitHub.Owner, Token: cfg.GitHub.Token, Out: out}
	if runClone {
		if err := cloner.EnsureSpecRepo(ctx, cfg.SpecRoot, cfg.SpecRepo); err != nil {
			return err
		}
	}

	ready, err := loadReady(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	fmt.Fprintln(out, display.FormatPlan(ready))
	if len(ready) == 0 {
		return nil
	}

	if runConfirm {
		if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
			return errors.New("--confirm needs an interactive terminal")
		}
		if err := listener.Init(); err != nil {
			return fmt.Errorf("failed to init terminal input: %w", err)
		}
		approved := listener.AskYesNo(fmt.Sprintf("Run %d mission(s)?", len(ready)))
		listener.Close()
		if !approved {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if _, err := worker.LogSecretStatus(out, cfg.Worker); err != nil {
		return err
	}

	reposRoot := results.ResolveRoot(cfg.ReposRoot, cfg.FallbackReposRoot())
	if runClone {
		cloned := cloner.CloneAll(ctx, cfg.GitHub.Repos, reposRoot)
		fmt.Fprintf(out, "Cloned repos: %v\n", cloned)
	}
	recorder := results.NewRecorder(results.ResolveRoot(cfg.ResultsRoot, cfg.FallbackResultsRoot()))

	probe := &executor.MemoryProbe{Worker: worker.NewClient(cfg.Worker), Out: out, Doctrine: cfg.Worker.Doctrine}
	router := executor.NewRouter(reposRoot, cfg.Agent, executor.Standard(probe))
	sup := &supervisor.Supervisor{
		Router:    router,
		Recorder:  recorder,
		ReposRoot: reposRoot,
		Agent:     cfg.Agent,
		Out:       out,
		Opts: supervisor.Options{
			RunID:           runID,
			Concurrency:     runConcurrency,
			PrepareBranches: !runNoPrepare,
			PROwner:         cfg.GitHub.Owner,
			PRBase:          cfg.GitHub.Base,
		},
	}
	if !runNoPRs && cfg.GitHub.Token != "" {
		sup.PRs = github.NewPRClient(cfg.GitHub.Token)
	}

	summary, err := sup.Run(ctx, ready)
	if summary != nil {
		fmt.Fprint(out, display.FormatRunMetrics(summary.Metrics))
		fmt.Fprintf(out, "Results recorded in %s\n", recorder.Path(runID))
	}
	return err
}
