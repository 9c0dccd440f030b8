// Package cli wires configuration and collaborators into the nightrunner
// commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"nightrunner/internal/config"
	"nightrunner/internal/cycle"
	"nightrunner/internal/logger"
	"nightrunner/internal/mission"
)

// cfg is resolved once in PersistentPreRunE and read by every command.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nightrunner",
	Short: "Nightly autonomous mission orchestrator",
	Long: `nightrunner selects ready missions from the spec repo, runs each one against a
sandbox branch of its target repos, and turns the run's log into mission and
worker result tables, summaries and a night report.

  nightrunner plan              Show which missions tonight's run would pick
  nightrunner run               Dispatch the ready missions and record results
  nightrunner cycle             Trigger the remote job and collect its artifacts
  nightrunner cycle --local     Rebuild artifacts from an existing run directory
  nightrunner secrets           Print the worker credential diagnostics line`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cwd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
		c, err := config.FromEnv(cwd)
		if err != nil {
			return err
		}
		if err := logger.Init(c.LogFile); err != nil {
			return fmt.Errorf("could not initialize logger: %w", err)
		}
		logger.Log.Printf("nightrunner %s starting (spec_root=%s)", cmd.Name(), c.SpecRoot)
		cfg = c
		return nil
	}
}

// Execute runs the root command and exits. A failed external command exits
// with that command's status; any other error exits 1.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(exitCode(err))
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var cmdErr *cycle.CommandError
	if errors.As(err, &cmdErr) && cmdErr.ExitCode > 0 {
		return cmdErr.ExitCode
	}
	return 1
}

// loadReady loads the mission definitions and returns tonight's selection.
// Skipped definitions are reported on warn.
func loadReady(c *config.Config, warn io.Writer) ([]mission.Mission, error) {
	if err := c.ValidateSpecRoot(); err != nil {
		return nil, err
	}
	report, err := mission.Load(c.MissionsDir())
	if err != nil {
		return nil, err
	}
	for _, issue := range report.Skipped {
		fmt.Fprintf(warn, "Warning: skipped mission file %s: %s\n", issue.Path, issue.Reason)
	}
	return mission.SelectReady(report.Missions, c.MaxMissions), nil
}
