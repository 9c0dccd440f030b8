package cli

import (
	"github.com/spf13/cobra"

	"nightrunner/internal/worker"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Print the worker credential status line",
	Long: `Prints one BOOTSTRAP_SECRETS_STATUS: line describing whether the worker API is
enabled and a key is present. Diagnostic only; it never fails on missing keys.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := worker.LogSecretStatus(cmd.OutOrStdout(), cfg.Worker)
		return err
	},
}

func init() {
	rootCmd.AddCommand(secretsCmd)
}
