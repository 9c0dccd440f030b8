package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"nightrunner/internal/display"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print the dry-run night plan",
	RunE: func(cmd *cobra.Command, args []string) error {
		ready, err := loadReady(cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), display.FormatPlan(ready))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
}
