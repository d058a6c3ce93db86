package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"stratum/internal/report"
)

func planCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show what the descriptor would generate without writing files",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			p, err := e.Plan(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(p)
			}
			fmt.Print(report.Plan(p))
			return nil
		},
	}
}
