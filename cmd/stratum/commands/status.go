package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"stratum/internal/report"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the last runs and tracked files",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			st, err := e.Status(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(st)
			}
			fmt.Print(report.Status(st))
			return nil
		},
	}
}
