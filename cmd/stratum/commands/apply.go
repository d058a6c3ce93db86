package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"stratum/internal/report"
)

func applyCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write the planned scaffolding into the project tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			res, err := e.Apply(cmd.Context(), force)
			if err != nil {
				return err
			}
			if jsonOut {
				if err := printJSON(res); err != nil {
					return err
				}
			} else {
				fmt.Print(report.Apply(res))
			}
			if n := len(res.Conflicts); n > 0 {
				return fmt.Errorf("%d file(s) were edited since the last apply; use --force to overwrite", n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite files edited since the last apply")
	return cmd
}
