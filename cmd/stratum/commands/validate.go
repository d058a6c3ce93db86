package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"stratum/internal/report"
	"stratum/internal/rules"
	"stratum/internal/validate"
)

func validateCmd() *cobra.Command {
	var failOn string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the project tree against the layer rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			rep, err := e.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOut {
				if err := printJSON(rep); err != nil {
					return err
				}
			} else {
				fmt.Print(report.Validation(rep))
			}

			threshold := cfg.Validate.FailOn
			if failOn != "" {
				threshold = failOn
			}
			if shouldFail(rep, threshold) {
				return fmt.Errorf("validation failed (fail-on=%s)", threshold)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&failOn, "fail-on", "", "severity that makes the command fail: error or warning (default from config)")
	return cmd
}

// shouldFail reports whether any violation reaches the threshold severity.
// An unknown threshold falls back to error.
func shouldFail(rep *validate.Report, threshold string) bool {
	min := rules.Severity(threshold).Rank()
	if min < 0 {
		min = rules.SeverityError.Rank()
	}
	for _, v := range rep.Violations {
		if v.Severity.Rank() >= min {
			return true
		}
	}
	return false
}
