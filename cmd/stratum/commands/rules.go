package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"stratum/internal/rules"
)

// rulesCmd prints the active ruleset without touching the manifest store,
// so it works in a directory stratum has never run in.
func rulesCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the active architecture rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			rs := rules.Default()
			if cfg.Rules != "" {
				loaded, err := rules.Load(absPath(cfg.Rules))
				switch {
				case errors.Is(err, os.ErrNotExist):
					// keep the built-in default
				case err != nil:
					return err
				default:
					rs = loaded
				}
			}

			if asYAML {
				out, err := yaml.Marshal(rs)
				if err != nil {
					return err
				}
				fmt.Print(string(out))
				return nil
			}
			fmt.Print(rs.Markdown())
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print the ruleset as YAML instead of markdown")
	return cmd
}
