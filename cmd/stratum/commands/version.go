package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"stratum/pkg/version"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the stratum version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stratum %s (MCP protocol %s)\n", version.Version, version.ProtocolVersion)
		},
	}
}
