package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stratum/internal/mcp"
	"stratum/internal/tools"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the engine to AI assistants over MCP on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			reg := tools.NewRegistry()
			for _, t := range tools.NewEngineTools(e) {
				if err := reg.Register(t); err != nil {
					return err
				}
			}

			srv := mcp.NewServer(reg, mcp.Config{
				ToolTimeout: cfg.MCP.ToolTimeout,
				MaxOutput:   cfg.MCP.MaxOutput,
			}, log)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.Serve(ctx, mcp.Stdio())
		},
	}
}
