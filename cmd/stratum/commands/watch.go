package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"stratum/internal/watcher"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-plan and re-validate whenever the descriptor or project changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEngine()
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Printf("watching %s (ctrl-c to stop)\n", projectDir)
			if err := e.Watch(ctx); err != nil {
				if errors.Is(err, watcher.ErrLockHeld) {
					return fmt.Errorf("another stratum watch is already running for this project")
				}
				return err
			}
			return nil
		},
	}
}
