// Package commands wires the stratum CLI: every subcommand shares the
// project root, configuration and logger set up here.
package commands

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stratum/internal/config"
	"stratum/internal/engine"
	"stratum/internal/logger"
)

var (
	projectDir string
	configFile string
	logLevel   string
	descFlag   string
	jsonOut    bool

	cfg *config.Config
	log *zap.Logger
)

func Execute() error {
	root := &cobra.Command{
		Use:          "stratum",
		Short:        "Rule-driven scaffolding and architecture validation",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(projectDir)
			if err != nil {
				return err
			}
			projectDir = abs

			cfg, err = config.Load(projectDir, configFile)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Logger.Level = logLevel
			}
			log, err = logger.New(cfg.LogConfig())
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "project root directory")
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default <project>/stratum.yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().StringVarP(&descFlag, "descriptor", "d", "", "project descriptor, relative to the project root (default: the configured or sole *.stratum.yaml)")
	root.PersistentFlags().BoolVar(&jsonOut, "json", false, "print results as JSON")

	root.AddCommand(initCmd(), planCmd(), applyCmd(), validateCmd(), statusCmd(),
		watchCmd(), rulesCmd(), mcpCmd(), versionCmd())
	return root.Execute()
}

// newEngine builds the engine for the current project. The --descriptor flag
// wins over config; with neither set, a sole *.stratum.yaml in the root is
// picked up automatically.
func newEngine() (*engine.Engine, error) {
	ec := cfg.EngineConfig(projectDir)
	if descFlag != "" {
		ec.DescriptorPath = absPath(descFlag)
	}
	if ec.DescriptorPath == "" {
		found, err := discoverDescriptor(projectDir)
		if err != nil {
			return nil, err
		}
		ec.DescriptorPath = found
	}
	return engine.New(ec, log)
}

func absPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(projectDir, p)
}

func discoverDescriptor(root string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(root, "*.stratum.yaml"))
	if err != nil {
		return "", err
	}
	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		names := make([]string, len(matches))
		for i, m := range matches {
			names[i] = filepath.Base(m)
		}
		return "", fmt.Errorf("multiple descriptors in %s (%s): pick one with --descriptor",
			root, strings.Join(names, ", "))
	}
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
