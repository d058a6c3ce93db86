// Package config loads stratum's settings: built-in defaults, then an
// optional stratum.yaml in the project root, then STRATUM_* environment
// variables, each layer overriding the one before.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"stratum/internal/engine"
	"stratum/internal/logger"
	"stratum/internal/scan"
	"stratum/internal/validate"
	"stratum/internal/watcher"
)

type Config struct {
	// Rules and Descriptor are resolved against the project root when
	// relative. An empty descriptor means none is configured.
	Rules      string `mapstructure:"rules"`
	Descriptor string `mapstructure:"descriptor"`

	Logger   LoggerConfig   `mapstructure:"logger"`
	Store    StoreConfig    `mapstructure:"store"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Watch    WatchConfig    `mapstructure:"watch"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	MCP      MCPConfig      `mapstructure:"mcp"`
	Validate ValidateConfig `mapstructure:"validate"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type StoreConfig struct {
	// Path of the manifest database; empty means .stratum/stratum.db
	// under the project root.
	Path string `mapstructure:"path"`
}

type ScanConfig struct {
	IgnorePatterns []string `mapstructure:"ignore_patterns"`
	MaxFileSize    int64    `mapstructure:"max_file_size"`
	// Workers as zero lets the scanner pick its own parallelism.
	Workers int `mapstructure:"workers"`
}

type WatchConfig struct {
	Debounce       time.Duration `mapstructure:"debounce"`
	MaxBatch       int           `mapstructure:"max_batch"`
	IgnorePatterns []string      `mapstructure:"ignore_patterns"`
	WatchHidden    bool          `mapstructure:"watch_hidden"`
}

type WorkerConfig struct {
	Workers      int `mapstructure:"workers"`
	MaxQueueSize int `mapstructure:"max_queue_size"`
	RateLimit    int `mapstructure:"rate_limit"`
}

type MCPConfig struct {
	ToolTimeout time.Duration `mapstructure:"tool_timeout"`
	MaxOutput   int           `mapstructure:"max_output"`
}

type ValidateConfig struct {
	// FailOn is the severity that makes `stratum validate` exit nonzero:
	// "error" or "warning".
	FailOn string `mapstructure:"fail_on"`
}

// Load reads configuration for a project root. With file set, that exact
// file is required; otherwise a stratum.yaml in the root is used when
// present and silently skipped when not.
func Load(root, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("STRATUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("stratum")
		v.SetConfigType("yaml")
		v.AddConfigPath(root)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rules", "stratum.rules.yaml")
	v.SetDefault("descriptor", "")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 30)
	v.SetDefault("logger.compress", true)

	v.SetDefault("store.path", "")

	v.SetDefault("scan.ignore_patterns", []string{
		"**/node_modules/**",
		"**/vendor/**",
		"**/dist/**",
		"**/build/**",
		"**/target/**",
		"**/__pycache__/**",
	})
	v.SetDefault("scan.max_file_size", scan.DefaultMaxFileSize)
	v.SetDefault("scan.workers", 0)

	wc := watcher.DefaultConfig()
	v.SetDefault("watch.debounce", wc.Debounce)
	v.SetDefault("watch.max_batch", wc.MaxBatch)
	v.SetDefault("watch.ignore_patterns", wc.IgnorePatterns)
	v.SetDefault("watch.watch_hidden", wc.WatchHidden)

	dw := validate.DefaultWorkerConfig()
	v.SetDefault("worker.workers", dw.Workers)
	v.SetDefault("worker.max_queue_size", dw.MaxQueueSize)
	v.SetDefault("worker.rate_limit", dw.RateLimit)

	v.SetDefault("mcp.tool_timeout", 4*time.Minute)
	v.SetDefault("mcp.max_output", 64*1024)

	v.SetDefault("validate.fail_on", "error")
}

// EngineConfig assembles the engine wiring for a project root.
func (c *Config) EngineConfig(root string) engine.Config {
	return engine.Config{
		Root:           root,
		RulesPath:      resolve(root, c.Rules),
		DescriptorPath: resolve(root, c.Descriptor),
		StorePath:      resolve(root, c.Store.Path),
		Scan: scan.Config{
			IgnorePatterns: c.Scan.IgnorePatterns,
			MaxFileSize:    c.Scan.MaxFileSize,
			Workers:        c.Scan.Workers,
		},
		Watch: watcher.Config{
			Debounce:       c.Watch.Debounce,
			MaxBatch:       c.Watch.MaxBatch,
			IgnorePatterns: c.Watch.IgnorePatterns,
			WatchHidden:    c.Watch.WatchHidden,
		},
		Worker: validate.WorkerConfig{
			Workers:      c.Worker.Workers,
			MaxQueueSize: c.Worker.MaxQueueSize,
			RateLimit:    c.Worker.RateLimit,
		},
	}
}

// LogConfig maps the logger section onto the logger package's config.
func (c *Config) LogConfig() logger.Config {
	return logger.Config{
		Level:      c.Logger.Level,
		Format:     c.Logger.Format,
		OutputPath: c.Logger.OutputPath,
		MaxSizeMB:  c.Logger.MaxSizeMB,
		MaxBackups: c.Logger.MaxBackups,
		MaxAgeDays: c.Logger.MaxAgeDays,
		Compress:   c.Logger.Compress,
	}
}

func resolve(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
