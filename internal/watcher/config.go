package watcher

import "time"

// Config tunes watch mode.
type Config struct {
	Debounce       time.Duration `json:"debounce"`
	MaxBatch       int           `json:"max_batch"`
	IgnorePatterns []string      `json:"ignore_patterns"`
	WatchHidden    bool          `json:"watch_hidden"`
}

func DefaultConfig() Config {
	return Config{
		Debounce: 300 * time.Millisecond,
		MaxBatch: 100,
		IgnorePatterns: []string{
			"**/.git/**",
			"**/.stratum/**",
			"**/node_modules/**",
			"**/vendor/**",
			"**/dist/**",
			"**/build/**",
			"**/__pycache__/**",
			"**/.venv/**",
			"**/*.log",
		},
		WatchHidden: false,
	}
}
