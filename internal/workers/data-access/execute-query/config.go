// internal/workers/data-access/execute-query/config.go
package executequery

import (
	"fmt"
	"time"

	"opportunity-workers/internal/common/config"
)

// DefaultMaxResultBytes is the serialized result size above which a warning is logged.
const DefaultMaxResultBytes = 1 << 20

type Config struct {
	Enabled        bool
	MaxJobsActive  int
	Timeout        time.Duration
	MaxResultBytes int
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        30 * time.Second,
		MaxResultBytes: DefaultMaxResultBytes,
	}
}

func ConfigFromApp(app *config.Config) *Config {
	cfg := DefaultConfig()
	if app == nil {
		return cfg
	}
	wc := config.GetWorkerConfig(app, TaskType)
	cfg.Enabled = wc.Enabled
	if wc.MaxJobsActive > 0 {
		cfg.MaxJobsActive = wc.MaxJobsActive
	}
	if wc.Timeout > 0 {
		cfg.Timeout = config.GetDuration(wc.Timeout)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	return nil
}
