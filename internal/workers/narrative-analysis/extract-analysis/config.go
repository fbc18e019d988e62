package extractanalysis

import (
	"fmt"
	"time"

	"opportunity-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	PromptID      string
	CacheTTL      time.Duration
	CachePrefix   string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       3 * time.Minute,
		PromptID:      "opportunity-analysis",
		CacheTTL:      time.Hour,
		CachePrefix:   "narrative:analysis:",
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
	if app.Prompts.AnalysisPromptID != "" {
		cfg.PromptID = app.Prompts.AnalysisPromptID
	}
	if app.Narrative.CacheTTL > 0 {
		cfg.CacheTTL = time.Duration(app.Narrative.CacheTTL) * time.Second
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
	if c.PromptID == "" {
		return fmt.Errorf("analysis prompt id is required")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}
	return nil
}
