package synthesizequery

import (
	"fmt"
	"time"

	"opportunity-workers/internal/common/config"
)

type Config struct {
	Enabled        bool
	MaxJobsActive  int
	Timeout        time.Duration
	PromptID       string
	QueryLimit     int
	RelevanceFloor int
	SourceTable    string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        2 * time.Minute,
		PromptID:       "query-synthesis",
		QueryLimit:     200,
		RelevanceFloor: 15,
		SourceTable:    "parquet",
	}
}

// ConfigFromApp overlays the worker and synthesis sections of the application
// config on DefaultConfig.
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
	if app.Prompts.SynthesisPromptID != "" {
		cfg.PromptID = app.Prompts.SynthesisPromptID
	}
	if app.Synthesis.QueryLimit > 0 {
		cfg.QueryLimit = app.Synthesis.QueryLimit
	}
	if app.Synthesis.RelevanceFloor > 0 {
		cfg.RelevanceFloor = app.Synthesis.RelevanceFloor
	}
	if app.Synthesis.SourceTable != "" {
		cfg.SourceTable = app.Synthesis.SourceTable
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
		return fmt.Errorf("prompt id is required")
	}
	if c.QueryLimit <= 0 {
		return fmt.Errorf("query_limit must be positive")
	}
	return nil
}
