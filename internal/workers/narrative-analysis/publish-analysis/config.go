package publishanalysis

import (
	"fmt"
	"time"

	"opportunity-workers/internal/common/config"
)

type Config struct {
	Enabled       bool
	MaxJobsActive int
	Timeout       time.Duration
	Index         string
	NotifyEnabled bool
	TopicARN      string
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30 * time.Second,
		Index:         "opportunity-analyses",
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
	if app.Narrative.Index != "" {
		cfg.Index = app.Narrative.Index
	}
	cfg.NotifyEnabled = app.Integrations.AWS.SNS.Enabled
	cfg.TopicARN = app.Integrations.AWS.SNS.TopicARN
	return cfg
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Index == "" {
		return fmt.Errorf("index is required")
	}
	if c.NotifyEnabled && c.TopicARN == "" {
		return fmt.Errorf("topic_arn is required when notifications are enabled")
	}
	return nil
}
