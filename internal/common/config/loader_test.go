package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
app:
  name: opportunity-workers
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: opportunities
    password: ${TEST_DB_PASSWORD}
  redis:
    address: localhost:6379
integrations:
  aws:
    bedrock:
      model_id: anthropic.claude-3-5-sonnet-20240620-v1:0
workers:
  synthesize-query:
    enabled: true
  execute-query:
    enabled: false
    timeout: 60000
`

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

// ==========================
// LoadFromFile
// ==========================

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "s3cret")
	t.Setenv("AWS_REGION", "")
	path := writeConfig(t, t.TempDir(), "config.yaml", baseYAML)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, "us-east-1", cfg.Integrations.AWS.Region)
	assert.Equal(t, 6144, cfg.Integrations.AWS.Bedrock.MaxTokens)
	assert.Equal(t, 3, cfg.LLM.MaxAttempts)
	assert.Equal(t, 2000, cfg.LLM.BaseDelayMs)
	assert.Equal(t, "query-synthesis", cfg.Prompts.SynthesisPromptID)
	assert.Equal(t, 200, cfg.Synthesis.QueryLimit)
	assert.Equal(t, 15, cfg.Synthesis.RelevanceFloor)
	assert.Equal(t, "parquet", cfg.Synthesis.SourceTable)
	assert.Equal(t, "opportunity-analyses", cfg.Narrative.Index)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile_Workers(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yaml", baseYAML)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	synth := GetWorkerConfig(cfg, "synthesize-query")
	assert.True(t, synth.Enabled)
	assert.Equal(t, 5, synth.MaxJobsActive)
	assert.Equal(t, 30000, synth.Timeout)

	exec := GetWorkerConfig(cfg, "execute-query")
	assert.False(t, exec.Enabled)
	assert.Equal(t, 60*time.Second, GetDuration(exec.Timeout))

	assert.True(t, IsWorkerEnabled(cfg, "publish-analysis"))
	assert.False(t, IsWorkerEnabled(cfg, "execute-query"))
	assert.Equal(t, 3, GetWorkerConfig(cfg, "unknown").MaxRetries)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	const required = "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n  redis:\n    address: r\n"

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{
			name:   "missing broker",
			body:   "database:\n  postgres:\n    host: h\n",
			errMsg: "camunda.broker_address is required",
		},
		{
			name:   "missing model",
			body:   required,
			errMsg: "integrations.aws.bedrock.model_id is required",
		},
		{
			name:   "sns without topic",
			body:   required + "integrations:\n  aws:\n    bedrock:\n      model_id: m\n    sns:\n      enabled: true\n",
			errMsg: "integrations.aws.sns.topic_arn is required",
		},
		{
			name:   "sample ratio out of range",
			body:   required + "integrations:\n  aws:\n    bedrock:\n      model_id: m\ntracing:\n  sample_ratio: 2\n",
			errMsg: "tracing.sample_ratio must be between 0 and 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.yaml", tt.body)
			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// ==========================
// Load with environment overlay
// ==========================

func TestLoad_EnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "configs"), 0o755))
	writeConfig(t, filepath.Join(dir, "configs"), "config.yaml", baseYAML)
	writeConfig(t, filepath.Join(dir, "configs"), "config.staging.yaml", "synthesis:\n  query_limit: 50\nlogging:\n  level: debug\n")

	t.Chdir(dir)
	t.Setenv("APP_ENVIRONMENT", "staging")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Synthesis.QueryLimit)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "localhost:26500", cfg.Camunda.BrokerAddress)
}

func TestGetDSN(t *testing.T) {
	p := PostgresConfig{Host: "h", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=h port=5432 user=u password=p dbname=d sslmode=disable", p.GetDSN())
}
