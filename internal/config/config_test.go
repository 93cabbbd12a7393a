package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/raphaelgruber/recsys-go/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"USER_DATASET_SIZE", "RECSYS_SAMPLE_SEED", "RECSYS_EMBED_PROVIDER",
		"FEATURES_EMBEDDING_MODEL_ID", "RECSYS_EMBED_DIMENSION", "RECSYS_EMBED_BATCH_SIZE",
		"RECSYS_EMBED_WORKERS", "OLLAMA_HOST", "OPENAI_API_KEY", "AWS_REGION",
		"RECSYS_DEFAULT_EPISODES", "RECSYS_DATA_DIR", "RECSYS_OUTPUT_DIR", "RECSYS_RATINGS_FILE",
		"SURREALDB_URL", "SURREALDB_NAMESPACE", "SURREALDB_DATABASE", "SURREALDB_USER",
		"SURREALDB_PASS", "SURREALDB_AUTH_LEVEL", "RECSYS_LOG_FILE", "RECSYS_LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := load("", filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
	assert.Equal(t, sampler.Large, cfg.DatasetSize)
	assert.Equal(t, "all-minilm:l6-v2", cfg.EmbedModel)
	assert.Equal(t, 32, cfg.EmbedBatchSize)
	assert.Equal(t, 50, cfg.DefaultEpisodes)
	assert.Equal(t, uint64(42), cfg.SampleSeed)
}

func TestLoadLayers(t *testing.T) {
	clearEnv(t)

	yamlPath := writeFile(t, "recsys.yaml", `
dataset_size: small
embed_batch_size: 16
data_dir: /srv/anime
log_level: DEBUG
`)
	dotenv := writeFile(t, ".env", "RECSYS_EMBED_BATCH_SIZE=8\nRECSYS_OUTPUT_DIR=/from/dotenv\nUSER_DATASET_SIZE=MEDIUM\n")
	t.Setenv("RECSYS_OUTPUT_DIR", "/from/env")

	cfg, err := load(yamlPath, dotenv)
	require.NoError(t, err)

	assert.Equal(t, sampler.Medium, cfg.DatasetSize, ".env overrides yaml")
	assert.Equal(t, 8, cfg.EmbedBatchSize, ".env overrides yaml")
	assert.Equal(t, "/srv/anime", cfg.DataDir, "yaml overrides default")
	assert.Equal(t, "/from/env", cfg.OutputDir, "environment overrides .env")
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadRejectsUnknownYAMLKeys(t *testing.T) {
	clearEnv(t)

	_, err := load(writeFile(t, "bad.yaml", "dataset_sise: SMALL\n"), "")
	assert.ErrorContains(t, err, "dataset_sise")
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad size", map[string]string{"USER_DATASET_SIZE": "HUGE"}, "USER_DATASET_SIZE"},
		{"bad integer", map[string]string{"RECSYS_EMBED_BATCH_SIZE": "many"}, "RECSYS_EMBED_BATCH_SIZE"},
		{"zero batch", map[string]string{"RECSYS_EMBED_BATCH_SIZE": "0"}, "EmbedBatchSize must be greater than 0"},
		{"unknown provider", map[string]string{"RECSYS_EMBED_PROVIDER": "cohere"}, "EmbedProvider must be one of"},
		{"openai without key", map[string]string{"RECSYS_EMBED_PROVIDER": "OpenAI"}, "OpenAIAPIKey is required"},
		{"negative episodes", map[string]string{"RECSYS_DEFAULT_EPISODES": "-1"}, "DefaultEpisodes must be at least 0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := load("", "")
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	cfg.EmbedWorkers = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DataDir is required")
	assert.Contains(t, err.Error(), "EmbedWorkers must be at least 1")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"Error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLogLevel(tt.in), tt.in)
	}
}

func TestNewLoggerFansOut(t *testing.T) {
	var console, sink bytes.Buffer
	logger := NewLogger(&console, &sink, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("stage done", "stage", "anime", "rows", 3)

	assert.Contains(t, console.String(), "stage=anime")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, sink.String(), `"stage":"anime"`)
	assert.Contains(t, sink.String(), `"rows":3`)
}

func TestSetupLoggerWritesFile(t *testing.T) {
	cfg := Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "recsys.log")

	var console bytes.Buffer
	logger, cleanup := SetupLogger(cfg, &console)
	logger.Info("hello", "run_id", "abc")
	require.NoError(t, cleanup())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"run_id":"abc"`)
	assert.Contains(t, console.String(), "run_id=abc")
}

func TestSetupLoggerFallsBackToConsole(t *testing.T) {
	cfg := Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "missing", "dir", "recsys.log")

	var console bytes.Buffer
	logger, cleanup := SetupLogger(cfg, &console)
	logger.Info("still logging")

	assert.NoError(t, cleanup())
	assert.Contains(t, console.String(), "failed to open log file")
	assert.Contains(t, console.String(), "still logging")
}
