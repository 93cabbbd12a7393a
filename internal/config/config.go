package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/raphaelgruber/recsys-go/internal/sampler"
	"gopkg.in/yaml.v3"
)

// Provider names an embedding backend.
type Provider string

const (
	ProviderOllama  Provider = "ollama"
	ProviderOpenAI  Provider = "openai"
	ProviderBedrock Provider = "bedrock"
)

// Config holds all configuration values.
type Config struct {
	// Sampling
	DatasetSize sampler.DatasetSize `yaml:"dataset_size" validate:"min=1,max=3"`
	SampleSeed  uint64              `yaml:"sample_seed"`

	// Embedding
	EmbedProvider  Provider `yaml:"embed_provider" validate:"oneof=ollama openai bedrock"`
	EmbedModel     string   `yaml:"embed_model" validate:"required"`
	EmbedDimension int      `yaml:"embed_dimension" validate:"gt=0"`
	EmbedBatchSize int      `yaml:"embed_batch_size" validate:"gt=0"`
	EmbedWorkers   int      `yaml:"embed_workers" validate:"gte=1,lte=64"`
	OllamaHost     string   `yaml:"ollama_host" validate:"required_if=EmbedProvider ollama"`
	OpenAIAPIKey   string   `yaml:"-" validate:"required_if=EmbedProvider openai"`
	AWSRegion      string   `yaml:"aws_region"`

	// Features
	DefaultEpisodes int `yaml:"default_episodes" validate:"gte=0,lte=2147483647"`

	// Files
	DataDir     string `yaml:"data_dir" validate:"required"`
	OutputDir   string `yaml:"output_dir" validate:"required"`
	RatingsFile string `yaml:"ratings_file" validate:"required"`

	// SurrealDB connection
	SurrealDBURL       string `yaml:"surrealdb_url" validate:"required"`
	SurrealDBNamespace string `yaml:"surrealdb_namespace" validate:"required"`
	SurrealDBDatabase  string `yaml:"surrealdb_database" validate:"required"`
	SurrealDBUser      string `yaml:"surrealdb_user"`
	SurrealDBPass      string `yaml:"-"`
	SurrealDBAuthLevel string `yaml:"surrealdb_auth_level" validate:"oneof=root namespace database"`

	// Logging
	LogFile  string     `yaml:"log_file"`
	LogLevel slog.Level `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DatasetSize: sampler.Large,
		SampleSeed:  sampler.DefaultSeed,

		EmbedProvider:  ProviderOllama,
		EmbedModel:     "all-minilm:l6-v2",
		EmbedDimension: 384,
		EmbedBatchSize: 32,
		EmbedWorkers:   1,
		OllamaHost:     "http://localhost:11434",
		AWSRegion:      "us-east-1",

		DefaultEpisodes: 50,

		DataDir:     "data",
		OutputDir:   "output",
		RatingsFile: "animelist.csv",

		SurrealDBURL:       "ws://localhost:8000/rpc",
		SurrealDBNamespace: "recsys",
		SurrealDBDatabase:  "features",
		SurrealDBUser:      "root",
		SurrealDBPass:      "root",
		SurrealDBAuthLevel: "root",

		LogFile:  "/tmp/recsys.log",
		LogLevel: slog.LevelInfo,
	}
}

// Load builds the configuration in layers: defaults, then the YAML file at
// path (if non-empty), then variables from ./.env, then the environment.
// Real environment variables win over .env entries.
func Load(path string) (Config, error) {
	return load(path, ".env")
}

func load(path, dotenvPath string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := readYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	dotenv, err := godotenv.Read(dotenvPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read %s: %w", dotenvPath, err)
	}

	env := envSource{dotenv: dotenv}
	cfg.applyEnv(&env)
	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readYAML(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(env *envSource) {
	env.size("USER_DATASET_SIZE", &c.DatasetSize)
	env.uint("RECSYS_SAMPLE_SEED", &c.SampleSeed)

	c.EmbedProvider = Provider(strings.ToLower(env.get("RECSYS_EMBED_PROVIDER", string(c.EmbedProvider))))
	c.EmbedModel = env.get("FEATURES_EMBEDDING_MODEL_ID", c.EmbedModel)
	env.int("RECSYS_EMBED_DIMENSION", &c.EmbedDimension)
	env.int("RECSYS_EMBED_BATCH_SIZE", &c.EmbedBatchSize)
	env.int("RECSYS_EMBED_WORKERS", &c.EmbedWorkers)
	c.OllamaHost = env.get("OLLAMA_HOST", c.OllamaHost)
	c.OpenAIAPIKey = env.get("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.AWSRegion = env.get("AWS_REGION", c.AWSRegion)

	env.int("RECSYS_DEFAULT_EPISODES", &c.DefaultEpisodes)

	c.DataDir = env.get("RECSYS_DATA_DIR", c.DataDir)
	c.OutputDir = env.get("RECSYS_OUTPUT_DIR", c.OutputDir)
	c.RatingsFile = env.get("RECSYS_RATINGS_FILE", c.RatingsFile)

	c.SurrealDBURL = env.get("SURREALDB_URL", c.SurrealDBURL)
	c.SurrealDBNamespace = env.get("SURREALDB_NAMESPACE", c.SurrealDBNamespace)
	c.SurrealDBDatabase = env.get("SURREALDB_DATABASE", c.SurrealDBDatabase)
	c.SurrealDBUser = env.get("SURREALDB_USER", c.SurrealDBUser)
	c.SurrealDBPass = env.get("SURREALDB_PASS", c.SurrealDBPass)
	c.SurrealDBAuthLevel = env.get("SURREALDB_AUTH_LEVEL", c.SurrealDBAuthLevel)

	c.LogFile = env.get("RECSYS_LOG_FILE", c.LogFile)
	if v := env.get("RECSYS_LOG_LEVEL", ""); v != "" {
		c.LogLevel = parseLogLevel(v)
	}
}

// envSource resolves variables from the process environment first and the
// .env file second, collecting parse errors.
type envSource struct {
	dotenv map[string]string
	errs   []error
}

func (e *envSource) get(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val := e.dotenv[key]; val != "" {
		return val
	}
	return defaultVal
}

func (e *envSource) int(key string, dst *int) {
	v := e.get(key, "")
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envSource) uint(key string, dst *uint64) {
	v := e.get(key, "")
	if v == "" {
		return
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid unsigned integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envSource) size(key string, dst *sampler.DatasetSize) {
	v := e.get(key, "")
	if v == "" {
		return
	}
	size, err := sampler.ParseDatasetSize(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return
	}
	*dst = size
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
