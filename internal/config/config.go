package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"olpipeline/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrUnknownDestination = errors.New("unknown destination")

// DefaultConfigFile is read when PIPELINE_CONFIG is unset. It is optional.
const DefaultConfigFile = ".dlt/config.toml"

type Config struct {
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Source      SourceConfig      `mapstructure:"source"`
	Destination DestinationConfig `mapstructure:"destination"`
	Reader      ReaderConfig      `mapstructure:"reader"`
	API         APIConfig         `mapstructure:"api"`
}

type PipelineConfig struct {
	Name         string `mapstructure:"name" validate:"required"`
	DatasetName  string `mapstructure:"dataset_name"`
	PipelinesDir string `mapstructure:"pipelines_dir"`
	SchemaName   string `mapstructure:"schema_name" validate:"required"`
	Table        string `mapstructure:"table" validate:"required"`
}

type SourceConfig struct {
	BaseURL           string `mapstructure:"base_url" validate:"required,url"`
	Query             string `mapstructure:"query" validate:"required"`
	Limit             int    `mapstructure:"limit" validate:"min=1,max=100"`
	UserAgent         string `mapstructure:"user_agent" validate:"required"`
	RequestsPerSecond int    `mapstructure:"requests_per_second" validate:"min=1"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"min=0,max=10"`
}

type DestinationConfig struct {
	Type     string         `mapstructure:"type"`
	DuckDB   DuckDBConfig   `mapstructure:"duckdb"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type DuckDBConfig struct {
	Path string `mapstructure:"path"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

type ReaderConfig struct {
	TopN int `mapstructure:"top_n" validate:"min=1,max=100"`
}

type APIConfig struct {
	Addr           string   `mapstructure:"addr" validate:"required"`
	RateLimitRPS   float64  `mapstructure:"rate_limit_rps" validate:"gt=0"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst" validate:"min=1"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.name", "open_library_pipeline")
	v.SetDefault("pipeline.dataset_name", "")
	v.SetDefault("pipeline.pipelines_dir", "")
	v.SetDefault("pipeline.schema_name", "open_library")
	v.SetDefault("pipeline.table", "books")

	v.SetDefault("source.base_url", "https://openlibrary.org/")
	v.SetDefault("source.query", "python programming")
	v.SetDefault("source.limit", 100)
	v.SetDefault("source.user_agent", "olpipeline/0.1")
	v.SetDefault("source.requests_per_second", 1)
	v.SetDefault("source.max_retries", 3)

	v.SetDefault("destination.type", store.DuckDB)
	v.SetDefault("destination.duckdb.path", "")
	v.SetDefault("destination.postgres.dsn", "")

	v.SetDefault("reader.top_n", 10)

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.rate_limit_rps", 10)
	v.SetDefault("api.rate_limit_burst", 20)
	v.SetDefault("api.allowed_origins", []string{})
}

// LoadEnvFiles reads .env and .env.local. Variables already set in the
// environment win.
func LoadEnvFiles() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")
}

// Load layers defaults, the TOML config file and the environment, then fills
// derived values and validates the result.
func Load() (*Config, error) {
	path, explicit := os.Getenv("PIPELINE_CONFIG"), true
	if path == "" {
		path, explicit = DefaultConfigFile, false
	}
	return LoadFile(path, explicit)
}

// LoadFile is Load with an explicit config path. A missing file is an error only
// when required is set.
func LoadFile(path string, required bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if required {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.fillDerived(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) fillDerived() error {
	if c.Pipeline.DatasetName == "" {
		c.Pipeline.DatasetName = c.Pipeline.Name + "_dataset"
	}
	if c.Destination.DuckDB.Path == "" {
		c.Destination.DuckDB.Path = c.Pipeline.Name + ".duckdb"
	}
	if c.Pipeline.PipelinesDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolve pipelines dir: %w", err)
		}
		c.Pipeline.PipelinesDir = filepath.Join(home, ".dlt", "pipelines")
	}
	return nil
}

var validate = validator.New()

func (c *Config) Validate() error {
	switch c.Destination.Type {
	case store.DuckDB:
	case store.Postgres:
		if c.Destination.Postgres.DSN == "" {
			return errors.New("invalid config: destination.postgres.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDestination, c.Destination.Type)
	}
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// StoreOptions returns the destination settings for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Destination: c.Destination.Type,
		DuckDBPath:  c.Destination.DuckDB.Path,
		PostgresDSN: c.Destination.Postgres.DSN,
		Dataset:     c.Pipeline.DatasetName,
	}
}
