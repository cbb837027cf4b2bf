// Package config loads the application settings: pipeline extension sets
// and model names, checkpoint store backends, archival index and sweep
// schedule. Settings come from a yaml file with environment overrides for
// connection strings.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chatgraph-go/chatgraph/agent"
)

// Config is the root settings object.
type Config struct {
	Agent      AgentConfig      `yaml:"agent"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Archive    ArchiveConfig    `yaml:"archive"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// AgentConfig configures the conversational pipeline.
type AgentConfig struct {
	// AudioExtensions route to voice transcription.
	AudioExtensions []string `yaml:"audio_extensions"`
	// DocumentExtensions the parser accepts; informational, the registered
	// extractors decide what is actually handled.
	DocumentExtensions []string `yaml:"document_extensions"`
	// Model name passed to the chat completion collaborator.
	Model string `yaml:"model"`
	// AudioModel name passed to the transcription collaborator.
	AudioModel string `yaml:"audio_model"`
	// Temperature for completions.
	Temperature float64 `yaml:"temperature"`
	// RetrievalLimit bounds context documents per query.
	RetrievalLimit int `yaml:"retrieval_limit"`
	// UserDataQuery is run by the analyzer to load the user profile.
	UserDataQuery string `yaml:"user_data_query"`
	// RecursionLimit caps graph steps per run. Zero keeps the engine default.
	RecursionLimit int `yaml:"recursion_limit"`
}

// CheckpointConfig selects and configures the checkpoint store.
type CheckpointConfig struct {
	// Backend is one of "memory", "sqlite", "postgres".
	Backend string `yaml:"backend"`
	// SqlitePath is the database file for the sqlite backend.
	SqlitePath string `yaml:"sqlite_path"`
	// PostgresDSN is the connection string for the postgres backend.
	// Overridable via CHATGRAPH_POSTGRES_DSN.
	PostgresDSN string `yaml:"postgres_dsn"`
	// MinConns and MaxConns bound the postgres pool.
	MinConns int32 `yaml:"min_conns"`
	MaxConns int32 `yaml:"max_conns"`
}

// ArchiveConfig configures the archival index and the daily sweep.
type ArchiveConfig struct {
	// RedisAddr is the index address. Overridable via CHATGRAPH_REDIS_ADDR.
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	// KeyPrefix scopes all index keys.
	KeyPrefix string `yaml:"key_prefix"`
	// SweepHour and SweepMinute set the daily trigger, local time.
	SweepHour   int `yaml:"sweep_hour"`
	SweepMinute int `yaml:"sweep_minute"`
	// GraceWindow permits a delayed trigger without skipping the day.
	GraceWindow Duration `yaml:"grace_window"`
	// RatePerSecond bounds index pushes during the sweep. Zero disables the
	// limiter.
	RatePerSecond float64 `yaml:"rate_per_second"`
	RateBurst     int     `yaml:"rate_burst"`
}

// Duration is a time.Duration that unmarshals from yaml strings like "30m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// Format is "text" or "json".
	Format string `yaml:"format"`
}

// Default returns the settings used when no file is supplied.
func Default() *Config {
	return &Config{
		Agent: AgentConfig{
			AudioExtensions:    append([]string(nil), agent.DefaultAudioExtensions...),
			DocumentExtensions: append([]string(nil), agent.DefaultDocumentExtensions...),
			Model:              "qwen/qwen3-32b",
			AudioModel:         "whisper-large-v3",
			Temperature:        0.7,
			RetrievalLimit:     5,
		},
		Checkpoint: CheckpointConfig{
			Backend:    "memory",
			SqlitePath: "chatgraph.db",
			MinConns:   1,
			MaxConns:   10,
		},
		Archive: ArchiveConfig{
			RedisAddr:   "localhost:6379",
			KeyPrefix:   "archive",
			SweepHour:   9,
			SweepMinute: 15,
			GraceWindow: Duration(time.Hour),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads settings from a yaml file on top of the defaults, then applies
// environment overrides. An empty path loads defaults and overrides only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if dsn := os.Getenv("CHATGRAPH_POSTGRES_DSN"); dsn != "" {
		c.Checkpoint.PostgresDSN = dsn
	}
	if addr := os.Getenv("CHATGRAPH_REDIS_ADDR"); addr != "" {
		c.Archive.RedisAddr = addr
	}
	if path := os.Getenv("CHATGRAPH_SQLITE_PATH"); path != "" {
		c.Checkpoint.SqlitePath = path
	}
}

// Validate checks the settings for internal consistency.
func (c *Config) Validate() error {
	switch c.Checkpoint.Backend {
	case "memory":
	case "sqlite":
		if c.Checkpoint.SqlitePath == "" {
			return fmt.Errorf("checkpoint.sqlite_path is required for the sqlite backend")
		}
	case "postgres":
		if c.Checkpoint.PostgresDSN == "" {
			return fmt.Errorf("checkpoint.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown checkpoint backend: %s", c.Checkpoint.Backend)
	}

	if c.Archive.SweepHour < 0 || c.Archive.SweepHour > 23 {
		return fmt.Errorf("archive.sweep_hour out of range: %d", c.Archive.SweepHour)
	}
	if c.Archive.SweepMinute < 0 || c.Archive.SweepMinute > 59 {
		return fmt.Errorf("archive.sweep_minute out of range: %d", c.Archive.SweepMinute)
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Logging.Level)
	}
	return nil
}
