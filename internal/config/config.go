package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines server and engine configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	DB     DBConfig     `yaml:"db"`
	Log    LogConfig    `yaml:"log"`
	Engine EngineConfig `yaml:"engine"`
	Push   PushConfig   `yaml:"push"`
	Remote RemoteConfig `yaml:"remote"`
}

// ServerConfig configures the HTTP listener. An empty APIToken disables
// authentication.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	APIToken string `yaml:"api_token"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// EngineConfig tunes the editing controllers.
type EngineConfig struct {
	SuppressWindow     time.Duration `yaml:"suppress_window"`
	UploadConcurrency  int           `yaml:"upload_concurrency"`
	MaxAttachmentBytes int64         `yaml:"max_attachment_bytes"`
}

type PushConfig struct {
	Buffer int `yaml:"buffer"`
}

// RemoteConfig points the MCP server at a running HTTP server instead of a local
// database.
type RemoteConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "tasksync.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Engine: EngineConfig{
			SuppressWindow:     2 * time.Second,
			UploadConcurrency:  4,
			MaxAttachmentBytes: 10 << 20,
		},
		Push: PushConfig{
			Buffer: 16,
		},
		Remote: RemoteConfig{
			Timeout: 30 * time.Second,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("TASKSYNC_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if host := os.Getenv("TASKSYNC_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("TASKSYNC_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKSYNC_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if token := os.Getenv("TASKSYNC_API_TOKEN"); token != "" {
		cfg.Server.APIToken = token
	}
	if dbPath := os.Getenv("TASKSYNC_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("TASKSYNC_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if window := os.Getenv("TASKSYNC_SUPPRESS_WINDOW"); window != "" {
		d, err := time.ParseDuration(window)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKSYNC_SUPPRESS_WINDOW: %w", err)
		}
		cfg.Engine.SuppressWindow = d
	}
	if n := os.Getenv("TASKSYNC_UPLOAD_CONCURRENCY"); n != "" {
		v, err := strconv.Atoi(n)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKSYNC_UPLOAD_CONCURRENCY: %w", err)
		}
		cfg.Engine.UploadConcurrency = v
	}
	if url := os.Getenv("TASKSYNC_REMOTE_URL"); url != "" {
		cfg.Remote.URL = url
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c Config) Validate() error {
	if c.Engine.SuppressWindow <= 0 {
		return fmt.Errorf("engine.suppress_window must be positive")
	}
	if c.Engine.UploadConcurrency <= 0 {
		return fmt.Errorf("engine.upload_concurrency must be positive")
	}
	if c.Engine.MaxAttachmentBytes <= 0 {
		return fmt.Errorf("engine.max_attachment_bytes must be positive")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
