package config

import (
	"fmt"
	"time"
)

// AI backends understood by ai.backend.
const (
	BackendEndpoint = "endpoint"
	BackendOllama   = "ollama"
)

type Config struct {
	Storage  StorageConfig
	Session  SessionConfig
	Remote   RemoteConfig
	AI       AIConfig
	Ollama   OllamaConfig
	Autosave AutosaveConfig
	Server   ServerConfig
	Log      LogConfig
}

type StorageConfig struct {
	DataDir string
}

// SessionConfig identifies the signed-in user. An empty UserID means nobody
// is signed in and sends fail with ErrNoActiveContext.
type SessionConfig struct {
	UserID string
}

// RemoteConfig selects the authoritative message store. An empty table keeps
// messages local only.
type RemoteConfig struct {
	DynamoDBTable string
	Region        string
	Endpoint      string
}

type AIConfig struct {
	Backend     string
	EndpointURL string
	APIKey      string
	Timeout     time.Duration
}

type OllamaConfig struct {
	BaseURL string
	Model   string
}

type AutosaveConfig struct {
	Interval time.Duration
}

type ServerConfig struct {
	Port int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Remote: RemoteConfig{
			Region: "us-east-1",
		},
		AI: AIConfig{
			Backend:     BackendEndpoint,
			EndpointURL: "http://localhost:4000/v1/respond",
			Timeout:     30 * time.Second,
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.2",
		},
		Autosave: AutosaveConfig{
			Interval: time.Second,
		},
		Server: ServerConfig{
			Port: 4000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/studyhub/config.json, then applies environment variables
// (STUDYHUB_*), which override file values. Secrets are read from the
// environment only.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.AI.Backend {
	case BackendEndpoint:
		if c.AI.EndpointURL == "" {
			return fmt.Errorf("invalid config: ai.endpoint_url is required when ai.backend is %q", BackendEndpoint)
		}
	case BackendOllama:
		if c.Ollama.Model == "" {
			return fmt.Errorf("invalid config: ollama.model is required when ai.backend is %q", BackendOllama)
		}
	default:
		return fmt.Errorf("invalid config: ai.backend must be %q or %q, got %q", BackendEndpoint, BackendOllama, c.AI.Backend)
	}
	if c.AI.Timeout < 0 {
		return fmt.Errorf("invalid config: ai.timeout must not be negative")
	}
	if c.Autosave.Interval <= 0 {
		return fmt.Errorf("invalid config: autosave.interval must be positive")
	}
	return nil
}
