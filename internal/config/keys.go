package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "storage.data_dir", typ: kString, env: "STUDYHUB_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "session.user_id", typ: kString, env: "STUDYHUB_SESSION_USER_ID",
		apply:   func(cfg *Config, v any) { cfg.Session.UserID = v.(string) },
		extract: func(cfg Config) any { return cfg.Session.UserID },
	},
	{
		key: "remote.dynamodb_table", typ: kString, env: "STUDYHUB_REMOTE_DYNAMODB_TABLE",
		apply:   func(cfg *Config, v any) { cfg.Remote.DynamoDBTable = v.(string) },
		extract: func(cfg Config) any { return cfg.Remote.DynamoDBTable },
	},
	{
		key: "remote.region", typ: kString, env: "STUDYHUB_REMOTE_REGION",
		apply:   func(cfg *Config, v any) { cfg.Remote.Region = v.(string) },
		extract: func(cfg Config) any { return cfg.Remote.Region },
	},
	{
		key: "remote.endpoint", typ: kString, env: "STUDYHUB_REMOTE_ENDPOINT",
		apply:   func(cfg *Config, v any) { cfg.Remote.Endpoint = v.(string) },
		extract: func(cfg Config) any { return cfg.Remote.Endpoint },
	},
	{
		key: "ai.backend", typ: kString, env: "STUDYHUB_AI_BACKEND",
		apply:   func(cfg *Config, v any) { cfg.AI.Backend = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.Backend },
	},
	{
		key: "ai.endpoint_url", typ: kString, env: "STUDYHUB_AI_ENDPOINT_URL",
		apply:   func(cfg *Config, v any) { cfg.AI.EndpointURL = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.EndpointURL },
	},
	{
		key: "ai.api_key", typ: kString, env: "STUDYHUB_AI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.AI.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.AI.APIKey },
	},
	{
		key: "ai.timeout", typ: kDuration, env: "STUDYHUB_AI_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.AI.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.AI.Timeout },
	},
	{
		key: "ollama.base_url", typ: kString, env: "STUDYHUB_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "STUDYHUB_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "autosave.interval", typ: kDuration, env: "STUDYHUB_AUTOSAVE_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Autosave.Interval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Autosave.Interval },
	},
	{
		key: "server.port", typ: kInt, env: "STUDYHUB_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "log.level", typ: kString, env: "STUDYHUB_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("invalid duration for config key %s: %w", s.key, err)
				}
				s.apply(cfg, d)
			}
		}
	}
	return nil
}

// applyEnvOverrides applies STUDYHUB_* variables. A malformed integer is
// skipped with a warning; a malformed duration is an error.
func applyEnvOverrides(cfg *Config) error {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("invalid duration in env var %s: %w", s.env, err)
			}
			s.apply(cfg, d)
		}
	}
	return nil
}
