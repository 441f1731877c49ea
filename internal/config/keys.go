package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
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
		key: "server.port", typ: kInt, env: "PERSONABOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_enabled", typ: kBool, env: "PERSONABOT_SERVER_MCP_ENABLED",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPEnabled = v.(bool) },
		extract: func(cfg Config) any { return cfg.Server.MCPEnabled },
	},
	{
		key: "completion.base_url", typ: kString, env: "PERSONABOT_COMPLETION_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Completion.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.BaseURL },
	},
	{
		key: "completion.deployment", typ: kString, env: "PERSONABOT_COMPLETION_DEPLOYMENT",
		apply:   func(cfg *Config, v any) { cfg.Completion.Deployment = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Deployment },
	},
	{
		key: "completion.api_key", typ: kString, env: "PERSONABOT_COMPLETION_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Completion.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.APIKey },
	},
	{
		key: "completion.token_url", typ: kString, env: "PERSONABOT_COMPLETION_TOKEN_URL",
		apply:   func(cfg *Config, v any) { cfg.Completion.TokenURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.TokenURL },
	},
	{
		key: "completion.client_id", typ: kString, env: "PERSONABOT_COMPLETION_CLIENT_ID",
		apply:   func(cfg *Config, v any) { cfg.Completion.ClientID = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.ClientID },
	},
	{
		key: "completion.client_secret", typ: kString, env: "PERSONABOT_COMPLETION_CLIENT_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Completion.ClientSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.ClientSecret },
	},
	{
		key: "completion.scope", typ: kString, env: "PERSONABOT_COMPLETION_SCOPE",
		apply:   func(cfg *Config, v any) { cfg.Completion.Scope = v.(string) },
		extract: func(cfg Config) any { return cfg.Completion.Scope },
	},
	{
		key: "channel.secret", typ: kString, env: "PERSONABOT_CHANNEL_SECRET",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Channel.Secret = v.(string) },
		extract: func(cfg Config) any { return cfg.Channel.Secret },
	},
	{
		key: "storage.data_dir", typ: kString, env: "PERSONABOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "PERSONABOT_LOG_LEVEL",
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
		case kBool:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if bv, err := strconv.ParseBool(v); err == nil {
					s.apply(cfg, bv)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
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
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
