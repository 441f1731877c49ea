package config

import "strings"

type Config struct {
	Server     ServerConfig
	Completion CompletionConfig
	Channel    ChannelConfig
	Storage    StorageConfig
	Log        LogConfig
}

type ServerConfig struct {
	Port       int
	MCPEnabled bool
}

// CompletionConfig selects the completion service and its credential source:
// either a static API key, or an OAuth2 client-credentials token endpoint.
// Both may be absent; the bot then reports the missing credential per turn
// instead of refusing to start.
type CompletionConfig struct {
	BaseURL      string
	Deployment   string
	APIKey       string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
}

type ChannelConfig struct {
	Secret string
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:       3978,
			MCPEnabled: true,
		},
		Completion: CompletionConfig{
			BaseURL:    "https://api.openai.com/v1",
			Deployment: "gpt-4o-mini",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and the platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.personabot.app) and
// secrets fall back to macOS Keychain. On Linux the backend is a JSON file
// at $XDG_CONFIG_HOME/personabot/config.json and secrets fall back to a
// local secrets file.
//
// Environment variables (PERSONABOT_*) override backend values on all
// platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), NewKeychain())
}

// secretReader is the read side of the secret store, abstracted for testing.
type secretReader interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc secretReader) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	// The secret store fills whatever secrets the env vars left empty.
	if cfg.Completion.APIKey == "" {
		if v, err := kc.Get(keychainService, accountAPIKey); err == nil {
			cfg.Completion.APIKey = strings.TrimSpace(v)
		}
	}
	if cfg.Completion.ClientSecret == "" {
		if v, err := kc.Get(keychainService, accountClientSecret); err == nil {
			cfg.Completion.ClientSecret = strings.TrimSpace(v)
		}
	}
	if cfg.Channel.Secret == "" {
		if v, err := kc.Get(keychainService, accountChannelSecret); err == nil {
			cfg.Channel.Secret = strings.TrimSpace(v)
		}
	}

	return cfg, nil
}
