// Package config loads pushkit configuration from a TOML file with
// environment overrides.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/penhub/pushkit/pkg/registry"
)

// Config is the full pushkit configuration.
type Config struct {
	Registry RegistryConfig `toml:"registry"`
	Agent    AgentConfig    `toml:"agent"`
}

// RegistryConfig configures the registry server.
type RegistryConfig struct {
	Addr            string                 `toml:"addr"`
	JWTSecret       string                 `toml:"jwt_secret"`
	VAPIDPublicKey  string                 `toml:"vapid_public_key"`
	VAPIDPrivateKey string                 `toml:"vapid_private_key"`
	VAPIDContact    string                 `toml:"vapid_contact"`
	JanitorSchedule string                 `toml:"janitor_schedule"`
	Storage         registry.StorageConfig `toml:"storage"`
}

// AgentConfig configures the device agent.
type AgentConfig struct {
	RegistryURL string `toml:"registry_url"`
	Token       string `toml:"token"`
	// ServerKey is the registry's VAPID public key, the fixed server
	// identity used when requesting platform subscriptions.
	ServerKey string `toml:"server_key"`
	StateDir  string `toml:"state_dir"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Registry: RegistryConfig{
			Addr:            ":8090",
			JanitorSchedule: "@hourly",
			Storage:         registry.StorageConfig{Type: "memory"},
		},
		Agent: AgentConfig{
			RegistryURL: "http://localhost:8090",
			StateDir:    defaultStateDir(),
		},
	}
}

// LoadConfig reads path (when non-empty) over the defaults and then
// applies environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets deployment environments override file values without
// rewriting the file. Secrets in particular arrive this way.
func applyEnv(cfg *Config) {
	setIfPresent := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setIfPresent(&cfg.Registry.Addr, "PUSHKIT_ADDR")
	setIfPresent(&cfg.Registry.JWTSecret, "PUSHKIT_JWT_SECRET")
	setIfPresent(&cfg.Registry.VAPIDPublicKey, "PUSHKIT_VAPID_PUBLIC_KEY")
	setIfPresent(&cfg.Registry.VAPIDPrivateKey, "PUSHKIT_VAPID_PRIVATE_KEY")
	setIfPresent(&cfg.Registry.VAPIDContact, "PUSHKIT_VAPID_CONTACT")
	setIfPresent(&cfg.Registry.JanitorSchedule, "PUSHKIT_JANITOR_SCHEDULE")
	setIfPresent(&cfg.Registry.Storage.Type, "PUSHKIT_STORAGE_TYPE")
	setIfPresent(&cfg.Registry.Storage.Path, "PUSHKIT_STORAGE_PATH")
	setIfPresent(&cfg.Registry.Storage.Bucket, "PUSHKIT_STORAGE_BUCKET")
	setIfPresent(&cfg.Registry.Storage.Region, "PUSHKIT_STORAGE_REGION")
	setIfPresent(&cfg.Agent.RegistryURL, "PUSHKIT_REGISTRY_URL")
	setIfPresent(&cfg.Agent.Token, "PUSHKIT_TOKEN")
	setIfPresent(&cfg.Agent.ServerKey, "PUSHKIT_SERVER_KEY")
	setIfPresent(&cfg.Agent.StateDir, "PUSHKIT_STATE_DIR")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.pushkit"
	}
	return home + "/.pushkit"
}
