package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// signalingURIEnv mirrors the reference client's Android system property
// "debug.electric_maple.websocket_uri": on this platform an environment
// variable is the equivalent override mechanism, read once at startup
// rather than polled for up to 5s.
const signalingURIEnv = "DEBUG_ELECTRIC_MAPLE_WEBSOCKET_URI"

// Config is the XR client's configuration.
type Config struct {
	Service struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
	} `yaml:"service"`

	Signaling struct {
		URI string `yaml:"uri"`
	} `yaml:"signaling"`

	HTTP struct {
		Address string `yaml:"address"`
	} `yaml:"http"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
}

// Load reads a YAML config file, applies environment overrides, then
// fills in defaults for anything still unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvironmentOverrides(cfg)
	setDefaults(cfg)

	return cfg, nil
}

func applyEnvironmentOverrides(cfg *Config) {
	if uri := os.Getenv(signalingURIEnv); uri != "" {
		cfg.Signaling.URI = uri
	}
	if env := os.Getenv("ENVIRONMENT"); env != "" {
		cfg.Service.Environment = env
	}
}

func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "xr-client"
	}
	if cfg.Signaling.URI == "" {
		cfg.Signaling.URI = "ws://localhost:8443/signaling"
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":9090"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
