package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Loader loads the engine configuration from a YAML file.
type Loader struct {
	koanf  *koanf.Koanf
	path   string
	parser *yaml.YAML
}

// NewLoader creates a loader for the given config file path.
func NewLoader(path string) (*Loader, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is required")
	}

	return &Loader{
		koanf:  koanf.New("."),
		path:   path,
		parser: yaml.Parser(),
	}, nil
}

// Load reads, env-expands, unmarshals, defaults and validates the config.
func (l *Loader) Load() (*Config, error) {
	if err := l.koanf.Load(file.Provider(l.path), l.parser); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", l.path, err)
	}

	if err := l.expandEnvVarsInKoanf(); err != nil {
		return nil, fmt.Errorf("failed to expand environment variables: %w", err)
	}

	cfg := &Config{}
	if err := l.koanf.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "yaml",
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (l *Loader) expandEnvVarsInKoanf() error {
	rawMap := l.koanf.Raw()

	expandedMap := ExpandEnvVarsInData(rawMap)

	expandedMapData, ok := expandedMap.(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected type after env var expansion")
	}

	newKoanf := koanf.New(".")
	if err := newKoanf.Load(confmap.Provider(expandedMapData, "."), nil); err != nil {
		return fmt.Errorf("failed to load expanded config: %w", err)
	}

	l.koanf = newKoanf

	return nil
}

// LoadConfig loads a configuration file in one call.
func LoadConfig(path string) (*Config, error) {
	loader, err := NewLoader(path)
	if err != nil {
		return nil, err
	}
	return loader.Load()
}
