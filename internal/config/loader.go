package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"licman/internal/security"
	"licman/pkg/fileutil"

	"gopkg.in/yaml.v3"
)

// DefaultEnvironment is used when LICMAN_ENV is not set anywhere.
const DefaultEnvironment = "development"

// ErrInvalidConfig marks a configuration that parsed but failed validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Loader reads and writes the YAML configuration of one project root.
type Loader struct {
	Layout Layout

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv LookupFunc
}

// NewLoader creates a loader for layout.
func NewLoader(layout Layout) *Loader {
	return &Loader{Layout: layout, LookupEnv: os.LookupEnv}
}

func (l *Loader) getenv(name string) string {
	if l.LookupEnv == nil {
		return os.Getenv(name)
	}
	v, _ := l.LookupEnv(name)
	return v
}

// ConfigPath returns the YAML path: LICMAN_CONFIG_FILE, then CONFIG_FILE,
// then the default file in the project root. "~" is expanded and relative
// overrides are resolved against the project root.
func (l *Loader) ConfigPath() (string, error) {
	override := l.getenv("LICMAN_CONFIG_FILE")
	if override == "" {
		override = l.getenv("CONFIG_FILE")
	}
	if override == "" {
		return l.Layout.DefaultConfigFile(), nil
	}

	path, err := fileutil.ExpandHome(override)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.Layout.Root, path)
	}
	return filepath.Clean(path), nil
}

// DotEnv reads the project root .env file.
func (l *Loader) DotEnv() (map[string]string, error) {
	return ReadDotEnv(l.Layout.DotEnvFile())
}

// EnvName resolves the environment name. LICMAN_ENV in the root .env takes
// precedence over the process environment.
func (l *Loader) EnvName(dotenv map[string]string) string {
	if name := dotenv["LICMAN_ENV"]; name != "" {
		return name
	}
	if name := l.getenv("LICMAN_ENV"); name != "" {
		return name
	}
	return DefaultEnvironment
}

// Lookup resolves $ENV{} placeholders: process environment first, then the
// root .env values.
func (l *Loader) Lookup(dotenv map[string]string) LookupFunc {
	process := l.LookupEnv
	if process == nil {
		process = os.LookupEnv
	}
	fallback := MapLookup(dotenv)
	return func(name string) (string, bool) {
		if v, ok := process(name); ok {
			return v, true
		}
		return fallback(name)
	}
}

// Load reads the configuration. A missing file yields an empty Config.
func (l *Loader) Load() (*Config, error) {
	path, err := l.ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}

	dotenv, err := l.DotEnv()
	if err != nil {
		return nil, err
	}

	return l.parse(data, l.EnvName(dotenv), l.Lookup(dotenv))
}

func (l *Loader) parse(data []byte, envName string, lookup LookupFunc) (*Config, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}
	if doc == nil {
		return &Config{}, nil
	}

	if top, ok := doc.(map[string]any); ok {
		if section, ok := top[envName].(map[string]any); ok {
			doc = section
		}
	}

	expanded := ExpandTree(doc, lookup)

	var node yaml.Node
	if err := node.Encode(expanded); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}

	var cfg Config
	if err := node.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %w", err)
	}
	cfg.foldLegacy()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// Save writes cfg to the configuration path, replacing the file.
func (l *Loader) Save(cfg *Config) (string, error) {
	path, err := l.ConfigPath()
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}

	f, err := security.CreateSecureFile(path, security.PermConfigFile)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return "", fmt.Errorf("failed to write configuration: %w", err)
	}
	return path, f.Close()
}
