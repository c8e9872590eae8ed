// Package config loads issuestash settings from defaults, an optional YAML
// file, ISSUESTASH_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	EnvPrefix = "ISSUESTASH"

	BackendSQLite = "sqlite"
	BackendJSON   = "json"

	PolicyOptimistic = "optimistic"
	PolicyConfirmed  = "confirmed"
)

// DefaultConfigName is looked up in the home directory when --config is empty.
const DefaultConfigName = ".issuestash"

// Config holds all issuestash configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Agent   AgentConfig   `mapstructure:"agent" yaml:"agent"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Popup   PopupConfig   `mapstructure:"popup" yaml:"popup"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	Path    string `mapstructure:"path" yaml:"path"`
}

type AgentConfig struct {
	Listen string `mapstructure:"listen" yaml:"listen"`
	Token  string `mapstructure:"token" yaml:"token"`
}

type BrowserConfig struct {
	DebuggerURL string `mapstructure:"debugger_url" yaml:"debugger_url"`
	Headless    bool   `mapstructure:"headless" yaml:"headless"`
	Bin         string `mapstructure:"bin" yaml:"bin"`
}

type PopupConfig struct {
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	Token             string        `mapstructure:"token" yaml:"token"`
	Timeout           time.Duration `mapstructure:"timeout" yaml:"timeout"`
	ShowPolicy        string        `mapstructure:"show_policy" yaml:"show_policy"`
	FeatureRequestURL string        `mapstructure:"feature_request_url" yaml:"feature_request_url"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"`
}

// Default returns a Config populated with all default values.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Backend: BackendSQLite,
			Path:    "~/.issuestash/items.db",
		},
		Agent: AgentConfig{
			Listen: "127.0.0.1:8737",
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Popup: PopupConfig{
			Endpoint:          "http://127.0.0.1:8737",
			Timeout:           5 * time.Second,
			ShowPolicy:        PolicyOptimistic,
			FeatureRequestURL: "https://github.com/JStuve/github-extension/issues",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds a Config. path may be empty, in which case ~/.issuestash.yaml
// is used when present. flags, if non-nil, override file and env values for
// the keys listed in FlagKeys.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return nil, err
		}
		v.SetConfigFile(expanded)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		v.AddConfigPath(home)
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can act on.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSQLite, BackendJSON:
	default:
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	switch c.Popup.ShowPolicy {
	case PolicyOptimistic, PolicyConfirmed:
	default:
		return fmt.Errorf("popup.show_policy: unknown policy %q", c.Popup.ShowPolicy)
	}
	if c.Popup.Timeout <= 0 {
		return fmt.Errorf("popup.timeout: must be positive, got %s", c.Popup.Timeout)
	}
	return nil
}

// YAML renders the config the way a config file would hold it.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// FlagKeys maps command-line flag names to config keys.
var FlagKeys = map[string]string{
	"store":      "store.backend",
	"store-path": "store.path",
	"listen":     "agent.listen",
	"endpoint":   "popup.endpoint",
	"loglevel":   "logging.level",
	"logfile":    "logging.file",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range FlagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv and Unmarshal see it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.path", d.Store.Path)
	v.SetDefault("agent.listen", d.Agent.Listen)
	v.SetDefault("agent.token", d.Agent.Token)
	v.SetDefault("browser.debugger_url", d.Browser.DebuggerURL)
	v.SetDefault("browser.headless", d.Browser.Headless)
	v.SetDefault("browser.bin", d.Browser.Bin)
	v.SetDefault("popup.endpoint", d.Popup.Endpoint)
	v.SetDefault("popup.token", d.Popup.Token)
	v.SetDefault("popup.timeout", d.Popup.Timeout)
	v.SetDefault("popup.show_policy", d.Popup.ShowPolicy)
	v.SetDefault("popup.feature_request_url", d.Popup.FeatureRequestURL)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.file", d.Logging.File)
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expand %q: %w", path, err)
	}
	return filepath.Clean(expanded), nil
}
