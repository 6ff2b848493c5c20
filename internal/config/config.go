// Package config manages thunderbolt configuration from a YAML file, a
// .env file and THUNDERBOLT_* environment variables.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/klytics/thunderbolt/internal/store"
)

// StoreConfig selects and configures the blob store backend.
type StoreConfig struct {
	Backend    string `mapstructure:"backend" yaml:"backend"`
	Root       string `mapstructure:"root" yaml:"root"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	OneDrive   struct {
		Token   string `mapstructure:"token" yaml:"token"`
		BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	} `mapstructure:"onedrive" yaml:"onedrive"`
}

// Config holds the application configuration.
type Config struct {
	Store   StoreConfig `mapstructure:"store" yaml:"store"`
	Folders struct {
		Source string `mapstructure:"source" yaml:"source"`
		Dest   string `mapstructure:"dest" yaml:"dest"`
	} `mapstructure:"folders" yaml:"folders"`
	Convert struct {
		Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
	} `mapstructure:"convert" yaml:"convert"`
	Merge struct {
		TimestampFormat string `mapstructure:"timestamp_format" yaml:"timestamp_format"`
		Duplicates      string `mapstructure:"duplicates" yaml:"duplicates"`
	} `mapstructure:"merge" yaml:"merge"`
	Log struct {
		Level  string `mapstructure:"level" yaml:"level"`
		Format string `mapstructure:"format" yaml:"format"`
	} `mapstructure:"log" yaml:"log"`
	Watch struct {
		DebounceMS int `mapstructure:"debounce_ms" yaml:"debounce_ms"`
	} `mapstructure:"watch" yaml:"watch"`
	History struct {
		Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
		Path    string `mapstructure:"path" yaml:"path"`
	} `mapstructure:"history" yaml:"history"`
}

var configFile string

// SetFile makes Load read path instead of ~/.thunderbolt/config.yaml.
func SetFile(path string) {
	configFile = path
}

// Load reads the configuration. Precedence, highest first: environment
// (including a .env file in the working directory), config file, defaults.
func Load() (*Config, error) {
	// A missing .env is the normal case.
	_ = godotenv.Load()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
	}

	setDefaults()

	viper.SetEnvPrefix("THUNDERBOLT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("store.backend", "local")
	viper.SetDefault("store.root", "./workspace")
	viper.SetDefault("store.sqlite_path", "./workspace/thunderbolt.db")
	viper.SetDefault("store.onedrive.token", "")
	viper.SetDefault("store.onedrive.base_url", "https://graph.microsoft.com/v1.0")
	viper.SetDefault("folders.source", "excels")
	viper.SetDefault("folders.dest", "steamfield_csvs")
	viper.SetDefault("convert.concurrency", 1)
	viper.SetDefault("merge.timestamp_format", "%d-%m-%Y %H%MH")
	viper.SetDefault("merge.duplicates", "keep-last")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("watch.debounce_ms", 500)
	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", "")
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".thunderbolt"
	}
	return filepath.Join(home, ".thunderbolt")
}

// StoreOptions returns the blob store settings in the form store.Open takes.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend:    c.Store.Backend,
		Root:       c.Store.Root,
		SQLitePath: c.Store.SQLitePath,
		Token:      c.Store.OneDrive.Token,
		BaseURL:    c.Store.OneDrive.BaseURL,
	}
}

// HistoryPath returns the run log location, ~/.thunderbolt/runs.log unless
// history.path is set.
func (c *Config) HistoryPath() string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(configDir(), "runs.log")
}
