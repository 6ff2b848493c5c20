package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/klytics/thunderbolt/internal/merge"
	"github.com/klytics/thunderbolt/internal/timestamp"
)

// Issue is one problem or note found by Validate.
type Issue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Validate checks config values and returns a list of issues.
func Validate(cfg *Config) []Issue {
	var issues []Issue

	switch cfg.Store.Backend {
	case "local":
		issues = append(issues, Issue{
			Key:      "store.backend",
			Severity: "info",
			Message:  fmt.Sprintf("local store rooted at %s", cfg.Store.Root),
		})
	case "sqlite":
		if cfg.Store.SQLitePath == "" {
			issues = append(issues, Issue{
				Key:      "store.sqlite_path",
				Severity: "error",
				Message:  "sqlite backend selected but store.sqlite_path is empty",
				Fix:      "thunderbolt config set store.sqlite_path ./workspace/thunderbolt.db",
			})
		}
	case "onedrive":
		if strings.TrimSpace(cfg.Store.OneDrive.Token) == "" {
			issues = append(issues, Issue{
				Key:      "store.onedrive.token",
				Severity: "error",
				Message:  "onedrive backend selected but no access token is configured",
				Fix:      "export THUNDERBOLT_STORE_ONEDRIVE_TOKEN=... (or put it in .env)",
			})
		}
	default:
		issues = append(issues, Issue{
			Key:      "store.backend",
			Severity: "error",
			Message:  fmt.Sprintf("unknown store backend %q", cfg.Store.Backend),
			Fix:      "thunderbolt config set store.backend local|sqlite|onedrive",
		})
	}

	if cfg.Folders.Source == "" || cfg.Folders.Dest == "" {
		issues = append(issues, Issue{
			Key:      "folders",
			Severity: "error",
			Message:  "both folders.source and folders.dest must be set",
		})
	} else if cfg.Folders.Source == cfg.Folders.Dest {
		issues = append(issues, Issue{
			Key:      "folders",
			Severity: "warning",
			Message:  "source and destination folders are the same",
		})
	}

	if cfg.Convert.Concurrency < 1 {
		issues = append(issues, Issue{
			Key:      "convert.concurrency",
			Severity: "error",
			Message:  fmt.Sprintf("concurrency must be at least 1, got %d", cfg.Convert.Concurrency),
		})
	}

	if err := timestamp.CheckFormat(cfg.Merge.TimestampFormat); err != nil {
		issues = append(issues, Issue{
			Key:      "merge.timestamp_format",
			Severity: "error",
			Message:  err.Error(),
		})
	}

	if _, err := merge.ParsePolicy(cfg.Merge.Duplicates); err != nil {
		issues = append(issues, Issue{
			Key:      "merge.duplicates",
			Severity: "error",
			Message:  err.Error(),
		})
	}

	return issues
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == "error" {
			return true
		}
	}
	return false
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// SaveConfig writes the current config to the config file.
func SaveConfig() error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	// The file may hold a OneDrive token.
	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if configFile != "" {
		return configFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

// ShowConfig renders cfg as YAML with secrets masked.
func ShowConfig(cfg *Config) (string, error) {
	masked := *cfg
	if t := masked.Store.OneDrive.Token; t != "" {
		masked.Store.OneDrive.Token = t[:min(6, len(t))] + "****"
	}

	out, err := yaml.Marshal(&masked)
	if err != nil {
		return "", fmt.Errorf("could not render config: %w", err)
	}
	return fmt.Sprintf("# %s\n%s", ConfigPath(), out), nil
}
