// Package app assembles what every command needs from the global flags:
// configuration, the logger and the configured blob store.
package app

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/klytics/thunderbolt/internal/config"
	"github.com/klytics/thunderbolt/internal/history"
	"github.com/klytics/thunderbolt/internal/logging"
	"github.com/klytics/thunderbolt/internal/store"
)

// Env is the per-command runtime.
type Env struct {
	Config *config.Config
	Log    *logrus.Logger
	JSON   bool
}

// Setup loads configuration and builds the logger according to the
// persistent --json, --verbose and --no-color flags.
func Setup(cmd *cobra.Command) (*Env, error) {
	jsonFlag, _ := cmd.Flags().GetBool("json")
	verbose, _ := cmd.Flags().GetBool("verbose")
	noColor, _ := cmd.Flags().GetBool("no-color")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	log, err := logging.New(level, cfg.Log.Format, os.Stderr, noColor)
	if err != nil {
		return nil, err
	}

	if jsonFlag {
		os.Setenv("THUNDERBOLT_JSON", "true")
	}
	return &Env{Config: cfg, Log: log, JSON: jsonFlag}, nil
}

// OpenStore validates the configuration and opens the configured store.
// The returned close function is never nil.
func (e *Env) OpenStore() (store.Store, func() error, error) {
	for _, issue := range config.Validate(e.Config) {
		if issue.Severity == "error" {
			msg := fmt.Sprintf("invalid configuration: %s", issue.Message)
			if issue.Fix != "" {
				msg += "\n  fix: " + issue.Fix
			}
			return nil, func() error { return nil }, fmt.Errorf("%s", msg)
		}
	}
	st, closeFn, err := store.Open(e.Config.StoreOptions())
	if err != nil {
		return nil, closeFn, err
	}
	e.Log.WithField("backend", e.Config.Store.Backend).Debug("opened store")
	return st, closeFn, nil
}

// Record appends run to the run history. A failure to record is logged and
// never fails the command.
func (e *Env) Record(run history.Run) {
	l := &history.Log{Path: e.Config.HistoryPath(), Enabled: e.Config.History.Enabled}
	if err := l.Append(run); err != nil {
		e.Log.WithError(err).Warn("could not record run history")
	}
}
