// Package watch monitors a directory for new or modified workbooks and hands
// each one, after a quiet period, to a handler.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/klytics/thunderbolt/internal/logging"
)

// DefaultDebounce is used when Config.Debounce is not positive.
const DefaultDebounce = 500 * time.Millisecond

// Config holds the watcher configuration.
type Config struct {
	Dir        string
	Extensions []string // defaults to .xlsx
	Debounce   time.Duration
}

// Event records one handled file.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	Status    string    `json:"status"` // "processed" or "error"
	Error     string    `json:"error,omitempty"`
}

// Handler processes one settled file. Calls never overlap.
type Handler func(ctx context.Context, path string) error

// Watcher monitors Config.Dir.
type Watcher struct {
	Config  Config
	Logger  logrus.FieldLogger
	Handler Handler

	mu       sync.Mutex
	events   []Event
	debounce map[string]*time.Timer
	runMu    sync.Mutex
	watcher  *fsnotify.Watcher
}

// New creates a Watcher. Start must be called to begin watching.
func New(cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{".xlsx"}
	}
	return &Watcher{
		Config:   cfg,
		Logger:   logging.Discard(),
		watcher:  fsw,
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start watches Config.Dir until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	dir, err := filepath.Abs(w.Config.Dir)
	if err != nil {
		return fmt.Errorf("could not resolve %s: %w", w.Config.Dir, err)
	}
	if err := w.watcher.Add(dir); err != nil {
		w.watcher.Close()
		return fmt.Errorf("could not watch %s: %w", dir, err)
	}
	w.Logger.WithField("dir", dir).Info("watching for workbooks")

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.Logger.Info("stopping watcher")
			return w.watcher.Close()
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.Logger.WithError(err).Warn("watch error")
		}
	}
}

// Close releases the underlying watcher without starting it.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	path := event.Name
	if !w.Matches(path) {
		return
	}

	op := event.Op.String()
	w.mu.Lock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(w.Config.Debounce, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		w.mu.Unlock()
		w.process(ctx, path, op)
	})
	w.mu.Unlock()
}

// Matches reports whether path is a workbook the watcher handles. Office
// lock files and hidden files never match.
func (w *Watcher) Matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, e := range w.Config.Extensions {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) process(ctx context.Context, path, op string) {
	if ctx.Err() != nil {
		return
	}
	evt := Event{Time: time.Now(), Path: path, Operation: op, Status: "processed"}
	log := w.Logger.WithField("file", filepath.Base(path))

	if w.Handler != nil {
		w.runMu.Lock()
		err := w.Handler(ctx, path)
		w.runMu.Unlock()
		if err != nil {
			evt.Status = "error"
			evt.Error = err.Error()
			log.WithError(err).Error("processing failed")
		} else {
			log.Info("processed")
		}
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.debounce {
		t.Stop()
		delete(w.debounce, path)
	}
}

// Events returns the handled events so far.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}
