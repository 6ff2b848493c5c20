// Package progress renders conversion progress on stderr.
// It stays silent when stderr is not a terminal, when JSON output was
// requested, or when THUNDERBOLT_NO_PROGRESS=1.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Bar renders an ASCII progress bar.
type Bar struct {
	Total   int
	Current int
	Label   string
	Width   int
	Enabled bool
	Out     io.Writer

	mu sync.Mutex
}

// New creates a progress bar on stderr.
func New(label string, total int) *Bar {
	return &Bar{
		Total:   total,
		Label:   label,
		Width:   30,
		Enabled: shouldEnable(),
		Out:     os.Stderr,
	}
}

// Set moves the bar to n and redraws it with status.
func (b *Bar) Set(n int, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Current = n
	if b.Current > b.Total {
		b.Current = b.Total
	}
	b.render(status)
}

// Increment advances the bar by one.
func (b *Bar) Increment(status string) {
	b.mu.Lock()
	n := b.Current + 1
	b.mu.Unlock()
	b.Set(n, status)
}

// Finish replaces the bar with a summary line.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Enabled {
		return
	}
	fmt.Fprintf(b.Out, "\r\033[K✓ %s\n", summary)
}

// Pct returns the completed percentage.
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Total) * 100
}

func (b *Bar) render(status string) {
	if !b.Enabled {
		return
	}
	filled := 0
	if b.Total > 0 {
		filled = b.Current * b.Width / b.Total
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.Width-filled)
	fmt.Fprintf(b.Out, "\r\033[K%s [%s] %d/%d  %s", b.Label, bar, b.Current, b.Total, status)
}

// Spinner animates while the amount of work is unknown.
type Spinner struct {
	Label   string
	Enabled bool
	Out     io.Writer

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
}

// NewSpinner creates a spinner on stderr.
func NewSpinner(label string) *Spinner {
	return &Spinner{Label: label, Enabled: shouldEnable(), Out: os.Stderr, stopped: true}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.Enabled {
		return
	}
	s.mu.Lock()
	s.stopped = false
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		frames := []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.stopped {
					fmt.Fprintf(s.Out, "\r\033[K%c %s", frames[i%len(frames)], s.Label)
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop ends the animation and prints result.
func (s *Spinner) Stop(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	close(s.done)
	fmt.Fprintf(s.Out, "\r\033[K✓ %s\n", result)
}

func shouldEnable() bool {
	if os.Getenv("THUNDERBOLT_NO_PROGRESS") == "1" || os.Getenv("THUNDERBOLT_JSON") == "true" {
		return false
	}
	stat, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice != 0
}
