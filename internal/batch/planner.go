package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/klytics/thunderbolt/internal/ingest"
	"github.com/klytics/thunderbolt/internal/logging"
	"github.com/klytics/thunderbolt/internal/store"
)

// Planner runs Stage 1 between two folders of a store.
type Planner struct {
	Store       store.Store
	Source      string
	Dest        string
	Concurrency int
	Logger      logrus.FieldLogger

	// OnEntry, when set, is called once per finished entry. Calls are
	// serialized but arrive in completion order.
	OnEntry func(done, total int, e Entry)
}

// Run lists both folders, plans the work and converts every new workbook.
// A failure of one file is recorded in its entry and never stops the others.
// Only a listing failure of either folder fails the run.
func (p *Planner) Run(ctx context.Context) (*Report, error) {
	report := newReport()
	log := p.logger().WithField("run", report.RunID)

	sources, err := p.Store.List(ctx, p.Source, store.MimeXLSX)
	if err != nil {
		return nil, fmt.Errorf("could not list source folder %s: %w", p.Source, err)
	}
	existing, err := p.Store.List(ctx, p.Dest, "")
	if err != nil {
		return nil, fmt.Errorf("could not list destination folder %s: %w", p.Dest, err)
	}

	tasks := Plan(sources, store.Names(existing))
	log.WithFields(logrus.Fields{"sources": len(sources), "existing": len(existing)}).Debug("planned conversion")

	// One slot per task; each goroutine writes only its own slot.
	entries := make([]Entry, len(tasks))

	var (
		mu   sync.Mutex
		done int
		wg   sync.WaitGroup
	)
	workers := p.Concurrency
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t Task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			e := p.safeProcess(ctx, t)
			entries[idx] = e

			log.WithFields(logrus.Fields{"file": e.File, "status": e.Status}).Info(entryMessage(e))

			if p.OnEntry != nil {
				mu.Lock()
				done++
				p.OnEntry(done, len(tasks), e)
				mu.Unlock()
			}
		}(i, task)
	}
	wg.Wait()

	report.Entries = entries
	report.FinishedAt = time.Now().UTC()
	return report, nil
}

// safeProcess turns a panic while converting one file into that file's
// error entry.
func (p *Planner) safeProcess(ctx context.Context, t Task) (e Entry) {
	defer func() {
		if r := recover(); r != nil {
			e = Entry{
				File:   t.Source.Name,
				Output: t.Output,
				Status: StatusError,
				Detail: fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return p.process(ctx, t)
}

func (p *Planner) process(ctx context.Context, t Task) Entry {
	e := Entry{File: t.Source.Name, Output: t.Output}
	if t.Skip != "" {
		e.Status = StatusSkipped
		e.Detail = t.Skip
		return e
	}

	fail := func(err error) Entry {
		e.Status = StatusError
		e.Detail = err.Error()
		return e
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	data, err := p.Store.Download(ctx, t.Source.ID)
	if err != nil {
		return fail(err)
	}

	conv, err := ingest.Convert(data)
	if err != nil {
		return fail(err)
	}
	e.Sheet = conv.Sheet
	e.Strategy = conv.Strategy
	e.Level = conv.Level

	out, err := conv.Materialize()
	if err != nil {
		return fail(err)
	}

	if _, err := p.Store.Upload(ctx, p.Dest, out, t.Output, store.MimeCSV); err != nil {
		// Another writer produced the table since listing.
		if errors.Is(err, store.ErrExists) {
			e.Status = StatusSkipped
			e.Detail = "exists"
			return e
		}
		return fail(err)
	}

	e.Status = StatusCreated
	return e
}

func (p *Planner) logger() logrus.FieldLogger {
	if p.Logger != nil {
		return p.Logger
	}
	return logging.Discard()
}

func entryMessage(e Entry) string {
	switch e.Status {
	case StatusCreated:
		return "created " + e.Output
	case StatusSkipped:
		return "skipped " + e.File + " (" + e.Detail + ")"
	default:
		return "failed " + e.File + ": " + e.Detail
	}
}
