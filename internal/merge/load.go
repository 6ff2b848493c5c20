package merge

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/klytics/thunderbolt/internal/store"
)

// TableSuffix marks the materialized tables the merger reads.
const TableSuffix = "_Steamfield.csv"

// MasterName is the object name used when the master dataset is stored.
const MasterName = "master.csv"

// Load downloads every materialized table in folder, in name order. A table
// that fails to download is returned as skipped; a listing failure is an
// error.
func Load(ctx context.Context, st store.Store, folder string, log logrus.FieldLogger) ([]Source, []Skipped, error) {
	objs, err := st.List(ctx, folder, "")
	if err != nil {
		return nil, nil, fmt.Errorf("could not list %s: %w", folder, err)
	}

	var tables []store.Object
	for _, o := range objs {
		if strings.HasSuffix(o.Name, TableSuffix) {
			tables = append(tables, o)
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	var (
		sources []Source
		skipped []Skipped
	)
	for _, o := range tables {
		data, err := st.Download(ctx, o.ID)
		if err != nil {
			skipped = append(skipped, Skipped{Table: o.Name, Reason: err.Error()})
			if log != nil {
				log.WithField("table", o.Name).WithError(err).Warn("could not download table")
			}
			continue
		}
		sources = append(sources, Source{Name: o.Name, Data: data})
	}
	return sources, skipped, nil
}

// Run loads the materialized tables of folder and merges them. Download
// failures are reported in Stats.Skipped alongside unreadable tables.
func Run(ctx context.Context, st store.Store, folder string, opts Options) (*Dataset, *Stats, error) {
	sources, skipped, err := Load(ctx, st, folder, opts.Logger)
	if err != nil {
		return nil, nil, err
	}
	ds, stats, err := Merge(sources, opts)
	if stats != nil && len(skipped) > 0 {
		stats.Skipped = append(skipped, stats.Skipped...)
	}
	return ds, stats, err
}
