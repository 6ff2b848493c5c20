package store

import (
	"fmt"

	"github.com/klytics/thunderbolt/internal/auth"
)

// Options select and configure a backend for Open.
type Options struct {
	Backend    string // "local", "sqlite" or "onedrive"
	Root       string
	SQLitePath string
	Token      string
	BaseURL    string
}

// Open builds the configured backend. The returned close function releases
// its resources and is never nil.
func Open(opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case "", "local":
		root := opts.Root
		if root == "" {
			root = "."
		}
		return NewLocal(root), noop, nil

	case "sqlite":
		if opts.SQLitePath == "" {
			return nil, noop, fmt.Errorf("sqlite backend needs a database path")
		}
		db, err := OpenSQLite(opts.SQLitePath)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil

	case "onedrive":
		client, err := auth.RequireToken(opts.Token)
		if err != nil {
			return nil, noop, err
		}
		od := NewOneDrive(client)
		if opts.BaseURL != "" {
			od.BaseURL = opts.BaseURL
		}
		return od, noop, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q — supported: local, sqlite, onedrive", opts.Backend)
	}
}
