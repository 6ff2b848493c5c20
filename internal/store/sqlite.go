package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS objects (
	id          TEXT PRIMARY KEY,
	folder      TEXT NOT NULL,
	name        TEXT NOT NULL,
	mime_type   TEXT NOT NULL,
	modified_at INTEGER NOT NULL,
	size        INTEGER NOT NULL,
	data        BLOB NOT NULL,
	UNIQUE (folder, name)
);
CREATE INDEX IF NOT EXISTS objects_folder ON objects (folder, name);
`

// SQLite keeps objects as rows of a single table in a SQLite database file.
type SQLite struct {
	db *sqlx.DB
}

type objectRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	MimeType   string `db:"mime_type"`
	ModifiedAt int64  `db:"modified_at"`
	Size       int64  `db:"size"`
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("could not create directory for %s: %w", path, err)
		}
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases
	// shared between calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not initialize %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// List returns the objects in folder sorted by name.
func (s *SQLite) List(ctx context.Context, folder, mimeType string) ([]Object, error) {
	query := `SELECT id, name, mime_type, modified_at, size FROM objects WHERE folder = ?`
	args := []any{folder}
	if mimeType != "" {
		query += ` AND mime_type = ?`
		args = append(args, mimeType)
	}
	query += ` ORDER BY name`

	var rows []objectRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, ioError("list", folder, err)
	}

	objs := make([]Object, len(rows))
	for i, r := range rows {
		objs[i] = Object{
			ID:         r.ID,
			Name:       r.Name,
			MimeType:   r.MimeType,
			ModifiedAt: time.UnixMilli(r.ModifiedAt).UTC(),
			Size:       r.Size,
		}
	}
	return objs, nil
}

// Upload inserts a new object; a (folder, name) conflict yields ErrExists.
func (s *SQLite) Upload(ctx context.Context, folder string, data []byte, name, mimeType string) (string, error) {
	if err := validName(name); err != nil {
		return "", ioError("upload", name, err)
	}
	if mimeType == "" {
		mimeType = MimeTypeOf(name)
	}
	if data == nil {
		data = []byte{}
	}

	id := uuid.NewString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO objects (id, folder, name, mime_type, modified_at, size, data)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (folder, name) DO NOTHING`,
		id, folder, name, mimeType, time.Now().UnixMilli(), len(data), data)
	if err != nil {
		return "", ioError("upload", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", ioError("upload", name, err)
	}
	if n == 0 {
		return "", ioError("upload", name, ErrExists)
	}
	return id, nil
}

// Download returns the content of the object with the given ID.
func (s *SQLite) Download(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.GetContext(ctx, &data, `SELECT data FROM objects WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ioError("download", id, ErrNotFound)
	}
	if err != nil {
		return nil, ioError("download", id, err)
	}
	return data, nil
}
