// Package store is the named-blob storage used for raw workbooks and
// materialized tables. Objects live in folders and are addressed by an opaque
// backend-specific ID.
package store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// MIME types of the objects the pipeline handles.
const (
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeCSV  = "text/csv"
)

var (
	// ErrExists is returned by Upload when the folder already holds the name.
	ErrExists = errors.New("object already exists")
	// ErrNotFound is returned by Download for an unknown ID.
	ErrNotFound = errors.New("object not found")
)

// Object is the metadata of one stored blob.
type Object struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	MimeType   string    `json:"mimeType" yaml:"mimeType"`
	ModifiedAt time.Time `json:"modifiedTime" yaml:"modifiedTime"`
	Size       int64     `json:"size" yaml:"size"`
}

// Store lists, uploads and downloads blobs. An empty mimeType in List
// matches every object. Upload never overwrites an existing name.
type Store interface {
	List(ctx context.Context, folder, mimeType string) ([]Object, error)
	Upload(ctx context.Context, folder string, data []byte, name, mimeType string) (string, error)
	Download(ctx context.Context, id string) ([]byte, error)
}

// RemoteIOError wraps every failure a backend reports.
type RemoteIOError struct {
	Op   string
	Name string
	Err  error
}

func (e *RemoteIOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *RemoteIOError) Unwrap() error {
	return e.Err
}

func ioError(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var rio *RemoteIOError
	if errors.As(err, &rio) {
		return err
	}
	return &RemoteIOError{Op: op, Name: name, Err: err}
}

// MimeTypeOf infers a MIME type from a file name.
func MimeTypeOf(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".xlsx":
		return MimeXLSX
	case ".csv":
		return MimeCSV
	default:
		return "application/octet-stream"
	}
}

// Names returns the set of object names.
func Names(objs []Object) map[string]bool {
	names := make(map[string]bool, len(objs))
	for _, o := range objs {
		names[o.Name] = true
	}
	return names
}

func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid object name %q", name)
	}
	return nil
}
