package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

// exercise runs the behaviour every backend shares.
func exercise(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	objs, err := st.List(ctx, "excels", "")
	if err != nil {
		t.Fatalf("List empty: %v", err)
	}
	if len(objs) != 0 {
		t.Fatalf("expected empty folder, got %v", objs)
	}

	id, err := st.Upload(ctx, "excels", []byte("workbook"), "b.xlsx", MimeXLSX)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := st.Upload(ctx, "excels", []byte("table"), "a_Steamfield.csv", MimeCSV); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := st.Upload(ctx, "other", []byte("x"), "c.xlsx", MimeXLSX); err != nil {
		t.Fatalf("Upload: %v", err)
	}

	_, err = st.Upload(ctx, "excels", []byte("again"), "b.xlsx", MimeXLSX)
	if !errors.Is(err, ErrExists) {
		t.Errorf("second upload: expected ErrExists, got %v", err)
	}
	var rio *RemoteIOError
	if !errors.As(err, &rio) {
		t.Errorf("expected *RemoteIOError, got %T", err)
	}

	objs, err = st.List(ctx, "excels", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 2 || objs[0].Name != "a_Steamfield.csv" || objs[1].Name != "b.xlsx" {
		t.Fatalf("List = %+v", objs)
	}
	if objs[1].Size != int64(len("workbook")) || objs[1].MimeType != MimeXLSX {
		t.Errorf("object = %+v", objs[1])
	}

	xlsxOnly, err := st.List(ctx, "excels", MimeXLSX)
	if err != nil {
		t.Fatal(err)
	}
	if len(xlsxOnly) != 1 || xlsxOnly[0].ID != id {
		t.Errorf("List(xlsx) = %+v", xlsxOnly)
	}

	data, err := st.Download(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "workbook" {
		t.Errorf("Download = %q", data)
	}

	if _, err := st.Upload(ctx, "excels", nil, "../escape.xlsx", MimeXLSX); err == nil {
		t.Error("expected invalid name to be rejected")
	}
}

func TestLocal(t *testing.T) {
	st := NewLocal(t.TempDir())
	exercise(t, st)

	_, err := st.Download(context.Background(), "excels/missing.xlsx")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLocalStaysInsideRoot(t *testing.T) {
	root := t.TempDir()
	st := NewLocal(filepath.Join(root, "inner"))
	if _, err := st.Upload(context.Background(), "../..", []byte("x"), "a.csv", MimeCSV); err != nil {
		t.Fatal(err)
	}
	if got := st.resolve("../../a.csv"); got != filepath.Join(root, "inner", "a.csv") {
		t.Errorf("resolve = %s", got)
	}
}

func TestSQLite(t *testing.T) {
	st, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "objects.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	exercise(t, st)

	_, err = st.Download(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMimeTypeOf(t *testing.T) {
	tests := map[string]string{
		"a.xlsx":  MimeXLSX,
		"B.XLSX":  MimeXLSX,
		"c.csv":   MimeCSV,
		"d.txt":   "application/octet-stream",
		"noext":   "application/octet-stream",
		"e.csv.x": "application/octet-stream",
	}
	for in, want := range tests {
		if got := MimeTypeOf(in); got != want {
			t.Errorf("MimeTypeOf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	st, closeFn, err := Open(Options{Backend: "local", Root: dir})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*Local); !ok {
		t.Errorf("expected *Local, got %T", st)
	}
	closeFn()

	st, closeFn, err = Open(Options{Backend: "sqlite", SQLitePath: filepath.Join(dir, "t.db")})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := st.(*SQLite); !ok {
		t.Errorf("expected *SQLite, got %T", st)
	}
	if err := closeFn(); err != nil {
		t.Error(err)
	}

	if _, _, err := Open(Options{Backend: "onedrive"}); err == nil {
		t.Error("expected error without token")
	}
	st, _, err = Open(Options{Backend: "onedrive", Token: "tok", BaseURL: "http://example.test"})
	if err != nil {
		t.Fatal(err)
	}
	if od, ok := st.(*OneDrive); !ok || od.BaseURL != "http://example.test" {
		t.Errorf("got %#v", st)
	}

	if _, _, err := Open(Options{Backend: "s3"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
