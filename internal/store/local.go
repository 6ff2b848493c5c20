package store

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// Local keeps objects as files under Root; a folder is a sub-directory and an
// ID is the slash-separated "folder/name" path.
type Local struct {
	Root string
}

// NewLocal returns a Local store rooted at root.
func NewLocal(root string) *Local {
	return &Local{Root: root}
}

// List returns the files directly inside folder, sorted by name. A missing
// folder lists as empty.
func (l *Local) List(ctx context.Context, folder, mimeType string) ([]Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, ioError("list", folder, err)
	}

	dir := l.resolve(folder)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, ioError("list", folder, err)
	}

	var objs []Object
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		mt := MimeTypeOf(e.Name())
		if mimeType != "" && mt != mimeType {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, ioError("list", folder, err)
		}
		objs = append(objs, Object{
			ID:         path.Join(filepath.ToSlash(folder), e.Name()),
			Name:       e.Name(),
			MimeType:   mt,
			ModifiedAt: info.ModTime(),
			Size:       info.Size(),
		})
	}

	sort.Slice(objs, func(i, j int) bool { return objs[i].Name < objs[j].Name })
	return objs, nil
}

// Upload writes data to folder/name. The content is staged in a temporary
// file and linked into place, so a reader never sees a partial object and an
// existing name is never replaced.
func (l *Local) Upload(ctx context.Context, folder string, data []byte, name, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ioError("upload", name, err)
	}
	if err := validName(name); err != nil {
		return "", ioError("upload", name, err)
	}

	dir := l.resolve(folder)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", ioError("upload", name, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", ioError("upload", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", ioError("upload", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", ioError("upload", name, err)
	}

	if err := os.Link(tmp.Name(), filepath.Join(dir, name)); err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ioError("upload", name, ErrExists)
		}
		return "", ioError("upload", name, err)
	}

	return path.Join(filepath.ToSlash(folder), name), nil
}

// Download reads the object with the given "folder/name" ID.
func (l *Local) Download(ctx context.Context, id string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, ioError("download", id, err)
	}

	data, err := os.ReadFile(l.resolve(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ioError("download", id, ErrNotFound)
	}
	if err != nil {
		return nil, ioError("download", id, err)
	}
	return data, nil
}

// resolve maps a slash path onto the filesystem. Cleaning it as a rooted
// path first keeps ".." from climbing out of Root.
func (l *Local) resolve(rel string) string {
	clean := strings.TrimPrefix(path.Clean("/"+filepath.ToSlash(rel)), "/")
	return filepath.Join(l.Root, filepath.FromSlash(clean))
}
