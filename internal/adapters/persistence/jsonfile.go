package persistence

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/ratebook/internal/adapters/codec"
	"github.com/okian/ratebook/internal/domain/model"
)

// JSONFile persists ratings as a JSON document on the local filesystem.
type JSONFile struct {
	path  string
	codec *codec.Codec
}

// NewJSONFile returns a backend reading and writing path with c.
func NewJSONFile(path string, c *codec.Codec) *JSONFile {
	return &JSONFile{path: path, codec: c}
}

func (f *JSONFile) Name() string     { return BackendJSON }
func (f *JSONFile) Location() string { return f.path }
func (f *JSONFile) Close() error     { return nil }

// Load reads and validates the document. A missing file is an empty store.
// Schema and decode failures are returned unwrapped from the codec.
func (f *JSONFile) Load(ctx context.Context) ([]model.Rating, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "load", Path: f.path, Err: err}
	}
	ratings, err := f.codec.ValidateAndDecode(doc)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.path, err)
	}
	return ratings, nil
}

// Save writes the document to a temporary file next to the target and
// renames it into place, so readers never observe a partial document.
func (f *JSONFile) Save(ctx context.Context, ratings []model.Rating) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := f.codec.Encode(ratings)
	if err != nil {
		return &Error{Op: "save", Path: f.path, Err: err}
	}
	if err := writeAtomic(f.path, doc); err != nil {
		return &Error{Op: "save", Path: f.path, Err: err}
	}
	return nil
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // write error takes precedence
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // sync error takes precedence
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec // data file is meant to be readable
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
