package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/redline/internal/apperr"
	"github.com/starford/redline/internal/checksum"
	"github.com/starford/redline/internal/models"
)

// FS implements Provider backed by the local file system.
type FS struct {
	root string // absolute path to the session directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// safePath maps a session id to its file and rejects any result that
// escapes the root.
func (f *FS) safePath(id string) (string, error) {
	if err := ValidateID(id); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(filepath.Join(f.root, id+ext))
	if err != nil {
		return "", fmt.Errorf("storage: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: path escapes root: %s", apperr.ErrInvalid, id)
	}
	return abs, nil
}

// List returns metadata for every session file in the root, sorted by id.
func (f *FS) List(_ context.Context) ([]models.SessionMetadata, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.SessionMetadata
	for _, d := range entries {
		name := d.Name()
		if d.IsDir() || !strings.HasSuffix(name, ext) || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := d.Info()
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		data, err := os.ReadFile(filepath.Join(f.root, name))
		if err != nil {
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, models.SessionMetadata{
			ID:        strings.TrimSuffix(name, ext),
			Checksum:  checksum.Sum(data),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Load reads and decodes a session file.
func (f *FS) Load(_ context.Context, id string) (models.SessionState, models.SessionMetadata, error) {
	abs, err := f.safePath(id)
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, err
	}
	data, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return models.SessionState{}, models.SessionMetadata{}, fmt.Errorf("session %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, fmt.Errorf("storage: read %s: %w", id, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, fmt.Errorf("storage: stat %s: %w", id, err)
	}
	state, err := decode(data)
	if err != nil {
		return models.SessionState{}, models.SessionMetadata{}, err
	}
	return state, models.SessionMetadata{ID: id, Checksum: checksum.Sum(data), UpdatedAt: info.ModTime()}, nil
}

// Save encodes state and writes it atomically.
func (f *FS) Save(_ context.Context, id string, state models.SessionState) (models.SessionMetadata, error) {
	abs, err := f.safePath(id)
	if err != nil {
		return models.SessionMetadata{}, err
	}
	data, err := encode(state)
	if err != nil {
		return models.SessionMetadata{}, err
	}
	if err := writeAtomic(abs, data); err != nil {
		return models.SessionMetadata{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.SessionMetadata{}, fmt.Errorf("storage: stat %s: %w", id, err)
	}
	return models.SessionMetadata{ID: id, Checksum: checksum.Sum(data), UpdatedAt: info.ModTime()}, nil
}

// Delete removes a session file.
func (f *FS) Delete(_ context.Context, id string) error {
	abs, err := f.safePath(id)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: delete %s: %w", id, err)
	}
	return nil
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	tmp, err := os.CreateTemp(dir, ".redline-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}
