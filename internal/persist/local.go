// Package persist saves and loads board items: a local JSON cache that is
// always written, and an optional remote store that is tried first on load.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/corkboard/internal/apperr"
	"github.com/starford/corkboard/internal/board"
)

const (
	filePrefix = "items_"
	fileSuffix = ".json"
)

// Local keeps one JSON file per user in a directory.
type Local struct {
	root string
}

// NewLocal returns a Local rooted at dir, creating it if needed.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("persist: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("persist: mkdir: %w", err)
	}
	return &Local{root: abs}, nil
}

// Dir returns the absolute cache directory.
func (l *Local) Dir() string {
	return l.root
}

// fileName maps a user id to its cache file, rejecting ids that would
// escape the directory.
func fileName(userID string) (string, error) {
	if userID == "" || strings.ContainsAny(userID, `/\`) || strings.Contains(userID, "..") {
		return "", fmt.Errorf("persist: bad user id %q: %w", userID, apperr.ErrInvalid)
	}
	return filePrefix + userID + fileSuffix, nil
}

// userFromFile is the inverse of fileName.
func userFromFile(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasPrefix(base, filePrefix) || !strings.HasSuffix(base, fileSuffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(base, filePrefix), fileSuffix)
	return id, id != ""
}

// LoadItems reads the cached items of a user. A missing file is
// apperr.ErrNotFound.
func (l *Local) LoadItems(_ context.Context, userID string) ([]board.Item, error) {
	name, err := fileName(userID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(l.root, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("persist: local %s: %w", userID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("persist: read %s: %w", name, err)
	}
	var items []board.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("persist: decode %s: %w", name, err)
	}
	return items, nil
}

// SaveItems atomically replaces the user's cache file: tmp file, fsync, rename.
func (l *Local) SaveItems(_ context.Context, userID string, items []board.Item) error {
	name, err := fileName(userID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []board.Item{}
	}
	content, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("persist: encode: %w", err)
	}

	tmp, err := os.CreateTemp(l.root, ".corkboard-tmp-*")
	if err != nil {
		return fmt.Errorf("persist: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("persist: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("persist: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("persist: close temp: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(l.root, name)); err != nil {
		return fmt.Errorf("persist: rename: %w", err)
	}
	success = true
	return nil
}
