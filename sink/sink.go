// Package sink stores rendered declarations, grouped by the run that produced
// them.
package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("artifact not found")

type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
}

func objectKey(runID, path string) (string, error) {
	runID = strings.TrimSpace(runID)
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	return runID + "/" + path, nil
}

// DirStore writes artifacts below a local directory as <root>/<runID>/<path>.
type DirStore struct {
	Root string
}

func (d DirStore) file(runID, path string) (string, error) {
	key, err := objectKey(runID, path)
	if err != nil {
		return "", err
	}
	p := filepath.Join(d.Root, filepath.FromSlash(key))
	rel, err := filepath.Rel(d.Root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the store", path)
	}
	return p, nil
}

func (d DirStore) Put(_ context.Context, runID, path string, content []byte) error {
	p, err := d.file(runID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, content, 0o644)
}

func (d DirStore) Get(_ context.Context, runID, path string) ([]byte, error) {
	p, err := d.file(runID, path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return b, err
}
