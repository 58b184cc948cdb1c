package filestore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"brokerage-onboarding-backend/internal/domain"

	"github.com/spf13/afero"
)

// kvStore maps every key to one JSON file below dir. Key segments separated
// by ':' become directories.
type kvStore struct {
	fs  afero.Fs
	dir string
}

func NewKeyValueStore(fs afero.Fs, dir string) domain.KeyValueStore {
	return &kvStore{fs: fs, dir: dir}
}

func (s *kvStore) path(key string) string {
	parts := strings.Split(key, ":")
	segments := make([]string, 0, len(parts)+1)
	segments = append(segments, s.dir)
	for _, p := range parts {
		p = url.PathEscape(p)
		if p == "" || p == "." || p == ".." {
			p = "_" + p
		}
		segments = append(segments, p)
	}
	return filepath.Join(segments...) + ".json"
}

func (s *kvStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

func (s *kvStore) Set(_ context.Context, key string, value []byte) error {
	return writeFileAtomic(s.fs, s.path(key), value)
}

func (s *kvStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		if err := s.fs.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

func (s *kvStore) Exists(_ context.Context, key string) (bool, error) {
	return afero.Exists(s.fs, s.path(key))
}

// writeFileAtomic writes through a temp file and rename so readers never see
// a half-written state blob
func writeFileAtomic(fs afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := afero.TempFile(fs, dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer fs.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}
