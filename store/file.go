package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps collections as individual JSON files within a base directory.
// Each collection is stored as <key>.json.
type File struct {
	baseDir string
	mu      sync.RWMutex
}

func NewFile(baseDir string) *File {
	return &File{baseDir: baseDir}
}

// Get reads a collection. A missing file is reported as fs.ErrNotExist.
func (s *File) Get(_ context.Context, key string) ([]byte, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return os.ReadFile(s.pathFor(key))
}

// Put replaces a collection. The file is written aside and renamed, so a crash never
// leaves a truncated collection behind.
func (s *File) Put(_ context.Context, key string, data []byte) error {
	if err := validKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(s.baseDir, key+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("cannot write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, s.pathFor(key))
}

func (s *File) Close() error { return nil }

func (s *File) pathFor(key string) string {
	return filepath.Join(s.baseDir, key+".json")
}
