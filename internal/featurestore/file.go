package featurestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Afsanakhatun777/AI-INVENTORY-FORECASTER/internal/features"
)

// FileStore keeps the feature table as a CSV file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

var _ Store = (*FileStore)(nil)

// Save writes the table atomically.
func (s *FileStore) Save(_ context.Context, t *features.Table) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create feature directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".features-*")
	if err != nil {
		return fmt.Errorf("failed to create feature file: %w", err)
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if err := features.WriteCSV(w, t); err != nil {
		tmp.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write feature file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write feature file: %w", err)
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the table and checks its header against schema.
func (s *FileStore) Load(_ context.Context, schema features.Schema) (*features.Table, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, s.path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open feature file: %w", err)
	}
	defer f.Close()
	return features.ReadCSV(bufio.NewReader(f), schema)
}
