package kbsource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kailas-cloud/nutrisafe/internal/kb"
)

// File reads a bundle from the local filesystem. The format follows the
// file extension (.json, otherwise YAML).
type File struct {
	path string
}

// NewFile creates a file source.
func NewFile(path string) *File {
	return &File{path: path}
}

// Name identifies the source in logs and metrics.
func (f *File) Name() string { return "file" }

// Fetch reads the whole file.
func (f *File) Fetch(_ context.Context) ([]byte, kb.Format, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", filepath.Base(f.path), err)
	}
	return data, kb.FormatFromName(f.path), nil
}
