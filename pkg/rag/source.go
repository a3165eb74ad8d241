package rag

import (
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/atelier-ai/atelier/pkg/config"
)

// DirectorySource walks a documents folder applying include and exclude
// glob patterns against file base names.
type DirectorySource struct {
	root        string
	include     []string
	exclude     []string
	maxFileSize int64
}

func NewDirectorySource(cfg config.DocumentStoreConfig) *DirectorySource {
	return &DirectorySource{
		root:        cfg.Path,
		include:     cfg.IncludePatterns,
		exclude:     cfg.ExcludePatterns,
		maxFileSize: cfg.MaxFileSize,
	}
}

func (s *DirectorySource) Root() string { return s.root }

// Matches reports whether the file at path should be indexed.
func (s *DirectorySource) Matches(path string, size int64) bool {
	if s.maxFileSize > 0 && size > s.maxFileSize {
		return false
	}

	base := filepath.Base(path)
	for _, pattern := range s.exclude {
		if ok, _ := filepath.Match(pattern, base); ok {
			return false
		}
	}
	for _, pattern := range s.include {
		if ok, _ := filepath.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// List returns all matching file paths under the root.
func (s *DirectorySource) List() ([]string, error) {
	var paths []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if s.Matches(path, info.Size()) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", s.root, err)
	}
	return paths, nil
}
