// Package archive writes comic images into the year-partitioned output
// tree and drives the sequential archival loop.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aluiziolira/go-xkcd-archive/config"
	"github.com/aluiziolira/go-xkcd-archive/models"
	"github.com/aluiziolira/go-xkcd-archive/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Store manages the output directory tree. A file's presence on disk is
// the only completion marker; Save never overwrites.
type Store struct {
	root    string
	allowed map[string]struct{}
	exists  *lru.Cache[string, struct{}]
}

// NewStore builds a store rooted at cfg.OutputDir. Known-present paths
// are cached in a bounded LRU so reruns over a large archive do not
// stat the same files repeatedly.
func NewStore(cfg *config.Config) (*Store, error) {
	cache, err := lru.New[string, struct{}](cfg.ExistsCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create exists cache: %w", err)
	}

	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}

	return &Store{
		root:    cfg.OutputDir,
		allowed: allowed,
		exists:  cache,
	}, nil
}

// AllowedExtension reports whether ext is in the download allow-list.
func (s *Store) AllowedExtension(ext string) bool {
	_, ok := s.allowed[strings.ToLower(ext)]
	return ok
}

// Path returns the output path for a record:
// <root>/<year>/(YYYY-MM-DD) Title.ext.
func (s *Store) Path(c *models.Comic) (string, error) {
	filename, err := parser.Filename(c)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, strings.TrimSpace(c.Year), filename), nil
}

// Exists reports whether a file is already present at path.
func (s *Store) Exists(path string) bool {
	if _, ok := s.exists.Get(path); ok {
		return true
	}
	if _, err := os.Stat(path); err != nil {
		return false
	}
	s.exists.Add(path, struct{}{})
	return true
}

// Save writes data to path, creating the year directory if needed.
// The write happens only when the file does not exist yet; a
// concurrent or earlier writer wins.
func (s *Store) Save(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			s.exists.Add(path, struct{}{})
			return nil
		}
		return fmt.Errorf("create file %q: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write file %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file %q: %w", path, err)
	}

	s.exists.Add(path, struct{}{})
	return nil
}
