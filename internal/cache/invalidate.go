package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ClearDir removes the directory and all contents. It recreates the directory
// afterwards to leave a valid empty cache location.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeByAge removes cache entries older than maxAge based on file
// modification time. A scan re-running against an unchanged repository
// should still get a fresh analysis once the provider's findings are stale
// enough to be worth re-asking for.
func PurgeByAge(dir string, maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	removed := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if now.Sub(info.ModTime().UTC()) <= maxAge {
			return nil
		}
		removed++
		_ = os.Remove(path)
		return nil
	})
	return removed, err
}

// EnforceLimits enforces maxBytes and/or maxCount on the cache directory,
// evicting least-recently-used entries first by file mtime. A non-positive
// limit disables that dimension. Returns the number of entries removed.
func EnforceLimits(dir string, maxBytes int64, maxCount int) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, errors.New("empty dir")
	}
	if maxBytes <= 0 && maxCount <= 0 {
		return 0, nil
	}
	type entry struct {
		path  string
		mtime time.Time
		bytes int64
	}
	entries := make([]entry, 0, 64)
	var totalBytes int64
	var totalCount int
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		entries = append(entries, entry{path: path, mtime: info.ModTime().UTC(), bytes: info.Size()})
		totalBytes += info.Size()
		totalCount++
		return nil
	})
	if err != nil {
		return 0, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].mtime.Before(entries[j].mtime) })
	removed := 0
	over := func() bool {
		if maxCount > 0 && totalCount > maxCount {
			return true
		}
		if maxBytes > 0 && totalBytes > maxBytes {
			return true
		}
		return false
	}
	idx := 0
	for over() && idx < len(entries) {
		e := entries[idx]
		if err := os.Remove(e.path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", e.path, err)
		}
		totalBytes -= e.bytes
		totalCount--
		removed++
		idx++
	}
	return removed, nil
}
