package archive

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Clear empties the archive and recreates the directory with the store's
// permissions.
func (s *Store) Clear() error {
	if s == nil || strings.TrimSpace(s.Dir) == "" {
		return errors.New("archive dir not configured")
	}
	if err := os.RemoveAll(s.Dir); err != nil {
		return err
	}
	return s.ensureDir()
}

// Purge removes pages archived more than maxAge before now and reports how
// many went. Meta files that cannot be read are left alone, and a missing
// directory is not an error.
func (s *Store) Purge(maxAge time.Duration, now time.Time) (int, error) {
	if s == nil || s.Dir == "" || maxAge <= 0 {
		return 0, nil
	}
	cutoff := now.UTC().Add(-maxAge)
	removed := 0
	err := filepath.WalkDir(s.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		key, ok := strings.CutSuffix(d.Name(), ".meta.json")
		if d.IsDir() || !ok {
			return nil
		}
		saved, ok := savedAt(path)
		if !ok || !saved.Before(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		_ = os.Remove(s.bodyPath(key))
		removed++
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return removed, nil
	}
	return removed, err
}

func savedAt(metaPath string) (time.Time, bool) {
	b, err := os.ReadFile(metaPath)
	if err != nil {
		return time.Time{}, false
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || e.SavedAt.IsZero() {
		return time.Time{}, false
	}
	return e.SavedAt, true
}
