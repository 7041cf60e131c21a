package archive

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Entry describes one archived page.
type Entry struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url,omitempty"`
	StatusCode  int       `json:"status_code"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title,omitempty"`
	Reason      string    `json:"reason"`
	Expr        string    `json:"expr,omitempty"`
	SavedAt     time.Time `json:"saved_at"`
}

// Store keeps raw page bodies on disk as <key>.meta.json and <key>.body
// where key is sha256(url). Pages are archived when extraction comes back
// empty so the markup can be inspected later (captcha walls, layout
// changes). A later save for the same URL overwrites the earlier one.
type Store struct {
	Dir string
	// StrictPerms, when true, enforces 0700 on the directory and 0600 on
	// files.
	StrictPerms bool
}

func (s *Store) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("archive dir not configured")
	}
	perm := os.FileMode(0o755)
	if s.StrictPerms {
		perm = 0o700
	}
	if err := os.MkdirAll(s.Dir, perm); err != nil {
		return err
	}
	if s.StrictPerms {
		if info, err := os.Stat(s.Dir); err == nil && info.Mode()&0o777 != 0o700 {
			_ = os.Chmod(s.Dir, 0o700)
		}
	}
	return nil
}

func (s *Store) filePerm() os.FileMode {
	if s.StrictPerms {
		return 0o600
	}
	return 0o644
}

// Key returns the file stem used for url.
func Key(url string) string {
	h := sha256.Sum256([]byte(url))
	return hex.EncodeToString(h[:])
}

func (s *Store) metaPath(key string) string { return filepath.Join(s.Dir, key+".meta.json") }
func (s *Store) bodyPath(key string) string { return filepath.Join(s.Dir, key+".body") }

// Save writes body and its metadata. SavedAt is filled in when zero.
func (s *Store) Save(_ context.Context, e Entry, body []byte) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	key := Key(e.URL)
	if err := os.WriteFile(s.bodyPath(key), body, s.filePerm()); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if e.SavedAt.IsZero() {
		e.SavedAt = time.Now().UTC()
	}
	tmp := s.metaPath(key) + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, s.filePerm())
	if err != nil {
		return fmt.Errorf("create meta: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&e); err != nil {
		f.Close()
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.metaPath(key))
}

// LoadMeta returns the metadata archived for url.
func (s *Store) LoadMeta(_ context.Context, url string) (*Entry, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.metaPath(Key(url)))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var e Entry
	if err := json.NewDecoder(f).Decode(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// LoadBody returns the archived body for url.
func (s *Store) LoadBody(_ context.Context, url string) ([]byte, error) {
	if err := s.ensureDir(); err != nil {
		return nil, err
	}
	return os.ReadFile(s.bodyPath(Key(url)))
}
