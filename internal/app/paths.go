package app

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/hyperifyio/paperxtract/internal/site"
)

const reportsDirDefault = "reports"

// resolveOutputPath returns cfg.OutputPath, except that a pdf crawl without a
// file gets a stable path under the reports directory. The filename is the
// site name plus a short hash of its listing URLs, so reruns of the same crawl
// overwrite one file.
func resolveOutputPath(cfg Config, p site.Profile) string {
	out := strings.TrimSpace(cfg.OutputPath)
	if cfg.Format != "pdf" || (out != "" && out != "-") {
		return out
	}
	root := strings.TrimSpace(cfg.ReportsDir)
	if root == "" {
		root = reportsDirDefault
	}
	h := sha256.Sum256([]byte(strings.Join(p.ListingURLs(), "\n")))
	short := hex.EncodeToString(h[:])[:12]
	return filepath.Join(root, slugify(p.Name)+"-"+short+".pdf")
}

// slugify lowercases s and collapses runs of non-alphanumerics into "-".
func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "site"
	}
	return out
}
