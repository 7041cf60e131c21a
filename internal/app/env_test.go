package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// LoadEnvFiles reads KEY=VALUE pairs and populates the process environment.
func TestLoadEnvFiles_LoadsKeyValues(t *testing.T) {
	t.Setenv("XTRACT_SITE", "")
	t.Setenv("XTRACT_FORMAT", "")

	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env.test")
	content := "\n# sample dotenv file\nXTRACT_SITE=oup\nexport XTRACT_FORMAT='jsonl'\nnot a pair\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write dotenv: %v", err)
	}

	if err := LoadEnvFiles(envPath, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("XTRACT_SITE"); got != "oup" {
		t.Fatalf("XTRACT_SITE=%q, want oup", got)
	}
	if got := os.Getenv("XTRACT_FORMAT"); got != "jsonl" {
		t.Fatalf("XTRACT_FORMAT=%q, want jsonl", got)
	}
}

// Later files override earlier ones; the real environment overrides both.
func TestLoadEnvFiles_Precedence(t *testing.T) {
	t.Setenv("K", "")
	t.Setenv("PRESET", "shell")
	dir := t.TempDir()
	a := filepath.Join(dir, ".env.a")
	b := filepath.Join(dir, ".env.b")
	if err := os.WriteFile(a, []byte("K=first\nPRESET=a\n"), 0o600); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := os.WriteFile(b, []byte("K=second\n"), 0o600); err != nil {
		t.Fatalf("write b: %v", err)
	}
	if err := LoadEnvFiles(a, b); err != nil {
		t.Fatalf("LoadEnvFiles error: %v", err)
	}
	if got := os.Getenv("K"); got != "second" {
		t.Fatalf("override order failed: got %q, want second", got)
	}
	if got := os.Getenv("PRESET"); got != "shell" {
		t.Fatalf("existing env must win, got %q", got)
	}
}

func TestParseDotenv(t *testing.T) {
	got, err := parseDotenv(strings.NewReader("A=1\nB = \"two words\"\n=skip\n#C=3\n"))
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{"A": "1", "B": "two words"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestApplyEnvToConfig_FillsUnset(t *testing.T) {
	t.Setenv("XTRACT_SITE", "oup")
	t.Setenv("XTRACT_OUTPUT", "out.tsv")
	t.Setenv("XTRACT_MAX_RETRY", "3")
	t.Setenv("XTRACT_DELAY", "2s")
	t.Setenv("XTRACT_USER_AGENT", "fake:chrome")
	t.Setenv("XTRACT_VERBOSE", "yes")

	cfg := Config{OutputPath: "keep.tsv"}
	ApplyEnvToConfig(&cfg)
	if cfg.Site != "oup" || cfg.OutputPath != "keep.tsv" {
		t.Fatalf("unexpected site/output: %q %q", cfg.Site, cfg.OutputPath)
	}
	if cfg.MaxRetry != 3 || cfg.Delay != 2*time.Second {
		t.Fatalf("unexpected retry/delay: %d %s", cfg.MaxRetry, cfg.Delay)
	}
	if cfg.UserAgentSpec != "fake:chrome" || !cfg.Verbose {
		t.Fatalf("unexpected ua/verbose: %q %v", cfg.UserAgentSpec, cfg.Verbose)
	}
}

func TestApplyEnvToConfig_ReplacesDefaultUserAgent(t *testing.T) {
	t.Setenv("XTRACT_USER_AGENT", "Mozilla/5.0 test")
	cfg := DefaultConfig()
	if cfg.UserAgentSpec != "fake:random" {
		t.Fatalf("expected fake:random by default, got %q", cfg.UserAgentSpec)
	}
	ApplyEnvToConfig(&cfg)
	if cfg.UserAgentSpec != "Mozilla/5.0 test" {
		t.Fatalf("env should replace the default agent, got %q", cfg.UserAgentSpec)
	}
}

func TestApplyEnvOverrides_Forces(t *testing.T) {
	t.Setenv("XTRACT_FORMAT", "jsonl")
	t.Setenv("XTRACT_BACKOFF", "1s")
	t.Setenv("XTRACT_NO_PAUSE", "off")
	t.Setenv("XTRACT_MAX_RETRY", "not-a-number")

	cfg := Config{Format: "tsv", Backoff: time.Minute, NoPause: true, MaxRetry: 7}
	ApplyEnvOverrides(&cfg)
	if cfg.Format != "jsonl" || cfg.Backoff != time.Second {
		t.Fatalf("expected env to override: %+v", cfg)
	}
	if cfg.NoPause {
		t.Fatalf("XTRACT_NO_PAUSE=off should clear NoPause")
	}
	if cfg.MaxRetry != 7 {
		t.Fatalf("malformed env must be ignored, got %d", cfg.MaxRetry)
	}
}

func TestLoadAndApplyFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paperxtract.yaml")
	yml := strings.Join([]string{
		"site: oup",
		"format: jsonl",
		"fetch:",
		"  maxRetry: 2",
		"  backoff: 3s",
		"  userAgent: 'a,b'",
		"crawl:",
		"  volumes: [29, 30]",
		"  maxArticles: 10",
		"archive:",
		"  dir: pages",
		"  maxAge: 24h",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := DefaultConfig()
	cfg.Format = "table" // explicit flag wins
	ApplyFileConfig(&cfg, fc)
	if cfg.Site != "oup" || cfg.Format != "table" {
		t.Fatalf("unexpected site/format: %q %q", cfg.Site, cfg.Format)
	}
	if cfg.MaxRetry != 2 || cfg.Backoff != 3*time.Second || cfg.UserAgentSpec != "a,b" {
		t.Fatalf("unexpected fetch settings: %+v", cfg)
	}
	if diff := cmp.Diff([]int{29, 30}, cfg.Volumes); diff != "" {
		t.Fatalf("volumes mismatch (-want +got):\n%s", diff)
	}
	if cfg.MaxArticles != 10 || cfg.ArchiveDir != "pages" || cfg.ArchiveMaxAge != 24*time.Hour {
		t.Fatalf("unexpected crawl/archive settings: %+v", cfg)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.json")
	if err := os.WriteFile(path, []byte(`{"site":"springer","crawl":{"pages":[1,2,3]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	fc, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if fc.Site != "springer" || len(fc.Crawl.Pages) != 3 {
		t.Fatalf("unexpected %+v", fc)
	}
}

func TestValidateConfig(t *testing.T) {
	if err := ValidateConfig(DefaultConfig()); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	bad := []Config{
		{Format: "tsv"},
		{Site: "x", Format: "xml"},
		{Site: "x", Format: "tsv", MaxRetry: -1},
		{Site: "x", Format: "tsv", Delay: -time.Second},
		{Site: "x", Format: "tsv", StartYear: 2019, EndYear: 2015},
	}
	for i, c := range bad {
		if err := ValidateConfig(c); err == nil {
			t.Fatalf("case %d: expected error for %+v", i, c)
		}
	}
}
