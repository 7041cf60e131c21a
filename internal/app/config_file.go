package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/paperxtract/internal/output"
)

// FileConfig represents the single-file configuration schema.
type FileConfig struct {
	Site     string `yaml:"site" json:"site"`
	Profiles string `yaml:"profiles" json:"profiles"`
	Output   string `yaml:"output" json:"output"`
	Reports  string `yaml:"reportsDir" json:"reportsDir"`
	Format   string `yaml:"format" json:"format"`
	Verbose  bool   `yaml:"verbose" json:"verbose"`

	Fetch struct {
		MaxRetry  int           `yaml:"maxRetry" json:"maxRetry"`
		Backoff   time.Duration `yaml:"backoff" json:"backoff"`
		Delay     time.Duration `yaml:"delay" json:"delay"`
		Timeout   time.Duration `yaml:"timeout" json:"timeout"`
		UserAgent string        `yaml:"userAgent" json:"userAgent"`
		Insecure  bool          `yaml:"insecureTLS" json:"insecureTLS"`
	} `yaml:"fetch" json:"fetch"`

	Crawl struct {
		Pages       []int  `yaml:"pages" json:"pages"`
		Volumes     []int  `yaml:"volumes" json:"volumes"`
		Issues      []int  `yaml:"issues" json:"issues"`
		Category    string `yaml:"category" json:"category"`
		StartYear   int    `yaml:"startYear" json:"startYear"`
		EndYear     int    `yaml:"endYear" json:"endYear"`
		MaxArticles int    `yaml:"maxArticles" json:"maxArticles"`
		NoPause     bool   `yaml:"noPause" json:"noPause"`
	} `yaml:"crawl" json:"crawl"`

	Archive struct {
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
	} `yaml:"archive" json:"archive"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from fc into cfg for any fields that are
// unset or still at their flag default. Explicit flags win.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	if (cfg.Site == "" || cfg.Site == siteDefault) && fc.Site != "" {
		cfg.Site = fc.Site
	}
	if cfg.ProfilesPath == "" && fc.Profiles != "" {
		cfg.ProfilesPath = fc.Profiles
	}
	if (cfg.OutputPath == "" || cfg.OutputPath == outputDefault) && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.ReportsDir == "" && fc.Reports != "" {
		cfg.ReportsDir = fc.Reports
	}
	if (cfg.Format == "" || cfg.Format == formatDefault) && fc.Format != "" {
		cfg.Format = fc.Format
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}
	if !cfg.InsecureTLS && fc.Fetch.Insecure {
		cfg.InsecureTLS = true
	}

	if (cfg.MaxRetry == 0 || cfg.MaxRetry == maxRetryDefault) && fc.Fetch.MaxRetry > 0 {
		cfg.MaxRetry = fc.Fetch.MaxRetry
	}
	if (cfg.Backoff == 0 || cfg.Backoff == backoffDefault) && fc.Fetch.Backoff > 0 {
		cfg.Backoff = fc.Fetch.Backoff
	}
	if cfg.Delay == 0 && fc.Fetch.Delay > 0 {
		cfg.Delay = fc.Fetch.Delay
	}
	if cfg.Timeout == 0 && fc.Fetch.Timeout > 0 {
		cfg.Timeout = fc.Fetch.Timeout
	}
	if (cfg.UserAgentSpec == "" || cfg.UserAgentSpec == userAgentDefault) && fc.Fetch.UserAgent != "" {
		cfg.UserAgentSpec = fc.Fetch.UserAgent
	}

	if len(cfg.Pages) == 0 && len(fc.Crawl.Pages) > 0 {
		cfg.Pages = append([]int{}, fc.Crawl.Pages...)
	}
	if len(cfg.Volumes) == 0 && len(fc.Crawl.Volumes) > 0 {
		cfg.Volumes = append([]int{}, fc.Crawl.Volumes...)
	}
	if len(cfg.Issues) == 0 && len(fc.Crawl.Issues) > 0 {
		cfg.Issues = append([]int{}, fc.Crawl.Issues...)
	}
	if cfg.Category == "" && fc.Crawl.Category != "" {
		cfg.Category = fc.Crawl.Category
	}
	if cfg.StartYear == 0 && fc.Crawl.StartYear > 0 {
		cfg.StartYear = fc.Crawl.StartYear
	}
	if cfg.EndYear == 0 && fc.Crawl.EndYear > 0 {
		cfg.EndYear = fc.Crawl.EndYear
	}
	if cfg.MaxArticles == 0 && fc.Crawl.MaxArticles > 0 {
		cfg.MaxArticles = fc.Crawl.MaxArticles
	}
	if !cfg.NoPause && fc.Crawl.NoPause {
		cfg.NoPause = true
	}

	if cfg.ArchiveDir == "" && fc.Archive.Dir != "" {
		cfg.ArchiveDir = fc.Archive.Dir
	}
	if cfg.ArchiveMaxAge == 0 && fc.Archive.MaxAge > 0 {
		cfg.ArchiveMaxAge = fc.Archive.MaxAge
	}
	if !cfg.ArchiveClear && fc.Archive.Clear {
		cfg.ArchiveClear = true
	}
	if !cfg.ArchiveStrictPerms && fc.Archive.StrictPerms {
		cfg.ArchiveStrictPerms = true
	}
}

// ValidateConfig rejects settings that cannot drive a crawl.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.Site) == "" {
		return errors.New("config: site is required")
	}
	if !validFormat(cfg.Format) {
		return fmt.Errorf("config: unknown format %q (want one of %s)", cfg.Format, strings.Join(output.Formats, ", "))
	}
	if cfg.MaxRetry < 0 || cfg.MaxArticles < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.Backoff < 0 || cfg.Delay < 0 || cfg.Timeout < 0 || cfg.ArchiveMaxAge < 0 {
		return errors.New("config: negative durations are not allowed")
	}
	if cfg.StartYear > 0 && cfg.EndYear > 0 && cfg.EndYear < cfg.StartYear {
		return errors.New("config: end year is before start year")
	}
	return nil
}

func validFormat(f string) bool {
	for _, v := range output.Formats {
		if f == v {
			return true
		}
	}
	return false
}
