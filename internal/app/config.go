package app

import (
	"net/http"
	"time"
)

// Defaults shared by flag parsing and file-config overlay.
const (
	siteDefault     = "springer"
	formatDefault   = "tsv"
	outputDefault   = "-"
	maxRetryDefault = 5
	backoffDefault  = 10 * time.Second
	delayDefault    = 100 * time.Millisecond

	// userAgentDefault draws a fresh real-world browser agent per attempt.
	userAgentDefault = "fake:random"
)

// Config holds runtime configuration for a crawl.
type Config struct {
	// Site names a profile: a built-in one or one from ProfilesPath.
	Site         string
	ProfilesPath string

	OutputPath string
	Format     string
	// ReportsDir receives pdf output when OutputPath is unset.
	ReportsDir string

	// Listing overrides. Empty keeps the profile's values.
	Pages     []int
	Volumes   []int
	Issues    []int
	Category  string
	StartYear int
	EndYear   int

	// MaxArticles stops the crawl after this many kept articles. 0 = no limit.
	MaxArticles int

	// Fetch behavior
	MaxRetry int
	Backoff  time.Duration
	// Delay overrides the profile delay when non-zero.
	Delay   time.Duration
	Timeout time.Duration
	// UserAgentSpec is the configured User-Agent value: a fixed agent, a
	// comma-separated rotation list or "fake:<kind>". Empty keeps the
	// header set's agent.
	UserAgentSpec string
	// UserAgent picks a User-Agent per attempt. Nil keeps the header set.
	UserAgent func() string
	// InsecureTLS skips certificate verification.
	InsecureTLS bool
	// Transport overrides the HTTP round tripper (tests, proxies).
	Transport http.RoundTripper

	// Archive of pages whose extraction came back empty
	ArchiveDir         string
	ArchiveMaxAge      time.Duration
	ArchiveClear       bool
	ArchiveStrictPerms bool

	// NoPause skips the captcha, empty-article and between-listing pauses.
	NoPause bool
	Verbose bool
}

// DefaultConfig returns the values used when neither flags, env nor a config
// file set them.
func DefaultConfig() Config {
	return Config{
		Site:          siteDefault,
		Format:        formatDefault,
		OutputPath:    outputDefault,
		MaxRetry:      maxRetryDefault,
		Backoff:       backoffDefault,
		UserAgentSpec: userAgentDefault,
	}
}
