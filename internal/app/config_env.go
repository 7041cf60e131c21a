package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from environment variables.
// Explicit cfg values take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if *dst == "" {
			*dst = strings.TrimSpace(os.Getenv(key))
		}
	}
	setString(&cfg.Site, "XTRACT_SITE")
	setString(&cfg.ProfilesPath, "XTRACT_PROFILES")
	setString(&cfg.OutputPath, "XTRACT_OUTPUT")
	setString(&cfg.Format, "XTRACT_FORMAT")
	setString(&cfg.ArchiveDir, "XTRACT_ARCHIVE_DIR")
	setString(&cfg.ReportsDir, "XTRACT_REPORTS_DIR")
	if cfg.UserAgentSpec == userAgentDefault {
		if v := strings.TrimSpace(os.Getenv("XTRACT_USER_AGENT")); v != "" {
			cfg.UserAgentSpec = v
		}
	}
	setString(&cfg.UserAgentSpec, "XTRACT_USER_AGENT")

	if cfg.MaxRetry == 0 {
		if n, ok := envInt("XTRACT_MAX_RETRY"); ok {
			cfg.MaxRetry = n
		}
	}
	setDur := func(dst *time.Duration, key string) {
		if *dst != 0 {
			return
		}
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}
	setDur(&cfg.Backoff, "XTRACT_BACKOFF")
	setDur(&cfg.Delay, "XTRACT_DELAY")
	setDur(&cfg.Timeout, "XTRACT_TIMEOUT")
	setDur(&cfg.ArchiveMaxAge, "XTRACT_ARCHIVE_MAX_AGE")

	setBool := func(dst *bool, key string) {
		if *dst {
			return
		}
		if v, ok := envBool(key); ok && v {
			*dst = true
		}
	}
	setBool(&cfg.Verbose, "XTRACT_VERBOSE")
	setBool(&cfg.InsecureTLS, "XTRACT_INSECURE_TLS")
	setBool(&cfg.NoPause, "XTRACT_NO_PAUSE")
	setBool(&cfg.ArchiveClear, "XTRACT_ARCHIVE_CLEAR")
	setBool(&cfg.ArchiveStrictPerms, "XTRACT_ARCHIVE_STRICT_PERMS")
}

// ApplyEnvOverrides forcefully overrides cfg fields with environment variables
// when the corresponding env vars are set. This lets env take precedence over
// a config file while flags remain highest precedence.
func ApplyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}
	setString := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	setString(&cfg.Site, "XTRACT_SITE")
	setString(&cfg.ProfilesPath, "XTRACT_PROFILES")
	setString(&cfg.OutputPath, "XTRACT_OUTPUT")
	setString(&cfg.Format, "XTRACT_FORMAT")
	setString(&cfg.ArchiveDir, "XTRACT_ARCHIVE_DIR")
	setString(&cfg.ReportsDir, "XTRACT_REPORTS_DIR")
	setString(&cfg.UserAgentSpec, "XTRACT_USER_AGENT")

	if n, ok := envInt("XTRACT_MAX_RETRY"); ok {
		cfg.MaxRetry = n
	}
	setDur := func(dst *time.Duration, key string) {
		if d, ok := envDuration(key); ok {
			*dst = d
		}
	}
	setDur(&cfg.Backoff, "XTRACT_BACKOFF")
	setDur(&cfg.Delay, "XTRACT_DELAY")
	setDur(&cfg.Timeout, "XTRACT_TIMEOUT")
	setDur(&cfg.ArchiveMaxAge, "XTRACT_ARCHIVE_MAX_AGE")

	setBool := func(dst *bool, key string) {
		if v, ok := envBool(key); ok {
			*dst = v
		}
	}
	setBool(&cfg.Verbose, "XTRACT_VERBOSE")
	setBool(&cfg.InsecureTLS, "XTRACT_INSECURE_TLS")
	setBool(&cfg.NoPause, "XTRACT_NO_PAUSE")
	setBool(&cfg.ArchiveClear, "XTRACT_ARCHIVE_CLEAR")
	setBool(&cfg.ArchiveStrictPerms, "XTRACT_ARCHIVE_STRICT_PERMS")
}

func envInt(key string) (int, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envDuration(key string) (time.Duration, bool) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return 0, false
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envBool(key string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	}
	return false, false
}
