package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/hyperifyio/paperxtract/internal/app"
	"github.com/hyperifyio/paperxtract/internal/useragent"
	"github.com/hyperifyio/paperxtract/internal/xtract"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps run errors: 0 on success, 2 when a crawl kept nothing, 1
// otherwise.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrNoRecords):
		log.Warn().Msg("no articles were kept")
		return 2
	default:
		log.Error().Err(err).Msg("run failed")
		return 1
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	verbose    bool
	envFiles   []string
	configPath string

	maxRetry  int
	backoff   time.Duration
	delay     time.Duration
	timeout   time.Duration
	userAgent string
	insecure  bool
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "paperxtract",
		Short:         "paperxtract scrapes article metadata from academic publishers with XPath.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.LoadEnvFiles(g.envFiles...); err != nil {
				return fmt.Errorf("load env files: %w", err)
			}
			verbose := g.verbose
			if v, ok := os.LookupEnv("XTRACT_VERBOSE"); ok && !cmd.Flags().Changed("verbose") {
				verbose = isTruthy(v)
			}
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.InfoLevel)
			}
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Verbose logging")
	pf.StringSliceVar(&g.envFiles, "env", []string{".env"}, "Dotenv files to load before reading XTRACT_* variables")
	pf.StringVar(&g.configPath, "config", "", "YAML or JSON config file")
	pf.IntVar(&g.maxRetry, "max-retry", 5, "Attempts per request before giving up")
	pf.DurationVar(&g.backoff, "backoff", 10*time.Second, "Pause after a failed attempt")
	pf.DurationVar(&g.delay, "delay", 0, "Pause after every successful request (0 = site profile or 100ms)")
	pf.DurationVar(&g.timeout, "timeout", 0, "Per-attempt timeout (0 disables)")
	pf.BoolVar(&g.insecure, "insecure", false, "Skip TLS certificate verification")
	pf.StringVar(&g.userAgent, "user-agent", "", "User-Agent: fixed value, comma-separated rotation list, or fake:<kind> ("+strings.Join(useragent.Kinds, ", ")+"); crawl defaults to fake:random, an empty value keeps the built-in header")

	root.AddCommand(
		newCrawlCmd(g),
		newQueryCmd(g),
		newFieldsCmd(g),
		newTableCmd(g),
		newProfilesCmd(),
		newVersionCmd(),
	)
	return root
}

// extractor builds an Extractor for the ad-hoc commands from global flags
// and XTRACT_* variables; flags set on the command line win.
func (g *globalFlags) extractor(cmd *cobra.Command) (*xtract.Extractor, error) {
	cfg := app.Config{MaxRetry: g.maxRetry, Backoff: g.backoff, Delay: g.delay, Timeout: g.timeout, UserAgentSpec: g.userAgent, InsecureTLS: g.insecure}
	env := cfg
	app.ApplyEnvOverrides(&env)
	flags := cmd.Flags()
	if !flags.Changed("max-retry") {
		cfg.MaxRetry = env.MaxRetry
	}
	if !flags.Changed("backoff") {
		cfg.Backoff = env.Backoff
	}
	if !flags.Changed("delay") {
		cfg.Delay = env.Delay
	}
	if !flags.Changed("timeout") {
		cfg.Timeout = env.Timeout
	}
	if !flags.Changed("user-agent") {
		cfg.UserAgentSpec = env.UserAgentSpec
	}
	if !flags.Changed("insecure") {
		cfg.InsecureTLS = env.InsecureTLS
	}

	xc := xtract.DefaultConfig()
	xc.MaxRetry = cfg.MaxRetry
	xc.Backoff = cfg.Backoff
	if cfg.Delay > 0 {
		xc.Delay = cfg.Delay
	}
	xc.Timeout = cfg.Timeout
	xc.Transport = app.NewCrawlerTransport(cfg.InsecureTLS)
	ua, err := useragent.Parse(cfg.UserAgentSpec)
	if err != nil {
		return nil, err
	}
	xc.UserAgent = ua
	return xtract.New(xc), nil
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// parseIntList accepts "3", "1,4,9" and ranges such as "1-5" in any mix.
func parseIntList(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(part, "-"); ok {
			from, err := strconv.Atoi(strings.TrimSpace(lo))
			if err != nil {
				return nil, fmt.Errorf("bad range %q: %w", part, err)
			}
			to, err := strconv.Atoi(strings.TrimSpace(hi))
			if err != nil {
				return nil, fmt.Errorf("bad range %q: %w", part, err)
			}
			if to < from {
				return nil, fmt.Errorf("bad range %q: end before start", part)
			}
			for i := from; i <= to; i++ {
				out = append(out, i)
			}
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// parseAge is time.ParseDuration plus a "d" suffix for whole days.
func parseAge(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("bad age %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
