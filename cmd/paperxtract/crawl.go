package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/paperxtract/internal/app"
	"github.com/hyperifyio/paperxtract/internal/useragent"
)

type crawlFlags struct {
	site        string
	profiles    string
	output      string
	reportsDir  string
	format      string
	pages       string
	volumes     string
	issues      string
	category    string
	startYear   int
	endYear     int
	maxArticles int
	noPause     bool

	archiveDir    string
	archiveMaxAge string
	archiveClear  bool
	archiveStrict bool
}

func newCrawlCmd(g *globalFlags) *cobra.Command {
	f := &crawlFlags{}
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl a publisher site profile and write one record per article",
		Example: `  paperxtract crawl --site springer --pages 1-5 -o springer.tsv
  paperxtract crawl --site oup --volumes 29 --issues 1-4 --format jsonl -o oup.jsonl`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildCrawlConfig(cmd, g, f)
			if err != nil {
				return err
			}
			return runCrawl(cmd.Context(), cfg)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&f.site, "site", "springer", "Site profile name")
	fl.StringVar(&f.profiles, "profiles", "", "YAML file with additional site profiles")
	fl.StringVarP(&f.output, "output", "o", "-", "Output path (- for stdout)")
	fl.StringVar(&f.reportsDir, "reports-dir", "", "Directory for pdf output when -o is not a file (default reports)")
	fl.StringVar(&f.format, "format", "tsv", "Output format: tsv, jsonl, table, pdf")
	fl.StringVar(&f.pages, "pages", "", "Listing pages, e.g. 1-5 or 1,3,7")
	fl.StringVar(&f.volumes, "volumes", "", "Journal volumes, e.g. 29 or 28-30")
	fl.StringVar(&f.issues, "issues", "", "Journal issues per volume, e.g. 1-4")
	fl.StringVar(&f.category, "category", "", "Subject category for search listings")
	fl.IntVar(&f.startYear, "start-year", 0, "First publication year for search listings")
	fl.IntVar(&f.endYear, "end-year", 0, "Last publication year for search listings")
	fl.IntVar(&f.maxArticles, "max-articles", 0, "Stop after this many kept articles (0 = no limit)")
	fl.BoolVar(&f.noPause, "no-pause", false, "Skip captcha, empty-article and between-listing pauses")
	fl.StringVar(&f.archiveDir, "archive.dir", "", "Directory for pages whose extraction came back empty")
	fl.StringVar(&f.archiveMaxAge, "archive.maxAge", "", "Purge archived pages older than this at startup (e.g. 72h)")
	fl.BoolVar(&f.archiveClear, "archive.clear", false, "Clear the archive directory before the crawl")
	fl.BoolVar(&f.archiveStrict, "archive.strictPerms", false, "Restrict archive permissions (0700 dirs, 0600 files)")
	return cmd
}

// buildCrawlConfig layers the configuration: config file, then XTRACT_*
// variables, then flags given on the command line.
func buildCrawlConfig(cmd *cobra.Command, g *globalFlags, f *crawlFlags) (app.Config, error) {
	cfg := app.DefaultConfig()
	if g.configPath != "" {
		fc, err := app.LoadConfigFile(g.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	app.ApplyEnvOverrides(&cfg)

	changed := cmd.Flags().Changed
	if changed("site") {
		cfg.Site = f.site
	}
	if changed("profiles") {
		cfg.ProfilesPath = f.profiles
	}
	if changed("output") {
		cfg.OutputPath = f.output
	}
	if changed("reports-dir") {
		cfg.ReportsDir = f.reportsDir
	}
	if changed("format") {
		cfg.Format = f.format
	}
	for _, lf := range []struct {
		name string
		raw  string
		dst  *[]int
	}{
		{"pages", f.pages, &cfg.Pages},
		{"volumes", f.volumes, &cfg.Volumes},
		{"issues", f.issues, &cfg.Issues},
	} {
		if !changed(lf.name) {
			continue
		}
		list, err := parseIntList(lf.raw)
		if err != nil {
			return cfg, fmt.Errorf("--%s: %w", lf.name, err)
		}
		*lf.dst = list
	}
	if changed("category") {
		cfg.Category = f.category
	}
	if changed("start-year") {
		cfg.StartYear = f.startYear
	}
	if changed("end-year") {
		cfg.EndYear = f.endYear
	}
	if changed("max-articles") {
		cfg.MaxArticles = f.maxArticles
	}
	if changed("no-pause") {
		cfg.NoPause = f.noPause
	}
	if changed("archive.dir") {
		cfg.ArchiveDir = f.archiveDir
	}
	if changed("archive.maxAge") {
		d, err := parseAge(f.archiveMaxAge)
		if err != nil {
			return cfg, fmt.Errorf("--archive.maxAge: %w", err)
		}
		cfg.ArchiveMaxAge = d
	}
	if changed("archive.clear") {
		cfg.ArchiveClear = f.archiveClear
	}
	if changed("archive.strictPerms") {
		cfg.ArchiveStrictPerms = f.archiveStrict
	}
	if changed("verbose") {
		cfg.Verbose = g.verbose
	}
	if changed("max-retry") {
		cfg.MaxRetry = g.maxRetry
	}
	if changed("backoff") {
		cfg.Backoff = g.backoff
	}
	if changed("delay") {
		cfg.Delay = g.delay
	}
	if changed("timeout") {
		cfg.Timeout = g.timeout
	}
	if changed("user-agent") {
		cfg.UserAgentSpec = g.userAgent
	}
	if changed("insecure") {
		cfg.InsecureTLS = g.insecure
	}

	ua, err := useragent.Parse(cfg.UserAgentSpec)
	if err != nil {
		return cfg, err
	}
	cfg.UserAgent = ua
	return cfg, app.ValidateConfig(cfg)
}

// runCrawl is swapped out in tests.
var runCrawl = run

func run(ctx context.Context, cfg app.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Run(ctx)
}
