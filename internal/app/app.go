package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/paperxtract/internal/archive"
	"github.com/hyperifyio/paperxtract/internal/fetch"
	"github.com/hyperifyio/paperxtract/internal/output"
	"github.com/hyperifyio/paperxtract/internal/site"
	"github.com/hyperifyio/paperxtract/internal/xtract"
)

// ErrNoRecords is returned when a crawl finishes without keeping a single
// article. The CLI maps it to a non-zero exit.
var ErrNoRecords = errors.New("no records extracted")

type App struct {
	cfg       Config
	profile   site.Profile
	x         *xtract.Extractor
	transport http.RoundTripper

	// sleep and now are replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// Stats summarizes a finished crawl.
type Stats struct {
	Listings      int
	EmptyListings int
	Links         int
	Kept          int
	Skipped       int
	Failed        int
}

func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	reg, err := site.Registry(cfg.ProfilesPath)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	p, ok := reg[cfg.Site]
	if !ok {
		return nil, fmt.Errorf("unknown site %q (have %v)", cfg.Site, site.Names(reg))
	}
	p = applyOverrides(p, cfg)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var store *archive.Store
	if cfg.ArchiveDir != "" {
		store = &archive.Store{Dir: cfg.ArchiveDir, StrictPerms: cfg.ArchiveStrictPerms}
		if cfg.ArchiveClear {
			if err := store.Clear(); err != nil {
				log.Warn().Err(err).Str("dir", cfg.ArchiveDir).Msg("archive clear failed")
			}
		}
		if cfg.ArchiveMaxAge > 0 {
			n, err := store.Purge(cfg.ArchiveMaxAge, time.Now())
			if err != nil {
				log.Warn().Err(err).Str("dir", cfg.ArchiveDir).Msg("archive purge failed")
			} else if n > 0 {
				log.Info().Int("removed", n).Str("dir", cfg.ArchiveDir).Msg("archive purged")
			}
		}
	}

	header := fetch.DefaultHeader()
	for k, v := range p.Header() {
		header[k] = v
	}
	delay := cfg.Delay
	if delay == 0 {
		delay = p.Delay
	}
	if delay == 0 {
		delay = delayDefault
	}
	transport := cfg.Transport
	if transport == nil {
		transport = NewCrawlerTransport(cfg.InsecureTLS)
	}

	x := xtract.New(xtract.Config{
		Header:    header,
		Jar:       fetch.NewJar(),
		MaxRetry:  cfg.MaxRetry,
		Backoff:   cfg.Backoff,
		Delay:     delay,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.Timeout,
		Transport: transport,
		Archive:   store,
	})

	log.Debug().Str("site", p.Name).Int("listings", len(p.ListingURLs())).Dur("delay", delay).Msg("crawler ready")
	return &App{cfg: cfg, profile: p, x: x, transport: transport, sleep: sleepCtx, now: time.Now}, nil
}

// Close releases idle connections held by the crawler transport.
func (a *App) Close() {
	if c, ok := a.transport.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

// Profile returns the effective site profile after overrides.
func (a *App) Profile() site.Profile { return a.profile }

// Run crawls every listing of the profile and writes kept articles to the
// configured output.
func (a *App) Run(ctx context.Context) error {
	path := resolveOutputPath(a.cfg, a.profile)
	if path != a.cfg.OutputPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create reports dir: %w", err)
		}
		log.Info().Str("path", path).Msg("writing pdf report")
	}
	w, err := output.New(a.cfg.Format, path, a.profile.FieldOrder())
	if err != nil {
		return err
	}
	stats, runErr := a.Crawl(ctx, w)
	if cerr := w.Close(); cerr != nil && runErr == nil {
		runErr = fmt.Errorf("close output: %w", cerr)
	}
	log.Info().
		Str("site", a.profile.Name).
		Int("listings", stats.Listings).
		Int("links", stats.Links).
		Int("kept", stats.Kept).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("crawl finished")
	if runErr != nil {
		return runErr
	}
	if stats.Kept == 0 {
		return ErrNoRecords
	}
	return nil
}

// Crawl walks listings and articles, writing each kept article to w. Pages
// that fail at the transport level are logged and skipped; invalid
// expressions, output errors and cancellation abort the crawl.
func (a *App) Crawl(ctx context.Context, w output.Writer) (Stats, error) {
	var st Stats
	p := a.profile
	listings := p.ListingURLs()

	for i, listing := range listings {
		st.Listings++
		links, err := a.x.FromURL(ctx, listing, p.LinkXPath)
		if err != nil {
			if fatal(err) {
				return st, err
			}
			st.Failed++
			log.Error().Err(err).Str("url", listing).Msg("listing failed")
			continue
		}
		if len(links) == 0 {
			st.EmptyListings++
			log.Warn().Str("url", listing).Dur("pause", p.CaptchaPause).Msg("no article links, possible captcha")
			if err := a.pause(ctx, p.CaptchaPause); err != nil {
				return st, err
			}
			continue
		}

		for _, link := range links {
			if a.cfg.MaxArticles > 0 && st.Kept >= a.cfg.MaxArticles {
				log.Info().Int("max", a.cfg.MaxArticles).Msg("article limit reached")
				return st, nil
			}
			articleURL, err := p.ResolveLink(listing, link.String())
			if err != nil {
				st.Skipped++
				log.Warn().Err(err).Str("listing", listing).Msg("bad article link")
				continue
			}
			st.Links++

			log.Debug().Str("url", articleURL).Msg("extract")
			fields, err := a.x.FieldsFromURL(ctx, articleURL, p.Fields)
			if err != nil {
				if fatal(err) {
					return st, err
				}
				st.Failed++
				log.Error().Err(err).Str("url", articleURL).Msg("article failed")
				continue
			}
			if p.Require != "" && len(fields[p.Require]) == 0 {
				st.Skipped++
				log.Warn().Str("url", articleURL).Str("field", p.Require).Dur("pause", p.EmptyPause).Msg("cannot extract required field")
				if err := a.pause(ctx, p.EmptyPause); err != nil {
					return st, err
				}
				continue
			}
			st.Kept++
			rec := output.Article{Counter: st.Kept, URL: articleURL, Fields: fields, Fetched: a.now()}
			if err := w.Write(rec); err != nil {
				return st, fmt.Errorf("write output: %w", err)
			}
		}

		if i < len(listings)-1 {
			if err := a.pause(ctx, p.RoundPause); err != nil {
				return st, err
			}
		}
	}
	return st, nil
}

func (a *App) pause(ctx context.Context, d time.Duration) error {
	if a.cfg.NoPause || d <= 0 {
		return ctx.Err()
	}
	return a.sleep(ctx, d)
}

// fatal reports errors that would repeat on every page.
func fatal(err error) bool {
	switch xtract.Classify(err) {
	case xtract.KindCanceled, xtract.KindXPath:
		return true
	}
	return false
}

func applyOverrides(p site.Profile, cfg Config) site.Profile {
	if len(cfg.Pages) > 0 {
		p.Pages = append([]int(nil), cfg.Pages...)
	}
	if len(cfg.Volumes) > 0 {
		p.Volumes = append([]int(nil), cfg.Volumes...)
	}
	if len(cfg.Issues) > 0 {
		p.Issues = append([]int(nil), cfg.Issues...)
	}
	if cfg.Category != "" {
		p.Category = cfg.Category
	}
	if cfg.StartYear > 0 {
		p.StartYear = cfg.StartYear
	}
	if cfg.EndYear > 0 {
		p.EndYear = cfg.EndYear
	}
	return p
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
