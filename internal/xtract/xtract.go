// Package xtract is the retrieval-and-extraction pipeline: fetch a page,
// parse it, evaluate XPath expressions and reshape the results.
//
// An Extractor owns one fetch.Client, so its header set and cookie jar
// persist across every call. It is not safe for concurrent use.
package xtract

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/paperxtract/internal/archive"
	"github.com/hyperifyio/paperxtract/internal/document"
	"github.com/hyperifyio/paperxtract/internal/extract"
	"github.com/hyperifyio/paperxtract/internal/fetch"
	"github.com/hyperifyio/paperxtract/internal/reshape"
)

// Config holds Extractor settings. New uses the values as given; start from
// DefaultConfig for the usual politeness settings.
type Config struct {
	// Header is the shared request header set. Nil means fetch.DefaultHeader.
	Header http.Header
	// Jar carries cookies across calls. Nil means a fresh jar.
	Jar http.CookieJar
	// MaxRetry is the attempt budget per fetch.
	MaxRetry int
	// Backoff is slept after a failed attempt.
	Backoff time.Duration
	// Delay is slept after every successful fetch.
	Delay time.Duration
	// UserAgent, if set, picks a User-Agent per attempt.
	UserAgent func() string
	// Timeout bounds a single attempt.
	Timeout time.Duration
	// Transport overrides the HTTP round tripper.
	Transport http.RoundTripper
	// Archive, if set, receives pages whose page-level evaluation was empty.
	Archive *archive.Store
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns five attempts, a 10s backoff and a 100ms delay.
func DefaultConfig() Config {
	return Config{
		Header:   fetch.DefaultHeader(),
		MaxRetry: 5,
		Backoff:  10 * time.Second,
		Delay:    100 * time.Millisecond,
	}
}

// Extractor runs the fetch → parse → evaluate → reshape pipeline.
type Extractor struct {
	client  *fetch.Client
	archive *archive.Store
	logger  *zerolog.Logger
}

// New builds an Extractor from cfg.
func New(cfg Config) *Extractor {
	logger := cfg.Logger
	if logger == nil {
		logger = &log.Logger
	}
	return &Extractor{
		client: &fetch.Client{
			Header:            cfg.Header,
			Jar:               cfg.Jar,
			UserAgent:         cfg.UserAgent,
			MaxRetry:          cfg.MaxRetry,
			Backoff:           cfg.Backoff,
			Delay:             cfg.Delay,
			PerRequestTimeout: cfg.Timeout,
			Transport:         cfg.Transport,
			Logger:            logger,
		},
		archive: cfg.Archive,
		logger:  logger,
	}
}

// Page is a fetched and parsed document.
type Page struct {
	Response *fetch.Response
	Doc      *document.Document
}

// Root returns the document root.
func (p *Page) Root() *html.Node { return p.Doc.Root }

// Page fetches url and parses the body.
func (x *Extractor) Page(ctx context.Context, url string) (*Page, error) {
	resp, err := x.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := document.Parse(resp.Body, resp.ContentType)
	if err != nil {
		return nil, err
	}
	return &Page{Response: resp, Doc: doc}, nil
}

// FromURL returns every match of expr on the page at url. An empty result is
// not an error; it is logged and the page is archived when an archive is
// configured.
func (x *Extractor) FromURL(ctx context.Context, url, expr string) ([]extract.Match, error) {
	e, err := extract.Compile(expr)
	if err != nil {
		return nil, err
	}
	p, err := x.Page(ctx, url)
	if err != nil {
		return nil, err
	}
	matches := extract.EvaluateCompiled(p.Root(), e)
	if len(matches) == 0 {
		x.emptyPage(ctx, p, expr)
	}
	return matches, nil
}

// FirstFromURL returns the first match of expr on the page at url. ok is
// false when nothing matched.
func (x *Extractor) FirstFromURL(ctx context.Context, url, expr string) (extract.Match, bool, error) {
	matches, err := x.FromURL(ctx, url, expr)
	if err != nil || len(matches) == 0 {
		return extract.Match{}, false, err
	}
	return matches[0], true, nil
}

// FieldsFromURL evaluates every field on the page at url, keeping all
// values, each trimmed.
func (x *Extractor) FieldsFromURL(ctx context.Context, url string, fm extract.FieldMap) (extract.FieldResult, error) {
	p, err := x.pageFor(ctx, url, fm)
	if err != nil {
		return nil, err
	}
	fr, err := FieldsFromNode(p.Root(), fm)
	if err != nil {
		return nil, err
	}
	if fr.Empty() && len(fm) > 0 {
		x.emptyPage(ctx, p, "")
	}
	return fr, nil
}

// CleanedFieldsFromURL keeps the first trimmed value of each field.
func (x *Extractor) CleanedFieldsFromURL(ctx context.Context, url string, fm extract.FieldMap) (reshape.Record, error) {
	p, err := x.pageFor(ctx, url, fm)
	if err != nil {
		return nil, err
	}
	return CleanedFieldsFromNode(p.Root(), fm)
}

// TableFromURL pairs field values by position into rows. Columns of
// different lengths yield an empty table.
func (x *Extractor) TableFromURL(ctx context.Context, url string, fm extract.FieldMap) ([]reshape.Row, error) {
	p, err := x.pageFor(ctx, url, fm)
	if err != nil {
		return nil, err
	}
	return TableFromNode(p.Root(), fm)
}

// pageFor validates fm before any network traffic.
func (x *Extractor) pageFor(ctx context.Context, url string, fm extract.FieldMap) (*Page, error) {
	if err := fm.Validate(); err != nil {
		return nil, err
	}
	return x.Page(ctx, url)
}

func (x *Extractor) emptyPage(ctx context.Context, p *Page, expr string) {
	title := p.Doc.Title()
	ev := x.logger.Warn().Str("url", p.Response.URL).Int("status", p.Response.StatusCode).Int("bytes", len(p.Response.Body))
	if title != "" {
		ev = ev.Str("title", title)
	}
	if expr != "" {
		ev = ev.Str("xpath", expr)
	}
	ev.Msg("empty content")
	if x.archive == nil {
		return
	}
	entry := archive.Entry{
		URL:         p.Response.URL,
		FinalURL:    p.Response.FinalURL,
		StatusCode:  p.Response.StatusCode,
		ContentType: p.Response.ContentType,
		Title:       title,
		Reason:      "empty result",
		Expr:        expr,
	}
	if err := x.archive.Save(ctx, entry, p.Response.Body); err != nil {
		x.logger.Warn().Err(err).Str("url", p.Response.URL).Msg("archive page")
		return
	}
	x.logger.Debug().Str("url", p.Response.URL).Str("key", archive.Key(p.Response.URL)).Msg("archived page")
}

// FromNode returns every match of expr under node.
func FromNode(node *html.Node, expr string) ([]extract.Match, error) {
	return extract.Evaluate(node, expr)
}

// FirstFromNode returns the first match of expr under node.
func FirstFromNode(node *html.Node, expr string) (extract.Match, bool, error) {
	return extract.First(node, expr)
}

// HTMLFromNode returns the inner markup of the first element matching expr.
func HTMLFromNode(node *html.Node, expr string) (string, error) {
	return extract.InnerHTML(node, expr)
}

// FieldsFromNode evaluates fm under node, keeping all trimmed values.
func FieldsFromNode(node *html.Node, fm extract.FieldMap) (extract.FieldResult, error) {
	fr, err := extract.Fields(node, fm, true)
	if err != nil {
		return nil, err
	}
	return reshape.FlattenAll(fr), nil
}

// CleanedFieldsFromNode keeps the first trimmed value of each field.
func CleanedFieldsFromNode(node *html.Node, fm extract.FieldMap) (reshape.Record, error) {
	fr, err := extract.Fields(node, fm, false)
	if err != nil {
		return nil, err
	}
	return reshape.FirstCleaned(fr), nil
}

// TableFromNode pairs untrimmed field values by position into rows.
func TableFromNode(node *html.Node, fm extract.FieldMap) ([]reshape.Row, error) {
	fr, err := extract.Fields(node, fm, false)
	if err != nil {
		return nil, err
	}
	return reshape.Transpose(fr), nil
}

// Retryable reports whether err is worth retrying later: transport
// exhaustion is, while invalid input and parse failures are not.
func Retryable(err error) bool {
	return Classify(err) == KindTransport
}

// Kind groups pipeline errors.
type Kind string

const (
	KindNone       Kind = ""
	KindTransport  Kind = "transport"
	KindInvalidURL Kind = "invalid_url"
	KindParse      Kind = "parse"
	KindXPath      Kind = "xpath"
	KindNoMatch    Kind = "no_match"
	KindMismatch   Kind = "column_mismatch"
	KindCanceled   Kind = "canceled"
	KindOther      Kind = "other"
)

// Classify maps err onto a Kind.
func Classify(err error) Kind {
	var (
		exprErr  *extract.ExprError
		parseErr *document.ParseError
		mismatch *reshape.MismatchError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, fetch.ErrRetriesExhausted):
		return KindTransport
	case errors.Is(err, fetch.ErrInvalidURL):
		return KindInvalidURL
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &exprErr):
		return KindXPath
	case errors.As(err, &parseErr):
		return KindParse
	case errors.Is(err, extract.ErrNoMatch), errors.Is(err, extract.ErrNotElement):
		return KindNoMatch
	case errors.As(err, &mismatch):
		return KindMismatch
	default:
		return KindOther
	}
}
