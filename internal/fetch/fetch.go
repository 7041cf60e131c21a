package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/publicsuffix"
)

var (
	// ErrRetriesExhausted matches any *Error returned after every attempt
	// failed at the transport level.
	ErrRetriesExhausted = errors.New("fetch: retries exhausted")
	// ErrInvalidURL is returned for relative, malformed or non-HTTP(S) URLs.
	ErrInvalidURL = errors.New("fetch: invalid url")
)

// Error describes a failed fetch. Attempts is zero when the request was
// rejected before any network activity.
type Error struct {
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrRetriesExhausted && e.Attempts > 0
}

// Response is one completed round-trip. The status code is reported as-is;
// non-2xx answers are not failures at this layer.
type Response struct {
	URL         string
	FinalURL    string
	StatusCode  int
	Header      http.Header
	ContentType string
	Body        []byte
	// Attempts is the number of tries it took, including the successful one.
	Attempts int
}

// Client performs GET requests with a shared header set and cookie jar,
// retrying transport failures with a fixed backoff and pausing after each
// success. A Client is not safe for concurrent use: the header set may be
// rewritten on every attempt and the jar accumulates cookies.
//
// Jar, PerRequestTimeout, RedirectMaxHops, Transport and Logger are read on
// the first Get; changing them afterwards has no effect. Header, UserAgent,
// MaxRetry, Backoff and Delay are read on every call.
type Client struct {
	// Header is sent with every request. When UserAgent is set its result
	// replaces the User-Agent entry here before each attempt.
	Header http.Header
	// Jar receives cookies from every response. Nil means a fresh jar is
	// created on the first Get and stored back here.
	Jar http.CookieJar
	// UserAgent, if set, is called once per attempt.
	UserAgent func() string
	// MaxRetry is the total attempt budget. Values below 1 mean one attempt.
	MaxRetry int
	// Backoff is slept after a transport failure before the next attempt.
	Backoff time.Duration
	// Delay is slept after every successful round-trip.
	Delay time.Duration
	// PerRequestTimeout bounds each attempt. Zero means no client timeout.
	// Read on the first Get.
	PerRequestTimeout time.Duration
	// RedirectMaxHops caps redirect following. Zero means default (10).
	// Read on the first Get.
	RedirectMaxHops int
	// Transport overrides the underlying round tripper (tests, proxies).
	// Read on the first Get.
	Transport http.RoundTripper
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger

	http *resty.Client
}

// NewJar returns an empty cookie jar using the public suffix list.
func NewJar() http.CookieJar {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		// cookiejar.New never fails with the options above
		panic(err)
	}
	return jar
}

// DefaultHeader is a desktop Firefox header set.
func DefaultHeader() http.Header {
	h := http.Header{}
	h.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.11; rv:46.0) Gecko/20100101 Firefox/46.0")
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Connection", "keep-alive")
	h.Set("Cache-Control", "max-age=0")
	return h
}

func (c *Client) logger() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return &log.Logger
}

func (c *Client) restyClient() *resty.Client {
	if c.http != nil {
		return c.http
	}
	if c.Jar == nil {
		c.Jar = NewJar()
	}
	if c.Header == nil {
		c.Header = DefaultHeader()
	}
	hops := c.RedirectMaxHops
	if hops <= 0 {
		hops = 10
	}
	hc := resty.New()
	hc.SetLogger(restyLogger{l: c.logger()})
	hc.SetCookieJar(c.Jar)
	hc.SetRedirectPolicy(resty.FlexibleRedirectPolicy(hops))
	if c.PerRequestTimeout > 0 {
		hc.SetTimeout(c.PerRequestTimeout)
	}
	if c.Transport != nil {
		hc.SetTransport(c.Transport)
	}
	// net/http ignores a Host entry in the header map
	hc.SetPreRequestHook(func(_ *resty.Client, req *http.Request) error {
		if host := req.Header.Get("Host"); host != "" {
			req.Host = host
			req.Header.Del("Host")
		}
		return nil
	})
	c.http = hc
	return hc
}

// Get fetches rawURL. It returns the first response that completed at the
// transport level, or an *Error matching ErrRetriesExhausted once MaxRetry
// attempts have failed. Context cancellation is returned as ctx.Err().
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	if err := validateURL(rawURL); err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	attempts := c.MaxRetry
	if attempts <= 0 {
		attempts = 1
	}
	logger := c.logger()
	var lastErr error
	for i := 1; i <= attempts; i++ {
		resp, err := c.tryOnce(ctx, rawURL)
		if err == nil {
			resp.Attempts = i
			logger.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Int("bytes", len(resp.Body)).Msg("fetched")
			if err := sleepCtx(ctx, c.Delay); err != nil {
				return nil, err
			}
			return resp, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		remaining := attempts - i
		logger.Warn().Err(err).Str("url", rawURL).Int("attempt", i).Int("remaining", remaining).Dur("backoff", c.Backoff).Msg("request failed")
		if remaining == 0 {
			break
		}
		if err := sleepCtx(ctx, c.Backoff); err != nil {
			return nil, err
		}
	}
	return nil, &Error{URL: rawURL, Attempts: attempts, Err: lastErr}
}

func (c *Client) tryOnce(ctx context.Context, rawURL string) (*Response, error) {
	hc := c.restyClient()
	if c.UserAgent != nil {
		if ua := c.UserAgent(); ua != "" {
			c.Header.Set("User-Agent", ua)
		}
	}
	req := hc.R().SetContext(ctx)
	for key, values := range c.Header {
		// leave compression to the transport so bodies arrive decoded
		if strings.EqualFold(key, "Accept-Encoding") {
			continue
		}
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	res, err := req.Get(rawURL)
	if err != nil {
		return nil, err
	}
	out := &Response{
		URL:         rawURL,
		FinalURL:    rawURL,
		StatusCode:  res.StatusCode(),
		Header:      res.Header(),
		ContentType: res.Header().Get("Content-Type"),
		Body:        res.Body(),
	}
	if raw := res.RawResponse; raw != nil && raw.Request != nil && raw.Request.URL != nil {
		out.FinalURL = raw.Request.URL.String()
	}
	return out, nil
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%w: %q is not absolute", ErrInvalidURL, rawURL)
	}
	if !isHTTPScheme(u) {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	return nil
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// restyLogger routes resty's internal messages into zerolog.
type restyLogger struct {
	l *zerolog.Logger
}

func (r restyLogger) Errorf(format string, v ...interface{}) {
	r.l.Error().Str("component", "resty").Msgf(strings.TrimSpace(format), v...)
}

func (r restyLogger) Warnf(format string, v ...interface{}) {
	r.l.Warn().Str("component", "resty").Msgf(strings.TrimSpace(format), v...)
}

func (r restyLogger) Debugf(format string, v ...interface{}) {
	r.l.Debug().Str("component", "resty").Msgf(strings.TrimSpace(format), v...)
}
