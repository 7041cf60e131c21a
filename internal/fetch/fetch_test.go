package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

// flakyTransport fails the first `fails` round-trips with a transport error.
type flakyTransport struct {
	fails int32
	calls int32
	next  http.RoundTripper
}

func (f *flakyTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	n := atomic.AddInt32(&f.calls, 1)
	if n <= f.fails {
		return nil, fmt.Errorf("dial tcp: connection reset by peer (call %d)", n)
	}
	return f.next.RoundTrip(r)
}

func TestGet_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer srv.Close()

	c := &Client{MaxRetry: 2, PerRequestTimeout: 2 * time.Second}
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ContentType == "" || len(resp.Body) == 0 {
		t.Fatalf("expected content type and body")
	}
	if resp.Attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", resp.Attempts)
	}
	if c.Jar == nil || c.Header == nil {
		t.Fatalf("expected jar and header to be initialized on first use")
	}
}

func TestGet_NonSuccessStatusIsNotFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("busy"))
	}))
	defer srv.Close()

	c := &Client{MaxRetry: 3}
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if calls != 1 {
		t.Fatalf("expected a single request, got %d", calls)
	}
}

func TestGet_RetryThenSuccessKeepsFinalCookies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "final", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	const maxRetry = 4
	tr := &flakyTransport{fails: maxRetry - 1, next: http.DefaultTransport}
	c := &Client{MaxRetry: maxRetry, Transport: tr}
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if resp.Attempts != maxRetry {
		t.Fatalf("expected %d attempts, got %d", maxRetry, resp.Attempts)
	}
	u, _ := url.Parse(srv.URL)
	cookies := c.Jar.Cookies(u)
	if len(cookies) != 1 || cookies[0].Name != "session" || cookies[0].Value != "final" {
		t.Fatalf("expected jar to hold session=final, got %v", cookies)
	}
}

func TestGet_CookiesCarryAcrossCalls(t *testing.T) {
	var seen atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("visit"); err == nil {
			seen.Store(ck.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: "visit", Value: "1", Path: "/"})
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{Jar: NewJar()}
	if _, err := c.Get(context.Background(), srv.URL+"/a"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if _, err := c.Get(context.Background(), srv.URL+"/b"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if v, _ := seen.Load().(string); v != "1" {
		t.Fatalf("expected cookie from first response on second request, got %q", v)
	}
}

func TestGet_RetriesExhausted(t *testing.T) {
	tr := &flakyTransport{fails: 1 << 20, next: http.DefaultTransport}
	c := &Client{MaxRetry: 3, Transport: tr}
	_, err := c.Get(context.Background(), "http://example.invalid/")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	var fe *Error
	if !errors.As(err, &fe) || fe.Attempts != 3 {
		t.Fatalf("expected *Error with 3 attempts, got %#v", err)
	}
	if tr.calls != 3 {
		t.Fatalf("expected 3 transport calls, got %d", tr.calls)
	}
}

func TestGet_ZeroMaxRetryStillTriesOnce(t *testing.T) {
	tr := &flakyTransport{fails: 1 << 20, next: http.DefaultTransport}
	c := &Client{MaxRetry: 0, Transport: tr}
	_, err := c.Get(context.Background(), "http://example.invalid/")
	if !errors.Is(err, ErrRetriesExhausted) {
		t.Fatalf("expected ErrRetriesExhausted, got %v", err)
	}
	if tr.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", tr.calls)
	}
}

func TestGet_RejectsInvalidURLs(t *testing.T) {
	c := &Client{MaxRetry: 3}
	for _, raw := range []string{"/relative/path", "file:///etc/hosts", "://bad"} {
		_, err := c.Get(context.Background(), raw)
		if !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("%q: expected ErrInvalidURL, got %v", raw, err)
		}
		if errors.Is(err, ErrRetriesExhausted) {
			t.Fatalf("%q: invalid url must not look like retry exhaustion", raw)
		}
	}
}

func TestGet_RotatesUserAgentPerAttempt(t *testing.T) {
	var gotUA atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	var n int
	tr := &flakyTransport{fails: 1, next: http.DefaultTransport}
	c := &Client{
		MaxRetry:  2,
		Transport: tr,
		UserAgent: func() string {
			n++
			return fmt.Sprintf("agent-%d", n)
		},
	}
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected user agent chosen per attempt (2), got %d", n)
	}
	if v, _ := gotUA.Load().(string); v != "agent-2" {
		t.Fatalf("expected server to see agent-2, got %q", v)
	}
	if c.Header.Get("User-Agent") != "agent-2" {
		t.Fatalf("expected shared header to be rewritten, got %q", c.Header.Get("User-Agent"))
	}
}

func TestGet_DropsAcceptEncoding(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Accept-Encoding"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	h := DefaultHeader()
	h.Set("Accept-Encoding", "gzip, deflate, br")
	c := &Client{Header: h}
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := got.Load().(string); v == "gzip, deflate, br" {
		t.Fatalf("expected caller Accept-Encoding to be dropped")
	}
	if string(resp.Body) != "ok" {
		t.Fatalf("unexpected body %q", resp.Body)
	}
}

func TestGet_CancelDuringBackoff(t *testing.T) {
	tr := &flakyTransport{fails: 1 << 20, next: http.DefaultTransport}
	c := &Client{MaxRetry: 5, Backoff: 10 * time.Second, Transport: tr}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Get(ctx, "http://example.invalid/")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatalf("backoff was not interrupted")
	}
}

func TestGet_DelayAfterSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{Delay: 150 * time.Millisecond}
	start := time.Now()
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("expected politeness delay, returned after %s", elapsed)
	}
}

func TestGet_HostHeaderSetsRequestHost(t *testing.T) {
	var (
		gotHost string
		gotUA   []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		gotUA = r.Header.Values("User-Agent")
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	h := DefaultHeader()
	h.Set("Host", "academic.oup.com")
	c := &Client{Header: h, MaxRetry: 1}
	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500 passed through, got %d", resp.StatusCode)
	}
	if gotHost != "academic.oup.com" {
		t.Fatalf("server saw host %q", gotHost)
	}
	if len(gotUA) != 1 {
		t.Fatalf("expected exactly one User-Agent, got %q", gotUA)
	}
	if c.Header.Get("Host") != "academic.oup.com" {
		t.Fatalf("shared header set should keep its Host entry")
	}
}

func TestGet_TransportFixedAfterFirstGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c := &Client{MaxRetry: 1}
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("first get: %v", err)
	}
	c.Transport = &flakyTransport{fails: 1 << 30, next: http.DefaultTransport}
	c.Jar = nil
	if _, err := c.Get(context.Background(), srv.URL); err != nil {
		t.Fatalf("later Transport change should be ignored: %v", err)
	}
	if c.Jar != nil {
		t.Fatalf("jar is not re-created after the first Get")
	}
}
