package app

import (
	"net/http"
	"reflect"
	"testing"
)

func TestNewCrawlerTransport_Config(t *testing.T) {
	tr := NewCrawlerTransport(false)
	if tr.TLSHandshakeTimeout == 0 || tr.ResponseHeaderTimeout == 0 {
		t.Fatalf("expected bounded handshake and header timeouts")
	}
	if tr.MaxIdleConnsPerHost <= 0 || tr.MaxIdleConnsPerHost > 16 {
		t.Fatalf("expected a small per-host pool, got %d", tr.MaxIdleConnsPerHost)
	}
	if tr.Proxy == nil {
		t.Fatalf("expected proxy from environment")
	}
	// Ensure we didn't return the default transport
	if reflect.ValueOf(http.DefaultTransport).Pointer() == reflect.ValueOf(tr).Pointer() {
		t.Fatalf("transport should not be default")
	}
}
