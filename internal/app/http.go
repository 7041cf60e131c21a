package app

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// NewCrawlerTransport returns the transport used for publisher requests: a
// small idle pool per host, proxy from the environment and bounded
// handshakes. insecure disables certificate verification for self-signed
// mirrors and intercepting proxies.
func NewCrawlerTransport(insecure bool) *http.Transport {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if insecure {
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via --insecure
	}
	return tr
}
