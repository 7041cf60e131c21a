// Package useragent provides User-Agent sources for the fetcher. A Source is
// called once per request attempt.
package useragent

import (
	"fmt"
	"strings"
	"sync"

	browser "github.com/EDDYCJY/fake-useragent"
)

// Fallback is used when a generated source comes back empty.
const Fallback = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.13; rv:64.0) Gecko/20100101 Firefox/64.0"

// Source returns the User-Agent for the next attempt.
type Source func() string

// Fixed always returns ua.
func Fixed(ua string) Source {
	return func() string { return ua }
}

// Rotate cycles through agents in order. It panics on an empty list.
func Rotate(agents ...string) Source {
	if len(agents) == 0 {
		panic("useragent: Rotate needs at least one agent")
	}
	var (
		mu sync.Mutex
		i  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		ua := agents[i%len(agents)]
		i++
		return ua
	}
}

// Kinds lists the names accepted by Fake.
var Kinds = []string{"random", "chrome", "firefox", "safari", "computer", "mobile"}

// Fake returns a source backed by a real-world browser User-Agent database.
// kind is one of Kinds; "" means random.
func Fake(kind string) (Source, error) {
	var gen func() string
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "random":
		gen = browser.Random
	case "chrome":
		gen = browser.Chrome
	case "firefox":
		gen = browser.Firefox
	case "safari":
		gen = browser.Safari
	case "computer":
		gen = browser.Computer
	case "mobile":
		gen = browser.Mobile
	default:
		return nil, fmt.Errorf("unknown user agent kind %q (want one of %s)", kind, strings.Join(Kinds, ", "))
	}
	return withFallback(gen), nil
}

func withFallback(gen func() string) Source {
	return func() string {
		if ua := strings.TrimSpace(gen()); ua != "" {
			return ua
		}
		return Fallback
	}
}

// Parse interprets a configuration value: "fake:<kind>" selects Fake, a
// comma-separated list rotates, anything else is a fixed agent. An empty
// value returns nil, meaning the header set is left alone.
func Parse(spec string) (Source, error) {
	spec = strings.TrimSpace(spec)
	switch {
	case spec == "":
		return nil, nil
	case strings.HasPrefix(spec, "fake:"):
		return Fake(strings.TrimPrefix(spec, "fake:"))
	case strings.Contains(spec, ","):
		parts := strings.Split(spec, ",")
		list := make([]string, 0, len(parts))
		for _, p := range parts {
			if s := strings.TrimSpace(p); s != "" {
				list = append(list, s)
			}
		}
		if len(list) == 0 {
			return nil, nil
		}
		return Rotate(list...), nil
	default:
		return Fixed(spec), nil
	}
}
