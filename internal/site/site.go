// Package site describes publisher crawl profiles: where listings live, how
// article links are found on them and which fields to pull from each
// article page.
package site

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/paperxtract/internal/extract"
)

// Profile is one publisher listing plus the article fields to extract.
type Profile struct {
	Name    string `yaml:"name" json:"name"`
	BaseURL string `yaml:"base_url" json:"base_url"`

	// ListingURL is a template with {page}, {volume}, {issue}, {category},
	// {start_year} and {end_year} placeholders.
	ListingURL string `yaml:"listing_url" json:"listing_url"`
	Pages      []int  `yaml:"pages" json:"pages"`
	Volumes    []int  `yaml:"volumes" json:"volumes"`
	Issues     []int  `yaml:"issues" json:"issues"`
	Category   string `yaml:"category" json:"category"`
	StartYear  int    `yaml:"start_year" json:"start_year"`
	EndYear    int    `yaml:"end_year" json:"end_year"`

	// LinkXPath selects article hrefs on a listing page.
	LinkXPath string           `yaml:"link_xpath" json:"link_xpath"`
	Fields    extract.FieldMap `yaml:"fields" json:"fields"`
	// Require names a field that must be non-empty for an article to be kept.
	Require string `yaml:"require" json:"require"`
	// Columns orders the fields in tabular output. Empty means sorted names.
	Columns []string `yaml:"columns" json:"columns"`

	Headers map[string]string `yaml:"headers" json:"headers"`
	Delay   time.Duration     `yaml:"delay" json:"delay"`

	// CaptchaPause is slept when a listing yields no article links.
	CaptchaPause time.Duration `yaml:"captcha_pause" json:"captcha_pause"`
	// EmptyPause is slept when an article lacks the required field.
	EmptyPause time.Duration `yaml:"empty_pause" json:"empty_pause"`
	// RoundPause is slept after each listing has been processed.
	RoundPause time.Duration `yaml:"round_pause" json:"round_pause"`
}

// Validate checks that the profile can drive a crawl.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("site: profile name is required")
	}
	if strings.TrimSpace(p.ListingURL) == "" {
		return fmt.Errorf("site %s: listing_url is required", p.Name)
	}
	if strings.TrimSpace(p.LinkXPath) == "" {
		return fmt.Errorf("site %s: link_xpath is required", p.Name)
	}
	if _, err := extract.Compile(p.LinkXPath); err != nil {
		return fmt.Errorf("site %s: link_xpath: %w", p.Name, err)
	}
	if len(p.Fields) == 0 {
		return fmt.Errorf("site %s: at least one field is required", p.Name)
	}
	if err := p.Fields.Validate(); err != nil {
		return fmt.Errorf("site %s: %w", p.Name, err)
	}
	if p.Require != "" {
		if _, ok := p.Fields[p.Require]; !ok {
			return fmt.Errorf("site %s: require names unknown field %q", p.Name, p.Require)
		}
	}
	for _, c := range p.Columns {
		if _, ok := p.Fields[c]; !ok {
			return fmt.Errorf("site %s: column %q is not a field", p.Name, c)
		}
	}
	if p.BaseURL != "" {
		u, err := url.Parse(p.BaseURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("site %s: base_url must be absolute", p.Name)
		}
	}
	return nil
}

// FieldOrder returns Columns, or the sorted field names when unset.
func (p Profile) FieldOrder() []string {
	if len(p.Columns) > 0 {
		return append([]string(nil), p.Columns...)
	}
	return p.Fields.Names()
}

// Header builds the request header set.
func (p Profile) Header() http.Header {
	h := http.Header{}
	keys := make([]string, 0, len(p.Headers))
	for k := range p.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Set(k, p.Headers[k])
	}
	return h
}

// ListingURLs expands the template over pages, or over volumes × issues when
// no pages are configured. A template without placeholders yields itself.
func (p Profile) ListingURLs() []string {
	base := strings.NewReplacer(
		"{category}", url.QueryEscape(p.Category),
		"{start_year}", strconv.Itoa(p.StartYear),
		"{end_year}", strconv.Itoa(p.EndYear),
	).Replace(p.ListingURL)

	var out []string
	switch {
	case len(p.Pages) > 0:
		for _, page := range p.Pages {
			out = append(out, strings.ReplaceAll(base, "{page}", strconv.Itoa(page)))
		}
	case len(p.Volumes) > 0:
		issues := p.Issues
		if len(issues) == 0 {
			issues = []int{1}
		}
		for _, v := range p.Volumes {
			for _, i := range issues {
				out = append(out, strings.NewReplacer(
					"{volume}", strconv.Itoa(v),
					"{issue}", strconv.Itoa(i),
				).Replace(base))
			}
		}
	default:
		out = append(out, base)
	}
	return out
}

// ResolveLink turns an href found on a listing into an absolute article URL,
// relative to BaseURL when set, else to the listing URL.
func (p Profile) ResolveLink(listingURL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", errors.New("site: empty link")
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("site: parse link %q: %w", href, err)
	}
	baseStr := p.BaseURL
	if baseStr == "" {
		baseStr = listingURL
	}
	base, err := url.Parse(baseStr)
	if err != nil {
		return "", fmt.Errorf("site: parse base %q: %w", baseStr, err)
	}
	return base.ResolveReference(ref).String(), nil
}

// Pages returns the inclusive range [from, to].
func Pages(from, to int) []int {
	if to < from {
		return nil
	}
	out := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
