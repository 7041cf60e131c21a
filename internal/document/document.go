// Package document turns fetched bodies into navigable HTML trees.
//
// Parsing is lenient: malformed markup is repaired the way browsers do it
// (HTML5 tree construction from golang.org/x/net/html), so Parse only fails
// when the body cannot be read or decoded at all.
package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Document is one parsed page. Callers must treat the tree as read-only.
type Document struct {
	Root *html.Node
	// Encoding is the charset the body was decoded from.
	Encoding string
}

// ParseError reports a body that could not be turned into a tree.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "parse html: " + e.Err.Error() }

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes raw using the charset announced by contentType, a <meta>
// declaration or content sniffing, and parses the result.
func Parse(raw []byte, contentType string) (*Document, error) {
	enc, name, certain := charset.DetermineEncoding(raw, contentType)
	// sniffing only looks at the first 1024 bytes and defaults to windows-1252
	if !certain && utf8.Valid(raw) {
		name = "utf-8"
	}
	var r io.Reader = bytes.NewReader(raw)
	if name != "utf-8" {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return &Document{Root: root, Encoding: name}, nil
}

// ParseString parses already-decoded markup.
func ParseString(s string) (*Document, error) {
	root, err := htmlquery.Parse(strings.NewReader(s))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return &Document{Root: root, Encoding: "utf-8"}, nil
}

// Title returns the trimmed <title> text or "".
func (d *Document) Title() string {
	if d == nil || d.Root == nil {
		return ""
	}
	head := findFirst(d.Root, "head")
	if head == nil {
		return ""
	}
	t := findFirst(head, "title")
	if t == nil || t.FirstChild == nil {
		return ""
	}
	return strings.TrimSpace(t.FirstChild.Data)
}

// Render serializes the whole tree back to markup.
func (d *Document) Render() (string, error) {
	var b bytes.Buffer
	if err := html.Render(&b, d.Root); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return b.String(), nil
}

func findFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}
