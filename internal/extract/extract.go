// Package extract evaluates XPath expressions against parsed HTML trees.
//
// Results come back in document order. An expression that selects nothing is
// not an error: callers get an empty slice (Evaluate), ok == false (First) or
// an empty list under the field name (Fields). Only InnerHTML, which needs a
// concrete element to serialize, reports ErrNoMatch.
package extract

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

var (
	// ErrNoMatch is returned by operations that need at least one match.
	ErrNoMatch = errors.New("extract: no match")
	// ErrNotElement is returned by InnerHTML when the first match is text,
	// an attribute or a scalar value.
	ErrNotElement = errors.New("extract: match is not an element")
)

// ExprError reports an XPath expression that does not compile.
type ExprError struct {
	Expr string
	Err  error
}

func (e *ExprError) Error() string { return fmt.Sprintf("invalid xpath %q: %v", e.Expr, e.Err) }

func (e *ExprError) Unwrap() error { return e.Err }

// Match is one XPath result.
type Match struct {
	// Node is the matched node; the owning element for attribute matches
	// and nil for scalar results such as count() or string().
	Node *html.Node
	// Attr is the attribute name for attribute matches.
	Attr string
	// Value is the string value: attribute value, text node data, the
	// inner text of an element, or the formatted scalar.
	Value string
}

func (m Match) String() string { return m.Value }

// IsElement reports whether the match is an element node.
func (m Match) IsElement() bool {
	return m.Node != nil && m.Attr == "" && m.Node.Type == html.ElementNode
}

// Compile parses expr once so it can be reused across documents.
func Compile(expr string) (*xpath.Expr, error) {
	e, err := xpath.Compile(expr)
	if err != nil {
		return nil, &ExprError{Expr: expr, Err: err}
	}
	return e, nil
}

// Evaluate runs expr against node and returns every result in document order.
func Evaluate(node *html.Node, expr string) ([]Match, error) {
	e, err := Compile(expr)
	if err != nil {
		return nil, err
	}
	return EvaluateCompiled(node, e), nil
}

// EvaluateCompiled is Evaluate for a precompiled expression. xpath.Expr
// keeps iteration state, so one Expr must not be shared between goroutines.
func EvaluateCompiled(node *html.Node, e *xpath.Expr) []Match {
	if node == nil {
		return nil
	}
	switch v := e.Evaluate(htmlquery.CreateXPathNavigator(node)).(type) {
	case *xpath.NodeIterator:
		var out []Match
		for v.MoveNext() {
			nav, ok := v.Current().(*htmlquery.NodeNavigator)
			if !ok {
				continue
			}
			out = append(out, matchFromNavigator(nav))
		}
		return out
	case string:
		return []Match{{Value: v}}
	case float64:
		return []Match{{Value: strconv.FormatFloat(v, 'f', -1, 64)}}
	case bool:
		return []Match{{Value: strconv.FormatBool(v)}}
	default:
		return nil
	}
}

func matchFromNavigator(nav *htmlquery.NodeNavigator) Match {
	n := nav.Current()
	if nav.NodeType() == xpath.AttributeNode {
		return Match{Node: n, Attr: nav.LocalName(), Value: nav.Value()}
	}
	switch n.Type {
	case html.TextNode, html.CommentNode:
		return Match{Node: n, Value: n.Data}
	default:
		return Match{Node: n, Value: htmlquery.InnerText(n)}
	}
}

// First returns the first result of expr. ok is false exactly when
// Evaluate would return no results.
func First(node *html.Node, expr string) (m Match, ok bool, err error) {
	matches, err := Evaluate(node, expr)
	if err != nil {
		return Match{}, false, err
	}
	if len(matches) == 0 {
		return Match{}, false, nil
	}
	return matches[0], true, nil
}

// InnerHTML serializes the content of the first element selected by expr:
// its leading text followed by the markup of every child, in order.
func InnerHTML(node *html.Node, expr string) (string, error) {
	m, ok, err := First(node, expr)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoMatch, expr)
	}
	if !m.IsElement() {
		return "", fmt.Errorf("%w: %s", ErrNotElement, expr)
	}
	return goquery.NewDocumentFromNode(m.Node).Html()
}

// Strings returns the string value of every match.
func Strings(matches []Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Value
	}
	return out
}

// TrimAll trims surrounding whitespace from every value in place.
func TrimAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.TrimSpace(v)
	}
	return values
}
