// Package output writes crawled article records as TSV, JSON lines, a
// console table or a PDF.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/hyperifyio/paperxtract/internal/extract"
)

// Article is one kept article page.
type Article struct {
	// Counter numbers kept articles from 1.
	Counter int
	URL     string
	Fields  extract.FieldResult
	Fetched time.Time
}

// Joined returns the values of field joined by ",".
func (a Article) Joined(field string) string {
	return strings.Join(a.Fields[field], ",")
}

// Writer consumes articles. Close flushes buffered formats and releases the
// destination.
type Writer interface {
	Write(a Article) error
	Close() error
}

// Formats lists the names accepted by New.
var Formats = []string{"tsv", "jsonl", "table", "pdf"}

// New opens path and returns a writer for format. columns fixes the field
// order; "-" writes to stdout except for pdf.
func New(format, path string, columns []string) (Writer, error) {
	switch format {
	case "pdf":
		if path == "" || path == "-" {
			return nil, fmt.Errorf("pdf output needs a file path")
		}
		return NewPDF(path, columns), nil
	case "tsv", "jsonl", "table":
	default:
		return nil, fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
	w, err := openDest(path)
	if err != nil {
		return nil, err
	}
	switch format {
	case "tsv":
		return NewTSV(w, columns), nil
	case "jsonl":
		return NewJSONL(w, columns), nil
	default:
		return NewTable(w, columns), nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func openDest(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	return f, nil
}

// cell flattens a value for single-line formats.
func cell(s string) string {
	return strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
}
