package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// TSV writes one tab-separated line per article: the counter, each column's
// values joined by ",", then the article URL.
type TSV struct {
	w       io.WriteCloser
	buf     *bufio.Writer
	columns []string
}

// NewTSV writes to w, which is closed by Close.
func NewTSV(w io.WriteCloser, columns []string) *TSV {
	return &TSV{w: w, buf: bufio.NewWriter(w), columns: columns}
}

func (t *TSV) Write(a Article) error {
	parts := make([]string, 0, len(t.columns)+2)
	parts = append(parts, strconv.Itoa(a.Counter))
	for _, c := range t.columns {
		parts = append(parts, cell(a.Joined(c)))
	}
	parts = append(parts, a.URL)
	if _, err := t.buf.WriteString(strings.Join(parts, "\t") + "\n"); err != nil {
		return err
	}
	// flush per line so an interrupted crawl keeps what it has
	return t.buf.Flush()
}

func (t *TSV) Close() error {
	if err := t.buf.Flush(); err != nil {
		_ = t.w.Close()
		return err
	}
	return t.w.Close()
}
