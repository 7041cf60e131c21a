package output

import (
	"encoding/json"
	"io"
	"time"
)

type jsonRecord struct {
	Counter int                 `json:"counter"`
	URL     string              `json:"url"`
	Fetched *time.Time          `json:"fetched,omitempty"`
	Fields  map[string][]string `json:"fields"`
}

// JSONL writes one JSON object per article.
type JSONL struct {
	w       io.WriteCloser
	enc     *json.Encoder
	columns []string
}

// NewJSONL writes to w, which is closed by Close. Only columns are emitted
// when set; otherwise every field is.
func NewJSONL(w io.WriteCloser, columns []string) *JSONL {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONL{w: w, enc: enc, columns: columns}
}

func (j *JSONL) Write(a Article) error {
	rec := jsonRecord{Counter: a.Counter, URL: a.URL, Fields: map[string][]string{}}
	if !a.Fetched.IsZero() {
		t := a.Fetched.UTC()
		rec.Fetched = &t
	}
	names := j.columns
	if len(names) == 0 {
		names = a.Fields.Names()
	}
	for _, n := range names {
		v := a.Fields[n]
		if v == nil {
			v = []string{}
		}
		rec.Fields[n] = v
	}
	return j.enc.Encode(rec)
}

func (j *JSONL) Close() error { return j.w.Close() }
