// Package reshape turns column-oriented field results into the record shapes
// callers write out.
//
//   - FlattenAll keeps every value per field.
//   - FirstCleaned keeps the first trimmed value per field, nil when absent.
//   - Transpose pairs values by position into one Row per index.
//
// Transpose relies on the independently evaluated expressions selecting
// structurally parallel nodes. The equal-length check is the only guard
// against mispairing, so a mismatch drops the whole table.
package reshape

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/paperxtract/internal/extract"
)

// Record holds one value per field; nil marks a field with no match.
type Record map[string]*string

// Get returns the value and whether it is present.
func (r Record) Get(field string) (string, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Row is one positional slice across every column of a table.
type Row map[string]string

// MismatchError reports columns of different lengths.
type MismatchError struct {
	Field    string
	Expected int
	Got      int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("column %q has %d values, expected %d", e.Field, e.Got, e.Expected)
}

// FlattenAll returns a copy of fr with every value list intact.
func FlattenAll(fr extract.FieldResult) extract.FieldResult {
	out := make(extract.FieldResult, len(fr))
	for k, v := range fr {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// FirstCleaned keeps the first value of each field, trimmed of surrounding
// whitespace, or nil when the field matched nothing.
func FirstCleaned(fr extract.FieldResult) Record {
	out := make(Record, len(fr))
	for k, v := range fr {
		if len(v) == 0 {
			out[k] = nil
			continue
		}
		s := strings.TrimSpace(v[0])
		out[k] = &s
	}
	return out
}

// CheckColumns returns the common column length, or a *MismatchError naming
// the first column (in sorted field order) that disagrees with the first.
func CheckColumns(fr extract.FieldResult) (int, error) {
	length := -1
	for _, name := range fr.Names() {
		n := len(fr[name])
		if length < 0 {
			length = n
			continue
		}
		if n != length {
			return 0, &MismatchError{Field: name, Expected: length, Got: n}
		}
	}
	if length < 0 {
		length = 0
	}
	return length, nil
}

// Transpose converts equal-length columns into rows, row i holding the i-th
// value of every field. Columns of different lengths yield an empty,
// non-nil slice and a warning.
func Transpose(fr extract.FieldResult) []Row {
	length, err := CheckColumns(fr)
	if err != nil {
		log.Warn().Err(err).Msg("column sizes differ, dropping table")
		return []Row{}
	}
	rows := make([]Row, length)
	for i := 0; i < length; i++ {
		row := make(Row, len(fr))
		for k, v := range fr {
			row[k] = v[i]
		}
		rows[i] = row
	}
	return rows
}
