package extract

import (
	"fmt"
	"sort"

	"golang.org/x/net/html"
)

// FieldMap maps a caller-chosen field name to an XPath expression.
type FieldMap map[string]string

// FieldResult maps a field name to every value its expression selected.
type FieldResult map[string][]string

// Names returns the field names in sorted order.
func (fm FieldMap) Names() []string {
	names := make([]string, 0, len(fm))
	for k := range fm {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Validate compiles every expression and reports the first failure.
func (fm FieldMap) Validate() error {
	for _, name := range fm.Names() {
		if _, err := Compile(fm[name]); err != nil {
			return fmt.Errorf("field %q: %w", name, err)
		}
	}
	return nil
}

// Fields evaluates each expression in fm once against node. The result has
// exactly the key set of fm; fields that matched nothing map to an empty,
// non-nil slice. With trim set every value is whitespace-trimmed.
func Fields(node *html.Node, fm FieldMap, trim bool) (FieldResult, error) {
	out := make(FieldResult, len(fm))
	for _, name := range fm.Names() {
		matches, err := Evaluate(node, fm[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		values := Strings(matches)
		if trim {
			values = TrimAll(values)
		}
		out[name] = values
	}
	return out, nil
}

// Empty reports whether every field matched nothing.
func (fr FieldResult) Empty() bool {
	for _, v := range fr {
		if len(v) > 0 {
			return false
		}
	}
	return true
}

// Names returns the field names in sorted order.
func (fr FieldResult) Names() []string {
	names := make([]string, 0, len(fr))
	for k := range fr {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
