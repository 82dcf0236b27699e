// Package schema infers per-column output types for a loaded table and
// projects cell values onto them.
package schema

import (
	"math"
	"strconv"
	"strings"

	"github.com/torosent/tableloop/internal/table"
)

// Type is the output type of a column.
type Type string

const (
	Integer Type = "integer"
	Float   Type = "float"
	Text    Type = "text"
)

// Field is one named, typed column.
type Field struct {
	Name string `json:"name" yaml:"name"`
	Type Type   `json:"type" yaml:"type"`
}

// Schema is the ordered list of column fields of one loaded table.
type Schema []Field

// Infer derives the output type of a column from its stored values. Nulls do
// not vote; a column with no non-null values is Text.
func Infer(values []table.Value) Type {
	seen := false
	fractional := false
	for _, v := range values {
		if v.IsNull() {
			continue
		}
		if !v.IsNumeric() {
			return Text
		}
		seen = true
		if _, whole := v.Int(); !whole {
			fractional = true
		}
	}
	switch {
	case !seen:
		return Text
	case fractional:
		return Float
	default:
		return Integer
	}
}

// Build infers a schema for every column of snap. A column whose name clashes
// with a control port is renamed with a "_col" suffix.
func Build(snap *table.Snapshot) Schema {
	names := snap.Names()
	taken := make(map[string]struct{}, len(names))
	for _, name := range names {
		taken[strings.ToLower(name)] = struct{}{}
	}
	s := make(Schema, len(names))
	for i, name := range names {
		if isControlPort(name) {
			name = uniqueName(name+"_col", taken)
		}
		s[i] = Field{Name: name, Type: Infer(snap.Column(i))}
	}
	return s
}

func isControlPort(name string) bool {
	switch strings.ToLower(name) {
	case PortNameTrigger, PortNameRow, PortNameTotal, PortNameComplete:
		return true
	}
	return false
}

func uniqueName(base string, taken map[string]struct{}) string {
	name := base
	for n := 2; ; n++ {
		if _, ok := taken[strings.ToLower(name)]; !ok {
			taken[strings.ToLower(name)] = struct{}{}
			return name
		}
		name = base + "_" + strconv.Itoa(n)
	}
}

// Names returns the field names in order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Zero returns the empty value of t.
func Zero(t Type) any {
	switch t {
	case Integer:
		return int64(0)
	case Float:
		return float64(0)
	default:
		return ""
	}
}

// Coerce converts v to the Go representation of t: int64, float64 or string.
// Nulls and values that cannot be converted yield the zero value.
func Coerce(t Type, v table.Value) any {
	if v.IsNull() {
		return Zero(t)
	}
	switch t {
	case Integer:
		if i, ok := v.Int(); ok {
			return i
		}
		if f, ok := v.Float(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) &&
			f > math.MinInt64 && f < math.MaxInt64 {
			return int64(f)
		}
		return Zero(t)
	case Float:
		if f, ok := v.Float(); ok && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return f
		}
		return Zero(t)
	default:
		return v.String()
	}
}
