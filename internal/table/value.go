package table

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Kind identifies the storage type of a cell.
type Kind uint8

const (
	KindNull Kind = iota
	KindInt
	KindFloat
	KindString
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a single immutable table cell.
type Value struct {
	kind Kind
	i    int64
	f    float64
	s    string
	b    bool
}

func NullValue() Value { return Value{} }

func IntValue(v int64) Value { return Value{kind: KindInt, i: v} }

func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

func StringValue(v string) Value { return Value{kind: KindString, s: v} }

func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind reports the storage type of the cell.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Int returns the value as a whole number. It reports false for non-numeric
// values and for floats that carry a fractional part or do not fit in int64.
func (v Value) Int() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) || v.f != math.Trunc(v.f) {
			return 0, false
		}
		if v.f < math.MinInt64 || v.f >= math.MaxInt64 {
			return 0, false
		}
		return int64(v.f), true
	default:
		return 0, false
	}
}

// Float returns the value as a float64. It reports false for non-numeric values.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// String renders the value as text. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// naTokens are the cell spellings treated as missing values.
var naTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-NaN":     {},
	"-nan":     {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"1.#IND":   {},
	"1.#QNAN":  {},
}

// ParseCell converts raw text from a delimited or spreadsheet source into a
// typed value. Invalid UTF-8 is replaced rather than rejected.
func ParseCell(raw string) Value {
	if !utf8.ValidString(raw) {
		raw = strings.ToValidUTF8(raw, "\uFFFD")
	}
	trimmed := strings.TrimSpace(raw)
	if _, ok := naTokens[trimmed]; ok {
		return NullValue()
	}
	if i, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return IntValue(i)
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return FloatValue(f)
	}
	switch strings.ToLower(trimmed) {
	case "true":
		return BoolValue(true)
	case "false":
		return BoolValue(false)
	}
	return StringValue(raw)
}
