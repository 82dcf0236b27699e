package metrics

import (
	"sort"
	"strings"
	"unicode"
)

var friendlyKinds = map[string]string{
	"source_not_found":   "Source not found",
	"unsupported_format": "Unsupported format",
	"parse_failure":      "Parse failure",
	"empty_table":        "Empty table",
	"timeout":            "Load timed out",
}

// FriendlyErrorName returns a human-friendly label for a load error kind.
// Unknown kinds are humanized from snake_case.
func FriendlyErrorName(kind string) string {
	cleaned := strings.TrimSpace(kind)
	if cleaned == "" {
		return "Unknown error"
	}
	if alias, ok := friendlyKinds[cleaned]; ok {
		return alias
	}
	words := strings.FieldsFunc(cleaned, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	if len(words) == 0 {
		return "Unknown error"
	}
	out := strings.ToLower(strings.Join(words, " "))
	runes := []rune(out)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

// ErrorBucket is the failure count for one error kind.
type ErrorBucket struct {
	Kind  string
	Label string
	Count int
}

// FlattenErrors converts a kind->count map into rows sorted by descending
// count, then by kind for stability.
func FlattenErrors(errs map[string]int) []ErrorBucket {
	if len(errs) == 0 {
		return nil
	}
	rows := make([]ErrorBucket, 0, len(errs))
	for kind, count := range errs {
		rows = append(rows, ErrorBucket{Kind: kind, Label: FriendlyErrorName(kind), Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
