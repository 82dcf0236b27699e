package table

import (
	"fmt"
	"strings"
	"unicode"
)

// NormalizeColumnNames trims header cells, replaces spaces with underscores and
// drops characters that are not letters, digits or underscores. Blank names
// become column_N (1-based) and duplicates get a numeric suffix.
func NormalizeColumnNames(raw []string) []string {
	names := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, name := range raw {
		name = strings.TrimPrefix(name, "\ufeff")
		name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
		name = strings.Map(func(r rune) rune {
			if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
				return r
			}
			return -1
		}, name)
		if name == "" {
			name = fmt.Sprintf("column_%d", i+1)
		}

		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s_%d", name, n)
		}
		used[candidate] = true
		names[i] = candidate
	}
	return names
}

// buildFromRows turns a header and text rows into a snapshot. Short rows are
// padded with nulls. Rows wider than the header are rejected when strict is
// set; otherwise the header grows to fit them.
func buildFromRows(header []string, rows [][]string, strict bool) (*Snapshot, error) {
	width := len(header)
	for i, row := range rows {
		if len(row) <= width {
			continue
		}
		if strict {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(row), len(header))
		}
		width = len(row)
	}

	rawNames := make([]string, width)
	copy(rawNames, header)
	names := NormalizeColumnNames(rawNames)

	columns := make([][]Value, width)
	for c := range columns {
		columns[c] = make([]Value, len(rows))
	}
	for r, row := range rows {
		for c := 0; c < width; c++ {
			if c < len(row) {
				columns[c][r] = ParseCell(row[c])
			}
		}
	}
	return NewSnapshot(names, columns)
}
