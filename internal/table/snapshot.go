package table

import (
	"fmt"
	"strings"
)

// Snapshot is an immutable, column-oriented copy of a table as it was read at
// one point in time. All columns share the same length.
type Snapshot struct {
	names   []string
	columns [][]Value
	rows    int
}

// NewSnapshot builds a snapshot from column names and column values. The
// inputs are copied, so callers may reuse their slices afterwards.
func NewSnapshot(names []string, columns [][]Value) (*Snapshot, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("snapshot has %d names but %d columns", len(names), len(columns))
	}

	rows := 0
	if len(columns) > 0 {
		rows = len(columns[0])
	}

	s := &Snapshot{
		names:   append([]string(nil), names...),
		columns: make([][]Value, len(columns)),
		rows:    rows,
	}
	for i, col := range columns {
		if len(col) != rows {
			return nil, fmt.Errorf("column %q has %d values, expected %d", names[i], len(col), rows)
		}
		s.columns[i] = append([]Value(nil), col...)
	}
	return s, nil
}

// RowCount returns the number of data rows.
func (s *Snapshot) RowCount() int {
	if s == nil {
		return 0
	}
	return s.rows
}

// ColumnCount returns the number of columns.
func (s *Snapshot) ColumnCount() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns a copy of the column names in table order.
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.names...)
}

// Column returns a copy of the values of column i.
func (s *Snapshot) Column(i int) []Value {
	if s == nil || i < 0 || i >= len(s.columns) {
		return nil
	}
	return append([]Value(nil), s.columns[i]...)
}

// Value returns the cell at row, col. Out of range positions yield a null value.
func (s *Snapshot) Value(row, col int) Value {
	if s == nil || col < 0 || col >= len(s.columns) || row < 0 || row >= s.rows {
		return NullValue()
	}
	return s.columns[col][row]
}

// Row returns a copy of the values of one row in column order.
func (s *Snapshot) Row(row int) []Value {
	if s == nil || row < 0 || row >= s.rows {
		return nil
	}
	out := make([]Value, len(s.columns))
	for i, col := range s.columns {
		out[i] = col[row]
	}
	return out
}

// Slice returns a view of the rows from start onward. The view shares the
// underlying storage, which is never written after construction.
func (s *Snapshot) Slice(start int) *Snapshot {
	if s == nil || start <= 0 {
		return s
	}
	if start > s.rows {
		start = s.rows
	}
	view := &Snapshot{
		names:   s.names,
		columns: make([][]Value, len(s.columns)),
		rows:    s.rows - start,
	}
	for i, col := range s.columns {
		view.columns[i] = col[start:len(col):len(col)]
	}
	return view
}

// Select returns a view restricted to the named columns, in the order they are
// requested. Names match case-insensitively and unknown names are ignored. When
// nothing matches, or no names are given, the snapshot itself is returned.
func (s *Snapshot) Select(names []string) *Snapshot {
	if s == nil || len(names) == 0 {
		return s
	}

	index := make(map[string]int, len(s.names))
	for i, name := range s.names {
		key := strings.ToLower(name)
		if _, ok := index[key]; !ok {
			index[key] = i
		}
	}

	view := &Snapshot{rows: s.rows}
	seen := make(map[int]bool, len(names))
	for _, name := range names {
		i, ok := index[strings.ToLower(strings.TrimSpace(name))]
		if !ok || seen[i] {
			continue
		}
		seen[i] = true
		view.names = append(view.names, s.names[i])
		view.columns = append(view.columns, s.columns[i])
	}
	if len(view.names) == 0 {
		return s
	}
	return view
}
