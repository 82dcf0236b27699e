// Package cursor implements the row cursor that drives table iteration. A
// cursor advances exactly one row per Tick and decides, from its loop policy,
// whether to wrap to the first row or settle on the last row for good.
package cursor

import (
	"fmt"
	"strings"
)

// Mode selects how the cursor behaves once it runs past the last row.
type Mode int

const (
	SinglePass Mode = iota
	Repeat
	Infinite
)

func (m Mode) String() string {
	switch m {
	case SinglePass:
		return "single_pass"
	case Repeat:
		return "repeat"
	case Infinite:
		return "infinite"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts single_pass, repeat or infinite. Dashes are accepted in
// place of underscores and an empty name means single_pass.
func ParseMode(name string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_") {
	case "", "single_pass":
		return SinglePass, nil
	case "repeat":
		return Repeat, nil
	case "infinite":
		return Infinite, nil
	default:
		return SinglePass, fmt.Errorf("unsupported loop mode %q", name)
	}
}

// Policy is a loop mode together with its repeat count. Count is only
// consulted in Repeat mode and is at least 1 there.
type Policy struct {
	Mode  Mode
	Count int
}

func (p Policy) normalized() Policy {
	if p.Mode != Repeat {
		return Policy{Mode: p.Mode}
	}
	if p.Count < 1 {
		p.Count = 1
	}
	return p
}

// Step is the result of one tick.
type Step struct {
	// Row is the row just emitted, or -1 when the table has no rows.
	Row      int
	RowCount int
	Terminal bool
	HasRow   bool
}

// State is a read-only view of the cursor.
type State struct {
	RowIndex         int
	RowCount         int
	RemainingRepeats int
	Policy           Policy
	Terminal         bool
}

// Cursor tracks the row position over a table with a fixed number of rows.
// It is not safe for concurrent use; each looper owns its own cursor.
type Cursor struct {
	rowIndex  int
	rowCount  int
	remaining int
	policy    Policy
	terminal  bool
}

// New returns a cursor positioned before the first row.
func New(rowCount int, policy Policy) *Cursor {
	if rowCount < 0 {
		rowCount = 0
	}
	c := &Cursor{rowCount: rowCount, policy: policy.normalized()}
	c.Reset()
	return c
}

// Reset rewinds to the first row and restores the repeat budget.
func (c *Cursor) Reset() {
	c.rowIndex = 0
	c.remaining = c.policy.Count
	c.terminal = false
}

// Tick advances the cursor by one step and reports the row to emit.
func (c *Cursor) Tick() Step {
	if c.rowCount == 0 {
		c.terminal = true
		return Step{Row: -1, Terminal: true}
	}
	if c.terminal {
		return c.last()
	}

	if c.rowIndex == c.rowCount {
		switch c.policy.Mode {
		case Repeat:
			c.remaining--
			if c.remaining <= 0 {
				c.remaining = 0
				c.terminal = true
				return c.last()
			}
			c.rowIndex = 0
		case Infinite:
			c.rowIndex = 0
		default:
			c.terminal = true
			return c.last()
		}
	}

	row := c.rowIndex
	c.rowIndex++
	return Step{Row: row, RowCount: c.rowCount, HasRow: true}
}

func (c *Cursor) last() Step {
	return Step{Row: c.rowCount - 1, RowCount: c.rowCount, Terminal: true, HasRow: true}
}

// State returns a snapshot of the cursor's fields.
func (c *Cursor) State() State {
	return State{
		RowIndex:         c.rowIndex,
		RowCount:         c.rowCount,
		RemainingRepeats: c.remaining,
		Policy:           c.policy,
		Terminal:         c.terminal,
	}
}

// Policy returns the loop policy the cursor was built with.
func (c *Cursor) Policy() Policy {
	return c.policy
}
