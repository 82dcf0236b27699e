// Package looper drives row-by-row iteration over a cached table. A Node
// owns one cursor and turns each Process call into a single tick.
package looper

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/torosent/tableloop/internal/cache"
	"github.com/torosent/tableloop/internal/config"
	"github.com/torosent/tableloop/internal/cursor"
	"github.com/torosent/tableloop/internal/schema"
	"github.com/torosent/tableloop/internal/table"
	"github.com/torosent/tableloop/internal/tracing"
)

// Option configures a Node.
type Option func(*Node)

// WithBaseDir sets the directory relative paths resolve against.
func WithBaseDir(dir string) Option {
	return func(n *Node) { n.baseDir = dir }
}

func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(n *Node) {
		if t != nil {
			n.tracer = t
		}
	}
}

// WithID overrides the generated node identifier.
func WithID(id string) Option {
	return func(n *Node) {
		if id != "" {
			n.id = id
		}
	}
}

// Node is a table looper. It is not safe for concurrent use; hosts that
// share a node serialize calls themselves.
type Node struct {
	id      string
	cache   *cache.Cache
	baseDir string
	logger  *slog.Logger
	tracer  trace.Tracer

	source     cache.Source
	snap       *table.Snapshot
	startRow   int
	columnsKey string
	view       *table.Snapshot
	schema     schema.Schema
	cur        *cursor.Cursor
	complete   bool
}

// New returns a node reading tables through c.
func New(c *cache.Cache, opts ...Option) *Node {
	n := &Node{
		id:     ulid.Make().String(),
		cache:  c,
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(n)
	}
	n.logger = n.logger.With("node", n.id)
	return n
}

func (n *Node) ID() string {
	return n.id
}

// Process runs one tick: fetch the table, rebuild schema and cursor when
// needed, advance the cursor and project the emitted row.
func (n *Node) Process(ctx context.Context, p Params) Output {
	ctx, span := tracing.StartTickSpan(ctx, n.tracer, n.id)

	out := n.process(ctx, p)

	var err error
	if !out.OK() {
		err = &table.LoadError{Kind: out.Status, Path: p.Path}
	}
	tracing.EndSpan(span, err,
		tracing.AttrRow.Int(out.CurrentRow),
		tracing.AttrRows.Int(out.TotalRows),
		tracing.AttrComplete.Bool(out.Complete),
	)
	return out
}

func (n *Node) process(ctx context.Context, p Params) Output {
	format, err := table.ParseFormat(p.Format)
	if err != nil {
		return n.fail(&table.LoadError{Kind: table.KindUnsupportedFormat, Path: p.Path, Err: err})
	}
	path, err := ResolvePath(n.baseDir, p.Path)
	if err != nil {
		return n.fail(&table.LoadError{Kind: table.KindSourceNotFound, Path: p.Path, Err: err})
	}

	src := cache.Source{Path: path, Format: format}
	snap, err := n.cache.Get(ctx, src, p.ForceRefresh)
	if err != nil {
		return n.fail(err)
	}

	policy := n.policy(p)
	startRow := max(p.StartRow, 0)
	columnsKey := strings.ToLower(strings.Join(p.Columns, "\x00"))

	reason := ""
	switch {
	case n.cur == nil:
		reason = "first load"
	case src != n.source:
		reason = "source changed"
	case p.ForceRefresh:
		reason = "forced refresh"
	case startRow != n.startRow:
		reason = "start row changed"
	case policy != n.cur.Policy():
		reason = "loop policy changed"
	}

	if reason != "" || snap != n.snap || columnsKey != n.columnsKey {
		n.view = snap.Slice(startRow).Select(p.Columns)
		n.schema = schema.Build(n.view)
	}
	if reason == "" && n.view.RowCount() != n.cur.State().RowCount {
		reason = "row count changed"
	}
	if reason != "" {
		n.cur = cursor.New(n.view.RowCount(), policy)
		n.complete = false
		n.logger.Info("cursor reset",
			"reason", reason,
			"path", path,
			"rows", n.view.RowCount(),
			"mode", policy.Mode.String(),
			"start_row", startRow,
		)
	}
	n.source = src
	n.snap = snap
	n.startRow = startRow
	n.columnsKey = columnsKey

	step := n.cur.Tick()
	if step.Terminal && !n.complete {
		n.complete = true
		n.logger.Info("loop complete", "path", path, "rows", step.RowCount, "mode", policy.Mode.String())
	}

	out := Output{
		Trigger:    step.Row,
		CurrentRow: step.Row,
		TotalRows:  step.RowCount,
		Complete:   step.Terminal,
		Values:     n.project(step),
	}
	if step.RowCount == 0 {
		out.Status = table.KindEmptyTable
	}
	return out
}

func (n *Node) policy(p Params) cursor.Policy {
	mode, err := cursor.ParseMode(p.LoopMode)
	if err != nil {
		n.logger.Warn("unknown loop mode, using single_pass", "loop_mode", p.LoopMode)
		mode = cursor.SinglePass
	}
	count := 0
	if mode == cursor.Repeat {
		count = min(max(p.RepeatCount, 1), config.MaxRepeatCount)
	}
	return cursor.Policy{Mode: mode, Count: count}
}

// project coerces the emitted row onto the schema. Without a row every
// column carries its zero value.
func (n *Node) project(step cursor.Step) []ColumnValue {
	var row []table.Value
	if step.HasRow {
		row = n.view.Row(step.Row)
	}
	values := make([]ColumnValue, len(n.schema))
	for i, f := range n.schema {
		v := table.NullValue()
		if i < len(row) {
			v = row[i]
		}
		values[i] = ColumnValue{Name: f.Name, Type: f.Type, Value: schema.Coerce(f.Type, v)}
	}
	return values
}

// fail drops all table state so the next successful load starts a fresh
// cursor, and reports the failure as data.
func (n *Node) fail(err error) Output {
	kind := table.KindOf(err)
	n.logger.Warn("tick without table", "kind", kind, "error", err)

	n.source = cache.Source{}
	n.snap = nil
	n.view = nil
	n.schema = nil
	n.cur = nil
	n.complete = false

	return Output{
		Trigger:    -1,
		CurrentRow: -1,
		TotalRows:  0,
		Complete:   true,
		Status:     kind,
		Error:      err.Error(),
	}
}

// Changed is the staleness probe for p: the source's modification time, or
// now when it cannot be read. It leaves cache and cursor untouched.
func (n *Node) Changed(p Params) time.Time {
	path, err := ResolvePath(n.baseDir, p.Path)
	if err != nil {
		return time.Now()
	}
	return n.cache.ModTime(path)
}

// Ports returns the output manifest for the current schema. Before the first
// successful load only the control ports are known.
func (n *Node) Ports() []schema.Port {
	return schema.Ports(n.schema)
}

// Schema returns a copy of the current column schema.
func (n *Node) Schema() schema.Schema {
	return append(schema.Schema(nil), n.schema...)
}

// State returns the cursor state; ok is false before the first load.
func (n *Node) State() (cursor.State, bool) {
	if n.cur == nil {
		return cursor.State{}, false
	}
	return n.cur.State(), true
}

// Reset rewinds the cursor to the first row of the current table.
func (n *Node) Reset() {
	if n.cur == nil {
		return
	}
	n.cur.Reset()
	n.complete = false
	n.logger.Info("cursor reset", "reason", "explicit")
}
