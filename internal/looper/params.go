package looper

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/torosent/tableloop/internal/schema"
	"github.com/torosent/tableloop/internal/table"
)

// Params are the per-tick inputs of a node.
type Params struct {
	Path         string   `json:"path" yaml:"path"`
	Format       string   `json:"format,omitempty" yaml:"format,omitempty"`
	LoopMode     string   `json:"loop_mode,omitempty" yaml:"loop_mode,omitempty"`
	RepeatCount  int      `json:"repeat_count,omitempty" yaml:"repeat_count,omitempty"`
	StartRow     int      `json:"start_row,omitempty" yaml:"start_row,omitempty"`
	ForceRefresh bool     `json:"force_refresh,omitempty" yaml:"force_refresh,omitempty"`
	Columns      []string `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// ColumnValue is one projected cell. Value is int64, float64 or string
// according to Type.
type ColumnValue struct {
	Name  string
	Type  schema.Type
	Value any
}

// Output is the result of one tick. Failures are reported through Status
// and Error; Process never returns an error.
type Output struct {
	Trigger    int
	CurrentRow int
	TotalRows  int
	Complete   bool
	Values     []ColumnValue
	Status     table.ErrorKind
	Error      string
}

// Field is one key of the flattened output, in emission order.
type Field struct {
	Key   string
	Value any
}

// Keys carrying failure details in the flattened output.
const (
	StatusKey = "_status"
	ErrorKey  = "_error"
)

// Fields flattens the output: control ports first, then one entry per
// column in schema order, then the failure details when present.
func (o Output) Fields() []Field {
	fields := make([]Field, 0, 4+len(o.Values)+2)
	fields = append(fields,
		Field{schema.PortNameTrigger, o.Trigger},
		Field{schema.PortNameRow, o.CurrentRow},
		Field{schema.PortNameTotal, o.TotalRows},
		Field{schema.PortNameComplete, o.Complete},
	)
	for _, v := range o.Values {
		fields = append(fields, Field{v.Name, v.Value})
	}
	if o.Status != "" {
		fields = append(fields, Field{StatusKey, string(o.Status)})
	}
	if o.Error != "" {
		fields = append(fields, Field{ErrorKey, o.Error})
	}
	return fields
}

// Get returns the value of a column by name.
func (o Output) Get(name string) (any, bool) {
	for _, v := range o.Values {
		if v.Name == name {
			return v.Value, true
		}
	}
	return nil, false
}

// OK reports whether the tick had no load failure. An empty table is not a
// failure of the source, but it is reported through Status too.
func (o Output) OK() bool {
	return o.Status == "" || o.Status == table.KindEmptyTable
}

// MarshalJSON writes the flat object
// {"trigger":..,"current_row":..,"total_rows":..,"loop_complete":..,<column>:..}.
func (o Output) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range o.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
