package table

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// decodeJSON reads a file containing a JSON array of objects. Columns are the
// union of object keys in first-seen order; missing keys become nulls.
func decodeJSON(ctx context.Context, path string) (*Snapshot, error) {
	file, err := openSource(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open JSON file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read JSON file: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, newLoadError(KindEmptyTable, path, fmt.Errorf("JSON file is empty"))
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("decode JSON: invalid document")
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsArray() {
		return nil, fmt.Errorf("decode JSON: expected an array of objects, got %s", doc.Type)
	}

	var (
		keys    []string
		index   = map[string]int{}
		records []map[string]Value
	)
	var decodeErr error
	doc.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			decodeErr = fmt.Errorf("record %d is not an object", len(records))
			return false
		}
		record := map[string]Value{}
		item.ForEach(func(key, value gjson.Result) bool {
			name := key.String()
			if _, ok := index[name]; !ok {
				index[name] = len(keys)
				keys = append(keys, name)
			}
			record[name] = jsonValue(value)
			return true
		})
		records = append(records, record)
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}

	columns := make([][]Value, len(keys))
	for c, key := range keys {
		columns[c] = make([]Value, len(records))
		for r, record := range records {
			columns[c][r] = record[key]
		}
	}
	return NewSnapshot(NormalizeColumnNames(keys), columns)
}

func jsonValue(v gjson.Result) Value {
	switch v.Type {
	case gjson.Null:
		return NullValue()
	case gjson.True:
		return BoolValue(true)
	case gjson.False:
		return BoolValue(false)
	case gjson.Number:
		if !strings.ContainsAny(v.Raw, ".eE") {
			if i, err := strconv.ParseInt(v.Raw, 10, 64); err == nil {
				return IntValue(i)
			}
		}
		return FloatValue(v.Float())
	case gjson.String:
		return StringValue(v.String())
	default:
		return StringValue(v.Raw)
	}
}
