package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/torosent/tableloop/internal/config"
	"github.com/torosent/tableloop/internal/looper"
)

// TickWriter renders one tick output.
type TickWriter interface {
	Write(out looper.Output) error
}

// NewTickWriter returns the writer for format. tmpl is only used by the
// template format.
func NewTickWriter(format config.OutputFormat, tmpl string, w io.Writer) (TickWriter, error) {
	switch format {
	case config.OutputText, "":
		return &textWriter{w: w}, nil
	case config.OutputJSON:
		return &jsonWriter{enc: json.NewEncoder(w)}, nil
	case config.OutputYAML:
		return &yamlWriter{w: w}, nil
	case config.OutputTemplate:
		if strings.TrimSpace(tmpl) == "" {
			return nil, fmt.Errorf("template output needs a template")
		}
		return &templateWriter{w: w, tmpl: tmpl}, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

type textWriter struct {
	w io.Writer
}

func (t *textWriter) Write(out looper.Output) error {
	var b strings.Builder
	if out.TotalRows > 0 {
		fmt.Fprintf(&b, "[%d/%d]", out.CurrentRow, out.TotalRows)
	} else {
		b.WriteString("[-/0]")
	}
	for _, v := range out.Values {
		fmt.Fprintf(&b, " %s=%s", v.Name, formatValue(v.Value))
	}
	if out.Complete {
		b.WriteString(" (complete)")
	}
	if out.Status != "" {
		fmt.Fprintf(&b, " status=%s", out.Status)
	}
	if out.Error != "" {
		fmt.Fprintf(&b, " error=%q", out.Error)
	}
	b.WriteByte('\n')
	_, err := io.WriteString(t.w, b.String())
	return err
}

// jsonWriter emits one flat JSON object per line.
type jsonWriter struct {
	enc *json.Encoder
}

func (j *jsonWriter) Write(out looper.Output) error {
	return j.enc.Encode(out)
}

// yamlWriter emits one YAML document per tick, keys in output order.
type yamlWriter struct {
	w io.Writer
}

func (y *yamlWriter) Write(out looper.Output) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range out.Fields() {
		var val yaml.Node
		if err := val.Encode(f.Value); err != nil {
			return fmt.Errorf("encode %s: %w", f.Key, err)
		}
		doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: f.Key}, &val)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(y.w, "---\n"); err != nil {
		return err
	}
	_, err = y.w.Write(data)
	return err
}

type templateWriter struct {
	w    io.Writer
	tmpl string
}

func (t *templateWriter) Write(out looper.Output) error {
	line := SubstitutePlaceholders(t.tmpl, out)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err := io.WriteString(t.w, line)
	return err
}

// SubstitutePlaceholders replaces every {{key}} in tmpl with the matching
// output field: a control port, a column, or _status/_error. Placeholders
// without a matching field are left unchanged.
func SubstitutePlaceholders(tmpl string, out looper.Output) string {
	result := tmpl
	for _, f := range out.Fields() {
		result = strings.ReplaceAll(result, "{{"+f.Key+"}}", formatValue(f.Value))
	}
	return result
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
