package output

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/torosent/tableloop/internal/config"
	"github.com/torosent/tableloop/internal/schema"
)

// PrintPorts writes the port manifest. Text output is a table; json and yaml
// write the list as a document. Template output falls back to text.
func PrintPorts(w io.Writer, ports []schema.Port, format config.OutputFormat) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ports)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ports); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PORT\tKIND\tDESCRIPTION")
	for _, p := range ports {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, p.Kind, p.Tooltip)
	}
	return tw.Flush()
}
