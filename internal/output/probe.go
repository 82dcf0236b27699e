package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/torosent/tableloop/internal/config"
)

// Probe is the staleness probe result.
type Probe struct {
	Path     string `json:"path" yaml:"path"`
	Changed  string `json:"changed" yaml:"changed"`
	UnixNano int64  `json:"unix_nano" yaml:"unix_nano"`
}

// PrintProbe writes the probe timestamp. Text output is the bare RFC 3339
// timestamp.
func PrintProbe(w io.Writer, format config.OutputFormat, path string, changed time.Time) error {
	p := Probe{Path: path, Changed: changed.UTC().Format(time.RFC3339Nano), UnixNano: changed.UnixNano()}
	switch format {
	case config.OutputJSON:
		return json.NewEncoder(w).Encode(p)
	case config.OutputYAML:
		data, err := yaml.Marshal(p)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	default:
		_, err := fmt.Fprintln(w, p.Changed)
		return err
	}
}
