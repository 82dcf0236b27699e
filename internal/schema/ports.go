package schema

// PortKind is the wire type of an output port.
type PortKind string

const (
	PortTrigger PortKind = "TRIGGER"
	PortInt     PortKind = "INT"
	PortFloat   PortKind = "FLOAT"
	PortString  PortKind = "STRING"
	PortBoolean PortKind = "BOOLEAN"
)

// Port describes one output of a looper node.
type Port struct {
	Name    string   `json:"name" yaml:"name"`
	Kind    PortKind `json:"kind" yaml:"kind"`
	Tooltip string   `json:"tooltip,omitempty" yaml:"tooltip,omitempty"`
}

// Control port names emitted on every tick.
const (
	PortNameTrigger  = "trigger"
	PortNameRow      = "current_row"
	PortNameTotal    = "total_rows"
	PortNameComplete = "loop_complete"
)

// Ports builds the output manifest: the fixed control ports followed by one
// port per column.
func Ports(s Schema) []Port {
	ports := []Port{
		{Name: PortNameTrigger, Kind: PortTrigger, Tooltip: "fires once per tick with the emitted row index"},
		{Name: PortNameRow, Kind: PortInt, Tooltip: "row emitted by this tick, counted from 0"},
		{Name: PortNameTotal, Kind: PortInt, Tooltip: "number of rows after the start offset"},
		{Name: PortNameComplete, Kind: PortBoolean, Tooltip: "true once single_pass or repeat has finished"},
	}
	for _, f := range s {
		ports = append(ports, Port{Name: f.Name, Kind: portKind(f.Type), Tooltip: string(f.Type) + " column " + f.Name})
	}
	return ports
}

func portKind(t Type) PortKind {
	switch t {
	case Integer:
		return PortInt
	case Float:
		return PortFloat
	default:
		return PortString
	}
}
