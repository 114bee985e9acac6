package board

// Status is the transient visual state of a node during execution.
type Status string

const (
	// StatusNone means the node has no execution state.
	StatusNone Status = ""
	// StatusRunning means the node is part of an active execution.
	StatusRunning Status = "running"
	// StatusSuccess means the node finished successfully.
	StatusSuccess Status = "success"
	// StatusError means the node failed.
	StatusError Status = "error"
)

// Node is a single processing step on the board. PortsIn and PortsOut
// declare how many connections the node requires before it is ready.
type Node struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	PortsIn  int            `json:"portsIn"`
	PortsOut int            `json:"portsOut"`
	Params   map[string]any `json:"params,omitempty"`
	Status   Status         `json:"-"`
	// StatusMessage carries the duration-qualified success text or the
	// error string delivered by a node status push.
	StatusMessage string `json:"-"`
}

// Clone returns a deep copy of the node, including its parameter map.
func (n Node) Clone() Node {
	c := n
	c.Params = cloneParams(n.Params)
	return c
}

// cloneParams deep-copies a parameter map so loaded and serialized boards
// never share references with the live graph.
func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneParams(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return val
	}
}
