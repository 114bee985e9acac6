package board

import "fmt"

// PipelineRecord is a saved board: the graph snapshot plus the metadata
// the dashboard needs to restore it. Timestamps are epoch milliseconds.
type PipelineRecord struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	CreatedAt int64          `json:"createdAt"`
	UpdatedAt int64          `json:"updatedAt"`
	Nodes     []Node         `json:"nodes"`
	Edges     []Edge         `json:"edges"`
	// IDSeq is the counter used to mint fresh node ids for this board.
	IDSeq   int    `json:"idSeq"`
	Preview string `json:"preview,omitempty"`
	// Meta carries free-form board settings: theme, zoom, interaction
	// mode, remote-server settings.
	Meta map[string]any `json:"meta"`
}

// Clone returns a deep copy of the record; nodes, edges, params and meta
// share no references with the original.
func (r PipelineRecord) Clone() PipelineRecord {
	c := r
	c.Nodes = make([]Node, len(r.Nodes))
	for i, n := range r.Nodes {
		c.Nodes[i] = n.Clone()
	}
	c.Edges = make([]Edge, len(r.Edges))
	copy(c.Edges, r.Edges)
	c.Meta = cloneParams(r.Meta)
	return c
}

// NextNodeID mints a fresh node id from the record's sequence counter.
func (r *PipelineRecord) NextNodeID() string {
	r.IDSeq++
	return fmt.Sprintf("node-%d", r.IDSeq)
}

// Graph hydrates the record's snapshot into an editable graph, returning
// the number of edges dropped for referencing missing nodes or occupied
// ports.
func (r PipelineRecord) Graph() (*Graph, int) {
	return Hydrate(r.Nodes, r.Edges)
}

// Snapshot replaces the record's node and edge sets with the given
// graph's current state.
func (r *PipelineRecord) Snapshot(g *Graph) {
	r.Nodes = g.Nodes()
	r.Edges = g.Edges()
}
