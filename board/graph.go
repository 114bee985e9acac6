package board

import (
	"fmt"
	"sync"
)

// SingleInput is the sentinel target port for nodes whose single inbound
// connection is not addressed by index. It occupies port 0.
const SingleInput = -1

// Edge connects an output port of one node to an input port of another.
type Edge struct {
	ID         string `json:"id"`
	Source     string `json:"source"`
	SourcePort int    `json:"sourcePort"`
	Target     string `json:"target"`
	TargetPort int    `json:"targetPort"`
}

type portKey struct {
	node string
	port int
}

// Graph is the editable node-and-edge model behind the board canvas.
// Nodes keep insertion order so serialized boards are stable. The graph
// is safe for concurrent use: execution status updates arrive on the
// connection's read loop while the editor and the status surface read.
type Graph struct {
	mu       sync.RWMutex
	nodes    []*Node
	byID     map[string]*Node
	edges    []Edge
	occupied map[portKey]string // (target, targetPort) -> edge id
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		byID:     make(map[string]*Node),
		occupied: make(map[portKey]string),
	}
}

// AddNode inserts a node. A duplicate id is rejected and the graph is
// left unchanged.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return fmt.Errorf("board: node id is required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byID[n.ID]; ok {
		return fmt.Errorf("board: node %q already exists", n.ID)
	}
	stored := n.Clone()
	g.nodes = append(g.nodes, &stored)
	g.byID[n.ID] = &stored
	return nil
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// AddEdge inserts an edge. Both endpoints must exist, and the target port
// must not already carry an inbound edge; otherwise the edge set is left
// unchanged and the rejection reason is returned.
func (g *Graph) AddEdge(e Edge) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byID[e.Source]; !ok {
		return fmt.Errorf("board: edge %q references unknown source node %q", e.ID, e.Source)
	}
	if _, ok := g.byID[e.Target]; !ok {
		return fmt.Errorf("board: edge %q references unknown target node %q", e.ID, e.Target)
	}
	key := portKey{node: e.Target, port: normalizePort(e.TargetPort)}
	if existing, ok := g.occupied[key]; ok {
		return fmt.Errorf("board: input port %d of node %q is already connected by edge %q", key.port, e.Target, existing)
	}
	g.edges = append(g.edges, e)
	g.occupied[key] = e.ID
	return nil
}

// RemoveEdge deletes the edge with the given id, freeing its target port.
func (g *Graph) RemoveEdge(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, e := range g.edges {
		if e.ID != id {
			continue
		}
		g.edges = append(g.edges[:i], g.edges[i+1:]...)
		delete(g.occupied, portKey{node: e.Target, port: normalizePort(e.TargetPort)})
		return true
	}
	return false
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph) RemoveNode(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.byID[id]; !ok {
		return false
	}
	delete(g.byID, id)
	for i, n := range g.nodes {
		if n.ID == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source == id || e.Target == id {
			delete(g.occupied, portKey{node: e.Target, port: normalizePort(e.TargetPort)})
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	return true
}

// Clear removes all nodes and edges.
func (g *Graph) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = nil
	g.edges = nil
	g.byID = make(map[string]*Node)
	g.occupied = make(map[portKey]string)
}

// Nodes returns the nodes in insertion order. The returned copies do not
// share parameter maps with the graph.
func (g *Graph) Nodes() []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n.Clone())
	}
	return out
}

// Edges returns a copy of the edge set in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// SetNodeStatus updates a node's execution status and message.
func (g *Graph) SetNodeStatus(id string, status Status, message string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.byID[id]
	if !ok {
		return false
	}
	n.Status = status
	n.StatusMessage = message
	return true
}

// NodeStatus returns a node's current execution status.
func (g *Graph) NodeStatus(id string) (Status, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.byID[id]
	if !ok {
		return StatusNone, false
	}
	return n.Status, true
}

// MarkAllRunning flags every node as part of an active execution.
func (g *Graph) MarkAllRunning() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		n.Status = StatusRunning
		n.StatusMessage = ""
	}
}

// FinalizePending stamps every node still marked running with the given
// terminal status. Nodes that already carry an error keep it.
func (g *Graph) FinalizePending(status Status, message string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		if n.Status != StatusRunning {
			continue
		}
		n.Status = status
		n.StatusMessage = message
	}
}

// ResetStatuses clears every node's execution status.
func (g *Graph) ResetStatuses() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range g.nodes {
		n.Status = StatusNone
		n.StatusMessage = ""
	}
}

// Hydrate rebuilds a graph from serialized nodes and edges. Edges whose
// endpoints are missing, or whose target port is already connected, are
// dropped; the first edge seen for a port wins, in source order. The
// number of dropped edges is returned.
func Hydrate(nodes []Node, edges []Edge) (*Graph, int) {
	g := NewGraph()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			continue
		}
	}
	dropped := 0
	for _, e := range edges {
		if err := g.AddEdge(e); err != nil {
			dropped++
		}
	}
	return g, dropped
}

func normalizePort(p int) int {
	if p < 0 {
		return 0
	}
	return p
}
