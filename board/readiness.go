package board

// Report is the result of a readiness pass over the graph.
type Report struct {
	// PerNode maps node id to whether its declared port arity is satisfied.
	PerNode map[string]bool
	// IssueCount is the number of nodes whose arity is not satisfied.
	IssueCount int
}

// Ready reports whether the node with the given id satisfied its arity.
// Unknown ids count as not ready.
func (r Report) Ready(id string) bool {
	return r.PerNode[id]
}

// ComputeReadiness checks every node's declared port arity against the
// current edge set: a node is ready iff it has at least PortsIn inbound
// and PortsOut outbound connections. Runs in O(N+E) and does not mutate
// the graph.
func ComputeReadiness(g *Graph) Report {
	g.mu.RLock()
	defer g.mu.RUnlock()

	haveIn := make(map[string]int, len(g.nodes))
	haveOut := make(map[string]int, len(g.nodes))
	for _, e := range g.edges {
		haveOut[e.Source]++
		haveIn[e.Target]++
	}

	report := Report{PerNode: make(map[string]bool, len(g.nodes))}
	for _, n := range g.nodes {
		ready := haveIn[n.ID] >= n.PortsIn && haveOut[n.ID] >= n.PortsOut
		report.PerNode[n.ID] = ready
		if !ready {
			report.IssueCount++
		}
	}
	return report
}
