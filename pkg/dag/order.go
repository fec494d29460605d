package dag

// BreakCycles removes the edges that close a cycle and returns them.
// The DFS starts from sources, so the edge pointing back toward a requested
// root is the one dropped.
func BreakCycles(g *DAG) []Edge {
	back := g.backEdges()
	for _, e := range back {
		g.RemoveEdge(e.From, e.To)
	}
	return back
}

func (d *DAG) backEdges() []Edge {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var back []Edge

	var dfs func(id string)
	dfs = func(id string) {
		color[id] = gray
		for _, child := range d.outgoing[id] {
			switch color[child] {
			case white:
				dfs(child)
			case gray:
				back = append(back, Edge{From: id, To: child})
			}
		}
		color[id] = black
	}

	for _, n := range d.Sources() {
		if color[n.ID] == white {
			dfs(n.ID)
		}
	}
	for _, id := range d.order {
		if color[id] == white {
			dfs(id)
		}
	}
	return back
}

// DependencyOrder returns node IDs with every node after all of its
// dependencies (a reverse topological order). Members of a cycle appear in
// DFS post-order, so the result is defined for any graph.
func DependencyOrder(g *DAG) []string {
	visited := make(map[string]bool, len(g.nodes))
	out := make([]string, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, child := range g.outgoing[id] {
			visit(child)
		}
		out = append(out, id)
	}

	for _, n := range g.Sources() {
		visit(n.ID)
	}
	for _, id := range g.order {
		visit(id)
	}
	return out
}
