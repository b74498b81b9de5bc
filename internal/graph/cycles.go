package graph

// Simple-cycle enumeration in the style of Johnson's algorithm: for each
// strongly connected component, run a blocked DFS rooted at the component's
// least node, then remove that node and repeat. Self-loops are reported as
// single-node cycles.
//
// MaxCycles caps enumeration so a pathologically dense graph cannot blow up
// a scan. 1000 is far beyond anything a real repository produces; when the
// cap is hit the result is silently truncated.
const MaxCycles = 1000

// SimpleCycles returns every elementary cycle in the graph, each expressed
// as node ids in traversal order starting from the smallest-index node of
// the cycle. Enumeration order is deterministic because it follows node
// insertion order.
func (g *Graph) SimpleCycles() [][]string {
	// Work on an index-based copy of the adjacency structure so nodes can
	// be removed between rounds without touching the live graph.
	ids := g.NodeIDs()
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}
	adj := make([][]int, len(ids))
	for i, id := range ids {
		for _, succ := range g.Successors(id) {
			adj[i] = append(adj[i], index[succ])
		}
	}

	e := &cycleEnumerator{ids: ids, adj: adj}
	e.run()
	return e.cycles
}

type cycleEnumerator struct {
	ids     []string
	adj     [][]int
	cycles  [][]string
	blocked []bool
	blockMap [][]int
	stack   []int
	start   int
	removed []bool
}

func (e *cycleEnumerator) run() {
	n := len(e.ids)
	e.removed = make([]bool, n)

	// Self-loops first; the blocked DFS below only finds cycles of
	// length >= 2.
	for v := 0; v < n; v++ {
		for _, w := range e.adj[v] {
			if w == v {
				e.emit([]int{v})
				break
			}
		}
	}

	for s := 0; s < n && len(e.cycles) < MaxCycles; s++ {
		// Restrict the search to the SCC containing s within the subgraph
		// of nodes >= s; skip trivial components.
		scc := e.sccContaining(s)
		if len(scc) < 2 {
			e.removed[s] = true
			continue
		}
		inSCC := make([]bool, n)
		for _, v := range scc {
			inSCC[v] = true
		}

		e.start = s
		e.blocked = make([]bool, n)
		e.blockMap = make([][]int, n)
		e.stack = e.stack[:0]
		e.circuit(s, inSCC)

		e.removed[s] = true
	}
}

// circuit is the blocked DFS from Johnson's algorithm.
func (e *cycleEnumerator) circuit(v int, inSCC []bool) bool {
	if len(e.cycles) >= MaxCycles {
		return true
	}
	found := false
	e.stack = append(e.stack, v)
	e.blocked[v] = true

	for _, w := range e.adj[v] {
		if e.removed[w] || !inSCC[w] || w == v {
			continue
		}
		if w == e.start {
			e.emit(append([]int(nil), e.stack...))
			found = true
		} else if !e.blocked[w] {
			if e.circuit(w, inSCC) {
				found = true
			}
		}
	}

	if found {
		e.unblock(v)
	} else {
		for _, w := range e.adj[v] {
			if e.removed[w] || !inSCC[w] {
				continue
			}
			e.blockMap[w] = append(e.blockMap[w], v)
		}
	}
	e.stack = e.stack[:len(e.stack)-1]
	return found
}

func (e *cycleEnumerator) unblock(v int) {
	e.blocked[v] = false
	for _, w := range e.blockMap[v] {
		if e.blocked[w] {
			e.unblock(w)
		}
	}
	e.blockMap[v] = e.blockMap[v][:0]
}

func (e *cycleEnumerator) emit(path []int) {
	if len(e.cycles) >= MaxCycles {
		return
	}
	cycle := make([]string, len(path))
	for i, v := range path {
		cycle[i] = e.ids[v]
	}
	e.cycles = append(e.cycles, cycle)
}

// sccContaining computes, via iterative Tarjan over the not-yet-removed
// subgraph, the strongly connected component that contains node s.
func (e *cycleEnumerator) sccContaining(s int) []int {
	n := len(e.ids)
	indexOf := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range indexOf {
		indexOf[i] = -1
	}
	var stack []int
	counter := 0
	var result []int

	type frame struct {
		v, edge int
	}

	var strongconnect func(root int)
	strongconnect = func(root int) {
		frames := []frame{{v: root}}
		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			v := f.v
			if f.edge == 0 {
				indexOf[v] = counter
				lowlink[v] = counter
				counter++
				stack = append(stack, v)
				onStack[v] = true
			}
			advanced := false
			for f.edge < len(e.adj[v]) {
				w := e.adj[v][f.edge]
				f.edge++
				if e.removed[w] {
					continue
				}
				if indexOf[w] == -1 {
					frames = append(frames, frame{v: w})
					advanced = true
					break
				}
				if onStack[w] && indexOf[w] < lowlink[v] {
					lowlink[v] = indexOf[w]
				}
			}
			if advanced {
				continue
			}
			// Pop frame; fold lowlink into parent.
			if lowlink[v] == indexOf[v] {
				var comp []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				for _, w := range comp {
					if w == s {
						result = comp
					}
				}
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].v
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
		}
	}

	for v := 0; v < n; v++ {
		if !e.removed[v] && indexOf[v] == -1 {
			strongconnect(v)
		}
		if result != nil {
			break
		}
	}
	return result
}
