package graph

import "sort"

// Snapshot is a frozen, analysis-friendly view of a Graph with
// precomputed adjacency in both directions and a namespace region map.
type Snapshot struct {
	NodeNames []string            // sorted
	Edges     []Edge
	Adj       map[string][]string // undirected, deduplicated
	OutAdj    map[string][]string // source -> targets
	InAdj     map[string][]string // target -> sources
	Regions   map[string]string   // node -> top-level namespace
}

// NewSnapshot copies the current state of g into a Snapshot
func NewSnapshot(g *Graph) *Snapshot {
	nodes := g.AllNodes()
	edges := g.Edges()

	names := make([]string, 0, len(nodes))
	adj := make(map[string][]string, len(nodes))
	outAdj := make(map[string][]string, len(nodes))
	inAdj := make(map[string][]string, len(nodes))
	regions := make(map[string]string, len(nodes))

	for _, n := range nodes {
		names = append(names, n.Name)
		adj[n.Name] = nil // ensure entry exists
		outAdj[n.Name] = nil
		inAdj[n.Name] = nil
		regions[n.Name] = TopLevelNamespace(n.Name)
	}
	sort.Strings(names)

	type pair struct{ a, b string }
	seen := make(map[pair]bool, len(edges))
	for _, e := range edges {
		outAdj[e.Source] = append(outAdj[e.Source], e.Target)
		inAdj[e.Target] = append(inAdj[e.Target], e.Source)
		if e.Source == e.Target {
			continue
		}
		key := pair{e.Source, e.Target}
		if key.a > key.b {
			key = pair{e.Target, e.Source}
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
	}

	return &Snapshot{
		NodeNames: names,
		Edges:     edges,
		Adj:       adj,
		OutAdj:    outAdj,
		InAdj:     inAdj,
		Regions:   regions,
	}
}

// FilterToNamespace returns a snapshot restricted to nodes in one top-level namespace
func (s *Snapshot) FilterToNamespace(ns string) *Snapshot {
	sub := New()
	for _, e := range s.Edges {
		if s.Regions[e.Source] != ns || s.Regions[e.Target] != ns {
			continue
		}
		_ = sub.AddEdge(e.Source, e.Target)
		if e.Critical {
			sub.MarkCritical(e.Source, e.Target)
		}
	}
	return NewSnapshot(sub)
}
