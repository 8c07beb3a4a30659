package graph

// CriticalityOptions controls which edges get flagged as critical
type CriticalityOptions struct {
	InDegreeThreshold int
	MarkCrossPackage  bool
}

// DefaultCriticalityOptions returns the service defaults
func DefaultCriticalityOptions() CriticalityOptions {
	return CriticalityOptions{
		InDegreeThreshold: 5,
		MarkCrossPackage:  true,
	}
}

// CriticalityReport summarizes one criticality pass
type CriticalityReport struct {
	Edges          int `json:"edges"`
	Critical       int `json:"critical"`
	ByInDegree     int `json:"by_in_degree"`
	ByCrossPackage int `json:"by_cross_package"`
}

// InDegrees counts, per node, the distinct edges that target it.
// Nodes with no incoming edge are absent from the map.
func InDegrees(edges []Edge) map[string]int {
	in := make(map[string]int)
	for _, e := range edges {
		in[e.Target]++
	}
	return in
}

// ComputeCriticality marks edges critical in a single pass.
// In-degree comes from the edge set as it was before any marking, and the
// two rules are additive: either is enough, and a marked edge stays marked.
// Must run after the build has finished writing to g.
func ComputeCriticality(g *Graph, opts CriticalityOptions) CriticalityReport {
	edges := g.Edges()
	in := InDegrees(edges)

	report := CriticalityReport{Edges: len(edges)}
	for _, e := range edges {
		critical := e.Critical

		if in[e.Target] >= opts.InDegreeThreshold {
			critical = true
			report.ByInDegree++
		}
		if opts.MarkCrossPackage && TopLevelNamespace(e.Source) != TopLevelNamespace(e.Target) {
			critical = true
			report.ByCrossPackage++
		}

		if critical {
			g.MarkCritical(e.Source, e.Target)
			report.Critical++
		}
	}
	return report
}
