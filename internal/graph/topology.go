package graph

import "sort"

// HubNode is a node many others depend on
type HubNode struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalNodes        int            `json:"total_nodes"`
	TotalEdges        int            `json:"total_edges"`
	CriticalEdges     int            `json:"critical_edges"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	SelfLoops         int            `json:"self_loops"`
	LeafCount         int            `json:"leaf_count"`
	RootCount         int            `json:"root_count"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanNames       []string       `json:"orphan_names"`
	InDegreeHistogram []DegreeBucket `json:"in_degree_histogram"`
	Hubs              []HubNode      `json:"hubs"`
}

// ComputeTopology analyzes graph topology: weakly connected components,
// leaves (no dependencies), roots (nothing depends on them), in-degree
// distribution and hubs (in-degree >= hubThreshold, at most topN).
func ComputeTopology(snap *Snapshot, hubThreshold, topN int) *TopologyReport {
	totalNodes := len(snap.NodeNames)
	if totalNodes == 0 {
		return &TopologyReport{InDegreeHistogram: defaultHistogram()}
	}

	uf := NewUnionFind(snap.NodeNames)
	critical, selfLoops := 0, 0
	for _, e := range snap.Edges {
		uf.Union(e.Source, e.Target)
		if e.Critical {
			critical++
		}
		if e.Source == e.Target {
			selfLoops++
		}
	}

	components := uf.Components()
	largest, smallest := 0, totalNodes
	for _, c := range components {
		if len(c) > largest {
			largest = len(c)
		}
		if len(c) < smallest {
			smallest = len(c)
		}
	}

	var orphans []string
	leaves, roots := 0, 0
	buckets := [7]int{}
	var hubs []HubNode
	for _, name := range snap.NodeNames {
		in, out := len(snap.InAdj[name]), len(snap.OutAdj[name])
		if out == 0 {
			leaves++
		}
		if in == 0 {
			roots++
		}
		// only reachable through a self-loop
		if len(snap.Adj[name]) == 0 {
			orphans = append(orphans, name)
		}
		buckets[degreeBucket(in)]++
		if in >= hubThreshold {
			hubs = append(hubs, HubNode{
				Name:      name,
				Label:     ShortName(name),
				InDegree:  in,
				OutDegree: out,
			})
		}
	}

	orphanCount := len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}

	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].InDegree > hubs[j].InDegree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}

	return &TopologyReport{
		TotalNodes:        totalNodes,
		TotalEdges:        len(snap.Edges),
		CriticalEdges:     critical,
		NumComponents:     len(components),
		LargestComponent:  largest,
		SmallestComponent: smallest,
		SelfLoops:         selfLoops,
		LeafCount:         leaves,
		RootCount:         roots,
		OrphanCount:       orphanCount,
		OrphanNames:       orphans,
		InDegreeHistogram: histogram,
		Hubs:              hubs,
	}
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{
		{Label: "0"}, {Label: "1"}, {Label: "2-3"},
		{Label: "4-7"}, {Label: "8-15"}, {Label: "16-31"}, {Label: "32+"},
	}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	case degree <= 7:
		return 3
	case degree <= 15:
		return 4
	case degree <= 31:
		return 5
	default:
		return 6
	}
}
