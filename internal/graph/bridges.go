package graph

import "sort"

// ArticulationPoint is a module whose removal splits the dependency graph
type ArticulationPoint struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Neighbors int    `json:"neighbors"`
}

// BridgeEdge is a dependency whose removal splits the graph
type BridgeEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// FragileConnection is a pair of namespaces joined by very few dependencies
type FragileConnection struct {
	NamespaceA string `json:"namespace_a"`
	NamespaceB string `json:"namespace_b"`
	CrossEdges int    `json:"cross_edges"`
}

// BridgeReport contains single-point-of-failure analysis results
type BridgeReport struct {
	ArticulationPoints []ArticulationPoint `json:"articulation_points"`
	BridgeEdges        []BridgeEdge        `json:"bridge_edges"`
	FragileConnections []FragileConnection `json:"fragile_connections"`
	APCount            int                 `json:"ap_count"`
	BridgeCount        int                 `json:"bridge_count"`
}

// maxFragileCrossEdges is the most cross-namespace edges a pair may have
// and still be reported as fragile.
const maxFragileCrossEdges = 2

// ComputeBridges finds articulation points and bridges on the undirected
// projection of the dependency graph, plus fragile namespace pairs.
func ComputeBridges(snap *Snapshot) *BridgeReport {
	n := len(snap.NodeNames)
	if n == 0 {
		return &BridgeReport{}
	}

	idx := make(map[string]int, n)
	for i, name := range snap.NodeNames {
		idx[name] = i
	}
	adjIdx := make([][]int, n)
	for i, name := range snap.NodeNames {
		for _, other := range snap.Adj[name] {
			adjIdx[i] = append(adjIdx[i], idx[other])
		}
	}

	disc := make([]int, n)
	low := make([]int, n)
	visited := make([]bool, n)
	isAP := make([]bool, n)
	var bridgePairs [][2]int
	counter := 1

	const noParent = -1

	// Iterative Tarjan for each connected component
	type frame struct {
		node, parent, ni int
	}

	for start := 0; start < n; start++ {
		if visited[start] {
			continue
		}
		visited[start] = true
		disc[start], low[start] = counter, counter
		counter++

		stack := []frame{{start, noParent, 0}}
		rootChildren := 0

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			node := top.node

			if top.ni < len(adjIdx[node]) {
				child := adjIdx[node][top.ni]
				top.ni++
				if child == top.parent {
					continue
				}
				if visited[child] {
					// back edge
					low[node] = min(low[node], disc[child])
					continue
				}
				visited[child] = true
				disc[child], low[child] = counter, counter
				counter++
				if node == start {
					rootChildren++
				}
				stack = append(stack, frame{child, node, 0})
				continue
			}

			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				continue
			}
			pn := stack[len(stack)-1].node
			low[pn] = min(low[pn], low[node])
			if low[node] > disc[pn] {
				bridgePairs = append(bridgePairs, [2]int{pn, node})
			}
			if pn != start && low[node] >= disc[pn] {
				isAP[pn] = true
			}
		}

		if rootChildren >= 2 {
			isAP[start] = true
		}
	}

	var aps []ArticulationPoint
	for i, name := range snap.NodeNames {
		if isAP[i] {
			aps = append(aps, ArticulationPoint{
				Name:      name,
				Label:     ShortName(name),
				Neighbors: len(adjIdx[i]),
			})
		}
	}

	bridges := make([]BridgeEdge, 0, len(bridgePairs))
	for _, pair := range bridgePairs {
		u, v := snap.NodeNames[pair[0]], snap.NodeNames[pair[1]]
		// report in dependency direction when the edge exists that way
		if !containsString(snap.OutAdj[u], v) {
			u, v = v, u
		}
		bridges = append(bridges, BridgeEdge{Source: u, Target: v})
	}
	sort.Slice(bridges, func(i, j int) bool {
		if bridges[i].Source != bridges[j].Source {
			return bridges[i].Source < bridges[j].Source
		}
		return bridges[i].Target < bridges[j].Target
	})

	return &BridgeReport{
		ArticulationPoints: aps,
		BridgeEdges:        bridges,
		FragileConnections: fragileConnections(snap),
		APCount:            len(aps),
		BridgeCount:        len(bridges),
	}
}

func fragileConnections(snap *Snapshot) []FragileConnection {
	type nsPair struct{ a, b string }
	counts := make(map[nsPair]int)
	for _, e := range snap.Edges {
		ra, rb := snap.Regions[e.Source], snap.Regions[e.Target]
		if ra == rb {
			continue
		}
		key := nsPair{ra, rb}
		if ra > rb {
			key = nsPair{rb, ra}
		}
		counts[key]++
	}

	var fragile []FragileConnection
	for pair, count := range counts {
		if count <= maxFragileCrossEdges {
			fragile = append(fragile, FragileConnection{
				NamespaceA: pair.a,
				NamespaceB: pair.b,
				CrossEdges: count,
			})
		}
	}
	sort.Slice(fragile, func(i, j int) bool {
		if fragile[i].CrossEdges != fragile[j].CrossEdges {
			return fragile[i].CrossEdges < fragile[j].CrossEdges
		}
		if fragile[i].NamespaceA != fragile[j].NamespaceA {
			return fragile[i].NamespaceA < fragile[j].NamespaceA
		}
		return fragile[i].NamespaceB < fragile[j].NamespaceB
	})
	return fragile
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
