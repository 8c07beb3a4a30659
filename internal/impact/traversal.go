package impact

import (
	"strings"

	"impactanalyzer/core/internal/graph"
)

// NonBlankSeeds returns seeds with blank entries removed, order preserved.
func NonBlankSeeds(seeds []string) []string {
	out := make([]string, 0, len(seeds))
	for _, s := range seeds {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// Traverse resolves each seed by substring match and collects everything
// its start nodes transitively depend on. Nodes already emitted for an
// earlier seed are dropped from later clusters; links are never filtered.
// Seeds that contribute no new nodes produce no cluster.
func Traverse(g *graph.Graph, seeds []string) ([]Cluster, error) {
	valid := NonBlankSeeds(seeds)
	if len(valid) == 0 {
		return nil, ErrValidation
	}

	seen := make(map[string]struct{})
	var clusters []Cluster
	for _, seed := range valid {
		starts := g.FindNodes(seed)
		if len(starts) == 0 {
			continue
		}

		visited, links := walk(g, starts)

		lowerSeed := strings.ToLower(seed)
		nodes := make([]Node, 0, len(visited))
		for _, name := range visited {
			if _, dup := seen[name]; dup {
				continue
			}
			nodes = append(nodes, Node{
				ID:       name,
				Label:    graph.ShortName(name),
				Critical: strings.Contains(name, lowerSeed),
			})
		}
		if len(nodes) == 0 {
			continue
		}
		for _, n := range nodes {
			seen[n.ID] = struct{}{}
		}
		clusters = append(clusters, Cluster{Seed: seed, Nodes: nodes, Links: links})
	}

	if len(clusters) == 0 {
		return nil, ErrNotFound
	}
	return clusters, nil
}

// walk is an iterative depth-first search over source->target edges with
// one visited set shared by all start nodes. Every visited node emits a
// link for each of its dependencies, including ones already visited.
// Visited names are returned in preorder. Links is never nil so a leaf
// seed still encodes as an empty array.
func walk(g *graph.Graph, starts []*graph.Node) ([]string, []Link) {
	visited := make(map[string]struct{})
	var order []string
	links := []Link{}

	for _, start := range starts {
		stack := []string{start.Name}
		for len(stack) > 0 {
			name := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := visited[name]; ok {
				continue
			}
			visited[name] = struct{}{}
			order = append(order, name)

			deps := g.Dependencies(name)
			for _, dep := range deps {
				meta, _ := g.EdgeMetadata(name, dep.Name)
				links = append(links, Link{
					Source:   name,
					Target:   dep.Name,
					Label:    DependsLabel,
					Critical: meta.Critical,
				})
			}
			// push in reverse so the first dependency is explored first
			for i := len(deps) - 1; i >= 0; i-- {
				if _, ok := visited[deps[i].Name]; !ok {
					stack = append(stack, deps[i].Name)
				}
			}
		}
	}
	return order, links
}
