package graph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrInvalidArgument is returned when a blank node name reaches the store.
var ErrInvalidArgument = errors.New("invalid argument")

// Node is a fully-qualified identifier (class, table, procedure) in the graph.
// Its dependency set is owned by the Graph that created it.
type Node struct {
	Name string

	deps   []*Node
	depSet map[string]struct{}
}

// EdgeMetadata is the per-edge annotation record
type EdgeMetadata struct {
	Critical bool `json:"critical"`
}

// Edge is a snapshot of one directed "depends-on" relation
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Critical bool   `json:"critical"`
}

type edgeKey struct {
	source, target string
}

// Graph stores nodes, insertion-ordered adjacency and edge metadata.
// All methods are safe for concurrent use.
type Graph struct {
	mu    sync.RWMutex
	nodes map[string]*Node
	order []*Node
	meta  map[edgeKey]*EdgeMetadata
	edges int
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		meta:  make(map[edgeKey]*EdgeMetadata),
	}
}

// UpsertNode returns the node with the given name, creating it if needed.
// It is the only path through which nodes enter the graph.
func (g *Graph) UpsertNode(name string) (*Node, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("upserting node: empty name: %w", ErrInvalidArgument)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.upsertLocked(name), nil
}

func (g *Graph) upsertLocked(name string) *Node {
	if n, ok := g.nodes[name]; ok {
		return n
	}
	n := &Node{Name: name, depSet: make(map[string]struct{})}
	g.nodes[name] = n
	g.order = append(g.order, n)
	return n
}

// AddEdge records that source depends on target. Repeating an edge is a no-op.
func (g *Graph) AddEdge(source, target string) error {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(target) == "" {
		return fmt.Errorf("adding edge %q -> %q: %w", source, target, ErrInvalidArgument)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	src := g.upsertLocked(source)
	dst := g.upsertLocked(target)
	if _, ok := src.depSet[target]; !ok {
		src.depSet[target] = struct{}{}
		src.deps = append(src.deps, dst)
		g.edges++
	}
	key := edgeKey{source, target}
	if _, ok := g.meta[key]; !ok {
		g.meta[key] = &EdgeMetadata{}
	}
	return nil
}

// GetNode returns the node with exactly this name.
func (g *Graph) GetNode(name string) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	return n, ok
}

// FindNodes returns every node whose name contains partial, ignoring case.
// A blank query matches nothing. Results are sorted by name.
func (g *Graph) FindNodes(partial string) []*Node {
	if strings.TrimSpace(partial) == "" {
		return nil
	}
	lower := strings.ToLower(partial)

	g.mu.RLock()
	var found []*Node
	for name, n := range g.nodes {
		if strings.Contains(strings.ToLower(name), lower) {
			found = append(found, n)
		}
	}
	g.mu.RUnlock()

	sort.Slice(found, func(i, j int) bool { return found[i].Name < found[j].Name })
	return found
}

// AllNodes returns all nodes in creation order
func (g *Graph) AllNodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Node, len(g.order))
	copy(out, g.order)
	return out
}

// Dependencies returns the nodes that name depends on, in the order the edges were added.
func (g *Graph) Dependencies(name string) []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[name]
	if !ok || len(n.deps) == 0 {
		return nil
	}
	out := make([]*Node, len(n.deps))
	copy(out, n.deps)
	return out
}

// EdgeMetadata returns a copy of the metadata for source -> target.
func (g *Graph) EdgeMetadata(source, target string) (EdgeMetadata, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	m, ok := g.meta[edgeKey{source, target}]
	if !ok {
		return EdgeMetadata{}, false
	}
	return *m, true
}

// MarkCritical flags an existing edge as critical. Criticality is never cleared.
// Returns false if the edge does not exist.
func (g *Graph) MarkCritical(source, target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.meta[edgeKey{source, target}]
	if !ok {
		return false
	}
	m.Critical = true
	return true
}

// Edges returns every edge, grouped by source in node creation order
// and by target in insertion order.
func (g *Graph) Edges() []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Edge, 0, g.edges)
	for _, n := range g.order {
		for _, d := range n.deps {
			out = append(out, Edge{
				Source:   n.Name,
				Target:   d.Name,
				Critical: g.meta[edgeKey{n.Name, d.Name}].Critical,
			})
		}
	}
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the sum of all adjacency-set sizes.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges
}

// CriticalEdgeCount returns the number of edges currently marked critical.
func (g *Graph) CriticalEdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	count := 0
	for _, m := range g.meta {
		if m.Critical {
			count++
		}
	}
	return count
}

// ShortName returns the part of a qualified name after its last '.'.
func ShortName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// TopLevelNamespace returns the part of a qualified name before its first '.'.
func TopLevelNamespace(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}
