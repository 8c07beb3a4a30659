package graph

// UnionFind implements union-find with path compression and union by rank
// over any comparable key.
type UnionFind[K comparable] struct {
	parent map[K]K
	rank   map[K]int
	size   map[K]int
}

// NewUnionFind creates a new UnionFind where each key is its own component
func NewUnionFind[K comparable](keys []K) *UnionFind[K] {
	uf := &UnionFind[K]{
		parent: make(map[K]K, len(keys)),
		rank:   make(map[K]int, len(keys)),
		size:   make(map[K]int, len(keys)),
	}
	for _, k := range keys {
		uf.parent[k] = k
		uf.size[k] = 1
	}
	return uf
}

// Find returns the root of the component containing k.
// Iterative, so long dependency chains cannot exhaust the stack.
func (uf *UnionFind[K]) Find(k K) K {
	root := k
	for {
		p, ok := uf.parent[root]
		if !ok || p == root {
			break
		}
		root = p
	}
	for k != root {
		next := uf.parent[k]
		uf.parent[k] = root
		k = next
	}
	return root
}

// Union merges the components containing a and b. Returns true if they were separate.
func (uf *UnionFind[K]) Union(a, b K) bool {
	rootA, rootB := uf.Find(a), uf.Find(b)
	if rootA == rootB {
		return false
	}
	if uf.rank[rootA] < uf.rank[rootB] {
		rootA, rootB = rootB, rootA
	}
	uf.parent[rootB] = rootA
	uf.size[rootA] += uf.size[rootB]
	if uf.rank[rootA] == uf.rank[rootB] {
		uf.rank[rootA]++
	}
	return true
}

// Size returns the number of members in k's component
func (uf *UnionFind[K]) Size(k K) int {
	return uf.size[uf.Find(k)]
}

// Components returns all components as slices of keys
func (uf *UnionFind[K]) Components() [][]K {
	groups := make(map[K][]K)
	for k := range uf.parent {
		root := uf.Find(k)
		groups[root] = append(groups[root], k)
	}
	result := make([][]K, 0, len(groups))
	for _, members := range groups {
		result = append(result, members)
	}
	return result
}
