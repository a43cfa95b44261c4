package identity

// unionFind is a disjoint-set forest over string keys with path compression
// and union by rank. Canonical clusters are its connected components.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(keys []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(keys)),
		rank:   make(map[string]int, len(keys)),
	}
	for _, k := range keys {
		uf.parent[k] = k
	}
	return uf
}

func (uf *unionFind) find(k string) string {
	root := k
	for uf.parent[root] != root {
		root = uf.parent[root]
	}
	for uf.parent[k] != root {
		uf.parent[k], k = root, uf.parent[k]
	}
	return root
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if uf.rank[ra] < uf.rank[rb] {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
	if uf.rank[ra] == uf.rank[rb] {
		uf.rank[ra]++
	}
}

// components returns the members of each connected component, keyed by root.
func (uf *unionFind) components() map[string][]string {
	out := make(map[string][]string)
	for k := range uf.parent {
		root := uf.find(k)
		out[root] = append(out[root], k)
	}
	return out
}
