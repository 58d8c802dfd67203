package model

import (
	"sort"
)

// Graph is the symmetric county adjacency structure. It is built once and
// read-only afterwards: the sampler only ever asks for neighbors, degrees,
// and link indicators.
type Graph struct {
	keys  []string       // region key per index
	index map[string]int // region key -> index
	adj   [][]int        // sorted neighbor indexes per region
	links int            // undirected link count
}

// NewGraph builds a graph over the given ordered region keys from an edge
// list of key pairs. Edges are undirected: duplicate and reversed pairs
// collapse into a single link. A self-loop or an unknown key is a DataError.
// Regions with no edges are allowed and simply have degree zero.
func NewGraph(keys []string, edges [][2]string) (*Graph, error) {
	index := make(map[string]int, len(keys))
	for i, k := range keys {
		if _, ok := index[k]; ok {
			return nil, DataErrorf("Duplicate region key %s", k)
		}
		index[k] = i
	}

	adjSet := make([]map[int]bool, len(keys))
	for i := range adjSet {
		adjSet[i] = make(map[int]bool)
	}

	for _, e := range edges {
		i, ok := index[e[0]]
		if !ok {
			return nil, DataErrorf("Edge references unknown region %s", e[0])
		}
		j, ok := index[e[1]]
		if !ok {
			return nil, DataErrorf("Edge references unknown region %s", e[1])
		}
		if i == j {
			return nil, DataErrorf("Region %s has a self-loop", e[0])
		}
		adjSet[i][j] = true
		adjSet[j][i] = true
	}

	adj := make([][]int, len(keys))
	links := 0
	for i, s := range adjSet {
		adj[i] = make([]int, 0, len(s))
		for j := range s {
			adj[i] = append(adj[i], j)
		}
		sort.Ints(adj[i])
		links += len(s)
	}

	g := &Graph{
		keys:  append([]string(nil), keys...),
		index: index,
		adj:   adj,
		links: links / 2,
	}

	return g, nil
}

// Size returns the region count K.
func (g *Graph) Size() int {
	return len(g.keys)
}

// Key returns the region key at index i.
func (g *Graph) Key(i int) string {
	return g.keys[i]
}

// Index returns the index for a region key, or -1 when the key is unknown.
func (g *Graph) Index(key string) int {
	i, ok := g.index[key]
	if !ok {
		return -1
	}
	return i
}

// Neighbors returns the sorted neighbor indexes of region i. Callers must not
// modify the returned slice.
func (g *Graph) Neighbors(i int) []int {
	return g.adj[i]
}

// Degree returns the neighbor count of region i.
func (g *Graph) Degree(i int) int {
	return len(g.adj[i])
}

// Weight returns 1 when regions i and j are linked and 0 otherwise,
// including always 0 on the diagonal.
func (g *Graph) Weight(i, j int) float64 {
	if i == j {
		return 0.0
	}
	a := g.adj[i]
	pos := sort.SearchInts(a, j)
	if pos < len(a) && a[pos] == j {
		return 1.0
	}
	return 0.0
}

// EdgeCount returns the number of undirected links.
func (g *Graph) EdgeCount() int {
	return g.links
}

// ActiveCount returns the number of regions with at least one neighbor. The
// variance updates use this as the effective spatial size.
func (g *Graph) ActiveCount() int {
	n := 0
	for _, a := range g.adj {
		if len(a) > 0 {
			n++
		}
	}
	return n
}
