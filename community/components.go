package community

import (
	"github.com/pkg/errors"
)

// ComponentsOpts controls Components.
type ComponentsOpts struct {
	// IncludeIsolated emits a singleton community for every loop that
	// touches no edge.  The default reports only communities of two or
	// more loops.
	IncludeIsolated bool
}

// unionFind is a disjoint-set forest with union by size and path
// compression.
type unionFind struct {
	parent []int
	size   []int
}

func newUnionFind(n int) *unionFind {
	u := &unionFind{
		parent: make([]int, n),
		size:   make([]int, n),
	}
	for i := range u.parent {
		u.parent[i] = i
		u.size[i] = 1
	}
	return u
}

func (u *unionFind) find(x int) int {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(x, y int) {
	rx, ry := u.find(x), u.find(y)
	if rx == ry {
		return
	}
	if u.size[rx] < u.size[ry] {
		rx, ry = ry, rx
	}
	u.parent[ry] = rx
	u.size[rx] += u.size[ry]
}

// Components returns the connected components of g as loop-index slices.
// Members are ascending within each community, and communities are ordered
// by their smallest member.  An edge outside canonical form is a caller
// bug and fails with an error.
func (g Graph) Components(opts ComponentsOpts) ([][]int, error) {
	u := newUnionFind(g.NLoops)
	degree := make([]int, g.NLoops)
	for _, e := range g.Edges {
		if e.I < 0 || e.I >= e.J || e.J >= g.NLoops {
			return nil, errors.Errorf("community: edge (%d, %d) outside canonical form for %d loop(s)", e.I, e.J, g.NLoops)
		}
		u.union(e.I, e.J)
		degree[e.I]++
		degree[e.J]++
	}
	// Scanning loops in ascending order keeps members sorted and orders
	// communities by first encounter, i.e. by smallest member.
	result := [][]int{}
	slot := make(map[int]int, g.NLoops)
	for i := 0; i < g.NLoops; i++ {
		if degree[i] == 0 && !opts.IncludeIsolated {
			continue
		}
		root := u.find(i)
		idx, ok := slot[root]
		if !ok {
			idx = len(result)
			slot[root] = idx
			result = append(result, nil)
		}
		result[idx] = append(result[idx], i)
	}
	return result, nil
}
