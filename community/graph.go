// Package community builds the anchor-overlap graph over a loop set and
// derives connected communities with per-community summary statistics.
//
// Two loops are connected when any of their anchors overlap: anchor1 with
// anchor1, anchor2 with anchor2, or anchor1 with anchor2.  Communities are
// the connected components of that graph.  Every derivation here is
// deterministic: the same loop set always yields the same edges, the same
// communities, and the same ordering.
package community

import (
	"sort"

	"github.com/grailbio/chromloop/interval"
	"github.com/grailbio/chromloop/loop"
)

// Edge connects two loops by index, with I < J.
type Edge struct {
	I, J int
}

// Graph is a loop overlap graph in canonical form: every edge has I < J,
// the edge slice is sorted, and duplicates are removed.  A graph with no
// edges is valid, as is one with no loops.
type Graph struct {
	NLoops int
	Edges  []Edge
}

// BuildGraph constructs the overlap graph of s.  Anchors are compared
// within the anchor1 column, within the anchor2 column, and across the two
// columns.  A loop whose own anchor1 overlaps its own anchor2 does not
// produce an edge, and several overlapping anchor pairs between the same
// two loops collapse into a single edge.
func BuildGraph(s *loop.Set) (Graph, error) {
	if err := s.Check(); err != nil {
		return Graph{}, err
	}
	within1, err := interval.SelfOverlapPairs(s.Anchor1)
	if err != nil {
		return Graph{}, err
	}
	within2, err := interval.SelfOverlapPairs(s.Anchor2)
	if err != nil {
		return Graph{}, err
	}
	across, err := interval.OverlapPairs(s.Anchor1, s.Anchor2)
	if err != nil {
		return Graph{}, err
	}
	edges := make([]Edge, 0, len(within1)+len(within2)+len(across))
	for _, p := range within1 {
		edges = append(edges, Edge{p.I, p.J})
	}
	for _, p := range within2 {
		edges = append(edges, Edge{p.I, p.J})
	}
	for _, p := range across {
		switch {
		case p.I == p.J:
		case p.I < p.J:
			edges = append(edges, Edge{p.I, p.J})
		default:
			edges = append(edges, Edge{p.J, p.I})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].I != edges[j].I {
			return edges[i].I < edges[j].I
		}
		return edges[i].J < edges[j].J
	})
	dedup := edges[:0]
	for _, e := range edges {
		if n := len(dedup); n > 0 && dedup[n-1] == e {
			continue
		}
		dedup = append(dedup, e)
	}
	return Graph{NLoops: s.NLoops(), Edges: dedup}, nil
}
