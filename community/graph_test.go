package community

import (
	"testing"

	"github.com/grailbio/chromloop/interval"
	"github.com/grailbio/chromloop/loop"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/pkg/errors"
)

func iv(refName string, start, end interval.PosType) interval.Interval {
	return interval.Interval{RefName: refName, Start0: start, End: end}
}

// chainSet returns five loops: 0-1-2 chained through anchor overlaps, 3
// isolated, and 4 isolated with its two anchors overlapping each other.
func chainSet() *loop.Set {
	return &loop.Set{
		Anchor1: []interval.Interval{
			iv("chr1", 100, 200),
			iv("chr1", 1050, 1150),
			iv("chr1", 2050, 2150),
			iv("chr2", 100, 200),
			iv("chr2", 5000, 5100),
		},
		Anchor2: []interval.Interval{
			iv("chr1", 1000, 1100),
			iv("chr1", 2000, 2100),
			iv("chr1", 3000, 3100),
			iv("chr2", 900, 1000),
			iv("chr2", 5050, 5150),
		},
		Status: []string{"static", "static", "gained", "static", "lost"},
	}
}

func TestBuildGraphChain(t *testing.T) {
	g, err := BuildGraph(chainSet())
	assert.NoError(t, err)
	expect.EQ(t, g.NLoops, 5)
	expect.EQ(t, g.Edges, []Edge{{0, 1}, {1, 2}})
}

func TestBuildGraphNoOverlaps(t *testing.T) {
	s := &loop.Set{
		Anchor1: []interval.Interval{iv("chr1", 0, 10), iv("chr1", 100, 110)},
		Anchor2: []interval.Interval{iv("chr1", 50, 60), iv("chr1", 150, 160)},
	}
	g, err := BuildGraph(s)
	assert.NoError(t, err)
	expect.EQ(t, g.NLoops, 2)
	expect.EQ(t, g.Edges, []Edge{})
}

func TestBuildGraphDedup(t *testing.T) {
	// Loops 0 and 1 overlap in all three relations; one edge results.
	s := &loop.Set{
		Anchor1: []interval.Interval{iv("chr1", 100, 200), iv("chr1", 150, 250)},
		Anchor2: []interval.Interval{iv("chr1", 150, 250), iv("chr1", 100, 200)},
	}
	g, err := BuildGraph(s)
	assert.NoError(t, err)
	expect.EQ(t, g.Edges, []Edge{{0, 1}})
}

func TestBuildGraphOwnAnchorOverlap(t *testing.T) {
	// A loop whose anchors overlap each other gets no self edge.
	s := &loop.Set{
		Anchor1: []interval.Interval{iv("chr1", 100, 200)},
		Anchor2: []interval.Interval{iv("chr1", 150, 250)},
	}
	g, err := BuildGraph(s)
	assert.NoError(t, err)
	expect.EQ(t, g.Edges, []Edge{})
}

func TestBuildGraphEmptySet(t *testing.T) {
	g, err := BuildGraph(&loop.Set{})
	assert.NoError(t, err)
	expect.EQ(t, g.NLoops, 0)
	expect.EQ(t, len(g.Edges), 0)
}

func TestBuildGraphDeterminism(t *testing.T) {
	first, err := BuildGraph(chainSet())
	assert.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := BuildGraph(chainSet())
		assert.NoError(t, err)
		expect.EQ(t, again, first)
	}
}

func TestBuildGraphInconsistentSet(t *testing.T) {
	s := chainSet()
	s.Anchor2 = s.Anchor2[:4]
	_, err := BuildGraph(s)
	expect.EQ(t, errors.Cause(err), loop.ErrInconsistentPairing)
}
