package interval

import (
	"sort"

	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
)

// IndexPair is one overlapping pair reported by OverlapPairs or
// SelfOverlapPairs.  I indexes the first (left) input slice and J the second;
// for SelfOverlapPairs, I < J always holds.
type IndexPair struct {
	I int
	J int
}

// sweepEntry is one nonempty interval prepared for the sweep, carrying its
// index in the caller's slice.
type sweepEntry struct {
	start PosType
	end   PosType
	idx   int
}

// refEntries collects the sweep entries of both input slices for a single
// reference.
type refEntries struct {
	a []sweepEntry
	b []sweepEntry
}

func groupEntries(a, b []Interval) (map[string]*refEntries, []string, error) {
	groups := make(map[string]*refEntries)
	var refNames []string
	get := func(refName string) *refEntries {
		g := groups[refName]
		if g == nil {
			g = &refEntries{}
			groups[refName] = g
			refNames = append(refNames, refName)
		}
		return g
	}
	for i, iv := range a {
		if err := iv.Valid(); err != nil {
			return nil, nil, errors.Wrapf(err, "left interval %d", i)
		}
		if iv.End == iv.Start0 {
			// Empty intervals overlap nothing; they never become events.
			continue
		}
		g := get(iv.RefName)
		g.a = append(g.a, sweepEntry{start: iv.Start0, end: iv.End, idx: i})
	}
	for j, iv := range b {
		if err := iv.Valid(); err != nil {
			return nil, nil, errors.Wrapf(err, "right interval %d", j)
		}
		if iv.End == iv.Start0 {
			continue
		}
		g := get(iv.RefName)
		g.b = append(g.b, sweepEntry{start: iv.Start0, end: iv.End, idx: j})
	}
	sort.Strings(refNames)
	return groups, refNames, nil
}

func bySweepOrder(entries []sweepEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].start != entries[j].start {
			return entries[i].start < entries[j].start
		}
		if entries[i].end != entries[j].end {
			return entries[i].end < entries[j].end
		}
		return entries[i].idx < entries[j].idx
	})
}

// pruneActive removes the intervals that end at or before pos, preserving
// order.  Entries with larger ends may remain open past pos, so this must be
// a full scan rather than a prefix cut.
func pruneActive(active []sweepEntry, pos PosType) []sweepEntry {
	kept := active[:0]
	for _, x := range active {
		if x.end > pos {
			kept = append(kept, x)
		}
	}
	return kept
}

// sweepRefCross reports all overlapping (a, b) pairs on one reference.  Both
// inputs must be in sweep order.  A pair is emitted when the later of its two
// events is processed and the earlier one is still active, which happens iff
// the intervals overlap; each pair is therefore emitted exactly once.
func sweepRefCross(aEntries, bEntries []sweepEntry) []IndexPair {
	var pairs []IndexPair
	var activeA, activeB []sweepEntry
	ai, bi := 0, 0
	for ai < len(aEntries) || bi < len(bEntries) {
		var fromA bool
		switch {
		case bi == len(bEntries):
			fromA = true
		case ai == len(aEntries):
			fromA = false
		default:
			// Start ties go to a; either choice yields the same pair set.
			fromA = aEntries[ai].start <= bEntries[bi].start
		}
		if fromA {
			e := aEntries[ai]
			ai++
			activeB = pruneActive(activeB, e.start)
			for _, x := range activeB {
				pairs = append(pairs, IndexPair{I: e.idx, J: x.idx})
			}
			activeA = append(activeA, e)
		} else {
			e := bEntries[bi]
			bi++
			activeA = pruneActive(activeA, e.start)
			for _, x := range activeA {
				pairs = append(pairs, IndexPair{I: x.idx, J: e.idx})
			}
			activeB = append(activeB, e)
		}
	}
	return pairs
}

// sweepRefSelf reports all overlapping unordered pairs within one reference,
// with I < J canonicalization.  entries must be in sweep order.
func sweepRefSelf(entries []sweepEntry) []IndexPair {
	var pairs []IndexPair
	var active []sweepEntry
	for _, e := range entries {
		active = pruneActive(active, e.start)
		for _, x := range active {
			if x.idx < e.idx {
				pairs = append(pairs, IndexPair{I: x.idx, J: e.idx})
			} else {
				pairs = append(pairs, IndexPair{I: e.idx, J: x.idx})
			}
		}
		active = append(active, e)
	}
	return pairs
}

// OverlapPairs returns every index pair (i, j) such that a[i] overlaps b[j].
// Cost is O(n log n + m log m) plus the size of the output.  References are
// swept independently and in parallel.  Pair order in the result is
// deterministic but otherwise unspecified; callers that need a particular
// order must sort.  Both inputs are validated up front; an invalid interval
// fails with its index and side in the error.
func OverlapPairs(a, b []Interval) ([]IndexPair, error) {
	groups, refNames, err := groupEntries(a, b)
	if err != nil {
		return nil, err
	}
	perRef := make([][]IndexPair, len(refNames))
	if err := traverse.Each(len(refNames), func(i int) error {
		g := groups[refNames[i]]
		if len(g.a) == 0 || len(g.b) == 0 {
			return nil
		}
		bySweepOrder(g.a)
		bySweepOrder(g.b)
		perRef[i] = sweepRefCross(g.a, g.b)
		return nil
	}); err != nil {
		return nil, err
	}
	return concatPairs(perRef), nil
}

// SelfOverlapPairs returns every index pair (i, j) with i < j such that a[i]
// overlaps a[j].  An interval never pairs with itself, but identical
// intervals at distinct indices do pair.
func SelfOverlapPairs(a []Interval) ([]IndexPair, error) {
	groups, refNames, err := groupEntries(a, nil)
	if err != nil {
		return nil, err
	}
	perRef := make([][]IndexPair, len(refNames))
	if err := traverse.Each(len(refNames), func(i int) error {
		g := groups[refNames[i]]
		if len(g.a) < 2 {
			return nil
		}
		bySweepOrder(g.a)
		perRef[i] = sweepRefSelf(g.a)
		return nil
	}); err != nil {
		return nil, err
	}
	return concatPairs(perRef), nil
}

func concatPairs(perRef [][]IndexPair) []IndexPair {
	var n int
	for _, p := range perRef {
		n += len(p)
	}
	pairs := make([]IndexPair, 0, n)
	for _, p := range perRef {
		pairs = append(pairs, p...)
	}
	return pairs
}
