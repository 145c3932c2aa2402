// Package loop models chromatin loops: paired genomic anchor intervals with
// optional per-loop metadata columns, plus a BEDPE loader, anchor
// annotation, duplicate collapse, and status calling.
//
// Loops live in parallel-slice form and are identified by index; every
// derived artifact (annotations, overlap graphs, communities) refers back to
// a Set by loop index.  A Set is never modified after construction:
// operations that change per-loop data return a new Set.
package loop

import (
	"github.com/grailbio/chromloop/interval"
	"github.com/pkg/errors"
)

// ErrInconsistentPairing is returned when the parallel slices of a Set
// disagree in length.  This is always a construction bug in the caller and
// never recoverable, so consumers treat it as fatal.
var ErrInconsistentPairing = errors.New("inconsistent anchor pairing")

// Set is a collection of loops.  Anchor1[i] and Anchor2[i] are the two
// anchors of loop i.  The remaining columns are optional: either nil or
// exactly NLoops() long, with NaN denoting a missing numeric value.
type Set struct {
	Anchor1 []interval.Interval
	Anchor2 []interval.Interval
	// Status holds an opaque per-loop label, e.g. "gained", "lost",
	// "static".  The vocabulary is data-driven; this package never
	// interprets the strings beyond equality.
	Status []string
	// PValue and LogFC are optional differential-test columns used by
	// CallStatus.
	PValue []float64
	LogFC  []float64
}

// NLoops returns the number of loops in the set.
func (s *Set) NLoops() int { return len(s.Anchor1) }

// Check validates the parallel-slice structure and every anchor interval.
// Slice-length disagreement fails with ErrInconsistentPairing; an invalid
// anchor fails with interval.ErrInvalidInterval and the loop index.
func (s *Set) Check() error {
	if len(s.Anchor1) != len(s.Anchor2) {
		return errors.Wrapf(ErrInconsistentPairing,
			"%d anchor1 interval(s) vs %d anchor2 interval(s)", len(s.Anchor1), len(s.Anchor2))
	}
	n := s.NLoops()
	if s.Status != nil && len(s.Status) != n {
		return errors.Wrapf(ErrInconsistentPairing, "%d status value(s) for %d loop(s)", len(s.Status), n)
	}
	if s.PValue != nil && len(s.PValue) != n {
		return errors.Wrapf(ErrInconsistentPairing, "%d p-value(s) for %d loop(s)", len(s.PValue), n)
	}
	if s.LogFC != nil && len(s.LogFC) != n {
		return errors.Wrapf(ErrInconsistentPairing, "%d log-fold-change value(s) for %d loop(s)", len(s.LogFC), n)
	}
	for i := 0; i < n; i++ {
		if err := s.Anchor1[i].Valid(); err != nil {
			return errors.Wrapf(err, "loop %d anchor1", i)
		}
		if err := s.Anchor2[i].Valid(); err != nil {
			return errors.Wrapf(err, "loop %d anchor2", i)
		}
	}
	return nil
}

// FilterRegion returns a new Set containing only the loops with at least one
// anchor overlapping region, preserving loop order.
func (s *Set) FilterRegion(region interval.Interval) *Set {
	result := &Set{}
	for i := range s.Anchor1 {
		if s.Anchor1[i].Overlaps(region) || s.Anchor2[i].Overlaps(region) {
			result.appendLoop(s, i)
		}
	}
	return result
}

// appendLoop copies loop i of src onto the end of r, column by column.
func (r *Set) appendLoop(src *Set, i int) {
	r.Anchor1 = append(r.Anchor1, src.Anchor1[i])
	r.Anchor2 = append(r.Anchor2, src.Anchor2[i])
	if src.Status != nil {
		r.Status = append(r.Status, src.Status[i])
	}
	if src.PValue != nil {
		r.PValue = append(r.PValue, src.PValue[i])
	}
	if src.LogFC != nil {
		r.LogFC = append(r.LogFC, src.LogFC[i])
	}
}
