package community

import (
	"math"

	"github.com/grailbio/chromloop/interval"
	"github.com/grailbio/chromloop/loop"
	"github.com/pkg/errors"
)

// DefaultDistinguished is the status label used when AggregateOpts does not
// name one.
const DefaultDistinguished = "gained"

// AggregateOpts controls Aggregate.
type AggregateOpts struct {
	// Distinguished is the status label that marks a community member as
	// distinguished.  Empty selects DefaultDistinguished.
	Distinguished string
	// UniqueAnchors counts each distinct anchor interval once per
	// community instead of once per loop end.  The default counts every
	// loop end, so an anchor shared by several loops contributes to the
	// tallies once per loop.
	UniqueAnchors bool
}

// Stats summarizes one community.
type Stats struct {
	// Loops lists the community's members by loop index, ascending.
	Loops []int
	// Size is the number of member loops.
	Size int
	// Distinguished counts members carrying the distinguished status
	// label; HasDistinguished reports whether there is at least one.
	Distinguished    int
	HasDistinguished bool
	// EnhancerCount and PromoterCount tally annotated anchors over the
	// community, per the counting mode in AggregateOpts.
	EnhancerCount int
	PromoterCount int
	// Ratio is EnhancerCount over PromoterCount.  With no promoter
	// anchors the ratio is undefined: RatioOK is false, Ratio is NaN, and
	// the community is excluded from ratio averages downstream.
	Ratio   float64
	RatioOK bool
}

func checkAnnotation(ann loop.Annotation, nLoops int, label string) error {
	if len(ann.Anchor1) != nLoops || len(ann.Anchor2) != nLoops {
		return errors.Wrapf(loop.ErrInconsistentPairing,
			"%s annotation has %d+%d value(s) for %d loop(s)", label, len(ann.Anchor1), len(ann.Anchor2), nLoops)
	}
	return nil
}

// Aggregate computes Stats for every community over the loops of s.
// enhancers and promoters are anchor annotations of s, typically from
// loop.Annotate against the two feature sets.  The communities slice is
// usually the output of Components and must reference loop indices of s.
func Aggregate(s *loop.Set, communities [][]int, enhancers, promoters loop.Annotation, opts AggregateOpts) ([]Stats, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	nLoops := s.NLoops()
	if err := checkAnnotation(enhancers, nLoops, "enhancer"); err != nil {
		return nil, err
	}
	if err := checkAnnotation(promoters, nLoops, "promoter"); err != nil {
		return nil, err
	}
	if opts.Distinguished == "" {
		opts.Distinguished = DefaultDistinguished
	}
	result := make([]Stats, 0, len(communities))
	for ci, members := range communities {
		st := Stats{Loops: members, Size: len(members)}
		for _, li := range members {
			if li < 0 || li >= nLoops {
				return nil, errors.Errorf("community %d references loop %d outside a set of %d loop(s)", ci, li, nLoops)
			}
			if s.Status != nil && s.Status[li] == opts.Distinguished {
				st.Distinguished++
			}
		}
		st.HasDistinguished = st.Distinguished > 0
		if opts.UniqueAnchors {
			countUniqueAnchors(s, members, enhancers, promoters, &st)
		} else {
			for _, li := range members {
				if enhancers.Anchor1[li] {
					st.EnhancerCount++
				}
				if enhancers.Anchor2[li] {
					st.EnhancerCount++
				}
				if promoters.Anchor1[li] {
					st.PromoterCount++
				}
				if promoters.Anchor2[li] {
					st.PromoterCount++
				}
			}
		}
		if st.PromoterCount > 0 {
			st.Ratio = float64(st.EnhancerCount) / float64(st.PromoterCount)
			st.RatioOK = true
		} else {
			st.Ratio = math.NaN()
		}
		result = append(result, st)
	}
	return result, nil
}

// countUniqueAnchors tallies each distinct anchor interval once.  Identical
// intervals always carry identical annotation, since an annotation is a
// function of the interval alone, so keeping the first sighting is safe.
func countUniqueAnchors(s *loop.Set, members []int, enhancers, promoters loop.Annotation, st *Stats) {
	type anchorFlags struct {
		enhancer, promoter bool
	}
	seen := make(map[interval.Interval]anchorFlags, 2*len(members))
	add := func(iv interval.Interval, enhancer, promoter bool) {
		if _, ok := seen[iv]; !ok {
			seen[iv] = anchorFlags{enhancer, promoter}
		}
	}
	for _, li := range members {
		add(s.Anchor1[li], enhancers.Anchor1[li], promoters.Anchor1[li])
		add(s.Anchor2[li], enhancers.Anchor2[li], promoters.Anchor2[li])
	}
	for _, flags := range seen {
		if flags.enhancer {
			st.EnhancerCount++
		}
		if flags.promoter {
			st.PromoterCount++
		}
	}
}
