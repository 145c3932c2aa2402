package loop

import (
	"github.com/grailbio/chromloop/interval"
	"github.com/pkg/errors"
)

// Annotation records, for one feature set, whether each anchor of each loop
// overlaps the set.  Values are computed once at construction and never
// modified afterwards; consumers treat an Annotation as read-only.
type Annotation struct {
	Anchor1 []bool
	Anchor2 []bool
}

// Annotate tags both anchors of every loop in s against features.  The
// result is aligned with s by loop index.
func Annotate(s *Set, features *interval.FeatureSet) (Annotation, error) {
	if err := s.Check(); err != nil {
		return Annotation{}, err
	}
	tags1, err := features.AnnotateAll(s.Anchor1)
	if err != nil {
		return Annotation{}, errors.Wrap(err, "anchor1")
	}
	tags2, err := features.AnnotateAll(s.Anchor2)
	if err != nil {
		return Annotation{}, errors.Wrap(err, "anchor2")
	}
	return Annotation{Anchor1: tags1, Anchor2: tags2}, nil
}
