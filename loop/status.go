package loop

import (
	"math"

	"github.com/grailbio/chromloop/padjust"
	"github.com/pkg/errors"
)

// CallOpts controls CallStatus.
type CallOpts struct {
	// Method is the multiple-testing correction applied to the PValue column
	// before thresholding.  Nil selects Benjamini-Hochberg.
	Method padjust.Proc
	// MaxQ is the adjusted-p-value significance threshold.
	MaxQ float64
	// Gained, Lost and Static are the labels assigned by the call.  Empty
	// strings select the conventional defaults.
	Gained string
	Lost   string
	Static string
	// Overwrite replaces existing nonempty Status values.  When false, loops
	// that already carry a label keep it.
	Overwrite bool
}

// DefaultCallOpts is the recommended starting configuration:
// Benjamini-Hochberg at 5% FDR with the conventional labels.
var DefaultCallOpts = CallOpts{
	Method: padjust.BenjaminiHochberg,
	MaxQ:   0.05,
	Gained: "gained",
	Lost:   "lost",
	Static: "static",
}

// CallStatus derives per-loop status labels from the PValue and LogFC
// columns: loops significant after correction (adjusted p <= MaxQ) are
// labeled Gained or Lost by the sign of LogFC, everything else Static.  It
// returns a new Set sharing the anchor and numeric slices; the input is not
// modified.  Every loop must carry a p-value; a NaN entry fails with the
// loop index.
func CallStatus(s *Set, opts CallOpts) (*Set, error) {
	if err := s.Check(); err != nil {
		return nil, err
	}
	if s.PValue == nil {
		return nil, errors.New("loop.CallStatus: set has no p-value column")
	}
	if s.LogFC == nil {
		return nil, errors.New("loop.CallStatus: set has no log-fold-change column")
	}
	for i, p := range s.PValue {
		if math.IsNaN(p) {
			return nil, errors.Errorf("loop.CallStatus: missing p-value for loop %d", i)
		}
	}
	if opts.Method == nil {
		opts.Method = padjust.BenjaminiHochberg
	}
	if opts.Gained == "" {
		opts.Gained = DefaultCallOpts.Gained
	}
	if opts.Lost == "" {
		opts.Lost = DefaultCallOpts.Lost
	}
	if opts.Static == "" {
		opts.Static = DefaultCallOpts.Static
	}
	adjusted, err := opts.Method(s.PValue)
	if err != nil {
		return nil, err
	}
	result := &Set{
		Anchor1: s.Anchor1,
		Anchor2: s.Anchor2,
		Status:  make([]string, s.NLoops()),
		PValue:  s.PValue,
		LogFC:   s.LogFC,
	}
	for i := range adjusted {
		if !opts.Overwrite && s.Status != nil && s.Status[i] != "" {
			result.Status[i] = s.Status[i]
			continue
		}
		switch {
		case adjusted[i] <= opts.MaxQ && s.LogFC[i] > 0:
			result.Status[i] = opts.Gained
		case adjusted[i] <= opts.MaxQ && s.LogFC[i] < 0:
			result.Status[i] = opts.Lost
		default:
			result.Status[i] = opts.Static
		}
	}
	return result, nil
}
