package community

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GroupSummary aggregates the communities of one group.  Means over an
// empty group are NaN.
type GroupSummary struct {
	N             int
	MeanSize      float64
	MedianSize    float64
	MeanEnhancers float64
	MeanPromoters float64
	// MeanRatio averages Ratio over the NRatio communities where the
	// ratio is defined.
	MeanRatio float64
	NRatio    int
}

// Comparison contrasts the communities containing a distinguished loop
// against the rest.
type Comparison struct {
	Distinguished GroupSummary
	Background    GroupSummary
}

// Compare splits stats by HasDistinguished and summarizes both groups.
func Compare(stats []Stats) Comparison {
	var distinguished, background []Stats
	for _, st := range stats {
		if st.HasDistinguished {
			distinguished = append(distinguished, st)
		} else {
			background = append(background, st)
		}
	}
	return Comparison{
		Distinguished: summarize(distinguished),
		Background:    summarize(background),
	}
}

func summarize(group []Stats) GroupSummary {
	result := GroupSummary{
		N:             len(group),
		MeanSize:      math.NaN(),
		MedianSize:    math.NaN(),
		MeanEnhancers: math.NaN(),
		MeanPromoters: math.NaN(),
		MeanRatio:     math.NaN(),
	}
	if len(group) == 0 {
		return result
	}
	sizes := make([]float64, len(group))
	enhancers := make([]float64, len(group))
	promoters := make([]float64, len(group))
	ratios := []float64{}
	for i, st := range group {
		sizes[i] = float64(st.Size)
		enhancers[i] = float64(st.EnhancerCount)
		promoters[i] = float64(st.PromoterCount)
		if st.RatioOK {
			ratios = append(ratios, st.Ratio)
		}
	}
	result.MeanSize = stat.Mean(sizes, nil)
	result.MeanEnhancers = stat.Mean(enhancers, nil)
	result.MeanPromoters = stat.Mean(promoters, nil)
	sort.Float64s(sizes)
	result.MedianSize = stat.Quantile(0.5, stat.LinInterp, sizes, nil)
	result.NRatio = len(ratios)
	if len(ratios) > 0 {
		result.MeanRatio = stat.Mean(ratios, nil)
	}
	return result
}
