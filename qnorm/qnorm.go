// Package qnorm implements quantile normalization of numeric sample
// vectors.  Normalization forces every sample onto a common distribution:
// the rank-r value of each sample is replaced by the mean of the rank-r
// values across all samples.  Ties within a sample receive the mean of the
// reference values they span, so equal inputs map to equal outputs.
package qnorm

import (
	"math"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Normalize quantile-normalizes the sample vectors in place.  Each element
// of samples is one sample; all samples must have the same length and must
// not contain NaN.
func Normalize(samples [][]float64) error {
	nSamples := len(samples)
	if nSamples == 0 {
		return nil
	}
	nValues := len(samples[0])
	for j, s := range samples {
		if len(s) != nValues {
			return errors.Errorf("qnorm: sample %d has %d values, want %d", j, len(s), nValues)
		}
		for i, v := range s {
			if math.IsNaN(v) {
				return errors.Errorf("qnorm: sample %d value %d is NaN", j, i)
			}
		}
	}
	if nValues == 0 {
		return nil
	}
	// order[j] lists the indices of sample j from smallest to largest value.
	order := make([][]int, nSamples)
	for j := range order {
		idx := make([]int, nValues)
		for i := range idx {
			idx[i] = i
		}
		s := samples[j]
		sort.SliceStable(idx, func(a, b int) bool { return s[idx[a]] < s[idx[b]] })
		order[j] = idx
	}
	// refMean[r] is the mean across samples of each sample's rank-r value.
	refMean := make([]float64, nValues)
	rankValues := make([]float64, nSamples)
	for r := 0; r < nValues; r++ {
		for j := range samples {
			rankValues[j] = samples[j][order[j][r]]
		}
		refMean[r] = stat.Mean(rankValues, nil)
	}
	// Write back, averaging the reference values over each run of tied
	// input values.  Runs are detected before their values are overwritten.
	for j, s := range samples {
		idx := order[j]
		for r := 0; r < nValues; {
			run := r + 1
			for run < nValues && s[idx[run]] == s[idx[r]] {
				run++
			}
			v := stat.Mean(refMean[r:run], nil)
			for k := r; k < run; k++ {
				s[idx[k]] = v
			}
			r = run
		}
	}
	return nil
}

// Normalized returns a quantile-normalized copy of samples without
// modifying the input.
func Normalized(samples [][]float64) ([][]float64, error) {
	result := make([][]float64, len(samples))
	for j, s := range samples {
		result[j] = append([]float64(nil), s...)
	}
	if err := Normalize(result); err != nil {
		return nil, err
	}
	return result, nil
}
