// Package padjust implements the standard multiple-testing corrections over
// slices of p-values: Bonferroni, Holm, and Benjamini-Hochberg.
//
// All procedures are pure: the input slice is never modified, and the result
// has the same length and order as the input.  Adjusted values are clamped
// to 1.  A p-value outside [0, 1], or NaN, is a caller bug and fails with an
// error naming the offending index rather than being clamped away.
package padjust

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Proc is a correction procedure mapping raw p-values to adjusted ones.
type Proc func(p []float64) ([]float64, error)

// ByName returns the procedure with the given name: "bonferroni", "holm",
// or "bh" (Benjamini-Hochberg; "fdr" is accepted as an alias).
func ByName(name string) (Proc, error) {
	switch name {
	case "bonferroni":
		return Bonferroni, nil
	case "holm":
		return Holm, nil
	case "bh", "fdr":
		return BenjaminiHochberg, nil
	}
	return nil, errors.Errorf("unknown adjustment method %q (want bonferroni, holm, or bh)", name)
}

func validate(p []float64) error {
	for i, v := range p {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return errors.Errorf("p-value %v at index %d outside [0, 1]", v, i)
		}
	}
	return nil
}

// sortedOrder returns the indices of p in ascending p order.  The sort is
// stable, so equal p-values keep their input order; the step-up/step-down
// accumulations below assign equal adjusted values to ties either way.
func sortedOrder(p []float64) []int {
	order := make([]int, len(p))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return p[order[i]] < p[order[j]] })
	return order
}

// Bonferroni adjusts each p-value to min(1, p*m) where m is the number of
// tests.
func Bonferroni(p []float64) ([]float64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	adjusted := make([]float64, len(p))
	m := float64(len(p))
	for i, v := range p {
		q := v * m
		if q > 1 {
			q = 1
		}
		adjusted[i] = q
	}
	return adjusted, nil
}

// Holm performs the Holm step-down adjustment: with p-values sorted
// ascending, the k-th smallest becomes the running maximum of
// (m-rank+1)*p over ranks <= k, clamped to 1.
func Holm(p []float64) ([]float64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	m := len(p)
	adjusted := make([]float64, m)
	order := sortedOrder(p)
	runningMax := 0.0
	for rank := 1; rank <= m; rank++ {
		idx := order[rank-1]
		q := p[idx] * float64(m-rank+1)
		if q > runningMax {
			runningMax = q
		}
		if runningMax > 1 {
			runningMax = 1
		}
		adjusted[idx] = runningMax
	}
	return adjusted, nil
}

// BenjaminiHochberg performs the BH step-up adjustment: with p-values
// sorted ascending, the k-th smallest becomes the running minimum of
// p*m/rank over ranks >= k, clamped to 1.  The result estimates the false
// discovery rate at each cutoff.
func BenjaminiHochberg(p []float64) ([]float64, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	m := len(p)
	adjusted := make([]float64, m)
	order := sortedOrder(p)
	runningMin := 1.0
	for rank := m; rank >= 1; rank-- {
		idx := order[rank-1]
		q := p[idx] * float64(m) / float64(rank)
		if q < runningMin {
			runningMin = q
		}
		adjusted[idx] = runningMin
	}
	return adjusted, nil
}
