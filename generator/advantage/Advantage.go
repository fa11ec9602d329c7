// Package advantage converts Monte-Carlo Q-value estimates into the
// discounted advantages used to weight REINFORCE updates.
//
// For each sequence, the Q-values of its valid steps are shaped into
// step-local advantages, standardized, and then discounted:
//
//	adv[0] = Q[0],  adv[t] = Q[t] - Q[t-1]
//	adv    = (adv - mean(adv)) / std(adv)
//	D[t]   = Σ_{k>=t} γ^(k-t) adv[k]
//
// Only the first length steps of each sequence are ever read.
package advantage

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mode determines how Q-values are shaped into advantages
type Mode string

const (
	// Difference shapes Q-values by finite differencing consecutive
	// prefixes so that each step is credited only with the change in
	// value caused by its own action.
	Difference Mode = "difference"

	// Raw uses the Q-values unchanged.
	Raw Mode = "raw"
)

// Validate returns an error if m is not a known Mode
func (m Mode) Validate() error {
	switch m {
	case Difference, Raw:
		return nil
	}
	return fmt.Errorf("validate: unknown shaping mode %q", m)
}

// Shape returns the advantages of the first n Q-values in q under
// mode m. The returned slice never aliases q.
func Shape(q []float64, n int, m Mode) []float64 {
	if m == Raw {
		adv := make([]float64, n)
		copy(adv, q[:n])
		return adv
	}
	return Diff(q, n)
}

// Diff returns the finite differences of the first n Q-values in q,
// with the first difference taken against zero. The cumulative sum of
// the result reconstructs q[:n].
func Diff(q []float64, n int) []float64 {
	adv := make([]float64, n)
	prev := 0.0
	for t := 0; t < n; t++ {
		adv[t] = q[t] - prev
		prev = q[t]
	}
	return adv
}

// Standardize standardizes adv in place to zero mean and unit
// population variance and returns adv. If the standard deviation is
// zero, adv is only centered.
func Standardize(adv []float64) []float64 {
	if len(adv) == 0 {
		return adv
	}

	mean := stat.Mean(adv, nil)
	std := math.Sqrt(stat.MomentAbout(2, adv, mean, nil))
	if std == 0 {
		std = 1
	}

	floats.AddConst(-mean, adv)
	floats.Scale(1/std, adv)
	return adv
}

// Discount returns the discounted suffix sums of adv:
//
//	D[t] = adv[t] + γ D[t+1]
func Discount(adv []float64, discount float64) []float64 {
	d := make([]float64, len(adv))
	running := 0.0
	for t := len(adv) - 1; t >= 0; t-- {
		running = adv[t] + discount*running
		d[t] = running
	}
	return d
}

// Compute returns the discounted, standardized advantages of each
// sequence in a batch. Row b of the result has length lengths[b] and
// only q[b][:lengths[b]] is read.
func Compute(q [][]float64, lengths []int, discount float64,
	m Mode) ([][]float64, error) {
	if len(q) != len(lengths) {
		return nil, errors.Errorf("compute: have %v Q-value sequences "+
			"but %v lengths", len(q), len(lengths))
	}
	if err := m.Validate(); err != nil {
		return nil, errors.Wrap(err, "compute")
	}

	out := make([][]float64, len(q))
	for b := range q {
		n := lengths[b]
		if n < 0 || n > len(q[b]) {
			return nil, errors.Errorf("compute: sequence %v has length %v "+
				"but only %v Q-values", b, n, len(q[b]))
		}

		adv := Standardize(Shape(q[b], n, m))
		out[b] = Discount(adv, discount)
	}
	return out, nil
}
