package generator

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
)

// Gaussian is a multivariate normal distribution with diagonal
// covariance. Var holds the diagonal of the covariance matrix.
type Gaussian struct {
	Mean []float64
	Var  []float64
}

// NewGaussian returns a new Gaussian with the given mean and diagonal
// covariance
func NewGaussian(mean, variance []float64) (Gaussian, error) {
	if len(mean) != len(variance) {
		return Gaussian{}, errors.Errorf("newGaussian: mean has dimension "+
			"%v but variance has dimension %v", len(mean), len(variance))
	}
	for i, v := range variance {
		if !(v > 0) || math.IsInf(v, 1) {
			return Gaussian{}, errors.Errorf("newGaussian: variance %v "+
				"must be positive and finite, have %v", i, v)
		}
	}
	return Gaussian{Mean: mean, Var: variance}, nil
}

// Dim returns the dimension of the distribution
func (g Gaussian) Dim() int {
	return len(g.Mean)
}

// normal returns g as a gonum distribution using src as its source of
// randomness
func (g Gaussian) normal(src rand.Source) *distmv.Normal {
	variance := make([]float64, len(g.Var))
	copy(variance, g.Var)

	dist, ok := distmv.NewNormal(g.Mean, mat.NewDiagDense(len(variance),
		variance), src)
	if !ok {
		panic("normal: covariance is not positive definite")
	}
	return dist
}

// Sample draws a sample from g using src
func (g Gaussian) Sample(src rand.Source) []float64 {
	return g.normal(src).Rand(nil)
}

// LogProb returns the exact log-density of x under g
func (g Gaussian) LogProb(x []float64) float64 {
	return g.normal(nil).LogProb(x)
}
