package generator

import "gonum.org/v1/gonum/mat"

// Scorer scores complete sequences, such as a discriminator does.
// Higher scores denote more realistic sequences.
//
// Score receives one (length x dim) matrix per sequence, with rows past
// each sequence's true length zeroed, and must return one finite score
// per sequence. Scorers are called many times per training step and
// must not modify their inputs.
type Scorer interface {
	Score(seqs []*mat.Dense) ([]float64, error)
}

// ScorerFunc adapts an ordinary function to a Scorer
type ScorerFunc func(seqs []*mat.Dense) ([]float64, error)

// Score implements the Scorer interface
func (f ScorerFunc) Score(seqs []*mat.Dense) ([]float64, error) {
	return f(seqs)
}
