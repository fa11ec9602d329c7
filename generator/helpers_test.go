package generator

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// smallConfig returns a configuration small enough for fast tests
func smallConfig(t *testing.T) Config {
	t.Helper()

	c := DefaultConfig(4, t.TempDir())
	c.HiddenSize = 8
	c.Layers = 2
	c.HeadLayers = []int{16, 16}
	c.Rollouts = 2
	require.NoError(t, c.Validate())
	return c
}

func newTestPolicy(t *testing.T, c Config) *Policy {
	t.Helper()

	p, err := New(c)
	require.NoError(t, err)
	return p
}

// meanScorer scores each sequence by the mean of its entries
var meanScorer = ScorerFunc(func(seqs []*mat.Dense) ([]float64, error) {
	scores := make([]float64, len(seqs))
	for i, s := range seqs {
		scores[i] = floats.Sum(s.RawMatrix().Data) / float64(len(s.RawMatrix().Data))
	}
	return scores, nil
})
