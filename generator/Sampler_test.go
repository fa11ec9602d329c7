package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestSamplerLengths(t *testing.T) {
	c := smallConfig(t)
	s, err := NewSampler(newTestPolicy(t, c), c.MinLength, c.MaxLength)
	require.NoError(t, err)

	seen := make(map[int]bool)
	for _, l := range s.Lengths(500, rand.NewSource(1)) {
		assert.GreaterOrEqual(t, l, 12)
		assert.Less(t, l, 16)
		seen[l] = true
	}
	assert.Len(t, seen, 4)
}

func TestSamplerGenerate(t *testing.T) {
	c := smallConfig(t)
	s, err := NewSampler(newTestPolicy(t, c), c.MinLength, c.MaxLength)
	require.NoError(t, err)

	batch, err := s.Generate(3, rand.NewSource(2))
	require.NoError(t, err)
	require.Equal(t, 3, batch.Len())

	maxLen := batch.MaxLen()
	for b, seq := range batch.Actions {
		assert.Len(t, seq, maxLen)
		assert.Len(t, batch.LogProbs[b], maxLen)
		for _, a := range seq {
			assert.Len(t, a, c.EmbeddingDim)
		}
	}

	for b, m := range batch.Padded() {
		rows, cols := m.Dims()
		assert.Equal(t, maxLen, rows)
		assert.Equal(t, c.EmbeddingDim, cols)
		for i := 0; i < rows; i++ {
			if i < batch.Lengths[b] {
				assert.Equal(t, []float64(batch.Actions[b][i]), m.RawRowView(i))
			} else {
				assert.Equal(t, make([]float64, cols), m.RawRowView(i))
			}
		}
	}
}

func TestSamplerGenerateLengths(t *testing.T) {
	c := smallConfig(t)
	s, err := NewSampler(newTestPolicy(t, c), c.MinLength, c.MaxLength)
	require.NoError(t, err)

	lengths := []int{12, 14}
	batch, err := s.GenerateLengths(lengths, rand.NewSource(3))
	require.NoError(t, err)
	assert.Equal(t, lengths, batch.Lengths)
	assert.Equal(t, 14, batch.MaxLen())

	// Log-densities are recorded past each sequence's length
	for _, lp := range batch.LogProbs[0][12:] {
		assert.NotZero(t, lp)
	}

	again, err := s.GenerateLengths(lengths, rand.NewSource(3))
	require.NoError(t, err)
	assert.Equal(t, batch, again)

	_, err = s.GenerateLengths([]int{12, 0}, rand.NewSource(3))
	assert.Error(t, err)
}

func TestSamplerFixedScale(t *testing.T) {
	c := smallConfig(t)
	s, err := NewSampler(newTestPolicy(t, c), c.MinLength, c.MaxLength)
	require.NoError(t, err)

	assert.Error(t, s.SetFixedScale([]float64{1, 1}))
	assert.Error(t, s.SetFixedScale([]float64{1, 0, 1, 1}))

	require.NoError(t, s.SetFixedScale([]float64{1e-6, 1e-6, 1e-6, 1e-6}))
	batch, err := s.GenerateLengths([]int{12, 12}, rand.NewSource(4))
	require.NoError(t, err)

	// With a tiny variance every action lies near its mean, which is a
	// softmax output
	for _, seq := range batch.Actions {
		for _, a := range seq {
			sum := 0.0
			for _, v := range a {
				assert.Greater(t, v, -0.1)
				sum += v
			}
			assert.InDelta(t, 1, sum, 0.1)
		}
	}

	require.NoError(t, s.SetFixedScale(nil))
}

func TestNewSamplerErrors(t *testing.T) {
	p := newTestPolicy(t, smallConfig(t))

	_, err := NewSampler(p, 0, 4)
	assert.Error(t, err)
	_, err = NewSampler(p, 12, 12)
	assert.Error(t, err)
}

func BenchmarkSamplerGenerate(b *testing.B) {
	c := DefaultConfig(16, b.TempDir())
	p, err := New(c)
	if err != nil {
		b.Fatal(err)
	}
	s, err := NewSampler(p, c.MinLength, c.MaxLength)
	if err != nil {
		b.Fatal(err)
	}
	src := rand.NewSource(1)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Generate(8, src); err != nil {
			b.Fatal(err)
		}
	}
}
