package generator

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicySaveLoad(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)
	require.NoError(t, p.Save(""))

	q := newTestPolicy(t, c)
	assert.NotEqual(t, p.Params(), q.Params())

	require.NoError(t, q.Load(filepath.Join(c.ModelDir, TrainedFile)))
	assert.Equal(t, p.Params(), q.Params())

	// Equal parameters generate equal sequences
	lengths := []int{12, 13}
	assert.Equal(t, sampleBatch(t, p, lengths, 8), sampleBatch(t, q, lengths, 8))
}

func TestPolicyLoadPretrainedSlot(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)

	assert.Error(t, p.Load(""))

	pretrained := newTestPolicy(t, c)
	require.NoError(t, pretrained.Save(filepath.Join(c.ModelDir,
		PretrainedFile)))

	require.NoError(t, p.Load(""))
	assert.Equal(t, pretrained.Params(), p.Params())
}

func TestPolicyLoadShapeMismatch(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)

	wide := c
	wide.HiddenSize = 10
	other := newTestPolicy(t, wide)
	path := filepath.Join(t.TempDir(), "wide.bin")
	require.NoError(t, other.Save(path))

	before := p.Params()
	assert.Error(t, p.Load(path))
	assert.Equal(t, before, p.Params())
}

func TestPolicyParamNames(t *testing.T) {
	p := newTestPolicy(t, smallConfig(t))

	names := make(map[string]bool)
	for _, param := range p.Params() {
		assert.False(t, names[param.Name], "duplicate name %v", param.Name)
		names[param.Name] = true
	}
	// 2 layers x 4 gates x 3 weights, plus 2 heads x 3 layers x 2
	assert.Len(t, names, 2*4*3+2*3*2)
}

func TestSimulateCausal(t *testing.T) {
	p := newTestPolicy(t, smallConfig(t))
	lengths := []int{12, 12}
	prefix := [][]float64{{0.1, 0.2, 0.3, 0.4}, {0.4, 0.3, 0.2, 0.1}}

	var first, second []Gaussian
	err := p.Simulate(func(sim *Simulator) error {
		state := sim.Advance(sim.Start(2), nil, lengths, 0)
		state = sim.Advance(state, prefix, lengths, 1)
		first = sim.Distributions(state, nil)

		// Later inputs advance a new state and leave the old one intact
		sim.Advance(state, [][]float64{{9, 9, 9, 9}, {9, 9, 9, 9}},
			lengths, 2)
		second = sim.Distributions(state, nil)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, d := range first {
		sum := 0.0
		for i := range d.Mean {
			sum += d.Mean[i]
			assert.Greater(t, d.Var[i], 1.0)
		}
		assert.InDelta(t, 1, sum, 1e-12)
	}
}

func TestLengthSignal(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)
	vecs := [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}}

	x := p.input(vecs, []int{12, 3}, 3)
	assert.Equal(t, []float64{9, 1, 2, 3, 4}, x.RawRowView(0))
	assert.Equal(t, []float64{0, 5, 6, 7, 8}, x.RawRowView(1))

	seed := p.input(nil, []int{12, 3}, 0)
	assert.Equal(t, []float64{12, 0, 0, 0, 0}, seed.RawRowView(0))

	c.LengthSignal = false
	q := newTestPolicy(t, c)
	x = q.input(vecs, []int{12, 3}, 3)
	assert.Equal(t, []float64{0, 1, 2, 3, 4}, x.RawRowView(0))

}
