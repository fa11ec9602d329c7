package generator

import (
	"math"
	"testing"

	"github.com/samuelfneumann/seqgan/generator/advantage"
	"github.com/samuelfneumann/seqgan/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestReinforceLoss(t *testing.T) {
	adv := [][]float64{{1, -2}, {0.5, 0.5, 100}}
	logProbs := [][]float64{{-1, -3, 7}, {-2, -4, 9}}

	loss, err := ReinforceLoss(adv, logProbs, []int{2, 2})
	require.NoError(t, err)
	assert.InDelta(t, 1-6+1+2, loss, 1e-12)

	_, err = ReinforceLoss(adv, logProbs, []int{3, 2})
	assert.Error(t, err)

	_, err = ReinforceLoss(adv, logProbs[:1], []int{2, 2})
	assert.Error(t, err)
}

func TestLossMatchesRecordedLogProbs(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)
	batch := sampleBatch(t, p, []int{12, 14}, 1)

	adv := [][]float64{make([]float64, 12), make([]float64, 14)}
	src := rand.New(rand.NewSource(2))
	for _, row := range adv {
		for i := range row {
			row[i] = src.NormFloat64()
		}
	}

	u, err := NewUpdater(p, c.Solver)
	require.NoError(t, err)

	graphLoss, err := u.Loss(batch, adv)
	require.NoError(t, err)
	recorded, err := ReinforceLoss(adv, batch.LogProbs, batch.Lengths)
	require.NoError(t, err)

	assert.InDelta(t, recorded, graphLoss, 1e-6*math.Max(1, math.Abs(recorded)))
}

func TestLossIgnoresPositionsPastLength(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)
	batch := sampleBatch(t, p, []int{12, 14}, 3)

	e, err := NewEstimator(p, meanScorer, c.Rollouts)
	require.NoError(t, err)
	u, err := NewUpdater(p, c.Solver)
	require.NoError(t, err)

	loss := func() (float64, float64) {
		q, err := e.Estimate(batch, rand.NewSource(9))
		require.NoError(t, err)
		adv, err := advantage.Compute(q, batch.Lengths, c.Discount,
			c.Shaping)
		require.NoError(t, err)

		graphLoss, err := u.Loss(batch, adv)
		require.NoError(t, err)
		recorded, err := ReinforceLoss(adv, batch.LogProbs, batch.Lengths)
		require.NoError(t, err)
		return graphLoss, recorded
	}

	graphLoss, recorded := loss()

	// Inject sentinels at positions 12 and 13 of the shorter sequence
	for i := 12; i < 14; i++ {
		batch.Actions[0][i] = []float64{5, -5, 5, -5}
		batch.LogProbs[0][i] = 1e9
	}
	sentinelGraphLoss, sentinelRecorded := loss()

	assert.InDelta(t, graphLoss, sentinelGraphLoss, 1e-9)
	assert.InDelta(t, recorded, sentinelRecorded, 1e-9)
}

func TestStepChangesLoss(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)
	batch := sampleBatch(t, p, []int{12, 13}, 4)

	adv := [][]float64{make([]float64, 12), make([]float64, 13)}
	for _, row := range adv {
		for i := range row {
			row[i] = 1
		}
	}

	u, err := NewUpdater(p, c.Solver)
	require.NoError(t, err)

	before, err := u.Loss(batch, adv)
	require.NoError(t, err)

	stepLoss, err := u.Step(batch, adv)
	require.NoError(t, err)
	assert.InDelta(t, before, stepLoss, 1e-9)

	// Positive advantages increase the log-density of every recorded
	// action, decreasing the loss
	after, err := u.Loss(batch, adv)
	require.NoError(t, err)
	assert.Less(t, after, before)
}

func TestUpdaterErrors(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)
	batch := sampleBatch(t, p, []int{12, 14}, 5)

	_, err := NewUpdater(p, nil)
	assert.Error(t, err)

	u, err := NewUpdater(p, c.Solver)
	require.NoError(t, err)

	_, err = u.Step(batch, [][]float64{make([]float64, 12)})
	assert.Error(t, err)

	_, err = u.Loss(batch, [][]float64{make([]float64, 12),
		make([]float64, 13)})
	assert.Error(t, err)
}

// param returns the Policy's own parameter with the given name
func param(t *testing.T, p *Policy, name string) *network.Param {
	t.Helper()

	for _, param := range p.params {
		if param.Name == name {
			return param
		}
	}
	require.FailNow(t, "no parameter named "+name)
	return nil
}

func TestLossLargeLogits(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)

	// Logits this large overflow exp unless the row maximum is removed
	bias := param(t, p, "mean.2.b")
	for i := range bias.Data {
		bias.Data[i] = float64(800 * (i % 2))
	}
	batch := sampleBatch(t, p, []int{12, 13}, 6)

	adv := [][]float64{make([]float64, 12), make([]float64, 13)}
	for _, row := range adv {
		for i := range row {
			row[i] = 1
		}
	}

	u, err := NewUpdater(p, c.Solver)
	require.NoError(t, err)

	graphLoss, err := u.Loss(batch, adv)
	require.NoError(t, err)
	recorded, err := ReinforceLoss(adv, batch.LogProbs, batch.Lengths)
	require.NoError(t, err)
	require.False(t, math.IsNaN(graphLoss) || math.IsInf(graphLoss, 0))
	assert.InDelta(t, recorded, graphLoss, 1e-6*math.Max(1, math.Abs(recorded)))

	_, err = u.Step(batch, adv)
	require.NoError(t, err)
	for _, param := range p.Params() {
		for _, v := range param.Data {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0),
				"parameter %v is not finite", param.Name)
		}
	}
}

func TestStepNonFiniteLoss(t *testing.T) {
	c := smallConfig(t)
	p := newTestPolicy(t, c)
	batch := sampleBatch(t, p, []int{12, 13}, 7)

	weights := param(t, p, "mean.2.w")
	weights.Data[0] = math.Inf(1)
	weights.Data[1] = math.Inf(-1)
	before := p.Params()

	adv := [][]float64{make([]float64, 12), make([]float64, 13)}
	for _, row := range adv {
		for i := range row {
			row[i] = 1
		}
	}

	u, err := NewUpdater(p, c.Solver)
	require.NoError(t, err)

	_, err = u.Step(batch, adv)
	assert.Error(t, err)
	assert.Equal(t, before, p.Params())
}
