package generator

import (
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Sampler generates batches of variable-length sequences from a
// Policy.
type Sampler struct {
	policy    *Policy
	minLength int
	maxLength int

	// scale, if set, replaces the learned covariance diagonal
	scale []float64
}

// NewSampler returns a new Sampler which generates sequences with
// lengths drawn uniformly from [minLength, maxLength).
func NewSampler(p *Policy, minLength, maxLength int) (*Sampler, error) {
	if minLength <= 0 || maxLength <= minLength {
		return nil, errors.Errorf("newSampler: illegal length range "+
			"[%v, %v)", minLength, maxLength)
	}
	return &Sampler{
		policy:    p,
		minLength: minLength,
		maxLength: maxLength,
	}, nil
}

// SetFixedScale sets the covariance diagonal used for every sampled
// action, bypassing the learned scale head. A nil scale restores the
// learned scale.
//
// Generated batches record the scale in Batch.FixedScale. Their
// log-densities differ from those an Updater differentiates, so
// Trainer.Train rejects them.
func (s *Sampler) SetFixedScale(scale []float64) error {
	if scale == nil {
		s.scale = nil
		return nil
	}
	if len(scale) != s.policy.Dim() {
		return errors.Errorf("setFixedScale: scale has dimension %v, "+
			"expected %v", len(scale), s.policy.Dim())
	}
	for i, v := range scale {
		if !(v > 0) || math.IsInf(v, 1) {
			return errors.Errorf("setFixedScale: scale %v must be positive "+
				"and finite, have %v", i, v)
		}
	}

	s.scale = append([]float64(nil), scale...)
	return nil
}

// Lengths draws n target lengths uniformly from the Sampler's length
// range
func (s *Sampler) Lengths(n int, src rand.Source) []int {
	rng := rand.New(src)
	lengths := make([]int, n)
	for i := range lengths {
		lengths[i] = s.minLength + rng.Intn(s.maxLength-s.minLength)
	}
	return lengths
}

// Generate generates a batch of n sequences with randomly drawn
// lengths
func (s *Sampler) Generate(n int, src rand.Source) (*Batch, error) {
	if n <= 0 {
		return nil, errors.Errorf("generate: illegal batch size %v", n)
	}
	b, err := s.GenerateLengths(s.Lengths(n, src), src)
	if err != nil {
		return nil, errors.Wrap(err, "generate")
	}
	return b, nil
}

// GenerateLengths generates one sequence for each of the given target
// lengths. Every sequence is generated up to the maximum length so
// that the batch is rectangular; actions past a sequence's own length
// are recorded along with their log-densities but never used.
func (s *Sampler) GenerateLengths(lengths []int,
	src rand.Source) (*Batch, error) {
	if len(lengths) == 0 {
		return nil, errors.New("generateLengths: no lengths")
	}
	for i, l := range lengths {
		if l <= 0 {
			return nil, errors.Errorf("generateLengths: sequence %v has "+
				"illegal length %v", i, l)
		}
	}

	lengths = append([]int(nil), lengths...)
	maxLen := maxInt(lengths)
	batch := &Batch{
		Actions:  make([]Sequence, len(lengths)),
		Lengths:  lengths,
		LogProbs: make([][]float64, len(lengths)),
	}
	if s.scale != nil {
		batch.FixedScale = append([]float64(nil), s.scale...)
	}
	for b := range batch.LogProbs {
		batch.LogProbs[b] = make([]float64, maxLen)
	}

	err := s.policy.Simulate(func(sim *Simulator) error {
		state := sim.Start(len(lengths))
		var prev [][]float64
		for i := 1; i <= maxLen; i++ {
			state = sim.Advance(state, prev, lengths, i-1)

			actions, logProbs := sim.Draw(state, s.scale, src)
			for b := range actions {
				batch.Actions[b] = batch.Actions[b].Extend(actions[b])
				batch.LogProbs[b][i-1] = logProbs[b]
			}
			prev = actions
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "generateLengths")
	}

	return batch, nil
}
