package generator

import (
	"io"
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/seqgan/network"
	"github.com/samuelfneumann/seqgan/utils/progressbar"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

// Estimator estimates the value of every prefix of a batch of
// sequences by Monte-Carlo rollout.
//
// For each t in [0, T), where T is the batch's maximum length, the
// first t actions of each sequence are kept and the policy completes
// the remaining T - t positions. Each of the Estimator's rollouts is
// scored and Q[b][t] is the mean score of the completions of
// sequence b. All rollouts of a prefix are simulated together as one
// batch of B * rollouts sequences.
type Estimator struct {
	policy   *Policy
	scorer   Scorer
	rollouts int
	progress io.Writer
}

// NewEstimator returns a new Estimator which averages the scores of
// rollouts completions of each prefix
func NewEstimator(p *Policy, scorer Scorer, rollouts int) (*Estimator,
	error) {
	if rollouts <= 0 {
		return nil, errors.Errorf("newEstimator: rollouts must be "+
			"positive, have %v", rollouts)
	}
	if scorer == nil {
		return nil, errors.New("newEstimator: nil scorer")
	}
	return &Estimator{
		policy:   p,
		scorer:   scorer,
		rollouts: rollouts,
	}, nil
}

// SetProgressOutput sets a writer to which a progress bar over the
// prefixes of a batch is printed during estimation. A nil writer
// disables the progress bar.
func (e *Estimator) SetProgressOutput(w io.Writer) {
	e.progress = w
}

// Estimate returns the Monte-Carlo estimate Q[b][t] of the value of
// the first t actions of sequence b, for every t below the batch's
// maximum length. Entries at or after a sequence's own length are
// computed but carry no meaning.
//
// Scores of completions depend only on the actions before each
// sequence's true length: later positions are zeroed before scoring.
// Any scorer error or non-finite score aborts the estimate.
func (e *Estimator) Estimate(batch *Batch, src rand.Source) ([][]float64,
	error) {
	if err := batch.validate(e.policy.Dim()); err != nil {
		return nil, errors.Wrap(err, "estimate")
	}

	n := batch.Len()
	maxLen := batch.MaxLen()
	q := make([][]float64, n)
	for b := range q {
		q[b] = make([]float64, maxLen)
	}

	// Row b*rollouts + r of a rollout batch is rollout r of sequence b
	lengths := make([]int, 0, n*e.rollouts)
	for _, l := range batch.Lengths {
		for r := 0; r < e.rollouts; r++ {
			lengths = append(lengths, l)
		}
	}

	var bar *progressbar.ManualProgressBar
	if e.progress != nil {
		bar = progressbar.NewManualProgressBar(e.progress, 50, maxLen)
	}

	err := e.policy.Simulate(func(sim *Simulator) error {
		prefix := sim.Start(n)
		for t := 0; t < maxLen; t++ {
			// The prefix state covers the seed and observed actions
			// 1, ..., t
			var vecs [][]float64
			if t > 0 {
				vecs = batch.at(t - 1)
			}
			prefix = sim.Advance(prefix, vecs, batch.Lengths, t)

			completions := e.complete(sim, batch, prefix, lengths, t, src)
			if err := e.score(q, batch, completions, t); err != nil {
				return errors.Wrapf(err, "prefix length %v", t)
			}

			if bar != nil {
				bar.Increment()
				bar.Display()
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "estimate")
	}

	return q, nil
}

// complete samples the remaining positions t+1, ..., maxLen of every
// rollout from the encoded prefixes of length t
func (e *Estimator) complete(sim *Simulator, batch *Batch,
	prefix network.State, lengths []int, t int,
	src rand.Source) []Sequence {
	maxLen := batch.MaxLen()

	completions := make([]Sequence, 0, len(lengths))
	for _, seq := range batch.Actions {
		for r := 0; r < e.rollouts; r++ {
			completions = append(completions, seq[:t:t])
		}
	}

	state := prefix.Repeat(e.rollouts)
	var prev [][]float64
	for pos := t + 1; pos <= maxLen; pos++ {
		if prev != nil {
			state = sim.Advance(state, prev, lengths, pos-1)
		}

		actions, _ := sim.Draw(state, nil, src)
		for i := range completions {
			completions[i] = completions[i].Extend(actions[i])
		}
		prev = actions
	}
	return completions
}

// score scores each rollout of the completions and records the mean
// score of each sequence's rollouts in q[.][t]
func (e *Estimator) score(q [][]float64, batch *Batch,
	completions []Sequence, t int) error {
	n := batch.Len()
	maxLen := batch.MaxLen()
	dim := e.policy.Dim()

	for r := 0; r < e.rollouts; r++ {
		seqs := make([]*mat.Dense, n)
		for b := range seqs {
			seqs[b] = completions[b*e.rollouts+r].Padded(batch.Lengths[b],
				maxLen, dim)
		}

		scores, err := e.scorer.Score(seqs)
		if err != nil {
			return errors.Wrapf(err, "rollout %v: scorer failed", r)
		}
		if len(scores) != n {
			return errors.Errorf("rollout %v: scorer returned %v scores "+
				"for %v sequences", r, len(scores), n)
		}

		for b, score := range scores {
			if math.IsNaN(score) || math.IsInf(score, 0) {
				return errors.Errorf("rollout %v: non-finite score %v for "+
					"sequence %v", r, score, b)
			}
			q[b][t] += score / float64(e.rollouts)
		}
	}
	return nil
}
