package generator

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Sequence is an ordered list of embedding-space vectors. A Sequence
// is never modified in place: Extend returns a new Sequence and the
// receiver remains a valid snapshot of the shorter prefix.
type Sequence [][]float64

// Extend returns a new Sequence with v appended to s
func (s Sequence) Extend(v []float64) Sequence {
	next := make(Sequence, len(s)+1)
	copy(next, s)
	next[len(s)] = v
	return next
}

// Padded returns s as a rows x dim matrix. Vectors at or after index
// length, and any missing rows, are left as zeroes.
func (s Sequence) Padded(length, rows, dim int) *mat.Dense {
	out := mat.NewDense(rows, dim, nil)
	for i := 0; i < length && i < len(s) && i < rows; i++ {
		out.SetRow(i, s[i])
	}
	return out
}

// Batch is a batch of generated sequences.
//
// Actions[b] holds one action for every position up to the batch
// maximum length, including positions at or after Lengths[b]. Those
// trailing actions are never used in loss or reward computation.
// LogProbs[b][t] is the log-density of Actions[b][t] under the policy
// that generated it.
//
// FixedScale is the covariance diagonal the batch was sampled with, or
// nil if the learned scale head was used.
type Batch struct {
	Actions    []Sequence
	Lengths    []int
	LogProbs   [][]float64
	FixedScale []float64
}

// Len returns the number of sequences in the batch
func (b *Batch) Len() int {
	return len(b.Lengths)
}

// MaxLen returns the maximum length of any sequence in the batch
func (b *Batch) MaxLen() int {
	return maxInt(b.Lengths)
}

// Padded returns each sequence as a MaxLen() x dim matrix, with rows at
// or after the true length of the sequence zeroed.
func (b *Batch) Padded() []*mat.Dense {
	maxLen := b.MaxLen()
	dim := 0
	if len(b.Actions) > 0 && len(b.Actions[0]) > 0 {
		dim = len(b.Actions[0][0])
	}

	out := make([]*mat.Dense, len(b.Actions))
	for i, seq := range b.Actions {
		out[i] = seq.Padded(b.Lengths[i], maxLen, dim)
	}
	return out
}

// at returns the actions of every sequence at index t
func (b *Batch) at(t int) [][]float64 {
	vecs := make([][]float64, len(b.Actions))
	for i, seq := range b.Actions {
		vecs[i] = seq[t]
	}
	return vecs
}

// validate returns an error if the batch is malformed for actions of
// dimension dim
func (b *Batch) validate(dim int) error {
	if b.Len() == 0 {
		return errors.New("empty batch")
	}
	if len(b.Actions) != b.Len() {
		return errors.Errorf("have %v sequences but %v lengths",
			len(b.Actions), b.Len())
	}
	if b.LogProbs != nil && len(b.LogProbs) != b.Len() {
		return errors.Errorf("have %v log-probability sequences but %v "+
			"lengths", len(b.LogProbs), b.Len())
	}

	maxLen := b.MaxLen()
	for i, seq := range b.Actions {
		if b.Lengths[i] <= 0 {
			return errors.Errorf("sequence %v has illegal length %v", i,
				b.Lengths[i])
		}
		if len(seq) != maxLen {
			return errors.Errorf("sequence %v has %v actions, expected %v",
				i, len(seq), maxLen)
		}
		for t, v := range seq {
			if len(v) != dim {
				return errors.Errorf("action %v of sequence %v has "+
					"dimension %v, expected %v", t, i, len(v), dim)
			}
		}
		if b.LogProbs != nil && len(b.LogProbs[i]) != maxLen {
			return errors.Errorf("sequence %v has %v log-probabilities, "+
				"expected %v", i, len(b.LogProbs[i]), maxLen)
		}
	}
	return nil
}

func maxInt(values []int) int {
	max := 0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	return max
}
