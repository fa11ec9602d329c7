// Package generator implements a stochastic sequence generator trained
// with REINFORCE against an external scorer, as in SeqGAN.
//
// The Policy encodes the sequence generated so far with a stacked LSTM
// and maps the encoding to a diagonal Gaussian over the next
// embedding-space action. A Sampler generates batches of sequences, an
// Estimator computes Monte-Carlo rollout estimates of the value of each
// prefix of a sequence, and an Updater takes a single policy gradient
// step. The Trainer ties these together.
package generator

import (
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/seqgan/network"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
)

const (
	// PretrainedFile is the name of the pretrained parameter slot
	PretrainedFile = "generator_pretrained.bin"

	// TrainedFile is the name of the trained parameter slot
	TrainedFile = "generator.bin"
)

// Policy is a recurrent Gaussian policy over embedding-space vectors.
//
// The input to the encoder at position p of a sequence of true length
// L is the vector at position p, prefixed by the number of positions
// remaining, L - p, or zero once p >= L. Position 0 is an all-zero
// seed. The top-layer hidden state after positions 0, ..., t is passed
// to two heads which produce the mean and log-scale of the
// distribution over action t+1. Both heads end in a softmax so that
// their outputs sum to one, and the covariance diagonal is the
// exponential of the log-scale.
//
// Parameters are guarded by a read-write lock. Simulation, through
// Simulate, holds the read lock; only an Updater takes the write lock.
type Policy struct {
	mu sync.RWMutex

	encoder   *network.LSTM
	meanHead  *network.MLP
	scaleHead *network.MLP
	params    []*network.Param

	dim          int
	lengthSignal bool

	pretrainedPath string
	trainedPath    string
}

// New returns a new Policy with randomly initialized parameters
func New(c Config) (*Policy, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "new")
	}
	weights := c.InitWFn.InitWFn()

	encoder, err := network.NewLSTM("encoder", c.EmbeddingDim+1,
		c.HiddenSize, c.Layers, weights)
	if err != nil {
		return nil, errors.Wrap(err, "new: could not create encoder")
	}

	meanHead, err := network.NewMLP("mean", c.HiddenSize, c.HeadLayers,
		c.EmbeddingDim, network.ReLU(), weights)
	if err != nil {
		return nil, errors.Wrap(err, "new: could not create mean head")
	}

	scaleHead, err := network.NewMLP("scale", c.HiddenSize, c.HeadLayers,
		c.EmbeddingDim, network.ReLU(), weights)
	if err != nil {
		return nil, errors.Wrap(err, "new: could not create scale head")
	}

	params := append([]*network.Param{}, encoder.Params()...)
	params = append(params, meanHead.Params()...)
	params = append(params, scaleHead.Params()...)

	return &Policy{
		encoder:        encoder,
		meanHead:       meanHead,
		scaleHead:      scaleHead,
		params:         params,
		dim:            c.EmbeddingDim,
		lengthSignal:   c.LengthSignal,
		pretrainedPath: filepath.Join(c.ModelDir, PretrainedFile),
		trainedPath:    filepath.Join(c.ModelDir, TrainedFile),
	}, nil
}

// Dim returns the dimension of the actions of the Policy
func (p *Policy) Dim() int {
	return p.dim
}

// Params returns a copy of the current parameters of the Policy
func (p *Policy) Params() []*network.Param {
	p.mu.RLock()
	defer p.mu.RUnlock()

	params := make([]*network.Param, len(p.params))
	for i := range p.params {
		params[i] = p.params[i].Clone()
	}
	return params
}

// Simulate calls fn with a Simulator over the current parameters.
// Parameters cannot change until fn returns, and nothing fn does is
// recorded for gradient computation. The Simulator must not be used
// after fn returns.
func (p *Policy) Simulate(fn func(*Simulator) error) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return fn(&Simulator{policy: p})
}

// input returns the encoder input at position pos for a batch of
// sequences with the given true lengths. Row b holds the remaining
// length signal followed by vecs[b]. If vecs is nil, the input is the
// seed position.
func (p *Policy) input(vecs [][]float64, lengths []int, pos int) *mat.Dense {
	x := mat.NewDense(len(lengths), p.dim+1, nil)
	for b, length := range lengths {
		row := x.RawRowView(b)
		if p.lengthSignal && pos < length {
			row[0] = float64(length - pos)
		}
		if vecs != nil {
			copy(row[1:], vecs[b])
		}
	}
	return x
}

// Simulator evaluates a Policy without gradient tracking. Simulators
// are only valid inside Policy.Simulate.
type Simulator struct {
	policy *Policy
}

// Start returns the initial encoder state for batch sequences
func (s *Simulator) Start(batch int) network.State {
	return s.policy.encoder.Start(batch)
}

// Advance feeds position pos of a batch of sequences to the encoder.
// Row b of vecs is the vector at position pos of sequence b; vecs is
// nil for the seed position.
func (s *Simulator) Advance(state network.State, vecs [][]float64,
	lengths []int, pos int) network.State {
	return s.policy.encoder.Step(state, s.policy.input(vecs, lengths, pos))
}

// Distributions returns the distribution over the next action of each
// sequence encoded by state. If scale is not nil, it is used as the
// covariance diagonal of every distribution in place of the scale head.
func (s *Simulator) Distributions(state network.State,
	scale []float64) []Gaussian {
	h := state.Output()
	rows, _ := h.Dims()

	mean := network.SoftmaxRows(s.policy.meanHead.Apply(h))
	var logScale *mat.Dense
	if scale == nil {
		logScale = network.SoftmaxRows(s.policy.scaleHead.Apply(h))
	}

	dists := make([]Gaussian, rows)
	for b := range dists {
		m := make([]float64, s.policy.dim)
		copy(m, mean.RawRowView(b))

		variance := make([]float64, s.policy.dim)
		if scale != nil {
			copy(variance, scale)
		} else {
			for j, v := range logScale.RawRowView(b) {
				variance[j] = math.Exp(v)
			}
		}

		dists[b] = Gaussian{Mean: m, Var: variance}
	}
	return dists
}

// Draw samples one action for each sequence encoded by state and
// returns the actions with their log-densities.
func (s *Simulator) Draw(state network.State, scale []float64,
	src rand.Source) ([][]float64, []float64) {
	dists := s.Distributions(state, scale)

	actions := make([][]float64, len(dists))
	logProbs := make([]float64, len(dists))
	for b, dist := range dists {
		actions[b] = dist.Sample(src)
		logProbs[b] = dist.LogProb(actions[b])
	}
	return actions, logProbs
}

// savedParam is the serialized form of a network.Param
type savedParam struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// Save saves the parameters of the Policy to path. If path is empty,
// the trained slot is used.
func (p *Policy) Save(path string) error {
	if path == "" {
		path = p.trainedPath
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	saved := make([]savedParam, len(p.params))
	for i, param := range p.params {
		saved[i] = savedParam{param.Name, param.Rows, param.Cols, param.Data}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "save")
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "save")
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(saved); err != nil {
		return errors.Wrapf(err, "save: could not encode parameters to %v",
			path)
	}
	return file.Close()
}

// Load loads the parameters of the Policy from path. If path is empty,
// the pretrained slot is used. Every parameter of the Policy must be
// present in the file with the same shape.
func (p *Policy) Load(path string) error {
	if path == "" {
		path = p.pretrainedPath
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "load")
	}
	defer file.Close()

	var saved []savedParam
	if err := gob.NewDecoder(file).Decode(&saved); err != nil {
		return errors.Wrapf(err, "load: could not decode parameters from "+
			"%v", path)
	}

	byName := make(map[string]savedParam, len(saved))
	for _, s := range saved {
		byName[s.Name] = s
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, param := range p.params {
		s, ok := byName[param.Name]
		if !ok {
			return errors.Errorf("load: parameter %v missing from %v",
				param.Name, path)
		}
		if s.Rows != param.Rows || s.Cols != param.Cols ||
			len(s.Data) != len(param.Data) {
			return errors.Errorf("load: parameter %v has shape (%v, %v) "+
				"in %v, expected (%v, %v)", param.Name, s.Rows, s.Cols, path,
				param.Rows, param.Cols)
		}
	}

	for _, param := range p.params {
		if err := param.Set(byName[param.Name].Data); err != nil {
			return errors.Wrap(err, "load")
		}
	}
	return nil
}
