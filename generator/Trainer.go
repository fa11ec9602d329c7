package generator

import (
	"io"
	"log"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/seqgan/checkpointer"
	"github.com/samuelfneumann/seqgan/generator/advantage"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

// Trainer trains a Policy with REINFORCE, using Monte-Carlo rollout
// estimates of the scores of a Scorer as rewards.
type Trainer struct {
	policy    *Policy
	estimator *Estimator
	updater   *Updater

	discount float64
	shaping  advantage.Mode

	logger       *log.Logger
	checkpointer checkpointer.Checkpointer
}

// NewTrainer returns a new Trainer for the Policy p configured by c.
// If logger is nil, nothing is logged.
func NewTrainer(p *Policy, scorer Scorer, c Config,
	logger *log.Logger) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newTrainer")
	}
	if c.EmbeddingDim != p.Dim() {
		return nil, errors.Errorf("newTrainer: config has embedding "+
			"dimension %v but policy has dimension %v", c.EmbeddingDim,
			p.Dim())
	}

	estimator, err := NewEstimator(p, scorer, c.Rollouts)
	if err != nil {
		return nil, errors.Wrap(err, "newTrainer")
	}
	updater, err := NewUpdater(p, c.Solver)
	if err != nil {
		return nil, errors.Wrap(err, "newTrainer")
	}

	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if c.Shaping == advantage.Raw {
		logger.Printf("newTrainer: using raw Q-values as advantages")
	}

	return &Trainer{
		policy:    p,
		estimator: estimator,
		updater:   updater,
		discount:  c.Discount,
		shaping:   c.Shaping,
		logger:    logger,
	}, nil
}

// SetCheckpointer sets a Checkpointer which is called with the length
// of the loss history after every successful training call
func (t *Trainer) SetCheckpointer(c checkpointer.Checkpointer) {
	t.checkpointer = c
}

// SetProgressOutput sets a writer to which rollout progress is printed
func (t *Trainer) SetProgressOutput(w io.Writer) {
	t.estimator.SetProgressOutput(w)
}

// Train takes one REINFORCE step on batch and appends the loss to
// history. The loss is also returned. If estimation or the update
// fails, the Policy and history are left unchanged. A checkpointing
// error is returned after the loss has been recorded.
//
// Batches sampled with a fixed scale are rejected, since their
// log-densities were not computed with the learned scale head.
func (t *Trainer) Train(batch *Batch, history *LossHistory,
	src rand.Source) (float64, error) {
	if history == nil {
		return 0, errors.New("train: nil loss history")
	}
	if batch == nil {
		return 0, errors.New("train: nil batch")
	}
	if batch.FixedScale != nil {
		return 0, errors.New("train: batch was sampled with a fixed scale")
	}

	q, err := t.estimator.Estimate(batch, src)
	if err != nil {
		return 0, errors.Wrap(err, "train")
	}

	adv, err := advantage.Compute(q, batch.Lengths, t.discount, t.shaping)
	if err != nil {
		return 0, errors.Wrap(err, "train")
	}

	loss, err := t.updater.Step(batch, adv)
	if err != nil {
		return 0, errors.Wrap(err, "train")
	}
	history.Append(loss)

	t.logger.Printf("train: step %v loss %.6f mean Q %.6f", history.Len(),
		loss, meanValid(q, batch.Lengths))

	if t.checkpointer != nil {
		if err := t.checkpointer.Checkpoint(history.Len()); err != nil {
			return loss, errors.Wrap(err, "train: could not checkpoint")
		}
	}
	return loss, nil
}

// meanValid returns the mean of the Q-values before each sequence's
// length
func meanValid(q [][]float64, lengths []int) float64 {
	var valid []float64
	for b, l := range lengths {
		valid = append(valid, q[b][:l]...)
	}
	return stat.Mean(valid, nil)
}
