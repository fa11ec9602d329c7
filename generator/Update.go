package generator

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/seqgan/network"
	"github.com/samuelfneumann/seqgan/solver"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Updater takes REINFORCE steps on the parameters of a Policy.
//
// The loss of a batch with discounted advantages D is
//
//	-Σ_b Σ_{t < L_b} D[b][t] log π(a[b][t+1] | a[b][1], ..., a[b][t])
//
// where L_b is the true length of sequence b. The log-densities are
// recomputed from the recorded actions in a computational graph so
// that they can be differentiated.
type Updater struct {
	policy *Policy
	solver G.Solver
}

// NewUpdater returns a new Updater which steps p with a new Gorgonia
// solver described by s
func NewUpdater(p *Policy, s *solver.Solver) (*Updater, error) {
	if s == nil || s.Config == nil {
		return nil, errors.New("newUpdater: nil solver")
	}
	return &Updater{
		policy: p,
		solver: s.Create(),
	}, nil
}

// Step takes a single gradient step on the REINFORCE loss of batch
// weighted by the discounted advantages adv, and returns the loss
// before the step. adv[b] must have at least batch.Lengths[b] entries.
func (u *Updater) Step(batch *Batch, adv [][]float64) (float64, error) {
	u.policy.mu.Lock()
	defer u.policy.mu.Unlock()

	g, loss, err := u.policy.lossGraph(batch, adv)
	if err != nil {
		return 0, errors.Wrap(err, "step")
	}

	if _, err := G.Grad(loss, g.Learnables()...); err != nil {
		return 0, errors.Wrap(err, "step: could not compute gradient")
	}

	var lossVal G.Value
	G.Read(loss, &lossVal)

	vm := G.NewTapeMachine(g.ExprGraph(), G.BindDualValues(g.Learnables()...))
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "step: could not run computational graph")
	}

	// A non-finite loss leaves the parameters and solver state unchanged
	lossFloat := lossVal.Data().(float64)
	if math.IsNaN(lossFloat) || math.IsInf(lossFloat, 0) {
		return 0, errors.Errorf("step: non-finite loss %v", lossFloat)
	}

	if err := u.solver.Step(g.Model()); err != nil {
		return 0, errors.Wrap(err, "step: could not step solver")
	}
	if err := g.Commit(); err != nil {
		return 0, errors.Wrap(err, "step")
	}

	return lossFloat, nil
}

// Loss returns the REINFORCE loss of batch weighted by the discounted
// advantages adv, without changing the Policy.
func (u *Updater) Loss(batch *Batch, adv [][]float64) (float64, error) {
	u.policy.mu.RLock()
	defer u.policy.mu.RUnlock()

	g, loss, err := u.policy.lossGraph(batch, adv)
	if err != nil {
		return 0, errors.Wrap(err, "loss")
	}

	var lossVal G.Value
	G.Read(loss, &lossVal)

	vm := G.NewTapeMachine(g.ExprGraph())
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		return 0, errors.Wrap(err, "loss: could not run computational graph")
	}

	return lossVal.Data().(float64), nil
}

// ReinforceLoss returns the REINFORCE loss from recorded log-densities,
// without gradients. Only the first lengths[b] entries of adv[b] and
// logProbs[b] are read.
func ReinforceLoss(adv, logProbs [][]float64, lengths []int) (float64,
	error) {
	if len(adv) != len(lengths) || len(logProbs) != len(lengths) {
		return 0, errors.Errorf("reinforceLoss: have %v advantage "+
			"sequences, %v log-probability sequences, and %v lengths",
			len(adv), len(logProbs), len(lengths))
	}

	loss := 0.0
	for b, l := range lengths {
		if len(adv[b]) < l || len(logProbs[b]) < l {
			return 0, errors.Errorf("reinforceLoss: sequence %v is shorter "+
				"than its length %v", b, l)
		}
		for t := 0; t < l; t++ {
			loss -= adv[b][t] * logProbs[b][t]
		}
	}
	return loss, nil
}

// lossGraph builds the REINFORCE loss of batch in a new Graph bound to
// the Policy's parameters. The caller must hold the Policy's lock.
func (p *Policy) lossGraph(batch *Batch, adv [][]float64) (*network.Graph,
	*G.Node, error) {
	if err := batch.validate(p.dim); err != nil {
		return nil, nil, err
	}
	if len(adv) != batch.Len() {
		return nil, nil, errors.Errorf("have %v advantage sequences for %v "+
			"sequences", len(adv), batch.Len())
	}
	for b, l := range batch.Lengths {
		if len(adv[b]) < l {
			return nil, nil, errors.Errorf("sequence %v has %v advantages "+
				"but length %v", b, len(adv[b]), l)
		}
	}

	n := batch.Len()
	maxLen := batch.MaxLen()
	g := network.NewGraph(p.params)
	eg := g.ExprGraph()

	// Encoder inputs at positions 0, ..., maxLen-1
	inputs := make([]*G.Node, maxLen)
	for pos := range inputs {
		var vecs [][]float64
		if pos > 0 {
			vecs = batch.at(pos - 1)
		}
		x := p.input(vecs, batch.Lengths, pos)
		inputs[pos] = matrixNode(eg, fmt.Sprintf("x_%d", pos), n, p.dim+1,
			x.RawMatrix().Data)
	}

	hidden, err := p.encoder.Unroll(g, inputs)
	if err != nil {
		return nil, nil, err
	}

	var total *G.Node
	for i := 1; i <= maxLen; i++ {
		logProb, err := p.logProbNode(g, hidden[i-1], batch, i)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "action %v", i)
		}

		// Actions past a sequence's length have zero weight
		weights := make([]float64, n)
		for b, l := range batch.Lengths {
			if i-1 < l {
				weights[b] = adv[b][i-1]
			}
		}
		w := G.NewVector(eg, tensor.Float64, G.WithShape(n),
			G.WithName(fmt.Sprintf("w_%d", i)),
			G.WithValue(tensor.New(tensor.WithShape(n),
				tensor.WithBacking(weights))))

		term := G.Must(G.Sum(G.Must(G.HadamardProd(logProb, w))))
		if total == nil {
			total = term
		} else {
			total = G.Must(G.Add(total, term))
		}
	}

	return g, G.Must(G.Neg(total)), nil
}

// logProbNode adds the log-density of action i of each sequence, given
// the encoder output h after positions 0, ..., i-1, to the Graph g.
// The result is a vector with one entry per sequence.
func (p *Policy) logProbNode(g *network.Graph, h *G.Node, batch *Batch,
	i int) (*G.Node, error) {
	n := batch.Len()

	meanOut, err := p.meanHead.Fwd(g, h)
	if err != nil {
		return nil, err
	}
	mean, err := network.Softmax(meanOut)
	if err != nil {
		return nil, err
	}

	scaleOut, err := p.scaleHead.Fwd(g, h)
	if err != nil {
		return nil, err
	}
	logScale, err := network.Softmax(scaleOut)
	if err != nil {
		return nil, err
	}

	backing := make([]float64, 0, n*p.dim)
	for _, a := range batch.at(i - 1) {
		backing = append(backing, a...)
	}
	actions := matrixNode(g.ExprGraph(), fmt.Sprintf("a_%d", i), n, p.dim,
		backing)

	// log N(a; μ, diag(exp(s))) =
	// 	-0.5 * (Σ_j (a_j - μ_j)² exp(-s_j) + Σ_j s_j + d log(2π))
	negativeHalf := G.NewConstant(-0.5)
	normalizer := G.NewConstant(float64(p.dim) * math.Log(2*math.Pi))

	diff := G.Must(G.Sub(actions, mean))
	precision := G.Must(G.Exp(G.Must(G.Neg(logScale))))
	quad := G.Must(G.HadamardProd(G.Must(G.Square(diff)), precision))
	terms := G.Must(G.Sum(G.Must(G.Add(quad, logScale)), 1))
	terms = G.Must(G.Add(normalizer, terms))

	return G.Mul(negativeHalf, terms)
}

// matrixNode adds a rows x cols matrix with the given backing data to
// the graph g
func matrixNode(g *G.ExprGraph, name string, rows, cols int,
	backing []float64) *G.Node {
	return G.NewMatrix(g, tensor.Float64, G.WithShape(rows, cols),
		G.WithName(name),
		G.WithValue(tensor.New(tensor.WithShape(rows, cols),
			tensor.WithBacking(backing))))
}
