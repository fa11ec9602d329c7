package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *Param
	bias    *Param
	act     *Activation
}

// newFCLayer returns a new fcLayer. Weights are initialized with init
// and the bias with zeroes.
func newFCLayer(name string, inputs, outputs int, act *Activation,
	init G.InitWFn) *fcLayer {
	return &fcLayer{
		weights: NewParam(name+".w", inputs, outputs, init),
		bias:    NewParam(name+".b", 1, outputs, nil),
		act:     act,
	}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(b *Graph, x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, b.Node(f.weights))
	if err != nil {
		return nil, fmt.Errorf("fwd: %v: %v", f.weights.Name, err)
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	x, err = G.BroadcastAdd(x, b.Node(f.bias), nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("fwd: %v: %v", f.bias.Name, err)
	}

	return f.act.fwd(x)
}

// apply computes the forward pass of the fcLayer on a batch of inputs
// stored as the rows of x.
func (f *fcLayer) apply(x *mat.Dense) *mat.Dense {
	rows, _ := x.Dims()
	out := mat.NewDense(rows, f.weights.Cols, nil)
	out.Mul(x, f.weights.Dense())

	bias := f.bias.Data
	act := f.act.apply
	out.Apply(func(_, j int, v float64) float64 {
		return act(v + bias[j])
	}, out)

	return out
}

func (f *fcLayer) params() []*Param {
	return []*Param{f.weights, f.bias}
}
