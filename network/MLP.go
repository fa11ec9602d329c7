package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

// MLP implements a multi-layered perceptron. Each hidden layer has a
// bias unit and uses the same hidden activation. A final linear layer
// with a bias and no activation maps the last hidden layer to the
// outputs.
//
// An MLP can be run either as part of a computational graph with Fwd
// or directly on values with Apply. Both use the same Params.
type MLP struct {
	layers  []*fcLayer
	inputs  int
	outputs int
}

// NewMLP returns a new MLP with len(hiddenSizes)+1 layers. The names of
// the MLP's Params are prefixed by name, which should be unique among
// all networks bound to the same Graph.
func NewMLP(name string, inputs int, hiddenSizes []int, outputs int,
	activation *Activation, init G.InitWFn) (*MLP, error) {
	if inputs <= 0 || outputs <= 0 {
		return nil, fmt.Errorf("newMLP: inputs and outputs must be positive")
	}
	for i, size := range hiddenSizes {
		if size <= 0 {
			return nil, fmt.Errorf("newMLP: hidden layer %v has illegal "+
				"size %v", i, size)
		}
	}

	layers := make([]*fcLayer, 0, len(hiddenSizes)+1)
	in := inputs
	for i, size := range hiddenSizes {
		layerName := fmt.Sprintf("%v.%d", name, i)
		layers = append(layers, newFCLayer(layerName, in, size, activation,
			init))
		in = size
	}
	layerName := fmt.Sprintf("%v.%d", name, len(hiddenSizes))
	layers = append(layers, newFCLayer(layerName, in, outputs, Identity(),
		init))

	return &MLP{
		layers:  layers,
		inputs:  inputs,
		outputs: outputs,
	}, nil
}

// Inputs returns the number of input features
func (m *MLP) Inputs() int {
	return m.inputs
}

// Outputs returns the number of outputs
func (m *MLP) Outputs() int {
	return m.outputs
}

// Params returns the learnable Params of the MLP, ordered from the
// input layer to the output layer.
func (m *MLP) Params() []*Param {
	params := make([]*Param, 0, 2*len(m.layers))
	for _, l := range m.layers {
		params = append(params, l.params()...)
	}
	return params
}

// Fwd adds the forward pass of the MLP on input x to the Graph b
func (m *MLP) Fwd(b *Graph, x *G.Node) (*G.Node, error) {
	pred := x
	var err error
	for i, l := range m.layers {
		if pred, err = l.fwd(b, pred); err != nil {
			msg := "fwd: could not compute forward pass of layer %v: %v"
			return nil, fmt.Errorf(msg, i, err)
		}
	}
	return pred, nil
}

// Apply computes the forward pass of the MLP on a batch of inputs
// stored as the rows of x.
func (m *MLP) Apply(x *mat.Dense) *mat.Dense {
	pred := x
	for _, l := range m.layers {
		pred = l.apply(pred)
	}
	return pred
}
