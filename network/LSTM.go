package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Gates of an LSTM cell
const (
	inputGate = iota
	forgetGate
	cellGate
	outputGate
	numGates
)

var gateNames = [numGates]string{"i", "f", "g", "o"}

// lstmLayer holds the weights of a single LSTM layer. For each gate k,
// the pre-activation is x·wx[k] + h·wh[k] + b[k].
type lstmLayer struct {
	wx [numGates]*Param
	wh [numGates]*Param
	b  [numGates]*Param
}

// LSTM implements a stacked long short-term memory network. The output
// of the LSTM at each step is the hidden state of its top layer.
//
// The LSTM can be unrolled into a computational graph with Unroll, or
// stepped directly on values with Start and Step. Both use the same
// Params, and since the network is causal the hidden state after
// processing t inputs never depends on any later input.
type LSTM struct {
	layers []*lstmLayer
	inputs int
	hidden int
}

// NewLSTM returns a new LSTM with depth layers of hidden units each,
// taking inputs features per step.
func NewLSTM(name string, inputs, hidden, depth int,
	init G.InitWFn) (*LSTM, error) {
	if inputs <= 0 || hidden <= 0 || depth <= 0 {
		return nil, fmt.Errorf("newLSTM: inputs, hidden size, and depth " +
			"must be positive")
	}

	layers := make([]*lstmLayer, depth)
	in := inputs
	for l := range layers {
		layer := &lstmLayer{}
		for k := 0; k < numGates; k++ {
			prefix := fmt.Sprintf("%v.%d.%v", name, l, gateNames[k])
			layer.wx[k] = NewParam(prefix+".wx", in, hidden, init)
			layer.wh[k] = NewParam(prefix+".wh", hidden, hidden, init)
			layer.b[k] = NewParam(prefix+".b", 1, hidden, nil)
		}
		layers[l] = layer
		in = hidden
	}

	return &LSTM{
		layers: layers,
		inputs: inputs,
		hidden: hidden,
	}, nil
}

// Inputs returns the number of input features per step
func (l *LSTM) Inputs() int {
	return l.inputs
}

// Hidden returns the number of hidden units per layer
func (l *LSTM) Hidden() int {
	return l.hidden
}

// Depth returns the number of stacked layers
func (l *LSTM) Depth() int {
	return len(l.layers)
}

// Params returns the learnable Params of the LSTM, ordered by layer
// and then by gate.
func (l *LSTM) Params() []*Param {
	params := make([]*Param, 0, 3*numGates*len(l.layers))
	for _, layer := range l.layers {
		for k := 0; k < numGates; k++ {
			params = append(params, layer.wx[k], layer.wh[k], layer.b[k])
		}
	}
	return params
}

// State is the recurrent state of an LSTM for a batch of sequences.
// A State is never modified once created: Step returns a new State.
type State struct {
	h []*mat.Dense
	c []*mat.Dense
}

// Start returns the all-zero initial State for batch sequences
func (l *LSTM) Start(batch int) State {
	s := State{
		h: make([]*mat.Dense, len(l.layers)),
		c: make([]*mat.Dense, len(l.layers)),
	}
	for i := range l.layers {
		s.h[i] = mat.NewDense(batch, l.hidden, nil)
		s.c[i] = mat.NewDense(batch, l.hidden, nil)
	}
	return s
}

// Batch returns the number of sequences tracked by the State
func (s State) Batch() int {
	r, _ := s.h[0].Dims()
	return r
}

// Output returns the hidden state of the top layer. The returned matrix
// must not be modified.
func (s State) Output() *mat.Dense {
	return s.h[len(s.h)-1]
}

// Repeat returns a State in which every sequence of s is repeated n
// times. Row b*n + r of the new State is a copy of row b of s.
func (s State) Repeat(n int) State {
	repeat := func(m *mat.Dense) *mat.Dense {
		rows, cols := m.Dims()
		out := mat.NewDense(rows*n, cols, nil)
		for b := 0; b < rows; b++ {
			row := m.RawRowView(b)
			for r := 0; r < n; r++ {
				out.SetRow(b*n+r, row)
			}
		}
		return out
	}

	next := State{
		h: make([]*mat.Dense, len(s.h)),
		c: make([]*mat.Dense, len(s.c)),
	}
	for i := range s.h {
		next.h[i] = repeat(s.h[i])
		next.c[i] = repeat(s.c[i])
	}
	return next
}

// Step advances the State s by one input step. The rows of x hold one
// input per sequence.
func (l *LSTM) Step(s State, x *mat.Dense) State {
	next := State{
		h: make([]*mat.Dense, len(l.layers)),
		c: make([]*mat.Dense, len(l.layers)),
	}

	in := x
	for i, layer := range l.layers {
		next.h[i], next.c[i] = layer.step(in, s.h[i], s.c[i])
		in = next.h[i]
	}
	return next
}

// step computes the hidden and cell states of a single layer
func (layer *lstmLayer) step(x, h, c *mat.Dense) (*mat.Dense, *mat.Dense) {
	i := layer.gate(inputGate, x, h, logistic)
	f := layer.gate(forgetGate, x, h, logistic)
	g := layer.gate(cellGate, x, h, math.Tanh)
	o := layer.gate(outputGate, x, h, logistic)

	rows, cols := c.Dims()
	nextC := mat.NewDense(rows, cols, nil)
	nextC.MulElem(f, c)
	var ig mat.Dense
	ig.MulElem(i, g)
	nextC.Add(nextC, &ig)

	nextH := mat.NewDense(rows, cols, nil)
	nextH.Apply(func(_, _ int, v float64) float64 {
		return math.Tanh(v)
	}, nextC)
	nextH.MulElem(o, nextH)

	return nextH, nextC
}

// gate computes the activation of gate k
func (layer *lstmLayer) gate(k int, x, h *mat.Dense,
	act func(float64) float64) *mat.Dense {
	rows, _ := x.Dims()
	z := mat.NewDense(rows, layer.wx[k].Cols, nil)
	z.Mul(x, layer.wx[k].Dense())

	var hz mat.Dense
	hz.Mul(h, layer.wh[k].Dense())
	z.Add(z, &hz)

	bias := layer.b[k].Data
	z.Apply(func(_, j int, v float64) float64 {
		return act(v + bias[j])
	}, z)
	return z
}

// Unroll adds the LSTM unrolled over inputs to the Graph b. Each input
// node must be a (batch x Inputs()) matrix. The returned nodes hold
// the top-layer hidden state after each input.
func (l *LSTM) Unroll(b *Graph, inputs []*G.Node) ([]*G.Node, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("unroll: no inputs")
	}
	batch := inputs[0].Shape()[0]
	g := b.ExprGraph()

	h := make([]*G.Node, len(l.layers))
	c := make([]*G.Node, len(l.layers))
	for i := range l.layers {
		h[i] = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, l.hidden),
			G.WithName(fmt.Sprintf("h0.%d", i)), G.WithInit(G.Zeroes()))
		c[i] = G.NewMatrix(g, tensor.Float64, G.WithShape(batch, l.hidden),
			G.WithName(fmt.Sprintf("c0.%d", i)), G.WithInit(G.Zeroes()))
	}

	outputs := make([]*G.Node, len(inputs))
	for t, x := range inputs {
		in := x
		for i, layer := range l.layers {
			var err error
			h[i], c[i], err = layer.fwd(b, in, h[i], c[i])
			if err != nil {
				return nil, fmt.Errorf("unroll: step %v layer %v: %v", t, i,
					err)
			}
			in = h[i]
		}
		outputs[t] = in
	}
	return outputs, nil
}

// fwd adds a single step of the layer to the Graph b
func (layer *lstmLayer) fwd(b *Graph, x, h, c *G.Node) (*G.Node, *G.Node,
	error) {
	i, err := layer.gateNode(b, inputGate, x, h, G.Sigmoid)
	if err != nil {
		return nil, nil, err
	}
	f, err := layer.gateNode(b, forgetGate, x, h, G.Sigmoid)
	if err != nil {
		return nil, nil, err
	}
	g, err := layer.gateNode(b, cellGate, x, h, G.Tanh)
	if err != nil {
		return nil, nil, err
	}
	o, err := layer.gateNode(b, outputGate, x, h, G.Sigmoid)
	if err != nil {
		return nil, nil, err
	}

	nextC := G.Must(G.Add(
		G.Must(G.HadamardProd(f, c)),
		G.Must(G.HadamardProd(i, g)),
	))
	nextH := G.Must(G.HadamardProd(o, G.Must(G.Tanh(nextC))))

	return nextH, nextC, nil
}

// gateNode adds the computation of gate k to the Graph b
func (layer *lstmLayer) gateNode(b *Graph, k int, x, h *G.Node,
	act func(*G.Node) (*G.Node, error)) (*G.Node, error) {
	xz, err := G.Mul(x, b.Node(layer.wx[k]))
	if err != nil {
		return nil, err
	}
	hz, err := G.Mul(h, b.Node(layer.wh[k]))
	if err != nil {
		return nil, err
	}
	z, err := G.Add(xz, hz)
	if err != nil {
		return nil, err
	}
	z, err = G.BroadcastAdd(z, b.Node(layer.b[k]), nil, []byte{0})
	if err != nil {
		return nil, err
	}
	return act(z)
}
