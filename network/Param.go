package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Param is a named, learnable weight matrix. A Param owns its backing
// data. The numeric forward pass reads the data directly through
// Dense, while computational graphs receive a copy of the data which
// is written back with a Graph's Commit method after a gradient step.
type Param struct {
	Name string
	Rows int
	Cols int
	Data []float64
}

// NewParam returns a new rows x cols Param initialized with init. If
// init is nil, the Param is initialized to zeroes.
func NewParam(name string, rows, cols int, init G.InitWFn) *Param {
	var data []float64
	if init != nil {
		data = init(tensor.Float64, rows, cols).([]float64)
	} else {
		data = make([]float64, rows*cols)
	}

	return &Param{
		Name: name,
		Rows: rows,
		Cols: cols,
		Data: data,
	}
}

// Dense returns a matrix view of the Param. Changes to the returned
// matrix change the Param.
func (p *Param) Dense() *mat.Dense {
	return mat.NewDense(p.Rows, p.Cols, p.Data)
}

// Shape returns the shape of the Param
func (p *Param) Shape() []int {
	return []int{p.Rows, p.Cols}
}

// Clone returns a deep copy of the Param
func (p *Param) Clone() *Param {
	data := make([]float64, len(p.Data))
	copy(data, p.Data)
	return &Param{Name: p.Name, Rows: p.Rows, Cols: p.Cols, Data: data}
}

// Set sets the data of the Param to a copy of data
func (p *Param) Set(data []float64) error {
	if len(data) != len(p.Data) {
		return fmt.Errorf("set: param %v: invalid data length \n\twant(%v)"+
			"\n\thave(%v)", p.Name, len(p.Data), len(data))
	}
	copy(p.Data, data)
	return nil
}

// node adds the Param to the computational graph g as a matrix node
// holding a copy of the Param's data.
func (p *Param) node(g *G.ExprGraph) *G.Node {
	backing := make([]float64, len(p.Data))
	copy(backing, p.Data)

	value := tensor.New(
		tensor.WithShape(p.Rows, p.Cols),
		tensor.WithBacking(backing),
	)

	return G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(p.Rows, p.Cols),
		G.WithName(p.Name),
		G.WithValue(value),
	)
}
