package network

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

type activationType string

const (
	relu     activationType = "relu"
	identity activationType = "identity"
	tanh     activationType = "tanh"
	sigmoid  activationType = "sigmoid"
)

// Activation represents an element-wise activation function. Each
// Activation can be added to a computational graph or applied
// directly to a value, and both forms compute the same function.
type Activation struct {
	activationType
	f     func(x *G.Node) (*G.Node, error)
	apply func(x float64) float64
}

// fwd adds the Activation to the computational graph of x
func (a *Activation) fwd(x *G.Node) (*G.Node, error) {
	return a.f(x)
}

// String implements the Stringer interface
func (a *Activation) String() string {
	return string(a.activationType)
}

// IsIdentity returns whether or not the Activation is the identity
// function.
func (a *Activation) IsIdentity() bool {
	return a.activationType == identity
}

// MarshalText implements the encoding.TextMarshaler interface
func (a *Activation) MarshalText() ([]byte, error) {
	return []byte(a.activationType), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface
func (a *Activation) UnmarshalText(encoded []byte) error {
	switch activationType(encoded) {
	case relu:
		*a = *ReLU()
	case identity:
		*a = *Identity()
	case tanh:
		*a = *TanH()
	case sigmoid:
		*a = *Sigmoid()
	default:
		return fmt.Errorf("unmarshalText: illegal Activation type %q", encoded)
	}
	return nil
}

// Identity returns an identity *Activation
func Identity() *Activation {
	return &Activation{
		activationType: identity,
		f: func(x *G.Node) (*G.Node, error) {
			return x, nil
		},
		apply: func(x float64) float64 { return x },
	}
}

// ReLU returns a ReLU *Activation
func ReLU() *Activation {
	return &Activation{
		activationType: relu,
		f:              G.Rectify,
		apply:          func(x float64) float64 { return math.Max(x, 0) },
	}
}

// TanH returns a tanh *Activation
func TanH() *Activation {
	return &Activation{
		activationType: tanh,
		f:              G.Tanh,
		apply:          math.Tanh,
	}
}

// Sigmoid returns a logistic sigmoid *Activation
func Sigmoid() *Activation {
	return &Activation{
		activationType: sigmoid,
		f:              G.Sigmoid,
		apply:          logistic,
	}
}

func logistic(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Softmax adds a row-wise softmax of the matrix x to the computational
// graph of x. Each row of the result sums to one. The maximum of each
// row is subtracted before exponentiating.
func Softmax(x *G.Node) (*G.Node, error) {
	if !x.IsMatrix() {
		return nil, fmt.Errorf("softmax: input must be a matrix")
	}
	rows := x.Shape()[0]

	rowMax, err := G.Max(x, 1)
	if err != nil {
		return nil, fmt.Errorf("softmax: %v", err)
	}
	rowMax, err = G.Reshape(rowMax, tensor.Shape{rows, 1})
	if err != nil {
		return nil, fmt.Errorf("softmax: %v", err)
	}
	shifted, err := G.BroadcastSub(x, rowMax, nil, []byte{1})
	if err != nil {
		return nil, fmt.Errorf("softmax: %v", err)
	}

	exp, err := G.Exp(shifted)
	if err != nil {
		return nil, fmt.Errorf("softmax: %v", err)
	}
	sum, err := G.Sum(exp, 1)
	if err != nil {
		return nil, fmt.Errorf("softmax: %v", err)
	}
	sum, err = G.Reshape(sum, tensor.Shape{rows, 1})
	if err != nil {
		return nil, fmt.Errorf("softmax: %v", err)
	}

	// Broadcast the row sums across the columns
	return G.BroadcastHadamardDiv(exp, sum, nil, []byte{1})
}

// SoftmaxRows computes the row-wise softmax of x in place and returns
// x. The maximum of each row is subtracted before exponentiating.
func SoftmaxRows(x *mat.Dense) *mat.Dense {
	r, _ := x.Dims()
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		floats.AddConst(-floats.Max(row), row)
		for j := range row {
			row[j] = math.Exp(row[j])
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return x
}
