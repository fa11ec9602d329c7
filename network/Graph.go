package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Graph binds a fixed, ordered set of Params into a new computational
// graph. Every Param is bound exactly once, in the order given, so
// that solvers which cache per-parameter state by position see the
// same ordering on every Graph built from the same Params.
type Graph struct {
	g          *G.ExprGraph
	params     []*Param
	nodes      map[*Param]*G.Node
	learnables G.Nodes
}

// NewGraph returns a new Graph with all params bound as learnable
// nodes.
func NewGraph(params []*Param) *Graph {
	g := G.NewGraph()
	nodes := make(map[*Param]*G.Node, len(params))
	learnables := make(G.Nodes, 0, len(params))

	for _, p := range params {
		n := p.node(g)
		nodes[p] = n
		learnables = append(learnables, n)
	}

	return &Graph{
		g:          g,
		params:     params,
		nodes:      nodes,
		learnables: learnables,
	}
}

// ExprGraph returns the underlying Gorgonia expression graph
func (b *Graph) ExprGraph() *G.ExprGraph {
	return b.g
}

// Node returns the node bound to p. It panics if p was not bound when
// the Graph was created.
func (b *Graph) Node(p *Param) *G.Node {
	n, ok := b.nodes[p]
	if !ok {
		panic(fmt.Sprintf("node: param %v is not bound to the graph", p.Name))
	}
	return n
}

// Learnables returns the learnable nodes of the Graph in binding order
func (b *Graph) Learnables() G.Nodes {
	return b.learnables
}

// Model returns the learnable nodes with their gradients.
func (b *Graph) Model() []G.ValueGrad {
	model := make([]G.ValueGrad, 0, len(b.learnables))
	for _, node := range b.learnables {
		model = append(model, node)
	}
	return model
}

// Commit writes the current values of the learnable nodes back into
// the bound Params.
func (b *Graph) Commit() error {
	for i, node := range b.learnables {
		data, ok := node.Value().Data().([]float64)
		if !ok {
			return fmt.Errorf("commit: param %v: unexpected value type %T",
				b.params[i].Name, node.Value().Data())
		}
		if err := b.params[i].Set(data); err != nil {
			return fmt.Errorf("commit: %v", err)
		}
	}
	return nil
}
