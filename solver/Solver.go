// Package solver wraps Gorgonia solvers so that the optimizer used to
// update a generator can be stored in, and restored from, JSON
// configuration files.
package solver

import (
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Type names an optimization algorithm
type Type string

// Available solver types
const (
	Adam    Type = "Adam"
	Vanilla Type = "Vanilla"
	RMSProp Type = "RMSProp"
)

var registry = map[Type]reflect.Type{
	Adam:    reflect.TypeOf(AdamConfig{}),
	Vanilla: reflect.TypeOf(VanillaConfig{}),
	RMSProp: reflect.TypeOf(RMSPropConfig{}),
}

// Config describes a Gorgonia Solver
type Config interface {
	// Create returns a new Gorgonia Solver with fresh internal state
	Create() G.Solver

	// ValidType returns whether the Config describes the given Type
	ValidType(Type) bool
}

// Solver is a JSON serializable description of a Gorgonia Solver.
//
// Stateful solvers such as Adam keep moment estimates per parameter,
// so each learner should call Create to obtain its own Gorgonia
// Solver rather than sharing one.
type Solver struct {
	Type
	Config
}

// newSolver returns a new solver with the given type and configuration.
func newSolver(t Type, c Config) (*Solver, error) {
	if !c.ValidType(t) {
		return nil, errors.Errorf("newSolver: invalid solver type %v for "+
			"configuration %T", t, c)
	}
	return &Solver{Type: t, Config: c}, nil
}

// String implements the fmt.Stringer interface
func (s *Solver) String() string {
	return string(s.Type)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (s *Solver) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "unmarshalJSON")
	}

	ty, ok := registry[raw.Type]
	if !ok {
		return errors.Errorf("unmarshalJSON: unknown solver type %q",
			raw.Type)
	}

	ptr := reflect.New(ty)
	if err := json.Unmarshal(raw.Config, ptr.Interface()); err != nil {
		return errors.Wrapf(err, "unmarshalJSON: %v config", raw.Type)
	}

	decoded, err := newSolver(raw.Type, ptr.Elem().Interface().(Config))
	if err != nil {
		return errors.Wrap(err, "unmarshalJSON")
	}
	*s = *decoded
	return nil
}
