// Package initwfn wraps Gorgonia weight initializers so that the
// initialization scheme of a generator can be stored in, and restored
// from, JSON configuration files.
package initwfn

import (
	"encoding/json"
	"reflect"

	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
)

// Type names a weight initialization scheme
type Type string

// Available initialization schemes
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
	Zeroes   Type = "Zeroes"
)

// registry maps each Type to the Config type that describes it
var registry = map[Type]reflect.Type{
	GlorotU:  reflect.TypeOf(GlorotUConfig{}),
	GlorotN:  reflect.TypeOf(GlorotNConfig{}),
	HeU:      reflect.TypeOf(HeUConfig{}),
	HeN:      reflect.TypeOf(HeNConfig{}),
	Gaussian: reflect.TypeOf(GaussianConfig{}),
	Uniform:  reflect.TypeOf(UniformConfig{}),
	Zeroes:   reflect.TypeOf(ZeroesConfig{}),
}

// Config describes a weight initialization scheme and creates the
// Gorgonia InitWFn implementing it.
type Config interface {
	// Create returns the Gorgonia InitWFn that the Config describes
	Create() G.InitWFn

	// Type returns the scheme described by the Config
	Type() Type

	// Validate returns an error if the Config is not usable
	Validate() error
}

// InitWFn is a JSON serializable Gorgonia InitWFn
type InitWFn struct {
	initWFn G.InitWFn
	Type
	Config
}

// New returns a new InitWFn described by c
func New(c Config) (*InitWFn, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrapf(err, "new %v", c.Type())
	}
	return &InitWFn{initWFn: c.Create(), Type: c.Type(), Config: c}, nil
}

// InitWFn returns the wrapped Gorgonia InitWFn
func (w *InitWFn) InitWFn() G.InitWFn {
	return w.initWFn
}

// String implements the fmt.Stringer interface
func (w *InitWFn) String() string {
	return string(w.Type)
}

// UnmarshalJSON implements the json.Unmarshaler interface
func (w *InitWFn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type   Type
		Config json.RawMessage
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(err, "unmarshalJSON")
	}

	ty, ok := registry[raw.Type]
	if !ok {
		return errors.Errorf("unmarshalJSON: unknown initializer type %q",
			raw.Type)
	}

	ptr := reflect.New(ty)
	if len(raw.Config) > 0 && string(raw.Config) != "null" {
		if err := json.Unmarshal(raw.Config, ptr.Interface()); err != nil {
			return errors.Wrapf(err, "unmarshalJSON: %v config", raw.Type)
		}
	}

	decoded, err := New(ptr.Elem().Interface().(Config))
	if err != nil {
		return errors.Wrap(err, "unmarshalJSON")
	}
	*w = *decoded
	return nil
}
