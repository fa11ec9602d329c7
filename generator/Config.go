package generator

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/samuelfneumann/seqgan/generator/advantage"
	"github.com/samuelfneumann/seqgan/initwfn"
	"github.com/samuelfneumann/seqgan/solver"
)

// Config determines the architecture of a generator Policy and the
// hyperparameters used to train it.
type Config struct {
	// EmbeddingDim is the dimension of each generated action
	EmbeddingDim int

	// Encoder architecture
	HiddenSize int
	Layers     int

	// HeadLayers are the hidden layer sizes of both the mean and
	// scale heads
	HeadLayers []int

	Discount float64
	Rollouts int

	// Target lengths are drawn uniformly from [MinLength, MaxLength)
	MinLength int
	MaxLength int

	Shaping      advantage.Mode
	LengthSignal bool

	InitWFn *initwfn.InitWFn
	Solver  *solver.Solver

	// ModelDir holds the pretrained and trained parameter files
	ModelDir string
}

// DefaultConfig returns the default configuration for a generator of
// embeddingDim-dimensional sequences, with parameters stored in
// modelDir.
func DefaultConfig(embeddingDim int, modelDir string) Config {
	weights, err := initwfn.NewGlorotU(1.0)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}
	s, err := solver.NewDefaultAdam(1e-3, 1)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		EmbeddingDim: embeddingDim,
		HiddenSize:   400,
		Layers:       2,
		HeadLayers:   []int{400, 300, 128},
		Discount:     0.9,
		Rollouts:     4,
		MinLength:    12,
		MaxLength:    16,
		Shaping:      advantage.Difference,
		LengthSignal: true,
		InitWFn:      weights,
		Solver:       s,
		ModelDir:     modelDir,
	}
}

// Validate returns an error describing every invalid field of c
func (c Config) Validate() error {
	var result *multierror.Error

	if c.EmbeddingDim <= 0 {
		result = multierror.Append(result, fmt.Errorf("embedding "+
			"dimension must be positive, have %v", c.EmbeddingDim))
	}
	if c.HiddenSize <= 0 {
		result = multierror.Append(result, fmt.Errorf("hidden size must "+
			"be positive, have %v", c.HiddenSize))
	}
	if c.Layers <= 0 {
		result = multierror.Append(result, fmt.Errorf("encoder must have "+
			"at least one layer, have %v", c.Layers))
	}
	for i, size := range c.HeadLayers {
		if size <= 0 {
			result = multierror.Append(result, fmt.Errorf("head layer %v "+
				"must be positive, have %v", i, size))
		}
	}
	if c.Discount < 0 || c.Discount > 1 {
		result = multierror.Append(result, fmt.Errorf("discount must be "+
			"in [0, 1], have %v", c.Discount))
	}
	if c.Rollouts <= 0 {
		result = multierror.Append(result, fmt.Errorf("rollouts must be "+
			"positive, have %v", c.Rollouts))
	}
	if c.MinLength <= 0 || c.MaxLength <= c.MinLength {
		result = multierror.Append(result, fmt.Errorf("illegal length "+
			"range [%v, %v)", c.MinLength, c.MaxLength))
	}
	if err := c.Shaping.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.InitWFn == nil {
		result = multierror.Append(result, errors.New("no weight "+
			"initializer"))
	}
	if c.Solver == nil {
		result = multierror.Append(result, errors.New("no solver"))
	}

	return result.ErrorOrNil()
}

// LoadConfig reads a JSON encoded Config from filename
func LoadConfig(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, errors.Wrap(err, "loadConfig")
	}

	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrapf(err, "loadConfig: %v", filename)
	}
	if err := c.Validate(); err != nil {
		return Config{}, errors.Wrapf(err, "loadConfig: %v", filename)
	}
	return c, nil
}
