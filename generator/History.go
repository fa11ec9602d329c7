package generator

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// LossHistory is an append-only log of training losses. It is owned by
// the caller and passed to each training call.
type LossHistory struct {
	losses []float64
}

// NewLossHistory returns a new, empty LossHistory
func NewLossHistory() *LossHistory {
	return &LossHistory{}
}

// LoadLossHistory loads a LossHistory saved with Save
func LoadLossHistory(filename string) (*LossHistory, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "loadLossHistory")
	}
	defer file.Close()

	var losses []float64
	if err := gob.NewDecoder(file).Decode(&losses); err != nil {
		return nil, errors.Wrapf(err, "loadLossHistory: could not decode "+
			"%v", filename)
	}
	return &LossHistory{losses: losses}, nil
}

// Append records loss
func (h *LossHistory) Append(loss float64) {
	h.losses = append(h.losses, loss)
}

// Len returns the number of recorded losses
func (h *LossHistory) Len() int {
	return len(h.losses)
}

// Last returns the most recently recorded loss and whether any loss
// has been recorded
func (h *LossHistory) Last() (float64, bool) {
	if len(h.losses) == 0 {
		return 0, false
	}
	return h.losses[len(h.losses)-1], true
}

// Values returns a copy of the recorded losses in order
func (h *LossHistory) Values() []float64 {
	return append([]float64(nil), h.losses...)
}

// Save saves the recorded losses to filename
func (h *LossHistory) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "save")
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(h.losses); err != nil {
		return errors.Wrapf(err, "save: could not encode losses to %v",
			filename)
	}
	return file.Close()
}
