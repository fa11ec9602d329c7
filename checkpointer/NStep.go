package checkpointer

import "github.com/pkg/errors"

// nStep implements checkpointing every N steps
type nStep struct {
	interval int
	object   Serializable // Object to save

	// filename returns the name of the file to save the object in.
	//
	// To save each checkpoint in a separate file with an incremented
	// suffix (e.g. file1.bin, file2.bin, ..., fileK.bin), use
	// FilenameEnumerator. To overwrite a single file, return a constant
	// name. To save each checkpoint in a separate file whose name does
	// not matter, use FileTimer:
	//
	//	n, err := NewNStep(10, object, FileTimer("filename", ".bin"))
	filename func() string
}

// NewNStep returns a Checkpointer that saves object every n steps
func NewNStep(n int, object Serializable,
	filename func() string) (Checkpointer, error) {
	if n <= 0 {
		return nil, errors.Errorf("newNStep: interval must be positive, "+
			"have %v", n)
	}
	if object == nil || filename == nil {
		return nil, errors.New("newNStep: nil object or filename function")
	}
	return &nStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if step is a multiple of the
// checkpointing interval
func (n *nStep) Checkpoint(step int) error {
	if step%n.interval != 0 {
		return nil
	}
	filename := n.filename()
	if err := n.object.Save(filename); err != nil {
		return errors.Wrapf(err, "checkpoint: step %v", step)
	}
	return nil
}
