// Package checkpointer periodically saves objects during training
package checkpointer

// Serializable is an object that can be saved to a file
type Serializable interface {
	Save(filename string) error
}

// Checkpointer checkpoints/saves Serializable objects based on the
// number of training steps taken
type Checkpointer interface {
	Checkpoint(step int) error
}
