package ml

import "errors"

var (
	// ErrModelLoad marks weights that cannot serve the declared architecture:
	// unreadable files, unknown formats, missing tensors or shape skew.
	// It is fatal; reloading the same artifact will fail the same way.
	ErrModelLoad = errors.New("model load")

	// ErrShape marks a tensor or latent vector whose shape does not match
	// what a network was built for.
	ErrShape = errors.New("shape mismatch")

	errCorruptMatrix = errors.New("corrupt matrix record")
)
