package vectorstore

import (
	"errors"
	"fmt"
)

// Sentinel errors for vector store operations.
var (
	// ErrInvalidArgument indicates malformed request parameters
	// (empty document list, out-of-range threshold, non-positive top-k).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNullInput indicates a required argument was nil.
	ErrNullInput = errors.New("null input")

	// ErrDimensionMismatch indicates two vectors of different lengths were compared.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrZeroNorm indicates cosine similarity was requested on a zero vector.
	ErrZeroNorm = errors.New("zero norm")

	// ErrIOFailure indicates the snapshot medium could not be read or written.
	ErrIOFailure = errors.New("io failure")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// IOError wraps a low-level failure raised while saving or loading a snapshot.
//
// It matches ErrIOFailure with errors.Is and exposes the original cause through
// Unwrap, so callers can inspect both the kind and the underlying error.
type IOError struct {
	// Op is the operation that failed ("save" or "load").
	Op string

	// Path is the snapshot location, empty for stream based operations.
	Path string

	// Err is the underlying cause.
	Err error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s snapshot: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s snapshot %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrIOFailure.
func (e *IOError) Is(target error) bool {
	return target == ErrIOFailure
}

func newIOError(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
