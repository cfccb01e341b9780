package store

import (
	"errors"
	"fmt"
)

var (
	// ErrSnapshotNotFound indicates no snapshot file exists at the given path.
	ErrSnapshotNotFound = errors.New("snapshot not found")

	// ErrInvalidTopK indicates a non-positive topK was requested.
	ErrInvalidTopK = errors.New("topK must be positive")

	// ErrBackendUnavailable indicates the external backend could not be
	// reached even after a reconnect attempt.
	ErrBackendUnavailable = errors.New("vector backend unavailable")
)

// DimensionMismatchError is returned when a vector's width disagrees with the
// store's fixed dimension.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: got %d, expected %d", e.Got, e.Want)
}

// PartialInsertError reports a batched insert that stopped partway: Inserted
// chunks were committed before Err ended the operation.
type PartialInsertError struct {
	Inserted int
	Err      error
}

func (e *PartialInsertError) Error() string {
	return fmt.Sprintf("insert aborted after %d chunks: %v", e.Inserted, e.Err)
}

func (e *PartialInsertError) Unwrap() error { return e.Err }

func validateTopK(topK int) error {
	if topK <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	return nil
}
