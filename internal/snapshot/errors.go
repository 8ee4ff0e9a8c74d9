package snapshot

import (
	"errors"
	"fmt"
)

var (
	// ErrNoFrame marks an absent frame. Callers treat it as "try again later".
	ErrNoFrame            = errors.New("snapshot: no frame")
	ErrNotReady           = fmt.Errorf("%w: device did not answer the snapshot request", ErrNoFrame)
	ErrTransferIncomplete = fmt.Errorf("%w: bulk transfer incomplete", ErrNoFrame)
	ErrChunkExhausted     = fmt.Errorf("%w: chunk attempts exhausted", ErrNoFrame)

	ErrFraming        = errors.New("snapshot: framing violation")
	ErrInvalidRequest = errors.New("snapshot: invalid request")
)

// IsRecoverable reports whether err only means that no frame was obtained
// this time.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNoFrame)
}

// FramingError is returned when the size header breaks the protocol.
type FramingError struct {
	Reason string
	Got    int
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("snapshot: framing violation: %s (%d)", e.Reason, e.Got)
}

func (e *FramingError) Is(target error) bool {
	return target == ErrFraming
}

// TransferError describes a failed cutthrough transfer.
type TransferError struct {
	Stage string
	Read  int
	Want  int
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("snapshot: cutthrough %s failed after %d of %d bytes: %v", e.Stage, e.Read, e.Want, e.Err)
}

func (e *TransferError) Unwrap() []error {
	return []error{ErrTransferIncomplete, e.Err}
}

// ChunkError names the chunk that could not be obtained.
type ChunkError struct {
	Chunk    Chunk
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("snapshot: chunk at offset %d (%d bytes) failed %d attempts: %v",
		e.Chunk.Offset, e.Chunk.Length, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{ErrChunkExhausted, e.Err}
}
