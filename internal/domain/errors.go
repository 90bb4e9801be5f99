package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStaleEvent is returned when an event's provenance is not newer than
	// the provenance already recorded for the entity. Callers drop it
	// silently; it is never surfaced to the transport.
	ErrStaleEvent = errors.New("stale event")

	// ErrDuplicateMint is returned when a mint arrives for a live token that
	// was already minted under older provenance
	ErrDuplicateMint = errors.New("duplicate mint")

	// ErrInsufficientBalance marks a debit exceeding the stored balance. The
	// balance is clamped at zero and processing continues; this is a data
	// integrity warning, not a failure.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrContractNotVerified is the terminal lookup outcome for contracts
	// without published source/ABI. Not retried.
	ErrContractNotVerified = errors.New("contract not verified")

	// ErrResolutionFailed marks a metadata request whose external fetches
	// exhausted their retry budget. The entity stays unresolved and is
	// eligible for a future re-request.
	ErrResolutionFailed = errors.New("metadata resolution failed")

	// ErrMalformedURI is a terminal resolver outcome for token URIs that
	// cannot be parsed or use an unsupported scheme
	ErrMalformedURI = errors.New("malformed metadata uri")
)

// StorageError wraps database failures so callers can tell them apart from
// domain outcomes and retry the triggering request
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err with the failed store operation name
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsStorageError reports whether err is (or wraps) a StorageError
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// DecodeError marks an inbound message that failed to decode at the
// dispatch boundary. Nothing is mutated for such requests.
type DecodeError struct {
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode request: %s", e.Reason)
}

// NewDecodeError builds a DecodeError from a format string
func NewDecodeError(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// IsDecodeError reports whether err is (or wraps) a DecodeError
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
