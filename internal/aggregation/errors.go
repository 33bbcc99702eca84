package aggregation

import (
	"errors"
	"fmt"

	"SigAgg/internal/xmss"
)

// Validation error kinds. Structured errors below unwrap to these, so
// callers can match with errors.Is and read details with errors.As.
var (
	// ErrEmptyBatch is returned when no items are given.
	ErrEmptyBatch = errors.New("empty batch: at least one signature required")

	// ErrDuplicateEpoch is the kind of DuplicateEpochError.
	ErrDuplicateEpoch = errors.New("duplicate epoch")

	// ErrDuplicateKeyEpochPair is the kind of DuplicateKeyEpochPairError.
	ErrDuplicateKeyEpochPair = errors.New("duplicate (public key, epoch) pair")

	// ErrMismatchedPublicKey is the kind of MismatchedPublicKeyError.
	ErrMismatchedPublicKey = errors.New("mismatched public key")

	// ErrMissingPublicKey is the kind of MissingPublicKeyError.
	ErrMissingPublicKey = errors.New("missing public key")

	// ErrUnknownMode is returned for a mode value outside SingleKey and MultiKey.
	ErrUnknownMode = errors.New("unknown aggregation mode")
)

// DuplicateEpochError reports an epoch used twice in a SingleKey batch.
type DuplicateEpochError struct {
	Epoch      uint32 // Epoch is the repeated epoch
	Index      int    // Index is the item repeating it
	FirstIndex int    // FirstIndex is the item that used it first
}

func (e *DuplicateEpochError) Error() string {
	return fmt.Sprintf("duplicate epoch %d in SingleKey aggregation mode (items %d and %d)",
		e.Epoch, e.FirstIndex, e.Index)
}

func (e *DuplicateEpochError) Unwrap() error { return ErrDuplicateEpoch }

// DuplicateKeyEpochPairError reports a (key, epoch) pair used twice in a MultiKey batch.
type DuplicateKeyEpochPairError struct {
	PublicKey  xmss.PublicKey // PublicKey is the repeated key
	Epoch      uint32         // Epoch is the repeated epoch
	Index      int            // Index is the item repeating the pair
	FirstIndex int            // FirstIndex is the item that used it first
}

func (e *DuplicateKeyEpochPairError) Error() string {
	return fmt.Sprintf("duplicate (public_key, epoch) pair: (%s, %d) in MultiKey mode (items %d and %d)",
		e.PublicKey, e.Epoch, e.FirstIndex, e.Index)
}

func (e *DuplicateKeyEpochPairError) Unwrap() error { return ErrDuplicateKeyEpochPair }

// MismatchedPublicKeyError reports an item whose key differs from the batch key.
type MismatchedPublicKeyError struct {
	Expected xmss.PublicKey // Expected is the shared key
	Found    xmss.PublicKey // Found is the item's key
	Index    int            // Index is the offending item
}

func (e *MismatchedPublicKeyError) Error() string {
	return fmt.Sprintf("mismatched public key at item %d: expected %s, found %s",
		e.Index, e.Expected, e.Found)
}

func (e *MismatchedPublicKeyError) Unwrap() error { return ErrMismatchedPublicKey }

// MissingPublicKeyError reports a key absent where the mode requires one.
// Index is -1 when a SingleKey batch has no shared key at all.
type MissingPublicKeyError struct {
	Mode  Mode // Mode is the batch mode
	Index int  // Index is the offending item
}

func (e *MissingPublicKeyError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("missing public key in %s mode: no shared key supplied", e.Mode)
	}

	return fmt.Sprintf("missing public key in %s mode at item %d", e.Mode, e.Index)
}

func (e *MissingPublicKeyError) Unwrap() error { return ErrMissingPublicKey }

// IsValidation reports whether err is a batch validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrDuplicateEpoch) ||
		errors.Is(err, ErrDuplicateKeyEpochPair) ||
		errors.Is(err, ErrMismatchedPublicKey) ||
		errors.Is(err, ErrMissingPublicKey) ||
		errors.Is(err, ErrUnknownMode)
}

// Kind returns a short label for a validation error, used as a metric label.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyBatch):
		return "empty_batch"
	case errors.Is(err, ErrDuplicateEpoch):
		return "duplicate_epoch"
	case errors.Is(err, ErrDuplicateKeyEpochPair):
		return "duplicate_key_epoch_pair"
	case errors.Is(err, ErrMismatchedPublicKey):
		return "mismatched_public_key"
	case errors.Is(err, ErrMissingPublicKey):
		return "missing_public_key"
	case errors.Is(err, ErrUnknownMode):
		return "unknown_mode"
	default:
		return "other"
	}
}
