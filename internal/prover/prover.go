package prover

import (
	"context"
	"errors"
	"fmt"

	"SigAgg/internal/aggregation"
)

// ErrMalformedProof is returned when a receipt's proof has the wrong layout.
var ErrMalformedProof = errors.New("malformed proof")

// Receipt is what the proving subsystem returns for a batch.
type Receipt struct {
	VerifiedCount uint32 // VerifiedCount is the number of signatures the prover accepted
	Proof         []byte // Proof is opaque to callers
}

// Prover is the downstream proving subsystem. It receives fully validated
// batches only.
type Prover interface {
	// Prove produces a receipt attesting to the batch.
	Prove(ctx context.Context, batch *aggregation.Batch) (*Receipt, error)

	// Verify checks a receipt against the batch it was produced for.
	Verify(ctx context.Context, batch *aggregation.Batch, receipt *Receipt) (bool, error)
}

// InvalidSignatureError reports a signature that failed native verification.
type InvalidSignatureError struct {
	Index int    // Index is the item position in the batch
	Epoch uint32 // Epoch is the item's epoch
}

func (e *InvalidSignatureError) Error() string {
	return fmt.Sprintf("invalid signature at item %d (epoch %d)", e.Index, e.Epoch)
}

// VerificationMismatchError reports a receipt whose verified count differs
// from what the batch actually verifies to.
type VerificationMismatchError struct {
	Expected uint32 // Expected is the count recomputed from the batch
	Actual   uint32 // Actual is the count claimed by the receipt
}

func (e *VerificationMismatchError) Error() string {
	return fmt.Sprintf("verification mismatch: expected %d verified signatures, receipt claims %d",
		e.Expected, e.Actual)
}
