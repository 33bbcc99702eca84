package prover

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/logger"
	"SigAgg/internal/xmss"

	"github.com/zeebo/blake3"
)

// transcriptContext separates attester transcripts from other blake3 uses.
const transcriptContext = "SigAgg attester transcript v1"

// transcriptSize is the length of the transcript digest at the head of a proof.
const transcriptSize = 32

// Attester is a local stand-in for the proving subsystem. It verifies every
// signature natively and BLS-signs a transcript binding the batch bytes to
// the verified count. The proof is transcript || BLS signature.
type Attester struct {
	signer *signer // signer holds the attestation key
	strict bool    // strict fails Prove on the first invalid signature
}

// NewAttester derives the attestation key from seed. A strict attester
// refuses to prove batches containing invalid signatures; otherwise they
// are excluded from the verified count.
func NewAttester(seed []byte, strict bool) (*Attester, error) {
	s, err := newSigner(seed)
	if err != nil {
		return nil, fmt.Errorf("create attester:\n%w", err)
	}

	return &Attester{signer: s, strict: strict}, nil
}

// PublicKey returns the compressed BLS public key proofs verify against.
func (a *Attester) PublicKey() []byte {
	return a.signer.publicKeyBytes()
}

// Prove verifies every item and signs the transcript.
func (a *Attester) Prove(ctx context.Context, batch *aggregation.Batch) (*Receipt, error) {
	count, err := a.count(ctx, batch, a.strict)
	if err != nil {
		return nil, err
	}

	if int(count) < batch.Len() {
		logger.Warn("batch contains invalid signatures",
			"verified", count,
			"total", batch.Len(),
		)
	}

	t := transcript(batch, count)

	proof := make([]byte, 0, transcriptSize+BLSSignatureSize)
	proof = append(proof, t[:]...)
	proof = append(proof, a.signer.sign(t[:])...)

	return &Receipt{VerifiedCount: count, Proof: proof}, nil
}

// Verify recounts valid signatures and checks the transcript and its
// signature. A count differing from the receipt is a VerificationMismatchError.
func (a *Attester) Verify(ctx context.Context, batch *aggregation.Batch, receipt *Receipt) (bool, error) {
	if len(receipt.Proof) != transcriptSize+BLSSignatureSize {
		return false, fmt.Errorf("%w: %d bytes, want %d", ErrMalformedProof,
			len(receipt.Proof), transcriptSize+BLSSignatureSize)
	}

	count, err := a.count(ctx, batch, false)
	if err != nil {
		return false, err
	}

	if count != receipt.VerifiedCount {
		return false, &VerificationMismatchError{Expected: count, Actual: receipt.VerifiedCount}
	}

	t := transcript(batch, count)
	if !bytes.Equal(t[:], receipt.Proof[:transcriptSize]) {
		return false, nil
	}

	return verifyBLS(receipt.Proof[transcriptSize:], t[:], a.PublicKey()), nil
}

// count returns the number of items that verify natively. In strict mode
// the first invalid item is returned as an InvalidSignatureError.
func (a *Attester) count(ctx context.Context, batch *aggregation.Batch, strict bool) (uint32, error) {
	if batch.Len() == 0 {
		return 0, aggregation.ErrEmptyBatch
	}

	params := xmss.Params{LogLifetime: batch.PathLen(0)}
	if err := params.Validate(); err != nil {
		return 0, fmt.Errorf("batch signature shape:\n%w", err)
	}

	var valid uint32

	for i := 0; i < batch.Len(); i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		it := batch.Item(i)
		pk := batch.KeyFor(i)

		if xmss.Verify(params, &pk, it.Epoch, &it.Message, &it.Signature) {
			valid++
			continue
		}

		if strict {
			return 0, &InvalidSignatureError{Index: i, Epoch: it.Epoch}
		}
	}

	return valid, nil
}

// transcript binds the encoded batch, its mode and the verified count.
func transcript(batch *aggregation.Batch, count uint32) [transcriptSize]byte {
	h := blake3.NewDeriveKey(transcriptContext)
	h.Write(aggregation.Encode(batch))

	var buf [5]byte
	binary.LittleEndian.PutUint32(buf[:4], count)
	buf[4] = byte(batch.Mode())
	h.Write(buf[:])

	var out [transcriptSize]byte
	h.Sum(out[:0])

	return out
}
