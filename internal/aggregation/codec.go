package aggregation

import (
	"errors"
	"fmt"

	"SigAgg/internal/types"
	"SigAgg/internal/xmss"

	flatbuffers "github.com/google/flatbuffers/go"
)

// ErrMalformedBatch is returned when encoded batch bytes cannot be parsed.
var ErrMalformedBatch = errors.New("malformed batch encoding")

// Encode serializes a batch as a FlatBuffers Batch table.
func Encode(b *Batch) []byte {
	builder := flatbuffers.NewBuilder(1024 + len(b.items)*estimateItemSize(b))

	itemOffsets := make([]flatbuffers.UOffsetT, len(b.items))
	for i := range b.items {
		itemOffsets[i] = buildItem(builder, &b.items[i])
	}

	types.BatchStartItemsVector(builder, len(itemOffsets))
	for i := len(itemOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(itemOffsets[i])
	}
	itemsVec := builder.EndVector(len(itemOffsets))

	var pkOffset flatbuffers.UOffsetT
	if b.publicKey != nil {
		pkOffset = buildPublicKey(builder, b.publicKey)
	}

	types.BatchStart(builder)
	types.BatchAddMode(builder, byte(b.mode))
	if b.publicKey != nil {
		types.BatchAddPublicKey(builder, pkOffset)
	}
	types.BatchAddItems(builder, itemsVec)
	builder.Finish(types.BatchEnd(builder))

	return builder.FinishedBytes()
}

// estimateItemSize returns a rough encoded size of one item.
func estimateItemSize(b *Batch) int {
	if len(b.items) == 0 {
		return 0
	}

	sig := &b.items[0].Signature

	return xmss.MessageLength + xmss.RandLen + 64 +
		(len(sig.Path)+len(sig.Hashes))*xmss.HashLen
}

// buildItem writes one item and returns its offset.
func buildItem(builder *flatbuffers.Builder, it *VerificationItem) flatbuffers.UOffsetT {
	msgOffset := builder.CreateByteVector(it.Message[:])
	sigOffset := buildSignature(builder, &it.Signature)

	var pkOffset flatbuffers.UOffsetT
	if it.PublicKey != nil {
		pkOffset = buildPublicKey(builder, it.PublicKey)
	}

	types.ItemStart(builder)
	types.ItemAddMessage(builder, msgOffset)
	types.ItemAddEpoch(builder, it.Epoch)
	types.ItemAddSignature(builder, sigOffset)
	if it.PublicKey != nil {
		types.ItemAddPublicKey(builder, pkOffset)
	}

	return types.ItemEnd(builder)
}

// buildSignature writes a signature with its digests concatenated.
func buildSignature(builder *flatbuffers.Builder, sig *xmss.Signature) flatbuffers.UOffsetT {
	pathOffset := builder.CreateByteVector(joinDigests(sig.Path))
	rhoOffset := builder.CreateByteVector(sig.Rho[:])
	hashesOffset := builder.CreateByteVector(joinDigests(sig.Hashes))

	types.SignatureStart(builder)
	types.SignatureAddPath(builder, pathOffset)
	types.SignatureAddRho(builder, rhoOffset)
	types.SignatureAddHashes(builder, hashesOffset)

	return types.SignatureEnd(builder)
}

// buildPublicKey writes a public key.
func buildPublicKey(builder *flatbuffers.Builder, pk *xmss.PublicKey) flatbuffers.UOffsetT {
	rootOffset := builder.CreateByteVector(pk.Root[:])
	paramOffset := builder.CreateByteVector(pk.Parameter[:])

	types.PublicKeyStart(builder)
	types.PublicKeyAddRoot(builder, rootOffset)
	types.PublicKeyAddParameter(builder, paramOffset)

	return types.PublicKeyEnd(builder)
}

// joinDigests concatenates digests into one byte slice.
func joinDigests(ds []xmss.Digest) []byte {
	out := make([]byte, 0, len(ds)*xmss.HashLen)
	for i := range ds {
		out = append(out, ds[i][:]...)
	}

	return out
}

// Decode parses a FlatBuffers Batch and re-validates it, so a decoded
// batch satisfies the same invariants as one built by Aggregate.
func Decode(data []byte) (b *Batch, err error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedBatch, len(data))
	}

	// Out-of-range offsets in corrupt input panic inside the flatbuffers runtime.
	defer func() {
		if r := recover(); r != nil {
			b = nil
			err = fmt.Errorf("%w: %v", ErrMalformedBatch, r)
		}
	}()

	fb := types.GetRootAsBatch(data, 0)
	mode := Mode(fb.Mode())

	items := make([]VerificationItem, fb.ItemsLength())
	var fbItem types.Item

	for i := range items {
		if !fb.Items(&fbItem, i) {
			return nil, fmt.Errorf("%w: item %d missing", ErrMalformedBatch, i)
		}

		if err := decodeItem(&fbItem, &items[i]); err != nil {
			return nil, fmt.Errorf("decode item %d:\n%w", i, err)
		}
	}

	var shared *xmss.PublicKey
	if fbPK := fb.PublicKey(nil); fbPK != nil {
		pk, err := decodePublicKey(fbPK)
		if err != nil {
			return nil, fmt.Errorf("decode batch public key:\n%w", err)
		}
		shared = &pk
	}

	batch, err := Aggregate(items, mode, shared)
	if err != nil {
		return nil, fmt.Errorf("validate decoded batch:\n%w", err)
	}

	return batch, nil
}

// decodeItem fills it from a FlatBuffers Item.
func decodeItem(fb *types.Item, it *VerificationItem) error {
	if err := copyFixed(it.Message[:], fb.MessageBytes(), "message"); err != nil {
		return err
	}

	it.Epoch = fb.Epoch()

	fbSig := fb.Signature(nil)
	if fbSig == nil {
		return fmt.Errorf("%w: signature missing", ErrMalformedBatch)
	}

	if err := copyFixed(it.Signature.Rho[:], fbSig.RhoBytes(), "rho"); err != nil {
		return err
	}

	var err error
	if it.Signature.Path, err = splitDigests(fbSig.PathBytes(), "path"); err != nil {
		return err
	}

	if it.Signature.Hashes, err = splitDigests(fbSig.HashesBytes(), "hashes"); err != nil {
		return err
	}

	if fbPK := fb.PublicKey(nil); fbPK != nil {
		pk, err := decodePublicKey(fbPK)
		if err != nil {
			return err
		}
		it.PublicKey = &pk
	}

	return nil
}

// decodePublicKey reads a FlatBuffers PublicKey.
func decodePublicKey(fb *types.PublicKey) (xmss.PublicKey, error) {
	var pk xmss.PublicKey

	if err := copyFixed(pk.Root[:], fb.RootBytes(), "root"); err != nil {
		return pk, err
	}

	if err := copyFixed(pk.Parameter[:], fb.ParameterBytes(), "parameter"); err != nil {
		return pk, err
	}

	return pk, nil
}

// copyFixed copies src into dst, requiring an exact length match.
func copyFixed(dst, src []byte, field string) error {
	if len(src) != len(dst) {
		return fmt.Errorf("%w: %s has %d bytes, want %d", ErrMalformedBatch, field, len(src), len(dst))
	}

	copy(dst, src)

	return nil
}

// splitDigests cuts concatenated digests apart.
func splitDigests(data []byte, field string) ([]xmss.Digest, error) {
	if len(data)%xmss.HashLen != 0 {
		return nil, fmt.Errorf("%w: %s length %d not a multiple of %d", ErrMalformedBatch, field, len(data), xmss.HashLen)
	}

	out := make([]xmss.Digest, len(data)/xmss.HashLen)
	for i := range out {
		copy(out[i][:], data[i*xmss.HashLen:])
	}

	return out, nil
}
