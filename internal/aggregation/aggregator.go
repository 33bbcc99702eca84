package aggregation

import (
	"fmt"

	"SigAgg/internal/xmss"
)

// keyEpoch is the MultiKey uniqueness index entry.
type keyEpoch struct {
	key   xmss.PublicKey
	epoch uint32
}

// validator runs the single pass over a batch and counts index lookups,
// so the linear bound can be observed.
type validator struct {
	lookups int // lookups counts uniqueness index lookups
}

// Aggregate validates items under mode and returns an immutable batch.
// In SingleKey mode the shared key is sharedKey, or, when nil, the key of
// the first item that carries one. sharedKey is ignored in MultiKey mode.
// The batch holds deep copies; later changes to items do not affect it.
func Aggregate(items []VerificationItem, mode Mode, sharedKey *xmss.PublicKey) (*Batch, error) {
	var v validator
	return v.aggregate(items, mode, sharedKey)
}

func (v *validator) aggregate(items []VerificationItem, mode Mode, sharedKey *xmss.PublicKey) (*Batch, error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}

	switch mode {
	case SingleKey:
		return v.singleKey(items, sharedKey)
	case MultiKey:
		return v.multiKey(items)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(mode))
	}
}

// singleKey enforces one shared key and distinct epochs.
func (v *validator) singleKey(items []VerificationItem, sharedKey *xmss.PublicKey) (*Batch, error) {
	shared := sharedKey
	if shared == nil {
		for i := range items {
			if items[i].PublicKey != nil {
				shared = items[i].PublicKey
				break
			}
		}
	}

	if shared == nil {
		return nil, &MissingPublicKeyError{Mode: SingleKey, Index: -1}
	}

	seen := make(map[uint32]int, len(items))
	out := make([]VerificationItem, len(items))

	for i := range items {
		it := &items[i]

		if it.PublicKey != nil && *it.PublicKey != *shared {
			return nil, &MismatchedPublicKeyError{Index: i, Expected: *shared, Found: *it.PublicKey}
		}

		v.lookups++
		if first, dup := seen[it.Epoch]; dup {
			return nil, &DuplicateEpochError{Epoch: it.Epoch, Index: i, FirstIndex: first}
		}
		seen[it.Epoch] = i

		out[i] = it.clone()
		out[i].PublicKey = nil
	}

	pk := *shared

	return &Batch{mode: SingleKey, publicKey: &pk, items: out}, nil
}

// multiKey enforces a key on every item and distinct (key, epoch) pairs.
func (v *validator) multiKey(items []VerificationItem) (*Batch, error) {
	seen := make(map[keyEpoch]int, len(items))
	out := make([]VerificationItem, len(items))

	for i := range items {
		it := &items[i]

		if it.PublicKey == nil {
			return nil, &MissingPublicKeyError{Mode: MultiKey, Index: i}
		}

		k := keyEpoch{key: *it.PublicKey, epoch: it.Epoch}

		v.lookups++
		if first, dup := seen[k]; dup {
			return nil, &DuplicateKeyEpochPairError{
				PublicKey:  k.key,
				Epoch:      k.epoch,
				Index:      i,
				FirstIndex: first,
			}
		}
		seen[k] = i

		out[i] = it.clone()
	}

	return &Batch{mode: MultiKey, items: out}, nil
}
