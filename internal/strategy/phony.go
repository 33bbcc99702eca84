package strategy

import (
	"fmt"

	"SigAgg/internal/xmss"
)

// phonyKey is a genuine one-time key with a fabricated authentication path.
type phonyKey struct {
	ots  *xmss.OneTimeKey
	path []xmss.Digest
}

// phonyStrategy reuses the one-time signature primitive, so verification
// runs the same code and cost, but skips building any tree.
type phonyStrategy struct {
	params xmss.Params
	seed   uint64
}

func (s *phonyStrategy) Kind() Kind          { return Phony }
func (s *phonyStrategy) Seed() uint64        { return s.seed }
func (s *phonyStrategy) Params() xmss.Params { return s.params }
func (s *phonyStrategy) PerItemKeys() bool   { return true }

// GenerateKeyPair builds a one-time key for the single epoch in r and a
// fabricated path and root for it. Draw order from src is fixed: parameter,
// chain starts, then siblings.
func (s *phonyStrategy) GenerateKeyPair(r EpochRange, src *Stream) (*KeyPair, error) {
	if r.Count != 1 {
		return nil, fmt.Errorf("%w: got %d epochs", ErrPhonyRange, r.Count)
	}

	if uint64(r.Start) >= s.params.Lifetime() {
		return nil, fmt.Errorf("%w: epoch %d, lifetime %d", xmss.ErrEpochOutOfRange, r.Start, s.params.Lifetime())
	}

	parameter := src.Parameter()

	ots := &xmss.OneTimeKey{Epoch: r.Start}
	for i := range ots.Starts {
		ots.Starts[i] = src.Digest()
	}

	leaf := ots.Leaf(&parameter)
	fab := FabricatePath(&parameter, r.Start, leaf, s.params.LogLifetime, src)

	return &KeyPair{
		Public: xmss.PublicKey{Root: fab.Root, Parameter: parameter},
		phony:  &phonyKey{ots: ots, path: fab.Path},
	}, nil
}

// Sign signs with the one-time key and attaches the fabricated path.
func (s *phonyStrategy) Sign(kp *KeyPair, epoch uint32, msg xmss.Message, src *Stream) (xmss.Signature, error) {
	if kp == nil || kp.phony == nil {
		return xmss.Signature{}, ErrForeignKeyPair
	}

	if epoch != kp.phony.ots.Epoch {
		return xmss.Signature{}, fmt.Errorf("%w: key covers epoch %d, got %d",
			xmss.ErrEpochOutOfRange, kp.phony.ots.Epoch, epoch)
	}

	rho := src.Randomness()
	path := make([]xmss.Digest, len(kp.phony.path))
	copy(path, kp.phony.path)

	return xmss.Signature{
		Path:   path,
		Rho:    rho,
		Hashes: kp.phony.ots.Sign(&kp.Public.Parameter, &rho, &msg),
	}, nil
}
