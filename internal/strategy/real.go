package strategy

import (
	"fmt"

	"SigAgg/internal/xmss"
)

// realStrategy delegates to the genuine scheme and builds the tree levels
// spanning the requested epochs.
type realStrategy struct {
	params xmss.Params
	seed   uint64
}

func (s *realStrategy) Kind() Kind          { return Real }
func (s *realStrategy) Seed() uint64        { return s.seed }
func (s *realStrategy) Params() xmss.Params { return s.params }
func (s *realStrategy) PerItemKeys() bool   { return false }

// GenerateKeyPair runs real key generation over r.
func (s *realStrategy) GenerateKeyPair(r EpochRange, src *Stream) (*KeyPair, error) {
	pk, sk, err := xmss.KeyGen(s.params, src.Seed32(), uint64(r.Start), uint64(r.Count))
	if err != nil {
		return nil, fmt.Errorf("key generation:\n%w", err)
	}

	return &KeyPair{Public: pk, secret: sk}, nil
}

// Sign signs with the real secret key. src is unused; real signing derives
// its randomness from the secret key.
func (s *realStrategy) Sign(kp *KeyPair, epoch uint32, msg xmss.Message, _ *Stream) (xmss.Signature, error) {
	if kp == nil || kp.secret == nil {
		return xmss.Signature{}, ErrForeignKeyPair
	}

	return kp.secret.Sign(epoch, &msg)
}
