package strategy

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"

	"SigAgg/internal/logger"
	"SigAgg/internal/xmss"
)

var (
	// ErrMissingSeed is returned when deterministic generation is requested without a seed.
	ErrMissingSeed = errors.New("deterministic generation requested without a seed")

	// ErrForeignKeyPair is returned when a key pair is signed with a strategy that did not build it.
	ErrForeignKeyPair = errors.New("key pair was not produced by this strategy")

	// ErrPhonyRange is returned when phony key material is requested for more than one epoch.
	ErrPhonyRange = errors.New("phony key material covers exactly one epoch")
)

// phonyWarning is shown whenever phony key material is selected.
const phonyWarning = "PHONY KEY MATERIAL ENABLED: authentication paths are random, " +
	"signatures carry no security and exist for benchmarking only"

// EpochRange is a half-open range of epochs [Start, Start+Count).
type EpochRange struct {
	Start uint32 // Start is the first epoch
	Count uint32 // Count is the number of epochs
}

// Options configures a strategy.
type Options struct {
	LogLifetime   int     // LogLifetime is the tree height
	Deterministic bool    // Deterministic requires Seed so runs can be reproduced
	Seed          *uint64 // Seed roots every stream; drawn at random when nil and not deterministic
}

// KeyPair is the key material a strategy produced. Exactly one of the
// variant fields is set, matching the strategy that built it.
type KeyPair struct {
	Public xmss.PublicKey // Public is the key verifiers check against

	secret *xmss.SecretKey // secret is set for Real key pairs
	phony  *phonyKey       // phony is set for Phony key pairs
}

// Strategy produces key pairs and signatures. Real and Phony differ only in
// how the authentication path is obtained.
type Strategy interface {
	// Kind returns the strategy tag.
	Kind() Kind

	// Seed returns the resolved seed every stream derives from.
	Seed() uint64

	// Params returns the signature shape.
	Params() xmss.Params

	// PerItemKeys reports whether every item needs its own key pair.
	PerItemKeys() bool

	// GenerateKeyPair builds key material covering r, drawing randomness from src.
	GenerateKeyPair(r EpochRange, src *Stream) (*KeyPair, error)

	// Sign signs msg at epoch with kp, drawing any randomness from src.
	Sign(kp *KeyPair, epoch uint32, msg xmss.Message, src *Stream) (xmss.Signature, error)
}

// New validates opts and returns the strategy for kind. Selecting Phony
// logs a conspicuous benchmark-only warning.
func New(kind Kind, opts Options) (Strategy, error) {
	params := xmss.Params{LogLifetime: opts.LogLifetime}
	if err := params.Validate(); err != nil {
		return nil, &ConfigError{Strategy: kind, Err: err}
	}

	seed, err := opts.resolveSeed()
	if err != nil {
		return nil, &ConfigError{Strategy: kind, Err: err}
	}

	switch kind {
	case Real:
		return &realStrategy{params: params, seed: seed}, nil
	case Phony:
		logger.Banner(phonyWarning, "log_lifetime", params.LogLifetime)
		return &phonyStrategy{params: params, seed: seed}, nil
	default:
		return nil, &ConfigError{Strategy: kind, Err: fmt.Errorf("unknown strategy %d", uint8(kind))}
	}
}

// resolveSeed returns the configured seed, or a random one when
// reproducibility was not requested.
func (o Options) resolveSeed() (uint64, error) {
	if o.Seed != nil {
		return *o.Seed, nil
	}

	if o.Deterministic {
		return 0, ErrMissingSeed
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("draw random seed:\n%w", err)
	}

	return binary.LittleEndian.Uint64(buf[:]), nil
}
