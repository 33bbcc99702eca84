package xmss

import (
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// MessageLength is the size of a signed message in bytes.
	MessageLength = 32

	// HashLen is the size of every tree node and chain value.
	HashLen = 32

	// ParameterLen is the size of the public hash parameter.
	ParameterLen = 16

	// RandLen is the size of the per-signature message randomizer.
	RandLen = 16

	// ChunkBits is the Winternitz chunk width (w = 2^ChunkBits).
	ChunkBits = 2

	// Base is the Winternitz parameter w; each chain has Base positions.
	Base = 1 << ChunkBits

	// NumChunks is the number of message chunks in an encoding.
	NumChunks = HashLen * 8 / ChunkBits

	// NumChecksumChunks covers the maximum checksum NumChunks*(Base-1) = 384 < 4^5.
	NumChecksumChunks = 5

	// NumChains is the number of hash chains in one one-time key.
	NumChains = NumChunks + NumChecksumChunks

	// MaxLogLifetime bounds the tree height so epochs fit in a uint32.
	MaxLogLifetime = 32
)

var (
	// ErrInvalidLifetime is returned for a tree height outside [1, MaxLogLifetime].
	ErrInvalidLifetime = errors.New("invalid log lifetime")

	// ErrActivationRange is returned when a key's activation range is empty or exceeds the lifetime.
	ErrActivationRange = errors.New("invalid activation range")

	// ErrEpochOutOfRange is returned when signing outside the key's activation range.
	ErrEpochOutOfRange = errors.New("epoch outside activation range")
)

// Digest is a tree node, chain value or leaf hash.
type Digest [HashLen]byte

// Message is the fixed-size payload covered by a signature.
type Message [MessageLength]byte

// Parameter is the public randomizer mixed into every hash of a key.
type Parameter [ParameterLen]byte

// Randomness is the per-signature randomizer of the message hash.
type Randomness [RandLen]byte

// Params fixes the shape of keys and signatures.
type Params struct {
	LogLifetime int // LogLifetime is the tree height (log2 of supported epochs)
}

// Validate checks that the tree height is usable.
func (p Params) Validate() error {
	if p.LogLifetime <= 0 || p.LogLifetime > MaxLogLifetime {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidLifetime, p.LogLifetime, MaxLogLifetime)
	}

	return nil
}

// Lifetime returns the number of epochs a key supports.
func (p Params) Lifetime() uint64 {
	return 1 << uint(p.LogLifetime)
}

// PublicKey commits to every leaf of a key through the Merkle root.
type PublicKey struct {
	Root      Digest    // Root is the Merkle root over all one-time leaves
	Parameter Parameter // Parameter is the public hash randomizer
}

// String returns a short hex form of the root, enough to tell keys apart in logs.
func (pk PublicKey) String() string {
	return hex.EncodeToString(pk.Root[:8]) + "..."
}

// Signature is a one-time signature plus the authentication path of its leaf.
type Signature struct {
	Path   []Digest   // Path holds one sibling per tree level, leaf level first
	Rho    Randomness // Rho randomizes the message hash
	Hashes []Digest   // Hashes are the intermediate chain values, one per chain
}

// Clone returns a deep copy of the signature.
func (s Signature) Clone() Signature {
	out := Signature{Rho: s.Rho}

	if s.Path != nil {
		out.Path = make([]Digest, len(s.Path))
		copy(out.Path, s.Path)
	}

	if s.Hashes != nil {
		out.Hashes = make([]Digest, len(s.Hashes))
		copy(out.Hashes, s.Hashes)
	}

	return out
}
