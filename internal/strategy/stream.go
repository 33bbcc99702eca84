package strategy

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"SigAgg/internal/xmss"
)

const (
	// itemStreamContext separates per-item streams from every other use of the seed.
	itemStreamContext = "SigAgg 2025-01 per-item key material stream"

	// keyStreamContext separates the shared real key stream.
	keyStreamContext = "SigAgg 2025-01 shared key material stream"
)

// Stream is a deterministic byte source read from a BLAKE3 XOF.
// It is not safe for concurrent use; each item owns its own stream.
type Stream struct {
	xof *blake3.Digest
}

// ItemStream returns the sub-stream for item index under seed. It depends
// only on (seed, index), so items can be generated in any order.
func ItemStream(seed uint64, index uint64) *Stream {
	return newStream(itemStreamContext, seed, index)
}

// KeyStream returns the stream feeding shared key generation under seed.
func KeyStream(seed uint64) *Stream {
	return newStream(keyStreamContext, seed, 0)
}

// newStream derives a stream from a context string and two counters.
func newStream(context string, seed, index uint64) *Stream {
	h := blake3.NewDeriveKey(context)

	var buf [16]byte
	binary.LittleEndian.PutUint64(buf[0:8], seed)
	binary.LittleEndian.PutUint64(buf[8:16], index)
	h.Write(buf[:])

	return &Stream{xof: h.Digest()}
}

// Read fills p from the stream. It never fails.
func (s *Stream) Read(p []byte) (int, error) {
	return s.xof.Read(p)
}

// Digest draws a uniformly random digest.
func (s *Stream) Digest() xmss.Digest {
	var d xmss.Digest
	s.xof.Read(d[:])

	return d
}

// Parameter draws a public hash parameter.
func (s *Stream) Parameter() xmss.Parameter {
	var p xmss.Parameter
	s.xof.Read(p[:])

	return p
}

// Randomness draws a message randomizer.
func (s *Stream) Randomness() xmss.Randomness {
	var r xmss.Randomness
	s.xof.Read(r[:])

	return r
}

// Seed32 draws a 32-byte key generation seed.
func (s *Stream) Seed32() [32]byte {
	var seed [32]byte
	s.xof.Read(seed[:])

	return seed
}
