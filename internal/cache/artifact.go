package cache

import (
	"bytes"
	"errors"
	"fmt"

	"SigAgg/internal/aggregation"
	"SigAgg/internal/strategy"
	"SigAgg/internal/types"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// artifactVersion is the current artifact format version. Version 2 records the seed.
const artifactVersion uint16 = 2

var (
	// ErrKeyMismatch is returned when an artifact's header names a different key.
	ErrKeyMismatch = errors.New("artifact belongs to a different cache key")

	// ErrChecksum is returned when the payload does not match its checksum.
	ErrChecksum = errors.New("artifact checksum mismatch")

	// ErrVersion is returned for an unsupported artifact version.
	ErrVersion = errors.New("unsupported artifact version")
)

// SerializationError reports a failure to encode or decode an artifact.
type SerializationError struct {
	Op  string // Op is "encode" or "decode"
	Key Key    // Key is the artifact key
	Err error  // Err is the cause
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s artifact %s: %v", e.Op, e.Key, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// codec compresses and frames batch bytes. Encoder and decoder are safe
// for concurrent EncodeAll/DecodeAll calls.
type codec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// newCodec creates the zstd encoder and decoder.
func newCodec() (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create encoder:\n%w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("create decoder:\n%w", err)
	}

	return &codec{enc: enc, dec: dec}, nil
}

// close releases encoder and decoder resources.
func (c *codec) close() {
	c.enc.Close()
	c.dec.Close()
}

// checksum is blake3 over the uncompressed batch bytes.
func checksum(batch []byte) [32]byte {
	return blake3.Sum256(batch)
}

// encode wraps encoded batch bytes in an artifact tagged with key and the
// seed the batch was generated from.
func (c *codec) encode(key Key, seed uint64, batch []byte) []byte {
	sum := checksum(batch)
	payload := c.enc.EncodeAll(batch, nil)

	builder := flatbuffers.NewBuilder(len(payload) + 128)
	sumOffset := builder.CreateByteVector(sum[:])
	payloadOffset := builder.CreateByteVector(payload)

	types.ArtifactStart(builder)
	types.ArtifactAddVersion(builder, artifactVersion)
	types.ArtifactAddStrategy(builder, byte(key.Strategy))
	types.ArtifactAddMode(builder, byte(key.Mode))
	types.ArtifactAddBatchSize(builder, uint32(key.BatchSize))
	types.ArtifactAddLogLifetime(builder, byte(key.LogLifetime))
	types.ArtifactAddChecksum(builder, sumOffset)
	types.ArtifactAddPayload(builder, payloadOffset)
	types.ArtifactAddSeed(builder, seed)
	builder.Finish(types.ArtifactEnd(builder))

	return builder.FinishedBytes()
}

// decode checks that data is an artifact for key and returns the batch bytes
// with the seed recorded in the header.
func (c *codec) decode(key Key, data []byte) (batch []byte, seed uint64, err error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("truncated artifact: %d bytes", len(data))
	}

	defer func() {
		if r := recover(); r != nil {
			batch, seed = nil, 0
			err = fmt.Errorf("corrupt artifact: %v", r)
		}
	}()

	a := types.GetRootAsArtifact(data, 0)

	if a.Version() != artifactVersion {
		return nil, 0, fmt.Errorf("%w: %d", ErrVersion, a.Version())
	}

	got := Key{
		Strategy:    strategy.Kind(a.Strategy()),
		Mode:        aggregation.Mode(a.Mode()),
		BatchSize:   int(a.BatchSize()),
		LogLifetime: int(a.LogLifetime()),
	}
	if got != key {
		return nil, 0, fmt.Errorf("%w: header says %s", ErrKeyMismatch, got)
	}

	batch, err = c.dec.DecodeAll(a.PayloadBytes(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("decompress payload:\n%w", err)
	}

	sum := checksum(batch)
	if !bytes.Equal(sum[:], a.ChecksumBytes()) {
		return nil, 0, ErrChecksum
	}

	return batch, a.Seed(), nil
}
