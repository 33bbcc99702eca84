package xmss

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// PRF domains for values derived from the secret key.
const (
	prfChainStart byte = 0x10
	prfPadding    byte = 0x11
	prfRho        byte = 0x12
)

// layer is a contiguous run of nodes at one tree level.
type layer struct {
	start uint64   // start is the position of nodes[0] within the level
	nodes []Digest // nodes are the hashes of this run
}

// node returns the node at absolute position pos.
func (l *layer) node(pos uint64) Digest {
	return l.nodes[pos-l.start]
}

// SecretKey holds the PRF key and the tree levels covering the activation range.
type SecretKey struct {
	params    Params
	parameter Parameter
	prfKey    [32]byte
	start     uint64  // start is the first activated epoch
	count     uint64  // count is the number of activated epochs
	layers    []layer // layers[0] holds leaves, layers[LogLifetime] the root
}

// KeyGen builds a key whose one-time leaves cover epochs [start, start+count).
// Only the subtree spanning the activation range is materialized: siblings
// that fall outside it are padded with PRF outputs, so every activated epoch
// gets a full authentication path under a single root.
func KeyGen(params Params, seed [32]byte, start, count uint64) (PublicKey, *SecretKey, error) {
	if err := params.Validate(); err != nil {
		return PublicKey{}, nil, err
	}

	if count == 0 || start >= params.Lifetime() || count > params.Lifetime()-start {
		return PublicKey{}, nil, fmt.Errorf("%w: [%d, %d) with lifetime %d",
			ErrActivationRange, start, start+count, params.Lifetime())
	}

	sk := &SecretKey{
		params: params,
		start:  start,
		count:  count,
	}

	blake3.DeriveKey("SigAgg xmss public parameter", seed[:], sk.parameter[:])
	blake3.DeriveKey("SigAgg xmss prf key", seed[:], sk.prfKey[:])

	leaves := make([]Digest, count)
	for i := range leaves {
		ots := sk.oneTimeKey(uint32(start + uint64(i)))
		leaves[i] = ots.Leaf(&sk.parameter)
	}

	sk.layers = sk.buildLayers(layer{start: start, nodes: leaves})

	pk := PublicKey{
		Root:      sk.layers[params.LogLifetime].nodes[0],
		Parameter: sk.parameter,
	}

	return pk, sk, nil
}

// buildLayers hashes the leaf run up to the root, padding each level so
// every node in the run has its sibling.
func (sk *SecretKey) buildLayers(leaves layer) []layer {
	layers := make([]layer, 0, sk.params.LogLifetime+1)
	cur := leaves

	for level := 0; level < sk.params.LogLifetime; level++ {
		lo := cur.start
		nodes := cur.nodes

		if lo&1 == 1 {
			lo--
			nodes = append([]Digest{sk.padding(level, lo)}, nodes...)
		}

		if end := lo + uint64(len(nodes)); end&1 == 1 {
			nodes = append(nodes, sk.padding(level, end))
		}

		layers = append(layers, layer{start: lo, nodes: nodes})

		parents := make([]Digest, len(nodes)/2)
		for i := range parents {
			pos := lo/2 + uint64(i)
			parents[i] = NodeHash(&sk.parameter, level+1, pos, nodes[2*i], nodes[2*i+1])
		}

		cur = layer{start: lo / 2, nodes: parents}
	}

	return append(layers, cur)
}

// Sign signs msg at epoch. Each epoch must be used at most once per key;
// callers are responsible for that, as in any stateful hash-based scheme.
func (sk *SecretKey) Sign(epoch uint32, msg *Message) (Signature, error) {
	e := uint64(epoch)
	if e < sk.start || e >= sk.start+sk.count {
		return Signature{}, fmt.Errorf("%w: epoch %d, active [%d, %d)",
			ErrEpochOutOfRange, epoch, sk.start, sk.start+sk.count)
	}

	var rho Randomness
	rhoDigest := sk.prf(prfRho, uint64(epoch), 0, msg[:])
	copy(rho[:], rhoDigest[:])

	ots := sk.oneTimeKey(epoch)

	return Signature{
		Path:   sk.path(e),
		Rho:    rho,
		Hashes: ots.Sign(&sk.parameter, &rho, msg),
	}, nil
}

// PublicKey returns the public key of sk.
func (sk *SecretKey) PublicKey() PublicKey {
	return PublicKey{
		Root:      sk.layers[sk.params.LogLifetime].nodes[0],
		Parameter: sk.parameter,
	}
}

// path collects the sibling of the epoch's ancestor at each level.
func (sk *SecretKey) path(epoch uint64) []Digest {
	path := make([]Digest, sk.params.LogLifetime)
	pos := epoch

	for level := range path {
		path[level] = sk.layers[level].node(pos ^ 1)
		pos >>= 1
	}

	return path
}

// oneTimeKey derives the chain starts of the one-time key at epoch.
func (sk *SecretKey) oneTimeKey(epoch uint32) *OneTimeKey {
	ots := &OneTimeKey{Epoch: epoch}

	for i := range ots.Starts {
		ots.Starts[i] = sk.prf(prfChainStart, uint64(epoch), uint64(i), nil)
	}

	return ots
}

// padding derives the filler node at (level, pos) outside the activation range.
func (sk *SecretKey) padding(level int, pos uint64) Digest {
	return sk.prf(prfPadding, uint64(level), pos, nil)
}

// prf is BLAKE3 keyed with the secret PRF key.
func (sk *SecretKey) prf(domain byte, a, b uint64, extra []byte) Digest {
	h, err := blake3.NewKeyed(sk.prfKey[:])
	if err != nil {
		panic(err) // unreachable: prfKey is always 32 bytes
	}

	var buf [17]byte
	buf[0] = domain
	binary.LittleEndian.PutUint64(buf[1:9], a)
	binary.LittleEndian.PutUint64(buf[9:17], b)
	h.Write(buf[:])
	h.Write(extra)

	var out Digest
	h.Sum(out[:0])

	return out
}
