package xmss

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// Domain separators for the tweakable hash.
const (
	sepChain   byte = 0x00
	sepTree    byte = 0x01
	sepMessage byte = 0x02
)

// hash computes BLAKE3(parameter || tweak || inputs...).
func hash(param *Parameter, tweak []byte, inputs ...[]byte) Digest {
	h := blake3.New()
	h.Write(param[:])
	h.Write(tweak)

	for _, in := range inputs {
		h.Write(in)
	}

	var out Digest
	h.Sum(out[:0])

	return out
}

// chainTweak encodes (epoch, chain index, position in chain).
func chainTweak(epoch uint32, chain int, pos int) []byte {
	buf := make([]byte, 8)
	buf[0] = sepChain
	binary.LittleEndian.PutUint32(buf[1:5], epoch)
	binary.LittleEndian.PutUint16(buf[5:7], uint16(chain))
	buf[7] = byte(pos)

	return buf
}

// treeTweak encodes (level, position in level).
func treeTweak(level int, pos uint64) []byte {
	buf := make([]byte, 10)
	buf[0] = sepTree
	buf[1] = byte(level)
	binary.LittleEndian.PutUint64(buf[2:10], pos)

	return buf
}

// messageTweak encodes the epoch for the message hash.
func messageTweak(epoch uint32) []byte {
	buf := make([]byte, 5)
	buf[0] = sepMessage
	binary.LittleEndian.PutUint32(buf[1:5], epoch)

	return buf
}

// ChainStep advances a chain value by one position.
// pos is the position being left, so the tweak carries pos+1.
func ChainStep(param *Parameter, epoch uint32, chain, pos int, value Digest) Digest {
	return hash(param, chainTweak(epoch, chain, pos+1), value[:])
}

// Chain advances value by steps positions starting at position start.
func Chain(param *Parameter, epoch uint32, chain, start, steps int, value Digest) Digest {
	for i := 0; i < steps; i++ {
		value = ChainStep(param, epoch, chain, start+i, value)
	}

	return value
}

// LeafHash compresses the chain ends of a one-time key into its tree leaf.
func LeafHash(param *Parameter, epoch uint32, ends []Digest) Digest {
	inputs := make([][]byte, len(ends))
	for i := range ends {
		inputs[i] = ends[i][:]
	}

	return hash(param, treeTweak(0, uint64(epoch)), inputs...)
}

// NodeHash is the two-to-one compression combining children into the node
// at (level, pos). level counts from the leaves, which sit at level 0.
func NodeHash(param *Parameter, level int, pos uint64, left, right Digest) Digest {
	return hash(param, treeTweak(level, pos), left[:], right[:])
}

// RootFromPath hashes a leaf up through path. At each level the low bit of
// the running position selects the operand order: 0 puts the running node
// on the left, 1 on the right.
func RootFromPath(param *Parameter, epoch uint32, leaf Digest, path []Digest) Digest {
	node := leaf
	pos := uint64(epoch)

	for level, sibling := range path {
		if pos&1 == 0 {
			node = NodeHash(param, level+1, pos>>1, node, sibling)
		} else {
			node = NodeHash(param, level+1, pos>>1, sibling, node)
		}

		pos >>= 1
	}

	return node
}
