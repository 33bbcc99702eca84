package strategy

import "SigAgg/internal/xmss"

// FabricatedPath is an authentication path whose siblings were sampled at
// random, together with the root it hashes up to.
type FabricatedPath struct {
	Path []xmss.Digest // Path holds one sampled sibling per level, leaf level first
	Root xmss.Digest   // Root is the fabricated public commitment
}

// FabricatePath samples logLifetime siblings from src and hashes the genuine
// leaf up through them. At level l the running node is the left child when
// bit l of epoch is 0 and the right child otherwise, the same convention
// xmss.RootFromPath uses, so the fabricated root verifies.
func FabricatePath(param *xmss.Parameter, epoch uint32, leaf xmss.Digest, logLifetime int, src *Stream) FabricatedPath {
	path := make([]xmss.Digest, logLifetime)
	node := leaf
	pos := uint64(epoch)

	for level := 0; level < logLifetime; level++ {
		sibling := src.Digest()
		path[level] = sibling

		if pos&1 == 0 {
			node = xmss.NodeHash(param, level+1, pos>>1, node, sibling)
		} else {
			node = xmss.NodeHash(param, level+1, pos>>1, sibling, node)
		}

		pos >>= 1
	}

	return FabricatedPath{Path: path, Root: node}
}
