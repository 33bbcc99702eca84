package xmss

// Encode maps a message to its Winternitz chunks followed by checksum chunks.
// Chunks are read least significant bits first.
func Encode(param *Parameter, epoch uint32, rho *Randomness, msg *Message) [NumChains]uint8 {
	var out [NumChains]uint8

	digest := hash(param, messageTweak(epoch), rho[:], msg[:])
	perByte := 8 / ChunkBits
	mask := byte(Base - 1)

	checksum := 0
	for i := 0; i < NumChunks; i++ {
		shift := uint((i % perByte) * ChunkBits)
		x := (digest[i/perByte] >> shift) & mask
		out[i] = x
		checksum += Base - 1 - int(x)
	}

	for i := 0; i < NumChecksumChunks; i++ {
		out[NumChunks+i] = uint8(checksum & (Base - 1))
		checksum >>= ChunkBits
	}

	return out
}

// OneTimeKey is the secret chain starts of the Winternitz key for one epoch.
type OneTimeKey struct {
	Epoch  uint32            // Epoch is the leaf this key belongs to
	Starts [NumChains]Digest // Starts are the secret chain start values
}

// ChainEnds walks every chain to its last position.
func (k *OneTimeKey) ChainEnds(param *Parameter) []Digest {
	ends := make([]Digest, NumChains)

	for i := range ends {
		ends[i] = Chain(param, k.Epoch, i, 0, Base-1, k.Starts[i])
	}

	return ends
}

// Leaf returns the tree leaf committed to by this one-time key.
func (k *OneTimeKey) Leaf(param *Parameter) Digest {
	return LeafHash(param, k.Epoch, k.ChainEnds(param))
}

// Sign returns the chain values revealing the encoding of msg.
func (k *OneTimeKey) Sign(param *Parameter, rho *Randomness, msg *Message) []Digest {
	encoding := Encode(param, k.Epoch, rho, msg)
	hashes := make([]Digest, NumChains)

	for i := range hashes {
		hashes[i] = Chain(param, k.Epoch, i, 0, int(encoding[i]), k.Starts[i])
	}

	return hashes
}

// Verify checks sig for msg at epoch against pk.
func Verify(params Params, pk *PublicKey, epoch uint32, msg *Message, sig *Signature) bool {
	if params.Validate() != nil {
		return false
	}

	if uint64(epoch) >= params.Lifetime() {
		return false
	}

	if len(sig.Path) != params.LogLifetime || len(sig.Hashes) != NumChains {
		return false
	}

	encoding := Encode(&pk.Parameter, epoch, &sig.Rho, msg)
	ends := make([]Digest, NumChains)

	for i := range ends {
		x := int(encoding[i])
		ends[i] = Chain(&pk.Parameter, epoch, i, x, Base-1-x, sig.Hashes[i])
	}

	leaf := LeafHash(&pk.Parameter, epoch, ends)

	return RootFromPath(&pk.Parameter, epoch, leaf, sig.Path) == pk.Root
}
