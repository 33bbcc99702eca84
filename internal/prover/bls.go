package prover

import (
	"fmt"

	blst "github.com/supranational/blst/bindings/go"
	"github.com/zeebo/blake3"
)

const (
	// BLSPublicKeySize is the size of a BLS public key in bytes.
	BLSPublicKeySize = 48

	// BLSSignatureSize is the size of a BLS signature in bytes.
	BLSSignatureSize = 96
)

// blsDST is the domain separation tag for BLS signatures.
var blsDST = []byte("BLS_SIG_BLS12381G2_XMD:SHA-256_SSWU_RO_NUL_")

// blsKeyContext binds attester keys to this use.
const blsKeyContext = "SigAgg attester bls keygen"

// signer holds a BLS private/public key pair.
type signer struct {
	secret *blst.SecretKey // secret is the private key
	public *blst.P1Affine  // public is the public key
}

// newSigner derives a deterministic BLS key pair from seed.
func newSigner(seed []byte) (*signer, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("empty attester seed")
	}

	var ikm [32]byte
	blake3.DeriveKey(blsKeyContext, seed, ikm[:])

	secret := blst.KeyGen(ikm[:])
	if secret == nil {
		return nil, fmt.Errorf("failed to generate BLS key")
	}

	return &signer{
		secret: secret,
		public: new(blst.P1Affine).From(secret),
	}, nil
}

// sign creates a BLS signature over message.
func (k *signer) sign(message []byte) []byte {
	sig := new(blst.P2Affine).Sign(k.secret, message, blsDST)
	return sig.Compress()
}

// publicKeyBytes returns the compressed public key.
func (k *signer) publicKeyBytes() []byte {
	return k.public.Compress()
}

// verifyBLS checks a BLS signature against a message and public key.
func verifyBLS(signature, message, publicKey []byte) bool {
	if len(signature) != BLSSignatureSize || len(publicKey) != BLSPublicKeySize {
		return false
	}

	sig := new(blst.P2Affine).Uncompress(signature)
	if sig == nil {
		return false
	}

	pk := new(blst.P1Affine).Uncompress(publicKey)
	if pk == nil {
		return false
	}

	return sig.Verify(true, pk, true, message, blsDST)
}
