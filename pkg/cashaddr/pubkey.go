package cashaddr

import (
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // hash160 is defined with RIPEMD-160.
)

// Hash160 computes RIPEMD160(SHA256(b)).
func Hash160(b []byte) []byte {
	sh := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sh[:])
	return h.Sum(nil)
}

// PubKeyToAddress derives the P2PKH cashaddr controlled by a serialized
// public key. The key must be a valid secp256k1 point; compressed and
// uncompressed serializations hash to different addresses.
func (c *Codec) PubKeyToAddress(pubKey []byte) (string, error) {
	if _, err := secp256k1.ParsePubKey(pubKey); err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return Encode(c.params.Prefix, P2PKH, Hash160(pubKey))
}
