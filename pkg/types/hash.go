// Package types defines the wire types shared by the node and indexer clients.
package types

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// HashSize is the length of a transaction or token hash in bytes.
const HashSize = 32

// Hash represents a 256-bit hash value in the byte order the node prints it.
type Hash [HashSize]byte

// TokenID identifies an SLP token by its genesis transaction hash.
type TokenID Hash

// IsZero returns true if the hash is all zeros.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// String returns the hex-encoded hash.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HexToHash converts a hex string to a Hash.
// Returns an error if the string is not exactly 64 hex characters.
func HexToHash(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != HashSize {
		return Hash{}, fmt.Errorf("hash must be %d bytes, got %d", HashSize, len(b))
	}
	var h Hash
	copy(h[:], b)
	return h, nil
}

// ParseTxID validates a transaction id and returns it lowercased.
func ParseTxID(s string) (string, error) {
	h, err := HexToHash(strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("invalid txid: %w", err)
	}
	return h.String(), nil
}

// ParseTokenID validates a token id (genesis txid).
func ParseTokenID(s string) (TokenID, error) {
	h, err := HexToHash(strings.TrimSpace(s))
	if err != nil {
		return TokenID{}, fmt.Errorf("invalid token id: %w", err)
	}
	return TokenID(h), nil
}

// String returns the hex-encoded token ID.
func (t TokenID) String() string {
	return Hash(t).String()
}
