package cashaddr

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ErrInvalidAddress is returned when an address cannot be normalized.
var ErrInvalidAddress = errors.New("invalid address")

// Params holds the per-network address parameters.
type Params struct {
	Name         string
	Prefix       string
	LegacyPubKey byte
	LegacyScript byte
}

// Network parameters.
var (
	MainNet = Params{Name: "mainnet", Prefix: "bitcoincash", LegacyPubKey: 0x00, LegacyScript: 0x05}
	TestNet = Params{Name: "testnet", Prefix: "bchtest", LegacyPubKey: 0x6f, LegacyScript: 0xc4}
	RegTest = Params{Name: "regtest", Prefix: "bchreg", LegacyPubKey: 0x6f, LegacyScript: 0xc4}
)

// ParamsFor returns the parameters for a network name.
func ParamsFor(network string) (Params, error) {
	switch strings.ToLower(network) {
	case "mainnet", "main", "":
		return MainNet, nil
	case "testnet", "test", "testnet3", "testnet4", "chipnet":
		return TestNet, nil
	case "regtest":
		return RegTest, nil
	default:
		return Params{}, fmt.Errorf("unknown network %q", network)
	}
}

// Codec normalizes addresses for one network. It holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	params Params
}

// NewCodec creates a codec for the given network parameters.
func NewCodec(params Params) *Codec {
	return &Codec{params: params}
}

// Params returns the codec's network parameters.
func (c *Codec) Params() Params {
	return c.params
}

// Normalize accepts a cashaddr (with or without prefix, any single case)
// or a legacy base58check address and returns the lowercase prefixed
// cashaddr. Addresses for another network are rejected.
func (c *Codec) Normalize(addr string) (string, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidAddress)
	}

	if t, hash, err := c.decodeLegacy(addr); err == nil {
		return Encode(c.params.Prefix, t, hash)
	}

	prefix, t, hash, err := Decode(addr, c.params.Prefix)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if prefix != c.params.Prefix {
		return "", fmt.Errorf("%w: prefix %q does not match network %s", ErrInvalidAddress, prefix, c.params.Name)
	}
	if t != P2PKH && t != P2SH {
		return "", fmt.Errorf("%w: unsupported address type %d", ErrInvalidAddress, t)
	}
	return Encode(c.params.Prefix, t, hash)
}

// FromHash encodes a 20-byte hash as a cashaddr on the codec's network.
func (c *Codec) FromHash(t Type, hash []byte) (string, error) {
	return Encode(c.params.Prefix, t, hash)
}

// Legacy returns the base58check form of a cashaddr on the codec's network.
func (c *Codec) Legacy(addr string) (string, error) {
	prefix, t, hash, err := Decode(addr, c.params.Prefix)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if prefix != c.params.Prefix || len(hash) != 20 {
		return "", fmt.Errorf("%w: not a %s address", ErrInvalidAddress, c.params.Name)
	}
	version := c.params.LegacyPubKey
	if t == P2SH {
		version = c.params.LegacyScript
	}
	payload := append([]byte{version}, hash...)
	sum := doubleSHA256(payload)
	return base58.Encode(append(payload, sum[:4]...)), nil
}

// decodeLegacy parses a base58check address for the codec's network.
func (c *Codec) decodeLegacy(addr string) (Type, []byte, error) {
	raw, err := base58.Decode(addr)
	if err != nil {
		return 0, nil, err
	}
	if len(raw) != 25 {
		return 0, nil, fmt.Errorf("legacy address must be 25 bytes, got %d", len(raw))
	}
	sum := doubleSHA256(raw[:21])
	if !bytes.Equal(sum[:4], raw[21:]) {
		return 0, nil, fmt.Errorf("legacy address checksum mismatch")
	}
	switch raw[0] {
	case c.params.LegacyPubKey:
		return P2PKH, raw[1:21], nil
	case c.params.LegacyScript:
		return P2SH, raw[1:21], nil
	default:
		return 0, nil, fmt.Errorf("legacy version %#02x not valid for %s", raw[0], c.params.Name)
	}
}

func doubleSHA256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}
