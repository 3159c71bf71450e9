// Package cashaddr implements the Bitcoin Cash address codec: cashaddr
// encoding and decoding, normalization of user supplied addresses
// (cashaddr with or without prefix, legacy base58check), and derivation
// of a P2PKH address from a public key.
package cashaddr

import (
	"fmt"
	"strings"
)

// charset is shared with bech32.
const charset = "qpzry9x8gf2tvdw0s3jn54khce6mua7l"

// charsetRev maps charset characters to their 5-bit values. -1 = invalid.
var charsetRev [128]int8

func init() {
	for i := range charsetRev {
		charsetRev[i] = -1
	}
	for i, c := range charset {
		charsetRev[c] = int8(i)
	}
}

// Type is the address type carried in the version byte.
type Type byte

const (
	P2PKH Type = 0
	P2SH  Type = 1
)

// String returns a human-readable name for the address type.
func (t Type) String() string {
	switch t {
	case P2PKH:
		return "P2PKH"
	case P2SH:
		return "P2SH"
	default:
		return "Unknown"
	}
}

// hash sizes indexed by the version byte's size code.
var hashSizes = [8]int{20, 24, 28, 32, 40, 48, 56, 64}

// checksumLen is the number of 5-bit checksum groups.
const checksumLen = 8

// Encode encodes a hash of the given type as "prefix:payload".
func Encode(prefix string, t Type, hash []byte) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("cashaddr: empty prefix")
	}
	sizeCode := -1
	for i, n := range hashSizes {
		if n == len(hash) {
			sizeCode = i
			break
		}
	}
	if sizeCode < 0 {
		return "", fmt.Errorf("cashaddr: invalid hash length %d", len(hash))
	}
	if t > 15 {
		return "", fmt.Errorf("cashaddr: invalid type %d", t)
	}

	payload := make([]byte, 0, 1+len(hash))
	payload = append(payload, byte(t)<<3|byte(sizeCode))
	payload = append(payload, hash...)

	conv, err := convertBits(payload, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("cashaddr: convert bits: %w", err)
	}
	prefix = strings.ToLower(prefix)
	chk := createChecksum(prefix, conv)

	var sb strings.Builder
	sb.Grow(len(prefix) + 1 + len(conv) + checksumLen)
	sb.WriteString(prefix)
	sb.WriteByte(':')
	for _, b := range conv {
		sb.WriteByte(charset[b])
	}
	for _, b := range chk {
		sb.WriteByte(charset[b])
	}
	return sb.String(), nil
}

// Decode parses a cashaddr string. When the string carries no prefix,
// defaultPrefix is used for checksum verification.
func Decode(s, defaultPrefix string) (prefix string, t Type, hash []byte, err error) {
	if s == "" {
		return "", 0, nil, fmt.Errorf("cashaddr: empty string")
	}

	hasUpper, hasLower := false, false
	for _, c := range s {
		if c >= 'A' && c <= 'Z' {
			hasUpper = true
		}
		if c >= 'a' && c <= 'z' {
			hasLower = true
		}
	}
	if hasUpper && hasLower {
		return "", 0, nil, fmt.Errorf("cashaddr: mixed case")
	}
	s = strings.ToLower(s)

	payloadStr := s
	prefix = strings.ToLower(defaultPrefix)
	if idx := strings.LastIndexByte(s, ':'); idx >= 0 {
		prefix = s[:idx]
		payloadStr = s[idx+1:]
	}
	if prefix == "" {
		return "", 0, nil, fmt.Errorf("cashaddr: missing prefix")
	}
	if len(payloadStr) <= checksumLen {
		return "", 0, nil, fmt.Errorf("cashaddr: too short")
	}

	data5 := make([]byte, len(payloadStr))
	for i, c := range payloadStr {
		if c > 127 || charsetRev[c] < 0 {
			return "", 0, nil, fmt.Errorf("cashaddr: invalid character %q", c)
		}
		data5[i] = byte(charsetRev[c])
	}

	if !verifyChecksum(prefix, data5) {
		return "", 0, nil, fmt.Errorf("cashaddr: invalid checksum")
	}

	data8, err := convertBits(data5[:len(data5)-checksumLen], 5, 8, false)
	if err != nil {
		return "", 0, nil, fmt.Errorf("cashaddr: convert bits: %w", err)
	}
	if len(data8) == 0 {
		return "", 0, nil, fmt.Errorf("cashaddr: empty payload")
	}

	version := data8[0]
	if version&0x80 != 0 {
		return "", 0, nil, fmt.Errorf("cashaddr: reserved version bit set")
	}
	hash = data8[1:]
	if want := hashSizes[version&0x07]; len(hash) != want {
		return "", 0, nil, fmt.Errorf("cashaddr: hash length %d does not match version (%d)", len(hash), want)
	}
	return prefix, Type(version >> 3), hash, nil
}

// polymod computes the 40-bit cashaddr checksum polynomial.
func polymod(values []byte) uint64 {
	gen := [5]uint64{0x98f2bc8e61, 0x79b76d99e2, 0xf33e5fb3c4, 0xae2eabe2a8, 0x1e4f43e470}
	c := uint64(1)
	for _, v := range values {
		c0 := c >> 35
		c = (c&0x07ffffffff)<<5 ^ uint64(v)
		for i := 0; i < 5; i++ {
			if (c0>>uint(i))&1 == 1 {
				c ^= gen[i]
			}
		}
	}
	return c ^ 1
}

// prefixExpand maps the prefix to its lower 5 bits followed by a zero separator.
func prefixExpand(prefix string) []byte {
	ret := make([]byte, 0, len(prefix)+1)
	for _, c := range prefix {
		ret = append(ret, byte(c)&0x1f)
	}
	return append(ret, 0)
}

func createChecksum(prefix string, data []byte) []byte {
	values := append(prefixExpand(prefix), data...)
	values = append(values, make([]byte, checksumLen)...)
	mod := polymod(values)
	ret := make([]byte, checksumLen)
	for i := 0; i < checksumLen; i++ {
		ret[i] = byte((mod >> uint(5*(checksumLen-1-i))) & 31)
	}
	return ret
}

func verifyChecksum(prefix string, data []byte) bool {
	return polymod(append(prefixExpand(prefix), data...)) == 0
}

// convertBits converts between bit groups.
// fromBits/toBits are the source/destination group sizes (e.g. 8 and 5).
// pad controls whether incomplete groups are zero-padded.
func convertBits(data []byte, fromBits, toBits uint, pad bool) ([]byte, error) {
	acc := uint32(0)
	bits := uint(0)
	maxv := uint32((1 << toBits) - 1)
	var ret []byte

	for _, b := range data {
		if uint32(b)>>fromBits != 0 {
			return nil, fmt.Errorf("invalid data byte: %d", b)
		}
		acc = acc<<fromBits | uint32(b)
		bits += fromBits
		for bits >= toBits {
			bits -= toBits
			ret = append(ret, byte((acc>>bits)&maxv))
		}
	}

	if pad {
		if bits > 0 {
			ret = append(ret, byte((acc<<(toBits-bits))&maxv))
		}
	} else {
		if bits >= fromBits {
			return nil, fmt.Errorf("non-zero padding")
		}
		if (acc<<(toBits-bits))&maxv != 0 {
			return nil, fmt.Errorf("non-zero padding")
		}
	}

	return ret, nil
}
