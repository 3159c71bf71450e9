// Package script decodes the two Bitcoin Cash script conventions the
// resolvers rely on: P2PKH unlocking scripts and single-push OP_RETURN
// outputs. It is a tokenizer, not an interpreter.
package script

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrDecode is returned for malformed script hex or truncated pushes.
var ErrDecode = errors.New("script: decode error")

// Token is one decoded script element. Push tokens carry their data
// (empty for OP_0); other tokens carry only the opcode.
type Token struct {
	Op   byte
	Data []byte
}

// IsPush reports whether the token pushes data onto the stack.
func (t Token) IsPush() bool {
	return t.Op <= OpPushData4
}

// String renders the token the way the node renders asm: pushes of
// up to four bytes as decimal script numbers, longer pushes as hex.
func (t Token) String() string {
	if t.IsPush() {
		switch {
		case len(t.Data) == 0:
			return "0"
		case len(t.Data) <= maxScriptNumLen:
			return strconv.FormatInt(scriptNumValue(t.Data), 10)
		}
		return hex.EncodeToString(t.Data)
	}
	return OpName(t.Op)
}

// Decode tokenizes a hex-encoded script.
func Decode(scriptHex string) ([]Token, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(scriptHex))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return DecodeBytes(raw)
}

// DecodeBytes tokenizes a raw script.
func DecodeBytes(raw []byte) ([]Token, error) {
	var tokens []Token
	for i := 0; i < len(raw); {
		op := raw[i]
		i++

		var n int
		switch {
		case op == Op0:
			tokens = append(tokens, Token{Op: op, Data: []byte{}})
			continue
		case op <= OpData75:
			n = int(op)
		case op == OpPushData1:
			if i+1 > len(raw) {
				return nil, fmt.Errorf("%w: truncated OP_PUSHDATA1 at %d", ErrDecode, i-1)
			}
			n = int(raw[i])
			i++
		case op == OpPushData2:
			if i+2 > len(raw) {
				return nil, fmt.Errorf("%w: truncated OP_PUSHDATA2 at %d", ErrDecode, i-1)
			}
			n = int(binary.LittleEndian.Uint16(raw[i:]))
			i += 2
		case op == OpPushData4:
			if i+4 > len(raw) {
				return nil, fmt.Errorf("%w: truncated OP_PUSHDATA4 at %d", ErrDecode, i-1)
			}
			n = int(binary.LittleEndian.Uint32(raw[i:]))
			i += 4
		default:
			tokens = append(tokens, Token{Op: op})
			continue
		}

		if n < 0 || i+n > len(raw) {
			return nil, fmt.Errorf("%w: push of %d bytes exceeds script length", ErrDecode, n)
		}
		data := make([]byte, n)
		copy(data, raw[i:i+n])
		tokens = append(tokens, Token{Op: op, Data: data})
		i += n
	}
	return tokens, nil
}

// DecodeASM tokenizes the node's asm rendering of a script. Sighash
// annotations such as "[ALL|FORKID]" are dropped from signatures.
//
// The node prints pushes of up to four bytes as decimal numbers, so an
// all-digit field in the 32-bit script number range is read as one.
// A five-byte push whose hex happens to be such a number is therefore
// decoded as the four-byte number; the rendering is the same either way.
func DecodeASM(asm string) ([]Token, error) {
	fields := strings.Fields(asm)
	tokens := make([]Token, 0, len(fields))
	for _, f := range fields {
		if idx := strings.IndexByte(f, '['); idx >= 0 {
			f = f[:idx]
		}
		switch {
		case f == "0":
			tokens = append(tokens, Token{Op: Op0, Data: []byte{}})
		case f == "-1":
			tokens = append(tokens, Token{Op: Op1Negate})
		case isSmallInt(f):
			n, _ := strconv.Atoi(f)
			tokens = append(tokens, Token{Op: Op1 + byte(n) - 1})
		case isScriptNum(f):
			n, _ := strconv.ParseInt(f, 10, 64)
			data := scriptNum(n)
			tokens = append(tokens, Token{Op: pushOpFor(len(data)), Data: data})
		case strings.HasPrefix(f, unknownOpPrefix):
			op, err := strconv.ParseUint(f[len(unknownOpPrefix):], 16, 8)
			if err != nil || byte(op) <= OpPushData4 {
				return nil, fmt.Errorf("%w: unknown opcode %s", ErrDecode, f)
			}
			tokens = append(tokens, Token{Op: byte(op)})
		case strings.HasPrefix(f, "OP_"):
			op, ok := opByName[f]
			if !ok {
				return nil, fmt.Errorf("%w: unknown opcode %s", ErrDecode, f)
			}
			tokens = append(tokens, Token{Op: op})
		default:
			data, err := hex.DecodeString(f)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrDecode, err)
			}
			tokens = append(tokens, Token{Op: pushOpFor(len(data)), Data: data})
		}
	}
	return tokens, nil
}

// isSmallInt matches the asm rendering of OP_1 through OP_16.
func isSmallInt(f string) bool {
	if len(f) > 2 {
		return false
	}
	n, err := strconv.Atoi(f)
	return err == nil && n >= 1 && n <= 16
}

// maxScriptNumLen is the longest push the node renders as a number.
const maxScriptNumLen = 4

// isScriptNum matches a decimal script number as printed in asm.
func isScriptNum(f string) bool {
	digits := strings.TrimPrefix(f, "-")
	if digits == "" || len(digits) > 10 || (digits[0] == '0' && len(digits) > 1) {
		return false
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return false
		}
	}
	n, err := strconv.ParseInt(f, 10, 64)
	return err == nil && n >= -math.MaxInt32 && n <= math.MaxInt32
}

// scriptNum encodes n as a minimal little-endian sign-magnitude number.
func scriptNum(n int64) []byte {
	if n == 0 {
		return []byte{}
	}
	neg := n < 0
	abs := uint64(n)
	if neg {
		abs = uint64(-n)
	}
	var out []byte
	for ; abs > 0; abs >>= 8 {
		out = append(out, byte(abs))
	}
	switch {
	case out[len(out)-1]&0x80 != 0 && neg:
		out = append(out, 0x80)
	case out[len(out)-1]&0x80 != 0:
		out = append(out, 0x00)
	case neg:
		out[len(out)-1] |= 0x80
	}
	return out
}

// scriptNumValue decodes a little-endian sign-magnitude number of at
// most maxScriptNumLen bytes.
func scriptNumValue(b []byte) int64 {
	var v int64
	for i, c := range b {
		v |= int64(c) << (8 * i)
	}
	last := len(b) - 1
	if b[last]&0x80 != 0 {
		return -(v &^ (int64(0x80) << (8 * last)))
	}
	return v
}

func pushOpFor(n int) byte {
	switch {
	case n <= int(OpData75):
		return byte(n)
	case n <= 0xff:
		return OpPushData1
	case n <= 0xffff:
		return OpPushData2
	default:
		return OpPushData4
	}
}

// ASM renders tokens as a space separated asm string.
func ASM(tokens []Token) string {
	parts := make([]string, len(tokens))
	for i, t := range tokens {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
