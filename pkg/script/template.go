package script

import "github.com/Klingon-tech/bchgate/pkg/types"

// LockKind identifies a standard locking script template.
type LockKind uint8

const (
	LockUnknown LockKind = iota
	LockP2PKH
	LockP2SH
)

// Signature and public key sizes accepted in a P2PKH unlocking script.
// A signature is the shortest DER encoding (8 bytes) plus the sighash
// byte, up to 73 bytes. 65-byte Schnorr signatures fall inside the range.
const (
	minSigLen          = 9
	maxSigLen          = 73
	compressedPubLen   = 33
	uncompressedPubLen = 65
)

// UnlockPubKey returns the public key revealed by a single-signature
// unlocking script (<signature> <pubkey>). Any other shape is rejected.
// The signature itself is not verified.
func UnlockPubKey(tokens []Token) ([]byte, bool) {
	if len(tokens) != 2 || !tokens[0].IsPush() || !tokens[1].IsPush() {
		return nil, false
	}
	sig, pub := tokens[0].Data, tokens[1].Data
	if len(sig) < minSigLen || len(sig) > maxSigLen {
		return nil, false
	}
	switch {
	case len(pub) == compressedPubLen && (pub[0] == 0x02 || pub[0] == 0x03):
	case len(pub) == uncompressedPubLen && pub[0] == 0x04:
	default:
		return nil, false
	}
	return pub, true
}

// InputTokens decodes an input's unlocking script, preferring hex over asm.
func InputTokens(in types.Input) ([]Token, error) {
	if in.ScriptSig.Hex != "" {
		return Decode(in.ScriptSig.Hex)
	}
	return DecodeASM(in.ScriptSig.Asm)
}

// LockAddressHash recognizes P2PKH and P2SH locking scripts and returns
// the 20-byte hash they commit to.
func LockAddressHash(tokens []Token) (LockKind, []byte, bool) {
	switch {
	case len(tokens) == 5 &&
		tokens[0].Op == OpDup &&
		tokens[1].Op == OpHash160 &&
		tokens[2].Op == OpData20 &&
		tokens[3].Op == OpEqualVerify &&
		tokens[4].Op == OpCheckSig:
		return LockP2PKH, tokens[2].Data, true
	case len(tokens) == 3 &&
		tokens[0].Op == OpHash160 &&
		tokens[1].Op == OpData20 &&
		tokens[2].Op == OpEqual:
		return LockP2SH, tokens[1].Data, true
	}
	return LockUnknown, nil, false
}

// OutputTokens decodes an output's locking script, preferring hex over asm.
func OutputTokens(out types.Output) ([]Token, error) {
	return outputTokens(out.ScriptPubKey)
}
