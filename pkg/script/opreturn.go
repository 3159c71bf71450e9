package script

import (
	"encoding/hex"

	"github.com/Klingon-tech/bchgate/pkg/types"
)

// ExtractOpReturn returns the payload of the first OP_RETURN output of tx,
// decoded as 7-bit ASCII. Only the push immediately following OP_RETURN is
// considered. The second return value is false when tx has no OP_RETURN
// output; an OP_RETURN output without a readable push yields ("", true).
func ExtractOpReturn(tx *types.Transaction) (string, bool) {
	if tx == nil {
		return "", false
	}
	for _, out := range tx.Vout {
		tokens, err := outputTokens(out.ScriptPubKey)
		if err != nil {
			if startsWithOpReturn(out.ScriptPubKey.Hex) {
				return "", true
			}
			continue
		}
		if len(tokens) == 0 || tokens[0].Op != OpReturn {
			continue
		}
		if len(tokens) < 2 || !tokens[1].IsPush() {
			return "", true
		}
		return ascii(tokens[1].Data), true
	}
	return "", false
}

// outputTokens prefers the script hex and falls back to asm for
// indexers that only report the latter.
func outputTokens(spk types.ScriptPubKey) ([]Token, error) {
	if spk.Hex != "" {
		return Decode(spk.Hex)
	}
	return DecodeASM(spk.Asm)
}

func startsWithOpReturn(scriptHex string) bool {
	if len(scriptHex) < 2 {
		return false
	}
	b, err := hex.DecodeString(scriptHex[:2])
	return err == nil && b[0] == OpReturn
}

func ascii(data []byte) string {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b & 0x7f
	}
	return string(out)
}
