package script

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/Klingon-tech/bchgate/pkg/types"
)

// push encodes data as a minimal push for test scripts.
func push(data []byte) string {
	n := len(data)
	switch {
	case n <= int(OpData75):
		return hex.EncodeToString([]byte{byte(n)}) + hex.EncodeToString(data)
	case n <= 0xff:
		return hex.EncodeToString([]byte{OpPushData1, byte(n)}) + hex.EncodeToString(data)
	default:
		return hex.EncodeToString([]byte{OpPushData2, byte(n), byte(n >> 8)}) + hex.EncodeToString(data)
	}
}

func opReturnOutput(payload string) types.Output {
	return types.Output{ScriptPubKey: types.ScriptPubKey{Hex: "6a" + push([]byte(payload))}}
}

func p2pkhOutput(hash []byte) types.Output {
	return types.Output{ScriptPubKey: types.ScriptPubKey{Hex: "76a9" + push(hash) + "88ac"}}
}

func TestDecode_P2PKHUnlock(t *testing.T) {
	sig := bytes.Repeat([]byte{0x30}, 71)
	pub := append([]byte{0x02}, bytes.Repeat([]byte{0x11}, 32)...)

	tokens, err := Decode(push(sig) + push(pub))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tokens) != 2 {
		t.Fatalf("tokens = %d, want 2", len(tokens))
	}
	if !bytes.Equal(tokens[1].Data, pub) {
		t.Errorf("pubkey token = %x, want %x", tokens[1].Data, pub)
	}

	got, ok := UnlockPubKey(tokens)
	if !ok {
		t.Fatal("UnlockPubKey rejected a P2PKH unlock")
	}
	if !bytes.Equal(got, pub) {
		t.Errorf("UnlockPubKey = %x, want %x", got, pub)
	}
}

func TestDecode_PushData(t *testing.T) {
	data := bytes.Repeat([]byte{0xaa}, 80)
	tokens, err := Decode(push(data) + "ac")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(tokens) != 2 || tokens[0].Op != OpPushData1 || len(tokens[0].Data) != 80 {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
	if tokens[1].Op != OpCheckSig || tokens[1].IsPush() {
		t.Errorf("second token = %+v, want OP_CHECKSIG", tokens[1])
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"odd hex", "6a1"},
		{"not hex", "zz"},
		{"truncated push", "05aabb"},
		{"truncated pushdata1", "4c"},
		{"truncated pushdata2", "4d01"},
		{"truncated pushdata4", "4e010000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.hex)
			if !errors.Is(err, ErrDecode) {
				t.Errorf("Decode(%q) err = %v, want ErrDecode", tt.hex, err)
			}
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	tokens, err := Decode("")
	if err != nil {
		t.Fatalf("Decode empty: %v", err)
	}
	if len(tokens) != 0 {
		t.Errorf("tokens = %d, want 0", len(tokens))
	}
}

func TestASM_Roundtrip(t *testing.T) {
	hash := bytes.Repeat([]byte{0x42}, 20)
	tokens, err := Decode("76a9" + push(hash) + "88ac")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	asm := ASM(tokens)
	want := "OP_DUP OP_HASH160 " + hex.EncodeToString(hash) + " OP_EQUALVERIFY OP_CHECKSIG"
	if asm != want {
		t.Fatalf("ASM = %q, want %q", asm, want)
	}

	again, err := DecodeASM(asm)
	if err != nil {
		t.Fatalf("DecodeASM: %v", err)
	}
	if ASM(again) != asm {
		t.Errorf("asm roundtrip = %q, want %q", ASM(again), asm)
	}
}

func TestDecodeASM_ScriptNumbers(t *testing.T) {
	tests := []struct {
		field string
		data  string
	}{
		{"17", "11"},
		{"100", "64"},
		{"-100", "e4"},
		{"128", "8000"},
		{"-128", "8080"},
		{"1000", "e803"},
		{"2147483647", "ffffff7f"},
		{"-2147483647", "ffffffff"},
	}
	for _, tt := range tests {
		tokens, err := DecodeASM("OP_RETURN " + tt.field)
		if err != nil {
			t.Fatalf("DecodeASM(%s): %v", tt.field, err)
		}
		if len(tokens) != 2 || hex.EncodeToString(tokens[1].Data) != tt.data {
			t.Errorf("DecodeASM(%s) data = %x, want %s", tt.field, tokens[1].Data, tt.data)
			continue
		}
		if got := tokens[1].String(); got != tt.field {
			t.Errorf("String() = %s, want %s", got, tt.field)
		}
	}

	// Leading zeros and values past 32 bits are hex.
	tokens, err := DecodeASM("0011223344 2147483648")
	if err != nil {
		t.Fatalf("DecodeASM: %v", err)
	}
	if len(tokens[0].Data) != 5 || len(tokens[1].Data) != 5 {
		t.Errorf("hex fields decoded as %x, %x", tokens[0].Data, tokens[1].Data)
	}
}

func TestASM_ShortPushesAreDecimal(t *testing.T) {
	tokens, err := Decode("6a" + push([]byte{0xe8, 0x03}) + push([]byte{0x81}) + push([]byte("hello")))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got, want := ASM(tokens), "OP_RETURN 1000 -1 68656c6c6f"; got != want {
		t.Errorf("ASM = %q, want %q", got, want)
	}
}

func TestDecodeASM_UnknownOpcode(t *testing.T) {
	tokens, err := Decode("b0")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	asm := ASM(tokens)
	if asm != "OP_UNKNOWN_0xb0" {
		t.Fatalf("ASM = %q", asm)
	}
	again, err := DecodeASM(asm)
	if err != nil || len(again) != 1 || again[0].Op != 0xb0 {
		t.Errorf("DecodeASM(%s) = %v, %v", asm, again, err)
	}
	if _, err := DecodeASM("OP_UNKNOWN_0x14"); !errors.Is(err, ErrDecode) {
		t.Errorf("push opcode as unknown err = %v, want ErrDecode", err)
	}
}

func TestDecodeASM_SighashAnnotation(t *testing.T) {
	sig := strings.Repeat("30", 70)
	pub := "02" + strings.Repeat("11", 32)
	tokens, err := DecodeASM(sig + "[ALL|FORKID] " + pub)
	if err != nil {
		t.Fatalf("DecodeASM: %v", err)
	}
	got, ok := UnlockPubKey(tokens)
	if !ok {
		t.Fatal("UnlockPubKey rejected asm unlock")
	}
	if hex.EncodeToString(got) != pub {
		t.Errorf("pubkey = %x, want %s", got, pub)
	}
}

func TestDecodeASM_SmallIntsAndUnknown(t *testing.T) {
	tokens, err := DecodeASM("0 -1 1 16 OP_RETURN")
	if err != nil {
		t.Fatalf("DecodeASM: %v", err)
	}
	wantOps := []byte{Op0, Op1Negate, Op1, Op16, OpReturn}
	for i, op := range wantOps {
		if tokens[i].Op != op {
			t.Errorf("token %d op = %#x, want %#x", i, tokens[i].Op, op)
		}
	}
	if _, err := DecodeASM("OP_FROBNICATE"); !errors.Is(err, ErrDecode) {
		t.Errorf("unknown opcode err = %v, want ErrDecode", err)
	}
}

func TestUnlockPubKey_RejectsOtherShapes(t *testing.T) {
	sig := bytes.Repeat([]byte{0x30}, 71)
	pub := append([]byte{0x03}, bytes.Repeat([]byte{0x22}, 32)...)

	tests := []struct {
		name   string
		tokens []Token
	}{
		{"single push", []Token{{Op: 33, Data: pub}}},
		{"three pushes", []Token{{Op: 71, Data: sig}, {Op: 71, Data: sig}, {Op: 33, Data: pub}}},
		{"opcode instead of pubkey", []Token{{Op: 71, Data: sig}, {Op: OpCheckSig}}},
		{"bad pubkey prefix", []Token{{Op: 71, Data: sig}, {Op: 33, Data: append([]byte{0x05}, pub[1:]...)}}},
		{"pubkey wrong length", []Token{{Op: 71, Data: sig}, {Op: 20, Data: pub[:20]}}},
		{"empty signature", []Token{{Op: Op0, Data: []byte{}}, {Op: 33, Data: pub}}},
		{"signature too short", []Token{{Op: 8, Data: sig[:8]}, {Op: 33, Data: pub}}},
		{"signature too long", []Token{{Op: 74, Data: bytes.Repeat([]byte{0x30}, 74)}, {Op: 33, Data: pub}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := UnlockPubKey(tt.tokens); ok {
				t.Error("UnlockPubKey accepted a non-P2PKH unlock")
			}
		})
	}
}

func TestUnlockPubKey_SignatureBounds(t *testing.T) {
	pub := append([]byte{0x02}, bytes.Repeat([]byte{0x11}, 32)...)
	for _, n := range []int{9, 65, 73} {
		sig := bytes.Repeat([]byte{0x30}, n)
		if _, ok := UnlockPubKey([]Token{{Op: byte(n), Data: sig}, {Op: 33, Data: pub}}); !ok {
			t.Errorf("UnlockPubKey rejected a %d-byte signature", n)
		}
	}
}

func TestUnlockPubKey_Uncompressed(t *testing.T) {
	sig := bytes.Repeat([]byte{0x30}, 65)
	pub := append([]byte{0x04}, bytes.Repeat([]byte{0x33}, 64)...)
	if _, ok := UnlockPubKey([]Token{{Op: 65, Data: sig}, {Op: 65, Data: pub}}); !ok {
		t.Error("UnlockPubKey rejected an uncompressed key with a schnorr-sized signature")
	}
}

func TestExtractOpReturn_FirstOutputOnly(t *testing.T) {
	tx := &types.Transaction{Vout: []types.Output{
		p2pkhOutput(bytes.Repeat([]byte{0x01}, 20)),
		opReturnOutput(`{"cid":"ipfs://first"}`),
		opReturnOutput(`{"cid":"ipfs://second"}`),
	}}
	got, ok := ExtractOpReturn(tx)
	if !ok {
		t.Fatal("ExtractOpReturn found nothing")
	}
	if got != `{"cid":"ipfs://first"}` {
		t.Errorf("payload = %q", got)
	}
}

func TestExtractOpReturn_Absent(t *testing.T) {
	tx := &types.Transaction{Vout: []types.Output{p2pkhOutput(bytes.Repeat([]byte{0x01}, 20))}}
	if _, ok := ExtractOpReturn(tx); ok {
		t.Error("ExtractOpReturn reported a payload for a tx without OP_RETURN")
	}
	if _, ok := ExtractOpReturn(nil); ok {
		t.Error("ExtractOpReturn reported a payload for nil tx")
	}
}

func TestExtractOpReturn_LargePayload(t *testing.T) {
	payload := `{"mda":"bitcoincash:` + strings.Repeat("q", 90) + `"}`
	tx := &types.Transaction{Vout: []types.Output{opReturnOutput(payload)}}
	got, ok := ExtractOpReturn(tx)
	if !ok || got != payload {
		t.Errorf("ExtractOpReturn = %q, %v", got, ok)
	}
}

func TestExtractOpReturn_AsmOnly(t *testing.T) {
	payload := `{"cid":"ipfs://X"}`
	tx := &types.Transaction{Vout: []types.Output{{ScriptPubKey: types.ScriptPubKey{
		Asm: "OP_RETURN " + hex.EncodeToString([]byte(payload)),
	}}}}
	got, ok := ExtractOpReturn(tx)
	if !ok || got != payload {
		t.Errorf("ExtractOpReturn = %q, %v", got, ok)
	}
}

func TestExtractOpReturn_MalformedPush(t *testing.T) {
	tx := &types.Transaction{Vout: []types.Output{
		{ScriptPubKey: types.ScriptPubKey{Hex: "6a05aabb"}},
		opReturnOutput(`{"cid":"ipfs://later"}`),
	}}
	got, ok := ExtractOpReturn(tx)
	if !ok {
		t.Fatal("malformed OP_RETURN output should still count as the first OP_RETURN")
	}
	if got != "" {
		t.Errorf("payload = %q, want empty", got)
	}
}

func TestExtractOpReturn_HighBitStripped(t *testing.T) {
	tx := &types.Transaction{Vout: []types.Output{opReturnOutput(string([]byte{'a' | 0x80, 'b'}))}}
	got, _ := ExtractOpReturn(tx)
	if got != "ab" {
		t.Errorf("payload = %q, want %q", got, "ab")
	}
}

func TestLockAddressHash(t *testing.T) {
	hash := bytes.Repeat([]byte{0x42}, 20)

	tokens, err := Decode("76a9" + push(hash) + "88ac")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	kind, got, ok := LockAddressHash(tokens)
	if !ok || kind != LockP2PKH || !bytes.Equal(got, hash) {
		t.Errorf("P2PKH: kind=%d hash=%x ok=%v", kind, got, ok)
	}

	tokens, err = Decode("a9" + push(hash) + "87")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	kind, got, ok = LockAddressHash(tokens)
	if !ok || kind != LockP2SH || !bytes.Equal(got, hash) {
		t.Errorf("P2SH: kind=%d hash=%x ok=%v", kind, got, ok)
	}

	tokens, _ = Decode("6a" + push([]byte("hello")))
	if _, _, ok := LockAddressHash(tokens); ok {
		t.Error("OP_RETURN script recognized as an address template")
	}
}
