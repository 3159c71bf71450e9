package cashaddr

import (
	"bytes"
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var vectorHash, _ = hex.DecodeString("f5bf48b397dae70be82b3cca4793f8eb2b6cdac9")

func TestEncode_KnownVectors(t *testing.T) {
	tests := []struct {
		prefix string
		typ    Type
		want   string
	}{
		{"bitcoincash", P2PKH, "bitcoincash:qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekg2"},
		{"bchtest", P2SH, "bchtest:pr6m7j9njldwwzlg9v7v53unlr4jkmx6eyvwc0uz5t"},
	}
	for _, tt := range tests {
		got, err := Encode(tt.prefix, tt.typ, vectorHash)
		if err != nil {
			t.Fatalf("Encode(%s): %v", tt.prefix, err)
		}
		if got != tt.want {
			t.Errorf("Encode(%s, %s) = %s, want %s", tt.prefix, tt.typ, got, tt.want)
		}
	}
}

func TestDecode_Roundtrip(t *testing.T) {
	addr := "bitcoincash:qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekg2"
	prefix, typ, hash, err := Decode(addr, "")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if prefix != "bitcoincash" || typ != P2PKH {
		t.Errorf("prefix=%q type=%s", prefix, typ)
	}
	if !bytes.Equal(hash, vectorHash) {
		t.Errorf("hash = %x, want %x", hash, vectorHash)
	}
}

func TestDecode_DefaultPrefixAndCase(t *testing.T) {
	upper := strings.ToUpper("qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekg2")
	prefix, _, hash, err := Decode(upper, "bitcoincash")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if prefix != "bitcoincash" || !bytes.Equal(hash, vectorHash) {
		t.Errorf("prefix=%q hash=%x", prefix, hash)
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		addr string
	}{
		{"empty", ""},
		{"mixed case", "bitcoincash:Qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekg2"},
		{"bad checksum", "bitcoincash:qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekg3"},
		{"wrong prefix for checksum", "bchtest:qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekg2"},
		{"invalid character", "bitcoincash:qr6m7j9njldwwzlg9v7v53unlr4jkmx6eylep8ekgb"},
		{"too short", "bitcoincash:qr6m7j9n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, _, err := Decode(tt.addr, ""); err == nil {
				t.Errorf("Decode(%q) should fail", tt.addr)
			}
		})
	}
}

func TestEncode_InvalidHashLength(t *testing.T) {
	if _, err := Encode("bitcoincash", P2PKH, make([]byte, 19)); err == nil {
		t.Error("expected error for 19-byte hash")
	}
	if _, err := Encode("", P2PKH, vectorHash); err == nil {
		t.Error("expected error for empty prefix")
	}
}

func TestNormalize(t *testing.T) {
	c := NewCodec(MainNet)
	want := "bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a"

	inputs := []string{
		want,
		"qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a",
		"BITCOINCASH:QPM2QSZNHKS23Z7629MMS6S4CWEF74VCWVY22GDX6A",
		"  " + want + "\n",
		"1BpEi6DfDAUFd7GtittLSdBeYJvcoaVggu",
	}
	for _, in := range inputs {
		got, err := c.Normalize(in)
		if err != nil {
			t.Errorf("Normalize(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("Normalize(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestNormalize_Rejects(t *testing.T) {
	c := NewCodec(MainNet)
	inputs := []string{
		"",
		"bchtest:pr6m7j9njldwwzlg9v7v53unlr4jkmx6eyvwc0uz5t",
		"1BpEi6DfDAUFd7GtittLSdBeYJvcoaVggv",
		"not an address",
	}
	for _, in := range inputs {
		if _, err := c.Normalize(in); !errors.Is(err, ErrInvalidAddress) {
			t.Errorf("Normalize(%q) err = %v, want ErrInvalidAddress", in, err)
		}
	}
}

func TestLegacy_Roundtrip(t *testing.T) {
	c := NewCodec(MainNet)
	got, err := c.Legacy("bitcoincash:qpm2qsznhks23z7629mms6s4cwef74vcwvy22gdx6a")
	if err != nil {
		t.Fatalf("Legacy: %v", err)
	}
	if got != "1BpEi6DfDAUFd7GtittLSdBeYJvcoaVggu" {
		t.Errorf("Legacy = %s", got)
	}
}

func TestPubKeyToAddress_GeneratorPoint(t *testing.T) {
	pub, _ := hex.DecodeString("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	got, err := NewCodec(MainNet).PubKeyToAddress(pub)
	if err != nil {
		t.Fatalf("PubKeyToAddress: %v", err)
	}
	if got != "bitcoincash:qp63uahgrxged4z5jswyt5dn5v3lzsem6cy4spdc2h" {
		t.Errorf("PubKeyToAddress = %s", got)
	}
}

func TestPubKeyToAddress_CompressedVsUncompressed(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	c := NewCodec(TestNet)
	comp, err := c.PubKeyToAddress(key.PubKey().SerializeCompressed())
	if err != nil {
		t.Fatalf("compressed: %v", err)
	}
	uncomp, err := c.PubKeyToAddress(key.PubKey().SerializeUncompressed())
	if err != nil {
		t.Fatalf("uncompressed: %v", err)
	}
	if comp == uncomp {
		t.Error("compressed and uncompressed keys should derive different addresses")
	}
	if !strings.HasPrefix(comp, "bchtest:q") {
		t.Errorf("address %s should be a testnet P2PKH cashaddr", comp)
	}
}

func TestPubKeyToAddress_NotOnCurve(t *testing.T) {
	bad := append([]byte{0x02}, bytes.Repeat([]byte{0xff}, 32)...)
	if _, err := NewCodec(MainNet).PubKeyToAddress(bad); err == nil {
		t.Error("expected error for a point not on the curve")
	}
}

func TestParamsFor(t *testing.T) {
	p, err := ParamsFor("testnet")
	if err != nil || p.Prefix != "bchtest" {
		t.Errorf("ParamsFor(testnet) = %+v, %v", p, err)
	}
	if _, err := ParamsFor("litecoin"); err == nil {
		t.Error("expected error for unknown network")
	}
}
