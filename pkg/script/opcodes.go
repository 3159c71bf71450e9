package script

import "fmt"

// Opcodes referenced by the decoder and the templates it recognizes.
const (
	Op0           byte = 0x00
	OpData20      byte = 0x14
	OpData75      byte = 0x4b
	OpPushData1   byte = 0x4c
	OpPushData2   byte = 0x4d
	OpPushData4   byte = 0x4e
	Op1Negate     byte = 0x4f
	OpReserved    byte = 0x50
	Op1           byte = 0x51
	Op16          byte = 0x60
	OpNop         byte = 0x61
	OpVerify      byte = 0x69
	OpReturn      byte = 0x6a
	OpDup         byte = 0x76
	OpEqual       byte = 0x87
	OpEqualVerify byte = 0x88
	OpHash160     byte = 0xa9
	OpCheckSig    byte = 0xac
	OpCheckSigVfy byte = 0xad
	OpCheckMulti  byte = 0xae
)

var opNames = map[byte]string{
	OpReserved:    "OP_RESERVED",
	OpNop:         "OP_NOP",
	OpVerify:      "OP_VERIFY",
	OpReturn:      "OP_RETURN",
	OpDup:         "OP_DUP",
	OpEqual:       "OP_EQUAL",
	OpEqualVerify: "OP_EQUALVERIFY",
	OpHash160:     "OP_HASH160",
	OpCheckSig:    "OP_CHECKSIG",
	OpCheckSigVfy: "OP_CHECKSIGVERIFY",
	OpCheckMulti:  "OP_CHECKMULTISIG",
}

// unknownOpPrefix renders opcodes without a mnemonic.
const unknownOpPrefix = "OP_UNKNOWN_0x"

var opByName map[string]byte

func init() {
	opByName = make(map[string]byte, len(opNames))
	for op, name := range opNames {
		opByName[name] = op
	}
}

// OpName returns the asm mnemonic for a non-push opcode.
func OpName(op byte) string {
	switch {
	case op == Op1Negate:
		return "-1"
	case op >= Op1 && op <= Op16:
		return fmt.Sprintf("%d", op-Op1+1)
	}
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("%s%02x", unknownOpPrefix, op)
}
