package iso7816

import (
	"fmt"

	"github.com/gregLibert/emvtap/pkg/bits"
)

// Instruction Byte (INS) according to ISO/IEC 7816-4 and EMV Book 3.
//
// INS values whose upper nibble is '6' or '9' are invalid: they are reserved
// for SW1 and transport procedures (ISO/IEC 7816-3). When bit 1 is set on an
// interindustry instruction the data field is BER-TLV encoded.

// Instruction is the raw INS byte.
type Instruction byte

const (
	INS_VERIFY                    Instruction = 0x20
	INS_EXTERNAL_AUTHENTICATE     Instruction = 0x82
	INS_GET_CHALLENGE             Instruction = 0x84
	INS_INTERNAL_AUTHENTICATE     Instruction = 0x88
	INS_SELECT                    Instruction = 0xA4
	INS_GET_PROCESSING_OPTIONS    Instruction = 0xA8
	INS_GENERATE_APPLICATION_CRYP Instruction = 0xAE
	INS_READ_BINARY               Instruction = 0xB0
	INS_READ_RECORD               Instruction = 0xB2
	INS_GET_RESPONSE              Instruction = 0xC0
	INS_GET_DATA                  Instruction = 0xCA
)

var instructionNames = map[Instruction]string{
	INS_VERIFY:                    "VERIFY",
	INS_EXTERNAL_AUTHENTICATE:     "EXTERNAL AUTHENTICATE",
	INS_GET_CHALLENGE:             "GET CHALLENGE",
	INS_INTERNAL_AUTHENTICATE:     "INTERNAL AUTHENTICATE",
	INS_SELECT:                    "SELECT",
	INS_GET_PROCESSING_OPTIONS:    "GET PROCESSING OPTIONS",
	INS_GENERATE_APPLICATION_CRYP: "GENERATE AC",
	INS_READ_BINARY:               "READ BINARY",
	INS_READ_RECORD:               "READ RECORD",
	INS_GET_RESPONSE:              "GET RESPONSE",
	INS_GET_DATA:                  "GET DATA",
}

// NewInstruction validates a raw INS byte.
func NewInstruction(ins byte) (Instruction, error) {
	highNibble := bits.HighNibble(ins)
	if highNibble == 0x6 || highNibble == 0x9 {
		return 0, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", ins)
	}
	return Instruction(ins), nil
}

// IsBERTLV reports whether bit 1 flags a BER-TLV data field.
func (i Instruction) IsBERTLV() bool {
	return bits.IsSet(byte(i), 1)
}

func (i Instruction) String() string {
	if name, ok := instructionNames[i]; ok {
		return name
	}
	return fmt.Sprintf("INS(%02X)", byte(i))
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	return fmt.Sprintf("INS: 0x%02X | Command: %s", byte(i), i)
}
