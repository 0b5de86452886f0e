package iso7816

import (
	"bytes"
	"fmt"
)

// APDU (Application Protocol Data Unit) structures and encodings according to ISO/IEC 7816-3 and 7816-4.
//
// COMMAND APDU (C-APDU):
// A command consists of a mandatory Header (4 bytes) and an optional Body.
//
// 1. Header:
//   - CLA (Class): Interindustry (00) or proprietary (80, used by EMV payment commands).
//   - INS (Instruction): The specific command to execute.
//   - P1, P2 (Parameters): Command modifiers.
//
// 2. Body:
//   - Lc (Length Command): Number of bytes in the data field.
//   - Data: The command payload.
//   - Le (Length Expected): Maximum number of bytes expected in the response.
//
// ENCODING CASES (ISO 7816-3):
// - Case 1: No Data, No Response (Header only).
// - Case 2: No Data, Response Expected (Header + Le).
// - Case 3: Data Present, No Response (Header + Lc + Data).
// - Case 4: Data Present, Response Expected (Header + Lc + Data + Le).
//
// LENGTH MODES:
//   - Short Length: Lc/Le encoded on 1 byte (Max 255/256).
//   - Extended Length: Lc/Le encoded on multiple bytes (Max 65535/65536).
//     Extended mode is triggered if Lc > 255 or Le > 256.
//
// RESPONSE APDU (R-APDU):
// Optional data followed by the mandatory 2-byte trailer SW1-SW2.

// APDU Limits and Constants according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in Short Length mode (1 byte).
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne) encodable in Short Length mode.
	// In Short mode, 0x00 encodes 256.
	MaxShortLe = 256

	// MaxExtendedLc is the theoretical limit for Lc in Extended mode (16-bit unsigned).
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne encodable in Extended Length mode.
	// In Extended mode, 0x0000 encodes 65536.
	MaxExtendedLe = 65536
)

// CommandAPDU represents a command sent to the card.
// It is treated as immutable once built; use WithNe to derive a variant.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// WithNe returns a copy of the command expecting ne bytes.
func (c *CommandAPDU) WithNe(ne int) *CommandAPDU {
	cp := *c
	cp.Ne = ne
	return &cp
}

// Bytes encodes the command, switching to extended lengths only when Nc or
// Ne does not fit the short form.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("data too long: %d bytes (max %d)", nc, MaxExtendedLc)
	}
	if c.Ne < 0 || c.Ne > MaxExtendedLe {
		return nil, fmt.Errorf("invalid Ne %d", c.Ne)
	}

	extended := nc > MaxShortLc || c.Ne > MaxShortLe

	buf := bytes.NewBuffer(make([]byte, 0, 4+3+nc+3))
	buf.Write([]byte{byte(c.Class), byte(c.Instruction), c.P1, c.P2})

	if nc > 0 {
		buf.Write(encodeLc(nc, extended))
		buf.Write(c.Data)
	}
	if c.Ne > 0 {
		buf.Write(encodeLe(c.Ne, extended, nc > 0))
	}
	return buf.Bytes(), nil
}

// encodeLc returns Lc: one byte, or 00 followed by two bytes.
func encodeLc(nc int, extended bool) []byte {
	if !extended {
		return []byte{byte(nc)}
	}
	return []byte{0x00, byte(nc >> 8), byte(nc)}
}

// encodeLe returns Le. The maximum value wraps to zero in both forms. An
// extended Le without Lc carries its own leading 00.
func encodeLe(ne int, extended, hasLc bool) []byte {
	if !extended {
		return []byte{byte(ne % MaxShortLe)}
	}
	le := []byte{byte(ne >> 8), byte(ne)}
	if !hasLc {
		le = append([]byte{0x00}, le...)
	}
	return le
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ParseCommandAPDU decodes a short-length C-APDU (cases 1 to 4). Extended
// lengths are rejected.
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("command too short: length %d", len(raw))
	}
	cmd := NewCommandAPDU(Class(raw[0]), Instruction(raw[1]), raw[2], raw[3], nil, 0)

	body := raw[4:]
	switch {
	case len(body) == 0:
		return cmd, nil
	case len(body) == 1:
		cmd.Ne = decodeShortLe(body[0])
		return cmd, nil
	case body[0] == 0x00:
		return nil, fmt.Errorf("extended length commands are not supported")
	}

	nc := int(body[0])
	switch len(body) {
	case 1 + nc:
		cmd.Data = body[1:]
	case 2 + nc:
		cmd.Data = body[1 : 1+nc]
		cmd.Ne = decodeShortLe(body[1+nc])
	default:
		return nil, fmt.Errorf("body of %d bytes does not match Lc %d", len(body), nc)
	}
	return cmd, nil
}

func decodeShortLe(le byte) int {
	if le == 0 {
		return MaxShortLe
	}
	return int(le)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU parses raw bytes received from the card into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2

	return &ResponseAPDU{
		Data:   raw[:indexSW1],
		Status: NewStatusWord(raw[indexSW1], raw[indexSW1+1]),
	}, nil
}

// IsOK reports whether the status word is exactly 9000.
func (r *ResponseAPDU) IsOK() bool {
	return r != nil && r.Status == SW_NO_ERROR
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
