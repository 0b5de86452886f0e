package iso7816

import (
	"fmt"

	"github.com/gregLibert/emvtap/pkg/bits"
)

// Class Byte (CLA) according to ISO/IEC 7816-4.
//
// Bit 8: Proprietary (1) or Interindustry (0).
// Bit 7: Type of Interindustry (0=First, 1=Further).
// Bit 5: Command Chaining (0=Last/Only, 1=More follow).
//
// First Interindustry (00xx xxxx): bits 2-1 carry the logical channel (0-3).
// Further Interindustry (01xx xxxx): bits 4-1 carry the logical channel minus 4.
//
// EMV payment commands (GET PROCESSING OPTIONS, GET DATA, GENERATE AC) use the
// proprietary class 0x80; SELECT and READ RECORD use the interindustry class 0x00.

// Class is the raw CLA byte.
type Class byte

const (
	ClassInterindustry Class = 0x00
	ClassProprietary   Class = 0x80
)

// NewClass validates a raw CLA byte.
func NewClass(cla byte) (Class, error) {
	if cla == 0xFF {
		return 0, fmt.Errorf("invalid CLA value: 0xFF is reserved")
	}
	return Class(cla), nil
}

// IsProprietary reports whether bit 8 is set.
func (c Class) IsProprietary() bool {
	return bits.IsSet(byte(c), 8)
}

// IsChained reports the command chaining bit of an interindustry class.
func (c Class) IsChained() bool {
	return !c.IsProprietary() && bits.IsSet(byte(c), 5)
}

// Channel returns the logical channel of an interindustry class (0-19).
func (c Class) Channel() uint8 {
	if c.IsProprietary() {
		return 0
	}
	if !bits.IsSet(byte(c), 7) {
		return bits.GetRange(byte(c), 2, 1)
	}
	return bits.GetRange(byte(c), 4, 1) + 4
}

// WithoutChaining clears the chaining bit, as required for GET RESPONSE.
func (c Class) WithoutChaining() Class {
	if c.IsProprietary() {
		return c
	}
	return Class(bits.Clear(byte(c), 5))
}

// Verbose returns a human-readable description of the CLA byte configuration.
func (c Class) Verbose() string {
	if c.IsProprietary() {
		return fmt.Sprintf("Class: Proprietary (0x%02X)", byte(c))
	}

	chaining := "Last or only command"
	if c.IsChained() {
		chaining = "More commands follow (Chaining)"
	}
	return fmt.Sprintf("Class: Interindustry (0x%02X) | Chaining: %s | Logical Channel: %d", byte(c), chaining, c.Channel())
}
