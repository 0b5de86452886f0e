package tlv

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidHex is returned when a hex string has an odd length or contains
// characters outside [0-9A-Fa-f].
var ErrInvalidHex = errors.New("invalid hex string")

// DecodeHex converts a hex string into bytes. Upper and lower case digits are
// both accepted.
func DecodeHex(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("%w: odd length %d", ErrInvalidHex, len(s))
	}
	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHex, err)
	}
	return data, nil
}

// EncodeHex converts bytes into the canonical upper-case hex form used for
// tags and values throughout this module.
func EncodeHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}

// Hex constructs a byte slice from a series of hex strings.
// Spaces are ignored so that "00 A4 04 00" reads like an APDU trace.
// It panics on invalid input and is meant for fixed tables and tests.
func Hex(parts ...string) []byte {
	fullHex := strings.Join(parts, "")
	cleanHex := strings.ReplaceAll(fullHex, " ", "")

	data, err := DecodeHex(cleanHex)
	if err != nil {
		panic(fmt.Sprintf("invalid input '%s': %v", cleanHex, err))
	}
	return data
}
