package tlv

import (
	"errors"
	"fmt"

	"github.com/gregLibert/emvtap/pkg/bits"
)

// FLAT DECODING:
// Card responses are scanned once, left to right. Each element is read as
//
//	Tag:    1 byte, or 2 bytes when bits 5-1 of the first byte are all set (0x1F).
//	Length: 1 byte when <= 0x7F. Otherwise bits 7-1 give the number of
//	        following bytes holding the length, big-endian.
//	Value:  exactly Length bytes.
//
// Constructed values (templates such as '6F', '70', '77') are NOT expanded:
// the template tag maps to its whole encoded content. A tag that appears twice
// keeps the value of its last occurrence. DecodeNested provides the recursive
// variant.

// ErrMalformed is wrapped by every decoding failure (truncated input,
// inconsistent length encoding, odd-length hex).
var ErrMalformed = errors.New("malformed BER-TLV")

// maxLengthBytes bounds the long-form length field. Four bytes already
// describe values far larger than any APDU response.
const maxLengthBytes = 4

// Map associates an upper-case tag (2 or 4 hex digits) with its upper-case
// value hex.
type Map map[string]string

// Has reports whether tag was decoded.
func (m Map) Has(tag string) bool {
	_, ok := m[tag]
	return ok
}

// Bytes returns the raw value for tag, or nil when the tag is absent.
func (m Map) Bytes(tag string) []byte {
	v, ok := m[tag]
	if !ok {
		return nil
	}
	data, err := DecodeHex(v)
	if err != nil {
		return nil
	}
	return data
}

// Field is one decoded element, in the order it appeared on the wire.
type Field struct {
	Tag   string
	Value []byte
}

// Constructed reports whether bit 6 of the first tag byte is set.
func (f Field) Constructed() bool {
	return isConstructed(f.Tag)
}

// Decode decodes a hex string with a single flat pass.
func Decode(hexData string) (Map, error) {
	data, err := DecodeHex(hexData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return DecodeBytes(data)
}

// DecodeBytes is Decode over raw bytes.
func DecodeBytes(data []byte) (Map, error) {
	fields, err := Scan(data)
	if err != nil {
		return nil, err
	}

	m := make(Map, len(fields))
	for _, f := range fields {
		m[f.Tag] = EncodeHex(f.Value)
	}
	return m, nil
}

// Scan returns the top-level elements of data in wire order.
func Scan(data []byte) ([]Field, error) {
	var fields []Field

	for pos := 0; pos < len(data); {
		tag, next, err := readTag(data, pos)
		if err != nil {
			return nil, err
		}

		length, next, err := readLength(data, next)
		if err != nil {
			return nil, fmt.Errorf("tag %s: %w", tag, err)
		}

		if length > len(data)-next {
			return nil, fmt.Errorf("%w: tag %s declares %d bytes, %d available", ErrMalformed, tag, length, len(data)-next)
		}

		fields = append(fields, Field{Tag: tag, Value: data[next : next+length]})
		pos = next + length
	}

	return fields, nil
}

func readTag(data []byte, pos int) (string, int, error) {
	first := data[pos]
	if bits.GetRange(first, 5, 1) != 0x1F {
		return EncodeHex(data[pos : pos+1]), pos + 1, nil
	}
	if pos+1 >= len(data) {
		return "", 0, fmt.Errorf("%w: truncated tag %02X at offset %d", ErrMalformed, first, pos)
	}
	return EncodeHex(data[pos : pos+2]), pos + 2, nil
}

func readLength(data []byte, pos int) (int, int, error) {
	if pos >= len(data) {
		return 0, 0, fmt.Errorf("%w: missing length at offset %d", ErrMalformed, pos)
	}

	b := data[pos]
	pos++
	if b <= 0x7F {
		return int(b), pos, nil
	}

	n := int(b & 0x7F)
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: indefinite length is not allowed", ErrMalformed)
	}
	if n > maxLengthBytes {
		return 0, 0, fmt.Errorf("%w: length field of %d bytes", ErrMalformed, n)
	}
	if pos+n > len(data) {
		return 0, 0, fmt.Errorf("%w: truncated length at offset %d", ErrMalformed, pos)
	}

	// Bounded by the input before narrowing to int.
	var length uint64
	for _, lb := range data[pos : pos+n] {
		length = length<<8 | uint64(lb)
	}
	if remaining := uint64(len(data) - pos - n); length > remaining {
		return 0, 0, fmt.Errorf("%w: declares %d bytes, %d available", ErrMalformed, length, remaining)
	}
	return int(length), pos + n, nil
}

func isConstructed(tag string) bool {
	if len(tag) < 2 {
		return false
	}
	first, err := DecodeHex(tag[:2])
	if err != nil {
		return false
	}
	return bits.IsSet(first[0], 6)
}
