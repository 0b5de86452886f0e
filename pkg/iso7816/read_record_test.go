package iso7816

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/gregLibert/emvtap/pkg/tlv"
)

func TestNewReadRecordCommand(t *testing.T) {
	cls := ClassInterindustry

	tests := []struct {
		name     string
		sfi      byte
		rec      byte
		mode     ReadRecordMode
		expected []byte
	}{
		{
			name: "Read Record 1 from SFI 1 (Standard EMV)",
			sfi:  1,
			rec:  1,
			mode: RefByNum_ReadP1,
			expected: tlv.Hex(
				"00 B2 01 0C", // Header
				"00",          // Le=256
			),
		},
		{
			name:     "Read Record 3 from SFI 2",
			sfi:      2,
			rec:      3,
			mode:     RefByNum_ReadP1,
			expected: tlv.Hex("00 B2 03 14 00"),
		},
		{
			name:     "Read Record 5 from Current EF",
			sfi:      0,
			rec:      5,
			mode:     RefByNum_ReadP1,
			expected: tlv.Hex("00 B2 05 04 00"),
		},
		{
			name:     "Highest SFI",
			sfi:      MaxSFI,
			rec:      1,
			mode:     RefByNum_ReadP1,
			expected: tlv.Hex("00 B2 01 F4 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := NewReadRecordCommand(cls, tt.sfi, tt.rec, tt.mode)
			if err != nil {
				t.Fatalf("NewReadRecordCommand() error: %v", err)
			}
			got, err := cmd.Bytes()
			if err != nil {
				t.Fatalf("Failed to encode bytes: %v", err)
			}

			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch:\nExpected: %s\nGot:      %s",
					hex.EncodeToString(tt.expected),
					hex.EncodeToString(got))
			}
		})
	}
}

func TestReadRecord_SFIOutOfRange(t *testing.T) {
	if _, err := ReadRecord(ClassInterindustry, 31, 1); err == nil {
		t.Error("Expected error for SFI 31, got nil")
	}
}
