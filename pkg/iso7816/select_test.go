package iso7816

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/gregLibert/emvtap/pkg/tlv"
)

func TestNewSelectCommand(t *testing.T) {
	cls := ClassInterindustry

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name: "Select PPSE by name (2PAY.SYS.DDF01)",
			cmd:  SelectByName([]byte("2PAY.SYS.DDF01")),
			expected: tlv.Hex(
				"00 A4 04 00", // Header: CLA=00, INS=A4, P1=04 (DF name), P2=00
				"0E",          // Lc=14
				"32 50 41 59 2E 53 59 53 2E 44 44 46 30 31",
				"00",
			),
		},
		{
			name: "Select application by name",
			cmd:  SelectByName(tlv.Hex("A0 00 00 00 03 10 10")),
			expected: tlv.Hex(
				"00 A4 04 00 07",
				"A0 00 00 00 03 10 10",
				"00",
			),
		},
		{
			name: "Select by DF name without Le (T=0)",
			cmd: NewSelectCommand(
				cls,
				SelectByDFName,
				FirstOrOnlyOccurrence,
				ReturnFCI,
				[]byte("1PAY.SYS.DDF01"),
				0,
			),
			expected: tlv.Hex(
				"00 A4 04 00 0E",
				"31 50 41 59 2E 53 59 53 2E 44 44 46 30 31",
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
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
