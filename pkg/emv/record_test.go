package emv

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gregLibert/emvtap/pkg/tlv"
)

func TestParseRecord_Describe(t *testing.T) {
	rawData := tlv.Hex(
		"70 2B",                          // Record Template
		"5A 08 4242424242424242",         // PAN
		"5F24 03 251231",                 // Expiration Date
		"5F20 0A 444F452F4A4F484E2020",   // Cardholder Name "DOE/JOHN  "
		"57 0C 4242424242424242D2512201", // Track 2
	)

	record, err := ParseRecord(rawData)
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}

	expectedLines := []string{
		"=== EMV RECORD ===",
		`    - Record.PAN (5A): ************4242`,
		`    - Record.ExpirationDate (5F24): 251231 (2025-12-31)`,
		`    - Record.CardholderName (5F20): 444F452F4A4F484E2020 ("DOE/JOHN  ")`,
		`    - Record.Track2EquivalentData (57): ********************2201`,
	}

	if diff := cmp.Diff(expectedLines, strings.Split(record.Describe(), "\n")); diff != "" {
		t.Errorf("Describe mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRecord_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Missing 70 wrapper", tlv.Hex("5A 08 4242424242424242")},
		{"Truncated", tlv.Hex("70 0A 5A 08 4242")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseRecord(tt.data); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}
