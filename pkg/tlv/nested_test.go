package tlv

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeNested(t *testing.T) {
	// PPSE FCI: 6F > A5 > BF0C > 61 > 4F
	ppse := Hex(
		"6F 23",
		"84 0E 325041592E5359532E4444463031",
		"A5 11",
		"BF0C 0E",
		"61 0C",
		"4F 07 A0000000031010",
		"87 01 01",
	)

	got, err := DecodeNested(ppse)
	if err != nil {
		t.Fatalf("DecodeNested failed: %v", err)
	}

	want := map[string]string{
		"84":   "325041592E5359532E4444463031",
		"4F":   "A0000000031010",
		"87":   "01",
		"61":   "4F07A0000000031010870101",
		"BF0C": "610C4F07A0000000031010870101",
	}
	for tag, value := range want {
		if got[tag] != value {
			t.Errorf("tag %s = %q, want %q", tag, got[tag], value)
		}
	}
	if !got.Has("6F") || !got.Has("A5") {
		t.Errorf("templates should keep their own entries: %v", got)
	}

	flat, err := DecodeBytes(ppse)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if diff := cmp.Diff([]string{"6F"}, keys(flat)); diff != "" {
		t.Errorf("flat decode should only see the outer template (-want +got):\n%s", diff)
	}
}

func TestDecodeNested_Malformed(t *testing.T) {
	_, err := DecodeNested(Hex("70 05 5A 08 42"))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("DecodeNested error = %v, want ErrMalformed", err)
	}
}

func keys(m Map) []string {
	var out []string
	for k := range m {
		out = append(out, k)
	}
	return out
}
