package iso7816

import (
	"strings"
	"testing"
)

func TestNewInstruction(t *testing.T) {
	tests := []struct {
		name    string
		ins     byte
		wantErr bool
		check   func(Instruction) bool
	}{
		{
			name: "Standard SELECT (A4)",
			ins:  0xA4,
			check: func(i Instruction) bool {
				return i == INS_SELECT && !i.IsBERTLV()
			},
		},
		{
			name: "Read Binary BER-TLV (B1)",
			ins:  0b1011_0001,
			check: func(i Instruction) bool {
				return i.IsBERTLV()
			},
		},
		{
			name:    "Invalid INS 6X",
			ins:     0x6A,
			wantErr: true,
		},
		{
			name:    "Invalid INS 9X",
			ins:     0x90,
			wantErr: true,
		},
		{
			name: "Create File (E0)",
			ins:  0xE0,
			check: func(i Instruction) bool {
				return !i.IsBERTLV()
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInstruction(tt.ins)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewInstruction(0x%02X) error = %v, wantErr %v", tt.ins, err, tt.wantErr)
				return
			}
			if !tt.wantErr && !tt.check(got) {
				t.Errorf("NewInstruction(0x%02X) failed validation: %s", tt.ins, got.Verbose())
			}
		})
	}
}

func TestInstruction_Verbose(t *testing.T) {
	tests := []struct {
		ins      Instruction
		contains []string
	}{
		{INS_SELECT, []string{"INS: 0xA4", "Command: SELECT"}},
		{INS_GET_PROCESSING_OPTIONS, []string{"INS: 0xA8", "Command: GET PROCESSING OPTIONS"}},
		{Instruction(0xE0), []string{"INS: 0xE0", "Command: INS(E0)"}},
	}

	for _, tt := range tests {
		desc := tt.ins.Verbose()
		for _, part := range tt.contains {
			if !strings.Contains(desc, part) {
				t.Errorf("Verbose() = %q; want containing %q", desc, part)
			}
		}
	}
}
