package commands

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{
			name:  "visa",
			input: "4111 1111 1111 1111",
			want:  []string{"PAN:   4111 1111 1111 1111", "Brand: Visa", "Luhn:  valid"},
		},
		{
			name:  "amex grouping",
			input: "378282246310005",
			want:  []string{"PAN:   3782 822463 10005", "Brand: American Express", "Luhn:  valid"},
		},
		{
			name:  "bad check digit",
			input: "4111111111111112",
			want:  []string{"Luhn:  invalid", "Note:  not a valid PAN"},
		},
		{
			name:  "aid",
			input: "a0000000041010",
			want:  []string{"AID:   a0000000041010", "Brand: Mastercard"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, "classify", tt.input)
			if err != nil {
				t.Fatalf("classify error = %v", err)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}
}

func TestDecode(t *testing.T) {
	const ppse = "6F23840E325041592E5359532E4444463031A511BF0C0E610C4F07A0000000031010870101"

	tests := []struct {
		name    string
		args    []string
		want    []string
		notWant []string
		wantErr bool
	}{
		{
			name: "flat keeps templates whole",
			args: []string{"decode", "6F 03 84 01 AA", "90 00"},
			want: []string{"6F   constructed 8401AA", "90   primitive"},
		},
		{
			name:    "nested masks the PAN",
			args:    []string{"decode", "--nested", "70 0A 5A 08 4111111111111111"},
			want:    []string{"5A   ************1111", "70   constructed (10 bytes)"},
			notWant: []string{"4111111111111111"},
		},
		{
			name: "ppse template lists candidates",
			args: []string{"decode", "-t", "ppse", ppse},
			want: []string{"=== EMV FCI TEMPLATE ===", "candidate 1: A0000000031010 (Visa)"},
		},
		{
			name: "gpo template",
			args: []string{"decode", "--template", "gpo", "80 06 1980 08010100"},
			want: []string{"GPO.AIP (82): 1980", "GPO.AFL[1]: SFI 1, records 1-1"},
		},
		{
			name:    "record template masks the PAN",
			args:    []string{"decode", "-t", "record", "70 0A 5A 08 4111111111111111"},
			want:    []string{"=== EMV RECORD ===", "************1111"},
			notWant: []string{"4111111111111111"},
		},
		{
			name: "single tag from a nested template",
			args: []string{"decode", "--tag", "4f", ppse},
			want: []string{"A0000000031010"},
		},
		{
			name:    "single PAN tag is masked",
			args:    []string{"decode", "--tag", "5A", "70 0A 5A 08 4111111111111111"},
			want:    []string{"************1111"},
			notWant: []string{"4111111111111111"},
		},
		{name: "missing tag", args: []string{"decode", "--tag", "9F38", ppse}, wantErr: true},
		{name: "odd hex", args: []string{"decode", "6F0"}, wantErr: true},
		{name: "unknown template", args: []string{"decode", "-t", "cdol", "9000"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decode error = %v, wantErr %v", err, tt.wantErr)
			}
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
			for _, nw := range tt.notWant {
				if strings.Contains(out, nw) {
					t.Errorf("output contains %q:\n%s", nw, out)
				}
			}
		})
	}
}

func TestReadRejectsUnknownBackend(t *testing.T) {
	_, err := run(t, "read", "--backend", "bluetooth")
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("read error = %v, want unknown backend", err)
	}
}

func TestAPDURejectsMalformedCommands(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{name: "odd hex", arg: "00A4040", want: "APDU"},
		{name: "short header", arg: "00A404", want: "too short"},
		{name: "lc mismatch", arg: "00A4040005AABB", want: "does not match Lc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, "apdu", "00B2010C00", tt.arg)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("apdu error = %v, want %q", err, tt.want)
			}
		})
	}
}
