package emv

import (
	"testing"
	"time"
)

func TestLuhnValid(t *testing.T) {
	tests := []struct {
		digits string
		want   bool
	}{
		{"4242424242424242", true},
		{"4242424242424241", false},
		{"378282246310005", true},
		{"79927398713", true},
		{"79927398710", false},
		{"0", true},
		{"", false},
		{"4242-4242", false},
		{"42424242424242a2", false},
		{"٤٢", false},
	}

	for _, tt := range tests {
		if got := LuhnValid(tt.digits); got != tt.want {
			t.Errorf("LuhnValid(%q) = %v, want %v", tt.digits, got, tt.want)
		}
	}
}

func TestValidPAN(t *testing.T) {
	tests := []struct {
		pan  string
		want bool
	}{
		{"4242424242424242", true},
		{"0", false},
		{"4242424242424241", false},
		{"42424242424242424242", false},
	}

	for _, tt := range tests {
		if got := ValidPAN(tt.pan); got != tt.want {
			t.Errorf("ValidPAN(%q) = %v, want %v", tt.pan, got, tt.want)
		}
	}
}

func TestExpiryValid(t *testing.T) {
	jan2024 := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)
	jun2025 := time.Date(2025, time.June, 30, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name  string
		month int
		yy    int
		now   time.Time
		want  bool
	}{
		{"Future year", 12, 25, jan2024, true},
		{"Past year", 1, 20, jan2024, false},
		{"Same month", 1, 24, jan2024, true},
		{"Boundary current month", int(jun2025.Month()), jun2025.Year() % 100, jun2025, true},
		{"Previous month", 5, 25, jun2025, false},
		{"Next month", 7, 25, jun2025, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpiryValid(tt.month, tt.yy, tt.now); got != tt.want {
				t.Errorf("ExpiryValid(%d, %d, %s) = %v, want %v", tt.month, tt.yy, tt.now.Format("2006-01"), got, tt.want)
			}
		})
	}
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		digits  string
		want    string
		wantErr bool
	}{
		{digits: "2512", want: "12/25"},
		{digits: "251231", want: "12/25"},
		{digits: "3001", want: "01/30"},
		{digits: "2513", wantErr: true},
		{digits: "2500", wantErr: true},
		{digits: "25", wantErr: true},
		{digits: "25123", wantErr: true},
		{digits: "+512", wantErr: true},
		{digits: "25AB", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseExpiry(tt.digits)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseExpiry(%q) error = %v, wantErr %v", tt.digits, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.String() != tt.want {
			t.Errorf("ParseExpiry(%q) = %s, want %s", tt.digits, got, tt.want)
		}
	}
}

func TestExpiry_ValidAt(t *testing.T) {
	e := Expiry{Year: 25, Month: 12}
	if !e.ValidAt(time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)) {
		t.Error("expiry should hold during its own month")
	}
	if e.ValidAt(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)) {
		t.Error("expiry should fail the month after")
	}
}
