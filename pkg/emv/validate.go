package emv

import (
	"fmt"
	"strconv"
	"time"
)

// PAN length bounds from ISO/IEC 7812-1.
const (
	MinPANLength = 8
	MaxPANLength = 19
)

// LuhnValid reports whether digits carries a valid Luhn check digit.
// Empty input and any non-digit character make it false.
func LuhnValid(digits string) bool {
	if digits == "" {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		c := digits[i]
		if c < '0' || c > '9' {
			return false
		}
		d := int(c - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// ValidPAN checks length and Luhn digit.
func ValidPAN(pan string) bool {
	return len(pan) >= MinPANLength && len(pan) <= MaxPANLength && LuhnValid(pan)
}

// ExpiryValid reports whether (month, 2000+yy) is not strictly before the
// month of now. Cards stay valid until the end of their expiry month.
func ExpiryValid(month, yy int, now time.Time) bool {
	year := 2000 + yy
	if year != now.Year() {
		return year > now.Year()
	}
	return month >= int(now.Month())
}

// Expiry is an expiration month as stored in tag '5F24'.
type Expiry struct {
	Year  int // two digits
	Month int
}

// ParseExpiry reads the YYMM prefix of a 5F24 value given as digits
// (YYMM or YYMMDD).
func ParseExpiry(digits string) (Expiry, error) {
	if len(digits) != 4 && len(digits) != 6 {
		return Expiry{}, fmt.Errorf("expiry %q: want YYMM or YYMMDD", digits)
	}
	if !isDigits(digits) {
		return Expiry{}, fmt.Errorf("expiry %q: not numeric", digits)
	}
	yy, _ := strconv.Atoi(digits[0:2])
	mm, _ := strconv.Atoi(digits[2:4])
	if mm < 1 || mm > 12 {
		return Expiry{}, fmt.Errorf("expiry %q: month %d out of range", digits, mm)
	}
	return Expiry{Year: yy, Month: mm}, nil
}

// ValidAt applies ExpiryValid.
func (e Expiry) ValidAt(now time.Time) bool {
	return ExpiryValid(e.Month, e.Year, now)
}

// String renders MM/YY.
func (e Expiry) String() string {
	return fmt.Sprintf("%02d/%02d", e.Month, e.Year)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
