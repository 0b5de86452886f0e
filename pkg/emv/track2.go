package emv

import (
	"fmt"
	"strings"
)

// Track2 is the decoded Track 2 Equivalent Data (Tag '57'):
// PAN 'D' YYMM ServiceCode Discretionary ['F' padding].
type Track2 struct {
	PAN         string
	Expiry      string // YYMM
	ServiceCode string
}

// ParseTrack2 decodes the hex value of tag '57'.
func ParseTrack2(value string) (Track2, error) {
	value = strings.TrimRight(strings.ToUpper(value), "F")

	sep := strings.IndexByte(value, 'D')
	if sep <= 0 {
		return Track2{}, fmt.Errorf("track 2: missing field separator")
	}

	t := Track2{PAN: value[:sep]}
	if !isDigits(t.PAN) {
		return Track2{}, fmt.Errorf("track 2: non-numeric PAN")
	}

	rest := value[sep+1:]
	if len(rest) < 4 || !isDigits(rest[:4]) {
		return Track2{}, fmt.Errorf("track 2: missing expiry")
	}
	t.Expiry = rest[:4]

	if len(rest) >= 7 && isDigits(rest[4:7]) {
		t.ServiceCode = rest[4:7]
	}
	return t, nil
}
