package reader

import (
	"strings"

	"github.com/gregLibert/emvtap/pkg/emv"
	"github.com/gregLibert/emvtap/pkg/tlv"
)

// accumulator collects card data across responses. merge returns a new
// value; the last successfully decoded occurrence of a tag wins.
type accumulator struct {
	pan    string // digits, 'F' padding stripped
	expiry string // YYMM
	name   string
	track2 string // raw hex of tag 57
}

func (a accumulator) merge(m tlv.Map) accumulator {
	if v, ok := m["5A"]; ok {
		if pan := strings.TrimRight(v, "F"); pan != "" {
			a.pan = pan
		}
	}
	if v, ok := m["5F24"]; ok && len(v) >= 4 {
		a.expiry = v[:4]
	}
	if m.Has("5F20") {
		if name := cardholderName(m.Bytes("5F20")); name != "" {
			a.name = name
		}
	}
	if v, ok := m["57"]; ok && v != "" {
		a.track2 = v
	}
	return a
}

// withTrack2 fills a missing PAN or expiry from Track 2 Equivalent Data.
func (a accumulator) withTrack2() accumulator {
	if a.complete() || a.track2 == "" {
		return a
	}
	t2, err := emv.ParseTrack2(a.track2)
	if err != nil {
		return a
	}
	if a.pan == "" {
		a.pan = t2.PAN
	}
	if a.expiry == "" {
		a.expiry = t2.Expiry
	}
	return a
}

func (a accumulator) complete() bool {
	return a.pan != "" && a.expiry != ""
}

// cardholderName trims tag 5F20. Contactless cards often carry blanks or a
// bare "/" instead of a name.
func cardholderName(raw []byte) string {
	name := strings.TrimSpace(tlv.MakeSafeASCII(raw))
	if name == "/" || strings.Trim(name, " /.") == "" {
		return ""
	}
	return name
}
