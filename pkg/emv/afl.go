package emv

import (
	"errors"
	"fmt"

	"github.com/gregLibert/emvtap/pkg/bits"
	"github.com/gregLibert/emvtap/pkg/iso7816"
)

// APPLICATION FILE LOCATOR (Tag '94'):
// A list of 4-byte entries, each describing a range of records to read:
//
//	Byte 1: SFI in bits 8-4 (bits 3-1 are RFU).
//	Byte 2: First record number (never 0).
//	Byte 3: Last record number (>= first).
//	Byte 4: Number of records involved in offline data authentication.

// AFLEntry is one decoded 4-byte group of the AFL.
type AFLEntry struct {
	SFI            byte
	First          byte
	Last           byte
	OfflineRecords byte
}

// Records returns the record numbers covered by the entry, in order.
func (e AFLEntry) Records() []byte {
	if e.First == 0 || e.Last < e.First {
		return nil
	}
	recs := make([]byte, 0, int(e.Last)-int(e.First)+1)
	for r := int(e.First); r <= int(e.Last); r++ {
		recs = append(recs, byte(r))
	}
	return recs
}

func (e AFLEntry) String() string {
	return fmt.Sprintf("SFI %d, records %d-%d (%d for ODA)", e.SFI, e.First, e.Last, e.OfflineRecords)
}

// ParseAFL decodes the value of tag '94'. Every well-formed group is
// returned; the error lists the groups that were skipped (bad SFI, bad
// record range, trailing partial group). Callers may use the entries even
// when err is non-nil.
func ParseAFL(afl []byte) ([]AFLEntry, error) {
	if len(afl) == 0 {
		return nil, fmt.Errorf("empty AFL")
	}

	var (
		entries []AFLEntry
		errs    []error
	)
	whole := len(afl) - len(afl)%4
	for i := 0; i < whole; i += 4 {
		e := AFLEntry{
			SFI:            bits.GetRange(afl[i], 8, 4),
			First:          afl[i+1],
			Last:           afl[i+2],
			OfflineRecords: afl[i+3],
		}

		switch {
		case e.SFI == 0 || e.SFI > iso7816.MaxSFI:
			errs = append(errs, fmt.Errorf("AFL entry %d: invalid SFI %d", i/4+1, e.SFI))
		case e.First == 0 || e.Last < e.First:
			errs = append(errs, fmt.Errorf("AFL entry %d: invalid record range %d-%d", i/4+1, e.First, e.Last))
		default:
			entries = append(entries, e)
		}
	}
	if whole != len(afl) {
		errs = append(errs, fmt.Errorf("AFL length %d: trailing %d bytes ignored", len(afl), len(afl)-whole))
	}
	return entries, errors.Join(errs...)
}
