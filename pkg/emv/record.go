package emv

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/emvtap/pkg/tlv"
)

// Record is the content of a READ RECORD answer, wrapped in the Record
// Template (Tag '70'). Only the tags a contactless read looks at are named.
type Record struct {
	PAN                     []byte `tlv:"5A" fmt:"pan"`
	ExpirationDate          []byte `tlv:"5F24" fmt:"date"`
	EffectiveDate           []byte `tlv:"5F25" fmt:"date"`
	CardholderName          []byte `tlv:"5F20" fmt:"ascii"`
	Track2EquivalentData    []byte `tlv:"57" fmt:"pan"`
	PANSequenceNumber       []byte `tlv:"5F34" fmt:"int"`
	IssuerCountryCode       []byte `tlv:"5F28"`
	ApplicationUsageControl []byte `tlv:"9F07"`
	CVMList                 []byte `tlv:"8E"`
	CDOL1                   []byte `tlv:"8C"`
	CDOL2                   []byte `tlv:"8D"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseRecord interprets raw bytes from a READ RECORD command.
func ParseRecord(data []byte) (*Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty record data")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tlv.ErrMalformed, err)
	}

	// The record must be wrapped in Tag '70'
	if len(packets) == 0 || !strings.EqualFold(packets[0].Tag, "70") {
		return nil, fmt.Errorf("missing mandatory Record Template (Tag 70)")
	}

	record := &Record{}
	if err := tlv.UnmarshalFromPackets(packets[0].TLVs, record); err != nil {
		return nil, fmt.Errorf("failed to map record: %w", err)
	}

	return record, nil
}

// Describe generates a report of the record. The PAN is masked.
func (r *Record) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EMV RECORD ===")

	tlv.WriteStructFields(&sb, "Record", r)

	return strings.TrimRight(sb.String(), "\n")
}
