package emv

import (
	"fmt"
	"slices"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/emvtap/pkg/tlv"
)

// FILE CONTROL INFORMATION (FCI) Logic according to EMV Book 1 and the
// contactless kernel specifications.
//
// The same template answers both SELECT PPSE and SELECT AID:
//   - PPSE: 6F > 84 "2PAY.SYS.DDF01", A5 > BF0C > 61 (one per application)
//   - AID:  6F > 84 <AID>, A5 > 50 label, 87 priority, 9F38 PDOL...

// FCI represents the EMV-specific File Control Information returned in response to a SELECT command.
type FCI struct {
	DFName              []byte                 `tlv:"84" fmt:"ascii"`
	ProprietaryTemplate FCIProprietaryTemplate `tlv:"A5"`
}

// FCIProprietaryTemplate contains the issuer-specific data found in tag 'A5'.
type FCIProprietaryTemplate struct {
	ApplicationLabel []byte `tlv:"50" fmt:"ascii"`

	// Optional EMV fields
	ApplicationPriorityIndicator []byte `tlv:"87" fmt:"int"`
	SFI                          []byte `tlv:"88"`
	PDOL                         []byte `tlv:"9F38"`
	LanguagePreference           []byte `tlv:"5F2D" fmt:"ascii"`
	IssuerCodeTableIndex         []byte `tlv:"9F11" fmt:"int"`
	ApplicationPreferredName     []byte `tlv:"9F12" fmt:"ascii"`

	IssuerDiscretionaryData *FCIIssuerDiscretionaryData `tlv:"BF0C"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FCIIssuerDiscretionaryData represents tag 'BF0C'. In a PPSE answer it
// carries the directory entries of the card.
type FCIIssuerDiscretionaryData struct {
	Applications []ApplicationTemplate `tlv:"61"`

	LogEntry                           []byte `tlv:"9F4D"`
	IssuerIdentificationNumberExtended []byte `tlv:"9F0C"`
	IssuerCountryCodeAlpha3            []byte `tlv:"5F56" fmt:"ascii"`
	IssuerCountryCodeAlpha2            []byte `tlv:"5F55" fmt:"ascii"`
	BankIdentifierCode                 []byte `tlv:"5F54" fmt:"ascii"`
	IBAN                               []byte `tlv:"5F53" fmt:"ascii"`
	IssuerURL                          []byte `tlv:"5F50" fmt:"ascii"`
	IssuerIdentificationNumber         []byte `tlv:"42"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseFCI interprets raw byte data as an EMV FCI structure.
func ParseFCI(data []byte) (*FCI, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data cannot be parsed")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tlv.ErrMalformed, err)
	}

	var processingPackets []bertlv.TLV

	if len(packets) > 0 && strings.EqualFold(packets[0].Tag, "6F") {
		processingPackets = packets[0].TLVs
	} else {
		processingPackets = packets
	}

	fci := &FCI{}
	if err := tlv.UnmarshalFromPackets(processingPackets, fci); err != nil {
		return nil, fmt.Errorf("failed to map structure: %w", err)
	}

	return fci, nil
}

// Applications returns the PPSE directory entries sorted by priority
// (highest first). Entries without a priority keep their card order, last.
func (f *FCI) Applications() []ApplicationTemplate {
	dd := f.ProprietaryTemplate.IssuerDiscretionaryData
	if dd == nil {
		return nil
	}

	apps := slices.Clone(dd.Applications)
	slices.SortStableFunc(apps, func(a, b ApplicationTemplate) int {
		return a.priorityRank() - b.priorityRank()
	})
	return apps
}

// Describe generates a detailed, standardized report of the FCI content.
func (f *FCI) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EMV FCI TEMPLATE ===")

	tlv.WriteStructFields(&sb, "FCI", f)

	tlv.WriteStructFields(&sb, "Proprietary", f.ProprietaryTemplate)

	if dd := f.ProprietaryTemplate.IssuerDiscretionaryData; dd != nil {
		tlv.WriteStructFields(&sb, "Discretionary", dd)

		for i, app := range dd.Applications {
			tlv.WriteStructFields(&sb, fmt.Sprintf("App[%d]", i+1), app)
		}
	}

	return strings.TrimRight(sb.String(), "\n")
}
