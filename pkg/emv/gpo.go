package emv

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"

	"github.com/gregLibert/emvtap/pkg/tlv"
)

// GET PROCESSING OPTIONS response, two formats (EMV Book 3, 6.5.8.4):
//
//	Format 1: 80 Len AIP(2) AFL(4n)
//	Format 2: 77 Len 82 02 AIP 94 Len AFL ...

// ProcessingOptions is the decoded GPO answer.
type ProcessingOptions struct {
	AIP []byte `tlv:"82"`
	AFL []byte `tlv:"94"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseProcessingOptions decodes both GPO response formats.
func ParseProcessingOptions(data []byte) (*ProcessingOptions, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty GPO response")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tlv.ErrMalformed, err)
	}
	if len(packets) == 0 {
		return nil, fmt.Errorf("empty GPO response")
	}

	switch strings.ToUpper(packets[0].Tag) {
	case "80":
		v := packets[0].Value
		if len(v) < 2 {
			return nil, fmt.Errorf("format 1 GPO response too short: %d bytes", len(v))
		}
		return &ProcessingOptions{AIP: v[:2], AFL: v[2:]}, nil

	case "77":
		po := &ProcessingOptions{}
		if err := tlv.UnmarshalFromPackets(packets[0].TLVs, po); err != nil {
			return nil, fmt.Errorf("failed to map GPO response: %w", err)
		}
		return po, nil

	default:
		return nil, fmt.Errorf("unexpected GPO response template %s", packets[0].Tag)
	}
}

// Describe reports the AIP and one line per AFL entry.
func (p *ProcessingOptions) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EMV PROCESSING OPTIONS ===")

	tlv.WriteStructFields(&sb, "GPO", p)

	if len(p.AFL) == 0 {
		return sb.String()
	}
	entries, err := ParseAFL(p.AFL)
	if err != nil {
		fmt.Fprintf(&sb, "\n    - GPO.AFL: %v", err)
	}
	for i, e := range entries {
		fmt.Fprintf(&sb, "\n    - GPO.AFL[%d]: %s", i+1, e)
	}

	return strings.TrimRight(sb.String(), "\n")
}
