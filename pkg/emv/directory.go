package emv

import (
	"github.com/moov-io/bertlv"

	"github.com/gregLibert/emvtap/pkg/bits"
	"github.com/gregLibert/emvtap/pkg/tlv"
)

// ApplicationTemplate (Tag '61') represents an entry in the Payment System Directory.
// It contains the necessary information to select a specific application.
type ApplicationTemplate struct {
	AID                          []byte `tlv:"4F"`             // Mandatory
	ApplicationLabel             []byte `tlv:"50" fmt:"ascii"` // Mandatory
	ApplicationPriorityIndicator []byte `tlv:"87" fmt:"int"`
	KernelIdentifier             []byte `tlv:"9F2A"`
	ApplicationPreferredName     []byte `tlv:"9F12" fmt:"ascii"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// Priority returns bits 4-1 of tag '87' (1 is the highest, 0 means none).
func (a ApplicationTemplate) Priority() byte {
	if len(a.ApplicationPriorityIndicator) == 0 {
		return 0
	}
	return bits.LowNibble(a.ApplicationPriorityIndicator[0])
}

func (a ApplicationTemplate) priorityRank() int {
	if p := a.Priority(); p != 0 {
		return int(p)
	}
	return 16
}

// AIDHex returns the AID in canonical hex form.
func (a ApplicationTemplate) AIDHex() string {
	return tlv.EncodeHex(a.AID)
}
