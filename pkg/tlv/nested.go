package tlv

import (
	"fmt"
	"strings"

	"github.com/moov-io/bertlv"
)

// DecodeNested decodes data as full BER-TLV, expanding constructed templates,
// and flattens the tree depth-first into a Map. Templates keep their own
// entry (the encoded content) next to their children. As with DecodeBytes, a
// tag seen later in the walk overwrites an earlier one.
func DecodeNested(data []byte) (Map, error) {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	m := make(Map)
	flatten(m, packets)
	return m, nil
}

func flatten(m Map, packets []bertlv.TLV) {
	for _, p := range packets {
		m[strings.ToUpper(p.Tag)] = EncodeHex(getPacketRawData(p))
		if len(p.TLVs) > 0 {
			flatten(m, p.TLVs)
		}
	}
}
