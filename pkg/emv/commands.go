package emv

import (
	"github.com/gregLibert/emvtap/pkg/iso7816"
)

// PPSEName is the DF name of the Proximity Payment System Environment.
const PPSEName = "2PAY.SYS.DDF01"

// Tags read through GET DATA when the records do not carry them.
const (
	TagPAN            uint16 = 0x5A
	TagExpirationDate uint16 = 0x5F24
)

// SelectPPSE builds 00 A4 04 00 0E "2PAY.SYS.DDF01" 00.
func SelectPPSE() *iso7816.CommandAPDU {
	return iso7816.SelectByName([]byte(PPSEName))
}

// SelectApplication builds 00 A4 04 00 Lc <aid> 00.
func SelectApplication(aid []byte) *iso7816.CommandAPDU {
	return iso7816.SelectByName(aid)
}

// GetProcessingOptions builds the fixed GPO command with an empty PDOL
// (Command Template '83' of length 0): 80 A8 00 00 02 83 00.
func GetProcessingOptions() *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(
		iso7816.ClassProprietary,
		iso7816.INS_GET_PROCESSING_OPTIONS,
		0x00, 0x00,
		[]byte{0x83, 0x00},
		0,
	)
}

// GetData builds 80 CA <tagHi> <tagLo> 00. One-byte tags such as '5A' are
// sent with a zero high byte.
func GetData(tag uint16) *iso7816.CommandAPDU {
	return iso7816.NewCommandAPDU(
		iso7816.ClassProprietary,
		iso7816.INS_GET_DATA,
		byte(tag>>8), byte(tag),
		nil,
		iso7816.MaxShortLe,
	)
}

// ReadRecord builds 00 B2 <record> <(sfi<<3)|4> 00.
func ReadRecord(sfi, record byte) (*iso7816.CommandAPDU, error) {
	return iso7816.ReadRecord(iso7816.ClassInterindustry, sfi, record)
}
