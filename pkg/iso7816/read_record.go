package iso7816

import (
	"fmt"
)

// READ RECORD COMMAND LOGIC (ISO 7816-4):
// The READ RECORD command (INS 'B2') reads a record of an Elementary File.
//
// P1: record number (00 = current record).
// P2 (Reference Control):
// - Bits 8-4: Short File Identifier (SFI). If 0, use Current EF.
// - Bit 3:    0=Reference by ID, 1=Reference by Number.
// - Bits 2-1: Occurrence/Mode.
//
// EMV always reads by number: P2 = (SFI << 3) | 0b100.

// ReadRecordMode defines how to interpret P1 and which record(s) to read.
type ReadRecordMode byte

// RefByNum_ReadP1 reads the single record numbered P1, the only mode EMV
// cards support.
const RefByNum_ReadP1 ReadRecordMode = 0b100

// MaxSFI is the largest Short File Identifier encodable on 5 bits.
const MaxSFI = 30

// NewReadRecordCommand creates a raw READ RECORD command.
func NewReadRecordCommand(cla Class, sfi byte, p1 byte, mode ReadRecordMode) (*CommandAPDU, error) {
	if sfi > MaxSFI {
		return nil, fmt.Errorf("SFI %d out of range (max %d)", sfi, MaxSFI)
	}

	p2 := (sfi << 3) | byte(mode)

	// READ RECORD is a Case 2 command: Le=00 asks for up to 256 bytes.
	return NewCommandAPDU(cla, INS_READ_RECORD, p1, p2, nil, MaxShortLe), nil
}

// ReadRecord reads a specific record by its Number: 00 B2 <record> <(sfi<<3)|4> 00.
func ReadRecord(cla Class, sfi byte, recordNumber byte) (*CommandAPDU, error) {
	return NewReadRecordCommand(cla, sfi, recordNumber, RefByNum_ReadP1)
}
