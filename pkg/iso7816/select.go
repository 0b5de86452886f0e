package iso7816

import (
	"fmt"
)

// SELECT COMMAND LOGIC (ISO 7816-4):
// The SELECT command (INS 'A4') opens a file or an application.
//
// P1 (Selection Method): how the file is targeted (by ID, by DF name/AID, by path).
// P2 (Selection Control):
// - Bits 4-3: Response Type (FCI, FCP, FMD, or No Data).
// - Bits 2-1: Occurrence (First, Last, Next, Previous).

// SelectionMethod defines how the file is targeted (P1).
type SelectionMethod byte

const (
	SelectByFileID SelectionMethod = 0x00
	SelectByDFName SelectionMethod = 0x04 // Select by AID
)

func (s SelectionMethod) String() string {
	switch s {
	case SelectByFileID:
		return "Select by File ID"
	case SelectByDFName:
		return "Select by DF Name (AID)"
	default:
		return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
	}
}

// FileOccurrence defines which instance of the file to select (Bits 1-2 of P2).
// EMV only selects the first occurrence.
type FileOccurrence byte

const FirstOrOnlyOccurrence FileOccurrence = 0b0000_00_00

// SelectionControl defines what data to return (Bits 3-4 of P2). EMV cards
// answer SELECT with their FCI.
type SelectionControl byte

const ReturnFCI SelectionControl = 0b0000_00_00

// NewSelectCommand creates a generic SELECT command.
func NewSelectCommand(
	cla Class,
	method SelectionMethod,
	occurrence FileOccurrence,
	ctrl SelectionControl,
	data []byte,
	ne int,
) *CommandAPDU {
	p2 := byte(ctrl) | byte(occurrence)
	return NewCommandAPDU(cla, INS_SELECT, byte(method), p2, data, ne)
}

// SelectByName selects an application or directory by its DF name,
// requesting the full FCI: 00 A4 04 00 Lc <name> 00.
//
// Contactless (ISO-DEP) readers accept Case 4 commands, so Le is always sent.
func SelectByName(name []byte) *CommandAPDU {
	return NewSelectCommand(
		ClassInterindustry,
		SelectByDFName,
		FirstOrOnlyOccurrence,
		ReturnFCI,
		name,
		MaxShortLe,
	)
}
