package iso7816

import (
	"fmt"
)

// SELECT COMMAND LOGIC (ISO 7816-4):
// The SELECT command (INS 'A4') opens a file (MF, DF, or EF) or an application.
//
// P1 (Selection Method):
// Indicates how the file is targeted (by ID, by Name/AID, by Path, etc.).
//
// P2 (Selection Control):
// Controls the response content and the file occurrence.
// - Bits 4-3: Response Type (FCI, FCP, FMD, or No Data).
// - Bits 2-1: Occurrence (First, Last, Next, Previous).

// SelectionMethod defines how the file is targeted (P1).
type SelectionMethod byte

const (
	SelectByFileID          SelectionMethod = 0x00
	SelectChildDF           SelectionMethod = 0x01
	SelectEFUnderCurrentDF  SelectionMethod = 0x02
	SelectParentDF          SelectionMethod = 0x03
	SelectByDFName          SelectionMethod = 0x04 // Select by AID
	SelectPathFromMF        SelectionMethod = 0x08
	SelectPathFromCurrentDF SelectionMethod = 0x09
)

func (s SelectionMethod) String() string {
	switch s {
	case SelectByFileID:
		return "Select by File ID"
	case SelectChildDF:
		return "Select Child DF"
	case SelectEFUnderCurrentDF:
		return "Select EF under current DF"
	case SelectParentDF:
		return "Select Parent DF"
	case SelectByDFName:
		return "Select by DF Name (AID)"
	case SelectPathFromMF:
		return "Select Path from MF"
	case SelectPathFromCurrentDF:
		return "Select Path from Current DF"
	default:
		return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
	}
}

// FileOccurrence defines which instance of the file to select (Bits 1-2 of P2).
type FileOccurrence byte

const (
	FirstOrOnlyOccurrence FileOccurrence = 0b0000_00_00
	LastOccurrence        FileOccurrence = 0b0000_00_01
	NextOccurrence        FileOccurrence = 0b0000_00_10
	PreviousOccurrence    FileOccurrence = 0b0000_00_11
)

// SelectionControl defines what data to return (Bits 3-4 of P2).
type SelectionControl byte

const (
	ReturnFCI    SelectionControl = 0b0000_00_00
	ReturnFCP    SelectionControl = 0b0000_01_00
	ReturnFMD    SelectionControl = 0b0000_10_00
	ReturnNoData SelectionControl = 0b0000_11_00
)

// NewSelectCommand creates a generic SELECT command.
//
// Contactless EMV kernels issue SELECT as a Case 4 command: both the AID in
// the data field and a trailing Le of 0x00. T=0 contact readers that cannot
// carry Lc and Le simultaneously surface the response length through the
// '61 XX' procedure instead, which Client.Send absorbs transparently, so the
// same encoding serves both paths.
func NewSelectCommand(
	cla Class,
	method SelectionMethod,
	occurrence FileOccurrence,
	ctrl SelectionControl,
	data []byte,
) *CommandAPDU {
	// P2 Construction: Combine Occurrence (bits 1-2) and Control Info (bits 3-4).
	p2 := byte(ctrl) | byte(occurrence)

	ins, _ := NewInstruction(INS_SELECT)

	ne := 0
	if ctrl != ReturnNoData {
		ne = MaxShortLe
	}

	return NewCommandAPDU(cla, ins, byte(method), p2, data, ne)
}

// SelectByAID creates a SELECT command targeting an application by its name
// (AID or a directory name such as "2PAY.SYS.DDF01").
func SelectByAID(cla Class, aid []byte) *CommandAPDU {
	return NewSelectCommand(
		cla,
		SelectByDFName,
		FirstOrOnlyOccurrence,
		ReturnFCI,
		aid,
	)
}
