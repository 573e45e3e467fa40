package iso7816

import (
	"fmt"
)

// READ RECORD (INS 'B2') pulls records out of the current EF or a file
// named by its Short File Identifier. P2 packs the addressing:
//
//	bits 8-4  SFI (0 = current EF)
//	bit  3    0 = P1 is a record identifier, 1 = P1 is a record number
//	bits 2-1  occurrence / range selector
//
// Payment applications publish their data as numbered records behind
// SFIs, so the by-number form is the one the transaction flow uses.

// ReadRecordMode is the low 3 bits of P2: reference style plus selector.
type ReadRecordMode byte

const (
	// P1 carries a record identifier.
	ModeFirstByID ReadRecordMode = 0b000
	ModeLastByID  ReadRecordMode = 0b001
	ModeNextByID  ReadRecordMode = 0b010
	ModePrevByID  ReadRecordMode = 0b011

	// P1 carries a record number.
	ModeByNumber  ReadRecordMode = 0b100
	ModeAllFromP1 ReadRecordMode = 0b101
	ModeAllToP1   ReadRecordMode = 0b110
)

func (m ReadRecordMode) String() string {
	switch m {
	case ModeFirstByID:
		return "Ref ID: First Occurrence"
	case ModeLastByID:
		return "Ref ID: Last Occurrence"
	case ModeNextByID:
		return "Ref ID: Next Occurrence"
	case ModePrevByID:
		return "Ref ID: Previous Occurrence"
	case ModeByNumber:
		return "Ref Num: Read Record P1"
	case ModeAllFromP1:
		return "Ref Num: Read All from P1"
	case ModeAllToP1:
		return "Ref Num: Read All from Last to P1"
	default:
		return fmt.Sprintf("Unknown Mode (0x%X)", byte(m))
	}
}

// NewReadRecordCommand creates a raw READ RECORD command. READ RECORD is
// a case 2 command, so Le must be present; MaxShortLe makes the encoder
// append the trailing '00'.
func NewReadRecordCommand(cla Class, sfi, p1 byte, mode ReadRecordMode) *CommandAPDU {
	p2 := sfi<<3 | byte(mode)
	ins, _ := NewInstruction(INS_READ_RECORD)
	return NewCommandAPDU(cla, ins, p1, p2, nil, MaxShortLe)
}

// ReadRecord reads one record by number.
func ReadRecord(cla Class, sfi, recordNumber byte) *CommandAPDU {
	return NewReadRecordCommand(cla, sfi, recordNumber, ModeByNumber)
}

// ReadAllRecords reads every record from startRecordNumber up.
func ReadAllRecords(cla Class, sfi, startRecordNumber byte) *CommandAPDU {
	return NewReadRecordCommand(cla, sfi, startRecordNumber, ModeAllFromP1)
}
