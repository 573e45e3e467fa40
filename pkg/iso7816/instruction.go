package iso7816

import (
	"fmt"

	"github.com/chronlc/cardprobe/pkg/bits"
)

// Instruction Byte (INS) Logic according to ISO/IEC 7816-4.
//
// The INS byte identifies the specific command to be performed by the card.
//
// 1. Data Encoding (Bit 1):
//    When using the interindustry class, the least significant bit (Bit 1)
//    often indicates the format of the data field.
//    - 0: Standard or no specific formatting.
//    - 1: BER-TLV encoded data structure.
//
// 2. Reserved Ranges:
//    INS values where the upper nibble is '6' or '9' (0x6X or 0x9X) are
//    invalid; those values are reserved for Status Words (SW1) and
//    transport layer control procedures (ISO/IEC 7816-3).

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Instruction (INS) codes spoken by the transaction engine. SELECT, READ
// RECORD, GET CHALLENGE, INTERNAL AUTHENTICATE and GET RESPONSE are
// interindustry (ISO 7816-4); GET PROCESSING OPTIONS and GENERATE AC are
// EMV commands issued under the proprietary class 0x80.
const (
	INS_EXTERNAL_AUTHENTICATE  InsCode = 0x82
	INS_GET_CHALLENGE          InsCode = 0x84
	INS_INTERNAL_AUTHENTICATE  InsCode = 0x88
	INS_SELECT                 InsCode = 0xA4
	INS_GET_PROCESSING_OPTIONS InsCode = 0xA8
	INS_GENERATE_AC            InsCode = 0xAE
	INS_READ_BINARY            InsCode = 0xB0
	INS_READ_BINARY_BER        InsCode = 0xB1
	INS_READ_RECORD            InsCode = 0xB2
	INS_GET_RESPONSE           InsCode = 0xC0
	INS_GET_DATA               InsCode = 0xCA
)

var insNames = map[InsCode]string{
	INS_EXTERNAL_AUTHENTICATE:  "EXTERNAL AUTHENTICATE",
	INS_GET_CHALLENGE:          "GET CHALLENGE",
	INS_INTERNAL_AUTHENTICATE:  "INTERNAL AUTHENTICATE",
	INS_SELECT:                 "SELECT",
	INS_GET_PROCESSING_OPTIONS: "GET PROCESSING OPTIONS",
	INS_GENERATE_AC:            "GENERATE AC",
	INS_READ_BINARY:            "READ BINARY",
	INS_READ_BINARY_BER:        "READ BINARY (BER-TLV)",
	INS_READ_RECORD:            "READ RECORD",
	INS_GET_RESPONSE:           "GET RESPONSE",
	INS_GET_DATA:               "GET DATA",
}

// String returns the command name, or a hex fallback for codes the engine
// does not issue itself.
func (c InsCode) String() string {
	if name, ok := insNames[c]; ok {
		return name
	}
	return fmt.Sprintf("INS(0x%02X)", byte(c))
}

// Instruction represents the parsed ISO 7816-4 Instruction byte (INS).
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction creates an Instruction object with validation.
// It rejects '6X' and '9X' values as they are invalid according to ISO 7816-3.
func NewInstruction(ins InsCode) (Instruction, error) {
	highNibble := byte(ins) & 0xF0
	if highNibble == 0x60 || highNibble == 0x90 {
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", ins)
	}

	return Instruction{
		Raw:      ins,
		IsBERTLV: bits.IsSet(byte(ins), 1), // Bit 1 indicates BER-TLV preference
	}, nil
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw.String(), format)
}
