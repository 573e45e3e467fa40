package iso7816

import (
	"bytes"
	"fmt"
)

// APDU encoding per ISO/IEC 7816-3 and 7816-4.
//
// A command is a 4-byte header (CLA INS P1 P2) plus an optional body.
// The body layout depends on the case:
//
//	Case 1: header only
//	Case 2: header + Le             (response expected)
//	Case 3: header + Lc + data      (payload, no response)
//	Case 4: header + Lc + data + Le (payload and response)
//
// Lc and Le come in short form (one byte, 255/256 max) and extended form
// (two bytes behind a 00 marker, 65535/65536 max). The encoder switches
// to extended form as soon as either length exceeds the short limits.
//
// A response is an optional data field followed by the 2-byte status
// word SW1 SW2 (0x9000 on success).

// APDU limits per ISO 7816-3.
const (
	// MaxShortLc is the largest payload length one Lc byte encodes.
	MaxShortLc = 255

	// MaxShortLe is the largest Ne a short Le encodes; 0x00 means 256.
	MaxShortLe = 256

	// MaxExtendedLc is the 16-bit limit on extended Lc.
	MaxExtendedLc = 65535

	// MaxExtendedLe is the largest extended Ne; 0x0000 means 65536.
	MaxExtendedLe = 65536

	// MaxAPDUBufferSize bounds an extended command:
	// header(4) + ext Lc(3) + data(65535) + ext Le(2) + margin(1).
	MaxAPDUBufferSize = 4 + 3 + MaxExtendedLc + 2 + 1
)

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // expected response length, 0 for none
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Bytes encodes the command, picking short or extended length fields
// from the payload size (Nc) and expected response length (Ne).
func (c *CommandAPDU) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)

	class, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}
	buf.WriteByte(class)
	buf.WriteByte(byte(c.Instruction.Raw))
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	nc := len(c.Data)
	ne := c.Ne
	extended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if extended {
			// 00 marker then Lc on two bytes
			buf.WriteByte(0x00)
			buf.WriteByte(byte(nc >> 8))
			buf.WriteByte(byte(nc))
		} else {
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		switch {
		case !extended:
			if ne == MaxShortLe {
				buf.WriteByte(0x00) // 0x00 encodes 256
			} else {
				buf.WriteByte(byte(ne))
			}
		default:
			// Extended case 2 needs its own 00 marker; case 4 reuses
			// the one written with Lc.
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			if ne == MaxExtendedLe {
				buf.WriteByte(0x00) // 0x0000 encodes 65536
				buf.WriteByte(0x00)
			} else {
				buf.WriteByte(byte(ne >> 8))
				buf.WriteByte(byte(ne))
			}
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU splits raw card output into data and status word.
// The input must carry at least the 2 trailer bytes.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	split := len(raw) - 2
	return &ResponseAPDU{
		Data:   raw[:split],
		Status: NewStatusWord(raw[split], raw[split+1]),
	}, nil
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
