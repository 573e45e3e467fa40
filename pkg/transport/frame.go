package transport

import (
	"bytes"
	"errors"
	"fmt"
)

// PN532 host frame format (NXP UM0701-02 §6.2.1):
//
//	00 00 FF LEN LCS TFI DATA... DCS 00
//
// LEN counts TFI plus data, LCS is its two's complement, DCS is the two's
// complement of the sum over TFI and data. TFI is 0xD4 host-to-module and
// 0xD5 module-to-host.

const (
	tfiHostToModule = 0xD4
	tfiModuleToHost = 0xD5
)

var (
	frameHeader = []byte{0x00, 0x00, 0xFF}
	ackFrame    = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}
	nackFrame   = []byte{0x00, 0x00, 0xFF, 0xFF, 0x00, 0x00}
)

// ErrBadFrame reports a response frame failing header or checksum checks.
var ErrBadFrame = errors.New("bad PN532 frame")

// buildFrame wraps a command byte plus parameters into a host frame.
func buildFrame(data []byte) []byte {
	length := byte(len(data) + 1) // +1 for TFI
	lcs := ^length + 1

	sum := byte(tfiHostToModule)
	for _, b := range data {
		sum += b
	}
	dcs := ^sum + 1

	frame := make([]byte, 0, len(frameHeader)+len(data)+5)
	frame = append(frame, frameHeader...)
	frame = append(frame, length, lcs, tfiHostToModule)
	frame = append(frame, data...)
	frame = append(frame, dcs, 0x00)
	return frame
}

// isAck reports whether buf is the module's acknowledge frame.
func isAck(buf []byte) bool {
	return bytes.Equal(buf, ackFrame)
}

// parseFrame validates a full response frame and returns the data that
// follows the TFI.
func parseFrame(frame []byte) ([]byte, error) {
	if len(frame) < len(frameHeader)+5 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadFrame, len(frame))
	}
	if !bytes.Equal(frame[:3], frameHeader) {
		return nil, fmt.Errorf("%w: header %X", ErrBadFrame, frame[:3])
	}

	length := frame[3]
	lcs := frame[4]
	if (length+lcs)&0xFF != 0 {
		return nil, fmt.Errorf("%w: length checksum", ErrBadFrame)
	}
	if int(length)+7 > len(frame) {
		return nil, fmt.Errorf("%w: truncated body", ErrBadFrame)
	}

	tfi := frame[5]
	if tfi != tfiModuleToHost {
		return nil, fmt.Errorf("%w: TFI %02X", ErrBadFrame, tfi)
	}

	data := frame[6 : 5+int(length)]
	dcs := frame[5+int(length)]

	sum := tfi
	for _, b := range data {
		sum += b
	}
	if (sum+dcs)&0xFF != 0 {
		return nil, fmt.Errorf("%w: data checksum", ErrBadFrame)
	}

	return data, nil
}
