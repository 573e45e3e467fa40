package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chronlc/cardprobe/pkg/emv"
	"github.com/chronlc/cardprobe/pkg/logger"
)

// PN532 command codes (NXP UM0701-02).
const (
	cmdGetFirmwareVersion  = 0x02
	cmdSAMConfiguration    = 0x14
	cmdInListPassiveTarget = 0x4A
	cmdInDataExchange      = 0x40
	cmdInRelease           = 0x52
	cmdTgInitAsTarget      = 0x8C
	cmdTgGetData           = 0x86
	cmdTgSetData           = 0x8E
)

// ErrNoCard reports that no target entered the field before the deadline.
var ErrNoCard = errors.New("no card in field")

// CardInfo describes a detected ISO 14443A target.
type CardInfo struct {
	Target byte
	ATQA   []byte
	SAK    byte
	UID    []byte
}

// TypeName classifies the target from its SAK byte.
func (c CardInfo) TypeName() string {
	switch {
	case c.SAK&0x20 != 0:
		return "ISO14443-4 (EMV/Smart Card)"
	case c.SAK == 0x08:
		return "MIFARE Classic 1K"
	case c.SAK == 0x18:
		return "MIFARE Classic 4K"
	case c.SAK == 0x00:
		return "MIFARE Ultralight"
	case c.SAK == 0x10:
		return "MIFARE Plus"
	default:
		return fmt.Sprintf("Unknown (SAK: 0x%02X)", c.SAK)
	}
}

// PN532 drives an NXP PN532 module over a serial or TCP-bridged line,
// typically a Bluetooth rfcomm binding. It implements the card transport
// contract: Transceive carries one APDU to whatever target WaitForCard
// selected.
type PN532 struct {
	port   Port
	target byte
}

var _ emv.Transport = (*PN532)(nil)

// OpenPN532 opens the line, wakes the module, verifies its firmware and
// puts the SAM into normal mode.
func OpenPN532(portName string, baudRate int) (*PN532, error) {
	port, err := OpenPort(portName, baudRate)
	if err != nil {
		return nil, err
	}

	p := &PN532{port: port}

	if err := p.wakeup(); err != nil {
		port.Close()
		return nil, fmt.Errorf("wakeup: %w", err)
	}

	version, err := p.firmwareVersion()
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("firmware version: %w", err)
	}
	logger.Info("PN532 firmware: %s", version)

	if err := p.samConfiguration(); err != nil {
		port.Close()
		return nil, fmt.Errorf("SAM configuration: %w", err)
	}

	return p, nil
}

// Close releases the selected target, if any, and closes the line.
func (p *PN532) Close() error {
	if p.target != 0 {
		if _, err := p.command(cmdInRelease, []byte{p.target}, 2*time.Second); err != nil {
			logger.Error("release target %d: %v", p.target, err)
		}
		p.target = 0
	}
	return p.port.Close()
}

// wakeup pulls the module out of low power mode. The 0x55 preamble run
// gives the UART time to settle before the first real frame.
func (p *PN532) wakeup() error {
	wake := make([]byte, 10)
	for i := range wake {
		wake[i] = 0x55
	}
	if _, err := p.port.Write(wake); err != nil {
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return p.port.ResetInputBuffer()
}

func (p *PN532) firmwareVersion() (string, error) {
	resp, err := p.command(cmdGetFirmwareVersion, nil, 2*time.Second)
	if err != nil {
		return "", err
	}
	if len(resp) < 4 {
		return "", fmt.Errorf("short firmware response: %X", resp)
	}
	return fmt.Sprintf("v%d.%d (IC: 0x%02X, Support: 0x%02X)", resp[1], resp[2], resp[0], resp[3]), nil
}

// samConfiguration selects normal mode with a 50ms virtual card timeout
// and the IRQ pin enabled.
func (p *PN532) samConfiguration() error {
	_, err := p.command(cmdSAMConfiguration, []byte{0x01, 0x14, 0x01}, 2*time.Second)
	return err
}

// WaitForCard polls for an ISO 14443A target until one enters the field or
// the context expires. The selected target number is kept for Transceive.
func (p *PN532) WaitForCard(ctx context.Context) (*CardInfo, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := p.command(cmdInListPassiveTarget, []byte{0x01, 0x00}, 2*time.Second)
		if err == nil && len(resp) >= 6 && resp[0] > 0 {
			info := &CardInfo{
				Target: resp[1],
				ATQA:   resp[2:4],
				SAK:    resp[4],
			}
			uidLen := int(resp[5])
			if len(resp) >= 6+uidLen {
				info.UID = resp[6 : 6+uidLen]
			}

			p.target = info.Target
			logger.Info("card detected: UID %X, %s", info.UID, info.TypeName())
			return info, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// Transceive sends one APDU to the selected target through InDataExchange
// and returns the card's raw response including the status word.
func (p *PN532) Transceive(ctx context.Context, command []byte) ([]byte, error) {
	if p.target == 0 {
		return nil, ErrNoCard
	}

	timeout, err := ioTimeout(ctx, 5*time.Second)
	if err != nil {
		return nil, err
	}

	params := append([]byte{p.target}, command...)
	resp, err := p.command(cmdInDataExchange, params, timeout)
	if err != nil {
		return nil, err
	}
	if len(resp) < 1 {
		return nil, fmt.Errorf("empty InDataExchange response")
	}
	if status := resp[0] & 0x3F; status != 0x00 {
		return nil, fmt.Errorf("InDataExchange error status 0x%02X", status)
	}
	return resp[1:], nil
}

// TargetIdentity is the ISO 14443A face the module shows while emulating
// a card: the ATQA (SENS_RES), a 4-byte UID starting with the 0x08 random
// marker, and the SAK (SEL_RES).
type TargetIdentity struct {
	ATQA []byte
	UID  []byte
	SAK  byte
}

// EMVCardIdentity returns an identity a payment terminal or phone accepts
// as an ISO 14443-4 card.
func EMVCardIdentity() TargetIdentity {
	return TargetIdentity{
		ATQA: []byte{0x00, 0x04},
		UID:  []byte{0x08, 0x12, 0x34, 0x56},
		SAK:  0x20,
	}
}

// InitAsTarget flips the module into card emulation mode and blocks until
// an initiator selects it or the context deadline passes. It returns the
// activation data: the mode byte followed by the initiator's first frame.
// After activation the conversation runs over GetTargetData/SetTargetData.
func (p *PN532) InitAsTarget(ctx context.Context, id TargetIdentity) ([]byte, error) {
	timeout, err := ioTimeout(ctx, 30*time.Second)
	if err != nil {
		return nil, err
	}

	params := make([]byte, 0, 2+len(id.ATQA)+len(id.UID)+6)
	params = append(params, 0x04) // PICC only, ISO 14443-4 compliant
	params = append(params, id.ATQA...)
	params = append(params, id.UID...)
	params = append(params, id.SAK)
	// FeliCa params, NFCID3t, general and historical bytes all empty.
	params = append(params, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00)

	resp, err := p.command(cmdTgInitAsTarget, params, timeout)
	if err != nil {
		return nil, err
	}
	if len(resp) < 1 {
		return nil, fmt.Errorf("empty TgInitAsTarget response")
	}
	logger.Info("emulation active, initiator mode 0x%02X", resp[0])
	return resp, nil
}

// GetTargetData receives the next frame the initiator sends to the
// emulated card, typically a command APDU.
func (p *PN532) GetTargetData(ctx context.Context) ([]byte, error) {
	timeout, err := ioTimeout(ctx, 5*time.Second)
	if err != nil {
		return nil, err
	}

	resp, err := p.command(cmdTgGetData, nil, timeout)
	if err != nil {
		return nil, err
	}
	if len(resp) < 1 {
		return nil, fmt.Errorf("empty TgGetData response")
	}
	if status := resp[0] & 0x3F; status != 0x00 {
		return nil, fmt.Errorf("TgGetData error status 0x%02X", status)
	}
	return resp[1:], nil
}

// SetTargetData answers the initiator from the emulated card, typically
// with a response APDU.
func (p *PN532) SetTargetData(ctx context.Context, data []byte) error {
	timeout, err := ioTimeout(ctx, 5*time.Second)
	if err != nil {
		return err
	}

	resp, err := p.command(cmdTgSetData, data, timeout)
	if err != nil {
		return err
	}
	if len(resp) < 1 {
		return fmt.Errorf("empty TgSetData response")
	}
	if status := resp[0] & 0x3F; status != 0x00 {
		return fmt.Errorf("TgSetData error status 0x%02X", status)
	}
	return nil
}

// ioTimeout derives a command timeout from the context deadline, falling
// back to a default when none is set.
func ioTimeout(ctx context.Context, fallback time.Duration) (time.Duration, error) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback, nil
	}
	timeout := time.Until(deadline)
	if timeout <= 0 {
		return 0, context.DeadlineExceeded
	}
	return timeout, nil
}

// command runs one framed command round: write, collect the ACK, collect
// the response frame, validate checksums, and strip the command echo byte.
func (p *PN532) command(code byte, params []byte, timeout time.Duration) ([]byte, error) {
	data := append([]byte{code}, params...)
	frame := buildFrame(data)

	logger.Protocol(">", "pn532", frame)
	if _, err := p.port.Write(frame); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	deadline := time.Now().Add(timeout)

	ack, err := p.readFull(len(ackFrame), deadline)
	if err != nil {
		return nil, fmt.Errorf("ack: %w", err)
	}
	if !isAck(ack) {
		return nil, fmt.Errorf("%w: expected ACK, got %X", ErrBadFrame, ack)
	}

	raw, err := p.readResponseFrame(deadline)
	if err != nil {
		return nil, err
	}
	logger.Protocol("<", "pn532", raw)

	payload, err := parseFrame(raw)
	if err != nil {
		return nil, err
	}

	// First payload byte echoes the command code + 1.
	if len(payload) < 1 || payload[0] != code+1 {
		return nil, fmt.Errorf("%w: unexpected response code in %X", ErrBadFrame, payload)
	}
	return payload[1:], nil
}

// readResponseFrame assembles one full frame from the line: header, length
// fields, then exactly the body the length announces.
func (p *PN532) readResponseFrame(deadline time.Time) ([]byte, error) {
	head, err := p.readFull(5, deadline)
	if err != nil {
		return nil, fmt.Errorf("frame header: %w", err)
	}

	length := int(head[3])
	body, err := p.readFull(length+2, deadline) // TFI+data+DCS and postamble
	if err != nil {
		return nil, fmt.Errorf("frame body: %w", err)
	}

	return append(head, body...), nil
}

// readFull reads exactly n bytes, looping over the port's short read
// timeout until the deadline passes.
func (p *PN532) readFull(n int, deadline time.Time) ([]byte, error) {
	buf := make([]byte, 0, n)
	chunk := make([]byte, n)

	for len(buf) < n {
		if time.Now().After(deadline) {
			return buf, fmt.Errorf("read timeout after %d/%d bytes", len(buf), n)
		}
		read, err := p.port.Read(chunk[:n-len(buf)])
		if err != nil {
			return buf, err
		}
		buf = append(buf, chunk[:read]...)
	}
	return buf, nil
}
