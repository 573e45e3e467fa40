package transport

import (
	"context"
	"fmt"

	"github.com/ebfe/scard"

	"github.com/chronlc/cardprobe/pkg/emv"
	"github.com/chronlc/cardprobe/pkg/logger"
)

// PCSC connects to a contact or contactless reader through the platform
// PC/SC stack.
type PCSC struct {
	ctx    *scard.Context
	card   *scard.Card
	reader string
}

var _ emv.Transport = (*PCSC)(nil)

// OpenPCSC establishes a PC/SC context and connects to the first reader
// holding a card.
func OpenPCSC() (*PCSC, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establishing context: %w", err)
	}

	readers, err := ctx.ListReaders()
	if err != nil || len(readers) == 0 {
		ctx.Release()
		if err != nil {
			return nil, fmt.Errorf("listing readers: %w", err)
		}
		return nil, fmt.Errorf("no smart card reader found")
	}

	logger.Info("using reader: %s", readers[0])

	// Force T=0 or T=1 to avoid "Parameter Incorrect" errors (Error 57)
	card, err := ctx.Connect(readers[0], scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		ctx.Release()
		return nil, fmt.Errorf("connecting to card: %w", err)
	}

	return &PCSC{ctx: ctx, card: card, reader: readers[0]}, nil
}

// Reader returns the name of the connected reader.
func (p *PCSC) Reader() string {
	return p.reader
}

// Transceive sends one APDU. The PC/SC stack has no cancellable transmit,
// so the call runs in its own goroutine and an expired context abandons
// the wait; the orphaned Transmit finishes against the driver's own
// timeout.
func (p *PCSC) Transceive(ctx context.Context, command []byte) ([]byte, error) {
	type result struct {
		resp []byte
		err  error
	}
	done := make(chan result, 1)

	go func() {
		resp, err := p.card.Transmit(command)
		done <- result{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.resp, r.err
	}
}

// Close disconnects from the card and releases the PC/SC context.
func (p *PCSC) Close() error {
	var firstErr error
	if err := p.card.Disconnect(scard.LeaveCard); err != nil {
		firstErr = fmt.Errorf("disconnecting card: %w", err)
	}
	if err := p.ctx.Release(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("releasing context: %w", err)
	}
	return firstErr
}
