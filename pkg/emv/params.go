package emv

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// TERMINAL PARAMETER STORE:
// The terminal side of the transaction contributes its own data elements
// (amount, country, currency, date, unpredictable number, qualifiers).
// Cards request them by tag through DOLs; the store answers those lookups.

// TransactionParameters are the terminal-authoritative inputs to one
// transaction. Zero values fall back to research-friendly defaults in
// NewTerminalParams.
type TransactionParameters struct {
	Amount          uint64 // authorized amount in minor currency units
	AmountOther     uint64
	CountryCode     uint16 // ISO 3166 numeric, e.g. 0x0840 for US
	CurrencyCode    uint16 // ISO 4217 numeric, e.g. 0x0840 for USD
	TransactionType byte   // 0x00 purchase
	Date            time.Time
	TTQ             uint32 // Terminal Transaction Qualifiers
	TerminalType    byte
	ATCSeed         uint16 // seed reported for tag 9F36 lookups before the card answers
}

// TerminalParams holds the materialized terminal data elements keyed by
// canonical tag. One instance belongs to exactly one session; concurrent
// sessions each build their own.
type TerminalParams struct {
	values map[string][]byte
}

// NewTerminalParams builds a store from the given parameters, filling in
// defaults: contactless-qualifier TTQ for offline-capable reads, the
// current date, and a fresh unpredictable number.
func NewTerminalParams(tp TransactionParameters) (*TerminalParams, error) {
	if tp.CountryCode == 0 {
		tp.CountryCode = 0x0840
	}
	if tp.CurrencyCode == 0 {
		tp.CurrencyCode = 0x0840
	}
	if tp.TTQ == 0 {
		// Contactless EMV mode, offline data authentication supported.
		tp.TTQ = 0x27000000
	}
	if tp.TerminalType == 0 {
		tp.TerminalType = 0x22 // attended, offline with online capability
	}
	if tp.Date.IsZero() {
		tp.Date = time.Now()
	}

	un := make([]byte, 4)
	if _, err := rand.Read(un); err != nil {
		return nil, fmt.Errorf("unpredictable number: %w", err)
	}

	p := &TerminalParams{values: make(map[string][]byte)}

	p.values[TagAmountAuthorized] = encodeBCD(tp.Amount, 6)
	p.values[TagAmountOther] = encodeBCD(tp.AmountOther, 6)
	p.values[TagTerminalCountry] = be16(tp.CountryCode)
	p.values[TagTransactionCurrency] = be16(tp.CurrencyCode)
	p.values[TagTransactionDate] = encodeDate(tp.Date)
	p.values[TagTransactionType] = []byte{tp.TransactionType}
	p.values[TagUnpredictableNumber] = un
	p.values[TagTVR] = make([]byte, 5)
	p.values[TagTTQ] = be32(tp.TTQ)
	p.values[TagTerminalType] = []byte{tp.TerminalType}
	p.values[TagTerminalCaps] = []byte{0xE0, 0xA0, 0x00}
	p.values[TagAdditionalTermCaps] = []byte{0x8E, 0x00, 0xB0, 0x50, 0x05}
	p.values[TagCVMResults] = []byte{0x3F, 0x00, 0x00} // no CVM performed
	p.values[TagATC] = be16(tp.ATCSeed)

	return p, nil
}

// Get looks up a terminal data element by canonical tag.
func (p *TerminalParams) Get(tag string) ([]byte, bool) {
	v, ok := p.values[tag]
	return v, ok
}

// Set overrides or adds a terminal data element. Profiles use this to
// inject extra elements a card under study asks for.
func (p *TerminalParams) Set(tag string, value []byte) {
	p.values[tag] = value
}

// UnpredictableNumber returns the session's 4-byte unpredictable number.
func (p *TerminalParams) UnpredictableNumber() []byte {
	return p.values[TagUnpredictableNumber]
}

// encodeBCD writes v as right-aligned packed BCD into width bytes.
// Values wider than the field are silently truncated to the low digits,
// matching how payment terminals clamp oversized amounts.
func encodeBCD(v uint64, width int) []byte {
	out := make([]byte, width)
	for i := width - 1; i >= 0 && v > 0; i-- {
		out[i] = byte(v % 10)
		v /= 10
		out[i] |= byte(v%10) << 4
		v /= 10
	}
	return out
}

// encodeDate encodes YYMMDD as 3 packed-BCD bytes (tag 9A convention).
func encodeDate(t time.Time) []byte {
	y, m, d := t.Date()
	return []byte{
		bcdByte(y % 100),
		bcdByte(int(m)),
		bcdByte(d),
	}
}

func bcdByte(v int) byte {
	return byte(v/10)<<4 | byte(v%10)
}

func be16(v uint16) []byte {
	out := make([]byte, 2)
	binary.BigEndian.PutUint16(out, v)
	return out
}

func be32(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}
