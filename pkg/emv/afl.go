package emv

import (
	"errors"
	"fmt"
)

// APPLICATION FILE LOCATOR (AFL):
// The GPO response tells the terminal which records hold the application
// data. The AFL is a sequence of 4-byte entries:
//
//	byte 0: SFI in the top 5 bits (valid range 1..30)
//	byte 1: first record number
//	byte 2: last record number
//	byte 3: count of leading records included in offline data authentication
//
// Hostile cards return nonsense entries; each one is validated separately
// so a single bad entry never blocks the rest of the read.

// ErrMalformedAFL reports an AFL whose length is not a multiple of 4.
var ErrMalformedAFL = errors.New("malformed AFL")

// AFLEntry is one decoded Application File Locator entry.
type AFLEntry struct {
	SFI          byte
	FirstRecord  byte
	LastRecord   byte
	OfflineCount byte
}

// Validate reports why an entry must be skipped, or nil when it is usable.
func (e AFLEntry) Validate() error {
	switch {
	case e.SFI == 0 || e.SFI == 31:
		return fmt.Errorf("reserved SFI %d", e.SFI)
	case e.FirstRecord == 0:
		return fmt.Errorf("first record is 0")
	case e.FirstRecord > e.LastRecord:
		return fmt.Errorf("first record %d > last record %d", e.FirstRecord, e.LastRecord)
	default:
		return nil
	}
}

func (e AFLEntry) String() string {
	return fmt.Sprintf("SFI %d records %d..%d (offline auth: %d)",
		e.SFI, e.FirstRecord, e.LastRecord, e.OfflineCount)
}

// ParseAFL decodes an AFL buffer into entries. Entries are returned
// undeciphered; callers check Validate per entry so that skips can be
// logged individually.
func ParseAFL(buf []byte) ([]AFLEntry, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrMalformedAFL, len(buf))
	}

	entries := make([]AFLEntry, 0, len(buf)/4)
	for i := 0; i < len(buf); i += 4 {
		entries = append(entries, AFLEntry{
			SFI:          buf[i] >> 3,
			FirstRecord:  buf[i+1],
			LastRecord:   buf[i+2],
			OfflineCount: buf[i+3],
		})
	}

	return entries, nil
}
