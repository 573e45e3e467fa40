package emv

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/chronlc/cardprobe/pkg/iso7816"
	"github.com/chronlc/cardprobe/pkg/logger"
)

// readRecords walks the AFL and reads every addressed record into the
// session database. Invalid AFL entries and refused reads are logged and
// skipped; the phase only aborts on a transport failure.
func (e *Engine) readRecords(ctx context.Context, client *iso7816.Client, s *Session) error {
	raw, ok := s.Get(TagAFL)
	if !ok || len(raw) == 0 {
		logger.Debug("no AFL, skipping record reads")
		return nil
	}

	entries, err := ParseAFL(raw)
	if err != nil {
		logger.Error("AFL parse: %v", err)
		return nil
	}

	for _, entry := range entries {
		if verr := entry.Validate(); verr != nil {
			logger.Error("skipping AFL entry %s: %v", entry, verr)
			continue
		}

		// int loop variable: LastRecord 0xFF would wrap a byte counter
		// and read forever.
		for rec := int(entry.FirstRecord); rec <= int(entry.LastRecord); rec++ {
			cmd := iso7816.ReadRecord(clsStandard, entry.SFI, byte(rec))
			resp, err := e.exchange(client, s, "READ_RECORDS", cmd)
			if err != nil {
				return err
			}
			if !resp.Status.IsSuccess() {
				logger.Debug("record SFI %d #%d refused: %s", entry.SFI, rec, resp.Status)
				continue
			}

			if aerr := s.Absorb(resp.Data); aerr != nil {
				logger.Debug("record SFI %d #%d absorbed with defects: %v", entry.SFI, rec, aerr)
			}
			e.captureCardData(s)
		}
	}
	return nil
}

// captureCardData fills the session's PAN and Track2 convenience fields
// the first time each tag shows up; later record reads do not overwrite
// them even though the tag database itself is last-write-wins.
func (e *Engine) captureCardData(s *Session) {
	if s.PAN == "" {
		if raw, ok := s.Get(TagPAN); ok {
			s.PAN = formatPAN(raw)
		}
	}
	if len(s.Track2) == 0 {
		if raw, ok := s.Get(TagTrack2); ok {
			s.Track2 = raw
		}
	}
}

// formatPAN renders the BCD-packed account number, dropping the 0xF
// padding nibble odd-length PANs end with.
func formatPAN(raw []byte) string {
	digits := strings.ToUpper(hex.EncodeToString(raw))
	return strings.TrimRight(digits, "F")
}
