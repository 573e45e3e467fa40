package emv

import (
	"context"

	"github.com/chronlc/cardprobe/pkg/iso7816"
	"github.com/chronlc/cardprobe/pkg/logger"
	"github.com/chronlc/cardprobe/pkg/tlv"
)

// processingOptions issues GET PROCESSING OPTIONS. The command data field
// is the materialized PDOL wrapped in a Command Template (tag 83); cards
// that published no PDOL get the empty template 83 00. The response
// arrives in one of two shapes: Format 1 (tag 80, fixed AIP+AFL layout)
// or Format 2 (tag 77, ordinary nested TLV).
func (e *Engine) processingOptions(ctx context.Context, client *iso7816.Client, s *Session) error {
	var pdolData []byte
	if raw, ok := s.Get(TagPDOL); ok {
		entries, err := ParseDOL(raw)
		if err != nil {
			logger.Error("PDOL parse: %v", err)
		}
		pdolData = MaterializeDOL(entries, e.lookup(s, nil))
	}

	// The template carries a single length byte; a hostile PDOL summing
	// past it would desynchronize the wrapper from the payload.
	if len(pdolData) > 0xFF {
		logger.Error("materialized PDOL is %d bytes, beyond the command template, sending empty", len(pdolData))
		pdolData = nil
	}

	data := append([]byte{commandTemplateTag, byte(len(pdolData))}, pdolData...)
	cmd := iso7816.NewCommandAPDU(
		clsProprietary,
		mustInstruction(iso7816.INS_GET_PROCESSING_OPTIONS),
		0x00, 0x00, data, iso7816.MaxShortLe,
	)

	resp, err := e.exchange(client, s, "GPO", cmd)
	if err != nil {
		return err
	}
	if !resp.Status.IsSuccess() {
		logger.Error("GPO refused: %s", resp.Status)
		return nil
	}

	nodes, derr := tlv.Decode(resp.Data)
	if derr != nil {
		logger.Debug("GPO response partially decoded: %v", derr)
	}

	if f1, ok := tlv.Find(nodes, TagGPOFormat1); ok {
		// Format 1: value is AIP (2 bytes) followed by the AFL.
		if len(f1.Value) >= 2 {
			s.Put(TagAIP, f1.Value[:2])
			s.Put(TagAFL, f1.Value[2:])
		} else {
			logger.Error("GPO Format 1 payload too short: %d bytes", len(f1.Value))
		}
	} else {
		// Format 2: tags 82 and 94 sit directly under the template.
		if err := s.Absorb(resp.Data); err != nil {
			logger.Debug("GPO response absorbed with defects: %v", err)
		}
	}

	if raw, ok := s.Get(TagAIP); ok {
		if aip, valid := ParseAIP(raw); valid {
			s.AIP = aip
		}
	}
	return nil
}
