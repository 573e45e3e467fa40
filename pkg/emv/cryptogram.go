package emv

import (
	"context"

	"github.com/chronlc/cardprobe/pkg/iso7816"
	"github.com/chronlc/cardprobe/pkg/logger"
	"github.com/chronlc/cardprobe/pkg/tlv"
)

// generateCryptogram runs the one- or two-step GENERATE AC exchange. The
// first AC materializes CDOL1 and asks for the configured decision; when
// the card answers with an ARQC and published a CDOL2, a second AC closes
// the transaction with the post-authorization outcome. Without an issuer
// link that outcome comes from a stand-in decider and the session is
// marked as simulated.
func (e *Engine) generateCryptogram(ctx context.Context, client *iso7816.Client, s *Session) error {
	cdol1, ok := s.Get(TagCDOL1)
	if !ok {
		logger.Debug("no CDOL1, skipping cryptogram generation")
		return nil
	}

	requestCDA := s.AuthMethod == AuthCDA

	resp, err := e.generateAC(client, s, cdol1, e.decision, requestCDA)
	if err != nil {
		return err
	}
	if resp == nil {
		return nil
	}

	if s.CryptogramType != CryptogramARQC {
		return nil
	}

	cdol2, ok := s.Get(TagCDOL2)
	if !ok {
		logger.Debug("ARQC with no CDOL2, transaction stays online-pending")
		return nil
	}

	decision := RequestTC
	if e.decider != nil {
		decision = e.decider(s)
	} else {
		s.SecondACSimulated = true
		logger.Info("second GENERATE AC uses simulated issuer approval")
	}

	// The second AC may only lower the outcome to TC or AAC.
	if decision == RequestARQC {
		decision = RequestTC
	}

	_, err = e.generateAC(client, s, cdol2, decision, requestCDA)
	return err
}

// generateAC sends one GENERATE AC built from the given CDOL and records
// cryptogram, CID and ATC from the response. A nil response with nil error
// means the card refused the command.
func (e *Engine) generateAC(client *iso7816.Client, s *Session, cdol []byte, decision Decision, requestCDA bool) (*iso7816.ResponseAPDU, error) {
	entries, derr := ParseDOL(cdol)
	if derr != nil {
		logger.Error("CDOL parse: %v", derr)
	}
	// Once the card has reported its ATC it outranks the terminal's seed.
	overrides := map[string][]byte{}
	if atc, ok := s.Get(TagATC); ok {
		overrides[TagATC] = atc
	}
	payload := MaterializeDOL(entries, e.lookup(s, overrides))

	p1 := byte(decision)
	if requestCDA {
		p1 |= requestCDABit
	}

	cmd := iso7816.NewCommandAPDU(
		clsProprietary,
		mustInstruction(iso7816.INS_GENERATE_AC),
		p1, 0x00, payload, iso7816.MaxShortLe,
	)

	resp, err := e.exchange(client, s, "GENERATE_AC", cmd)
	if err != nil {
		return nil, err
	}
	if !resp.Status.IsSuccess() {
		logger.Error("GENERATE AC refused: %s", resp.Status)
		return nil, nil
	}

	if aerr := s.Absorb(resp.Data); aerr != nil {
		logger.Debug("GENERATE AC response absorbed with defects: %v", aerr)
	}

	// Format 1 (tag 80) is a fixed layout: CID(1) ATC(2) cryptogram(8),
	// optionally followed by issuer application data. The split applies
	// only when tag 80 is in THIS response; a Format 1 first AC lingering
	// in the database must not shadow a Format 2 second AC.
	nodes, _ := tlv.Decode(resp.Data)
	if f1, ok := tlv.Find(nodes, TagGPOFormat1); ok && len(f1.Value) >= 11 {
		s.Put(TagCID, f1.Value[:1])
		s.Put(TagATC, f1.Value[1:3])
		s.Put(TagCryptogram, f1.Value[3:11])
		if len(f1.Value) > 11 {
			s.Put(TagIssuerAppD, f1.Value[11:])
		}
	}

	if ac, ok := s.Get(TagCryptogram); ok {
		s.Cryptogram = ac
	}
	if atc, ok := s.Get(TagATC); ok {
		s.ATC = atc
	}
	if cid, ok := s.Get(TagCID); ok && len(cid) == 1 {
		s.CID = cid[0]
		s.CryptogramType = CryptogramTypeFromCID(cid[0])
		logger.Info("cryptogram outcome: %s (CID %02X)", s.CryptogramType, s.CID)
	}

	return resp, nil
}
