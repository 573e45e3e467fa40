package emv

import (
	"context"

	"github.com/chronlc/cardprobe/pkg/iso7816"
	"github.com/chronlc/cardprobe/pkg/logger"
)

// defaultDDOL is used when the card published no DDOL: the unpredictable
// number alone (9F37, 4 bytes), per EMV Book 2.
var defaultDDOL = []byte{0x9F, 0x37, 0x04}

// offlineAuth picks the card's strongest advertised authentication method
// and runs its exchanges. SDA needs none (the signed static data was
// already collected from records); DDA is a challenge/response round; CDA
// defers to the cryptogram phase. Signature verification itself is done by
// downstream analysis, not here.
func (e *Engine) offlineAuth(ctx context.Context, client *iso7816.Client, s *Session) error {
	s.AuthMethod = SelectAuthMethod(s.AIP)
	logger.Info("offline auth method: %s (AIP %04X)", s.AuthMethod, s.AIP)

	if s.AuthMethod != AuthDDA {
		return nil
	}

	// Terminal challenge. Cards commonly return 8 bytes; whatever arrives
	// replaces the terminal's unpredictable number in the DDOL.
	resp, err := e.exchange(client, s, "OFFLINE_AUTH", iso7816.GetChallenge(clsStandard))
	if err != nil {
		return err
	}

	overrides := map[string][]byte{}
	if resp.Status.IsSuccess() && len(resp.Data) > 0 {
		overrides[TagUnpredictableNumber] = resp.Data
	} else {
		logger.Debug("GET CHALLENGE refused (%s), using terminal unpredictable number", resp.Status)
	}

	ddol, ok := s.Get(TagDDOL)
	if !ok {
		ddol = defaultDDOL
	}
	entries, derr := ParseDOL(ddol)
	if derr != nil {
		logger.Error("DDOL parse: %v", derr)
	}
	payload := MaterializeDOL(entries, e.lookup(s, overrides))

	resp, err = e.exchange(client, s, "OFFLINE_AUTH", iso7816.InternalAuthenticate(clsStandard, payload))
	if err != nil {
		return err
	}
	if !resp.Status.IsSuccess() {
		logger.Error("INTERNAL AUTHENTICATE refused: %s", resp.Status)
		return nil
	}

	if aerr := s.Absorb(resp.Data); aerr != nil {
		logger.Debug("INTERNAL AUTHENTICATE response absorbed with defects: %v", aerr)
	}
	if sdad, ok := s.Get(TagSDAD); ok {
		s.AuthData = sdad
	}
	return nil
}
