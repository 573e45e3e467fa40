package emv

import (
	"context"
	"errors"

	"github.com/chronlc/cardprobe/pkg/iso7816"
	"github.com/chronlc/cardprobe/pkg/logger"
)

// ErrNoApplication reports that neither the PPSE directory nor the
// fallback AID list produced a selectable application.
var ErrNoApplication = errors.New("no selectable application")

// selectApplication finds and selects the card application. It asks the
// PPSE for directory entries first; when that fails or comes back empty it
// probes the fallback AID list with individual SELECTs.
func (e *Engine) selectApplication(ctx context.Context, client *iso7816.Client, s *Session) error {
	type candidate struct {
		aid   []byte
		label string
	}
	var candidates []candidate

	resp, err := e.exchange(client, s, "SELECT", iso7816.SelectByAID(clsStandard, []byte(PPSEName)))
	if err != nil {
		return err
	}
	if resp.Status.IsSuccess() {
		s.Absorb(resp.Data)
		fci, perr := ParseFCI(resp.Data)
		if perr != nil {
			logger.Debug("PPSE FCI unparseable: %v", perr)
		}
		for _, app := range CandidateApplications(fci) {
			candidates = append(candidates, candidate{aid: app.AID, label: app.Label()})
		}
	} else {
		logger.Debug("PPSE selection refused: %s", resp.Status)
	}

	if len(candidates) == 0 {
		logger.Debug("no directory entries, probing %d known AIDs", len(KnownAIDs))
		for _, known := range KnownAIDs {
			candidates = append(candidates, candidate{aid: known.AID, label: known.Label})
		}
	}

	for _, c := range candidates {
		resp, err := e.exchange(client, s, "SELECT", iso7816.SelectByAID(clsStandard, c.aid))
		if err != nil {
			return err
		}
		if !resp.Status.IsSuccess() {
			continue
		}

		s.AID = c.aid
		s.Label = c.label
		if s.Label == "" {
			s.Label = LabelForAID(c.aid)
		}
		// The FCI carries the PDOL (9F38) the GPO phase needs.
		s.Absorb(resp.Data)
		logger.Info("selected application %X (%s)", s.AID, s.Label)
		return nil
	}

	return ErrNoApplication
}
