package iso7816

import (
	"fmt"
)

// The Client drives a card connection at the logical level. T=0 style
// transports leak two transport behaviors up to the application, and the
// Client absorbs both so callers see one logical request:
//
//   - "61 XX" (response available): XX bytes are waiting on the card. The
//     Client issues GET RESPONSE on the same logical channel to fetch them.
//   - "6C XX" (wrong length): the card rejects the requested Le and
//     suggests XX. The Client re-sends the original command with Le = XX.
//
// Send returns the Trace of every physical exchange performed for the
// request, so protocol analysis keeps the full conversation, not just the
// final response.

// maxChain bounds the number of follow-up commands for one logical
// request. A card answering 61xx/6Cxx forever would otherwise loop us.
const maxChain = 8

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the high-level communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits a command and handles protocol logic (61xx, 6Cxx).
// The returned Trace holds every command/response pair in order; on a
// transmission error the trace contains the pairs completed so far.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	var trace Trace

	for i := 0; i < maxChain; i++ {
		rawCmd, err := cmd.Bytes()
		if err != nil {
			return trace, fmt.Errorf("encoding error: %w", err)
		}

		rawResp, err := c.Card.Transmit(rawCmd)
		if err != nil {
			return trace, fmt.Errorf("transmission error: %w", err)
		}

		resp, err := ParseResponseAPDU(rawResp)
		if err != nil {
			return trace, err
		}

		trace = append(trace, Transaction{Command: cmd, Response: resp})

		switch resp.Status.SW1() {
		case 0x61:
			// GET RESPONSE stays on the logical channel of the original
			// command (ISO 7816-4), with Le = the announced byte count.
			cls := cmd.Class
			cls.IsChained = false
			ins, _ := NewInstruction(INS_GET_RESPONSE)
			cmd = NewCommandAPDU(cls, ins, 0x00, 0x00, nil, int(resp.Status.SW2()))

		case 0x6C:
			// Re-issue with the Le the card asked for, leaving the
			// caller's command untouched.
			retry := *cmd
			retry.Ne = int(resp.Status.SW2())
			cmd = &retry

		default:
			return trace, nil
		}
	}

	return trace, fmt.Errorf("command chain exceeded %d exchanges", maxChain)
}
