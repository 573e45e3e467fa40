package iso7816

// A Transaction is the atomic unit of card communication: one command
// APDU out, one response APDU back. A Trace is the ordered list of
// transactions performed for a single logical request. The two differ
// whenever the transport chains extra exchanges (GET RESPONSE after
// 61xx, a re-send after 6Cxx): the Trace then holds the whole
// conversation and success is judged on its final pair.

// Transaction represents a completed Command-Response pair.
type Transaction struct {
	Command  *CommandAPDU
	Response *ResponseAPDU
}

// IsSuccess reports whether the pair ended with a success status.
// A missing response counts as failure.
func (t *Transaction) IsSuccess() bool {
	return t.Response != nil && t.Response.Status.IsSuccess()
}

// Trace is the chronological record of one logical exchange.
type Trace []Transaction

// Last returns the final transaction, or nil for an empty trace.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess judges the logical operation by its final transaction;
// intermediate 61xx warnings do not count against it.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	return last != nil && last.IsSuccess()
}
