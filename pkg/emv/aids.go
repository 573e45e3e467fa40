package emv

import "bytes"

// Fallback AID candidates tried in order when PPSE selection fails or the
// directory comes back empty. Ordering reflects how common the schemes are
// in the field.
var KnownAIDs = []struct {
	AID   []byte
	Label string
}{
	{[]byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x10, 0x10}, "Visa Credit/Debit"},
	{[]byte{0xA0, 0x00, 0x00, 0x00, 0x03, 0x20, 0x10}, "Visa Electron"},
	{[]byte{0xA0, 0x00, 0x00, 0x00, 0x04, 0x10, 0x10}, "Mastercard Credit/Debit"},
	{[]byte{0xA0, 0x00, 0x00, 0x00, 0x04, 0x30, 0x60}, "Maestro"},
	{[]byte{0xA0, 0x00, 0x00, 0x00, 0x25, 0x01, 0x04}, "American Express"},
	{[]byte{0xA0, 0x00, 0x00, 0x01, 0x52, 0x30, 0x10}, "Discover"},
	{[]byte{0xA0, 0x00, 0x00, 0x00, 0x65, 0x10, 0x10}, "JCB"},
	{[]byte{0xA0, 0x00, 0x00, 0x03, 0x33, 0x01, 0x01, 0x01}, "UnionPay Debit"},
	{[]byte{0xA0, 0x00, 0x00, 0x03, 0x33, 0x01, 0x01, 0x02}, "UnionPay Credit"},
	{[]byte{0xA0, 0x00, 0x00, 0x05, 0x24, 0x10, 0x10}, "RuPay"},
}

// LabelForAID returns the scheme name for a known AID, matching on prefix
// so product-specific suffixes still resolve. Empty when unknown.
func LabelForAID(aid []byte) string {
	for _, known := range KnownAIDs {
		if bytes.HasPrefix(aid, known.AID) {
			return known.Label
		}
	}
	return ""
}
