package emv

import (
	"errors"
	"fmt"

	"github.com/chronlc/cardprobe/pkg/tlv"
)

// DATA OBJECT LIST (DOL) INTERPRETER:
// A DOL (PDOL, CDOL1/2, DDOL) is the card's shopping list: an ordered
// sequence of BER tags, each followed by a single expected-length byte.
// The terminal answers with a bare concatenation of values in exactly that
// order and length, no TLV framing. The card binds this byte layout into
// its cryptograms, so truncation and zero-padding must match byte-for-byte.

// ErrMalformedDOL reports a DOL buffer with a truncated tag or a missing
// length byte.
var ErrMalformedDOL = errors.New("malformed DOL")

// DolEntry is one (tag, expected length) pair. Order within the parsed list
// is significant and preserved.
type DolEntry struct {
	Tag    []byte
	Length int
}

// TagString returns the entry's canonical tag identifier.
func (e DolEntry) TagString() string {
	return tlv.TagString(e.Tag)
}

// ParseDOL decodes a DOL buffer into its ordered entries.
// Unlike full BER-TLV, DOL entries carry a one-byte length by EMV convention.
func ParseDOL(buf []byte) ([]DolEntry, error) {
	var entries []DolEntry

	rest := buf
	for len(rest) > 0 {
		tag, remaining, err := tlv.ParseTag(rest)
		if err != nil {
			return entries, fmt.Errorf("%w: %v", ErrMalformedDOL, err)
		}
		if len(remaining) == 0 {
			return entries, fmt.Errorf("%w: tag %s has no length byte", ErrMalformedDOL, tlv.TagString(tag))
		}

		entries = append(entries, DolEntry{Tag: tag, Length: int(remaining[0])})
		rest = remaining[1:]
	}

	return entries, nil
}

// Lookup resolves a canonical tag to its value. The engine layers the
// terminal parameter store over the session database through this type.
type Lookup func(tag string) ([]byte, bool)

// MaterializeDOL builds the concatenated payload for a parsed DOL.
// For each entry in order: the looked-up value truncated to the expected
// length, right-padded with zero bytes when shorter, and all zeros when the
// tag is unknown. The result is always exactly the sum of entry lengths.
func MaterializeDOL(entries []DolEntry, lookup Lookup) []byte {
	total := 0
	for _, e := range entries {
		total += e.Length
	}

	out := make([]byte, 0, total)
	for _, e := range entries {
		chunk := make([]byte, e.Length)
		if value, ok := lookup(e.TagString()); ok {
			copy(chunk, value) // copy stops at min(len), leaving zero padding
		}
		out = append(out, chunk...)
	}

	return out
}
