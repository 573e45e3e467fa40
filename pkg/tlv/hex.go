package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// hexSpacing strips the separators fixtures use for readability.
var hexSpacing = strings.NewReplacer(" ", "", "\n", "", "\t", "")

// Hex concatenates hex strings into bytes, ignoring spaces so fixtures
// can be written as "00 A4 04 00". It panics on malformed input; it is
// meant for literals, mainly in tests.
func Hex(parts ...string) []byte {
	clean := hexSpacing.Replace(strings.Join(parts, ""))
	data, err := hex.DecodeString(clean)
	if err != nil {
		panic(fmt.Sprintf("invalid input '%s': %v", clean, err))
	}
	return data
}
