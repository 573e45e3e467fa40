package iso7816

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/chronlc/cardprobe/pkg/tlv"
)

func TestAuthCommands(t *testing.T) {
	cls, _ := NewClass(0x00)

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name:     "Get Challenge",
			cmd:      GetChallenge(cls),
			expected: tlv.Hex("00 84 00 00 00"),
		},
		{
			name: "Internal Authenticate with DDOL data",
			cmd:  InternalAuthenticate(cls, tlv.Hex("DEADBEEF")),
			expected: tlv.Hex(
				"00 88 00 00",
				"04",
				"DE AD BE EF",
				"00",
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Failed to encode bytes: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch:\nExpected: %s\nGot:      %s",
					hex.EncodeToString(tt.expected),
					hex.EncodeToString(got))
			}
		})
	}
}
