package iso7816

import (
	"strings"
	"testing"
)

func TestNewInstruction(t *testing.T) {
	tests := []struct {
		name    string
		ins     InsCode
		wantErr bool
		wantRaw InsCode
		wantBER bool
	}{
		{name: "SELECT", ins: 0xA4, wantRaw: INS_SELECT},
		{name: "GET PROCESSING OPTIONS", ins: 0xA8, wantRaw: INS_GET_PROCESSING_OPTIONS},
		{name: "GENERATE AC", ins: 0xAE, wantRaw: INS_GENERATE_AC},
		{name: "GET CHALLENGE", ins: 0x84, wantRaw: INS_GET_CHALLENGE},
		{name: "INTERNAL AUTHENTICATE", ins: 0x88, wantRaw: INS_INTERNAL_AUTHENTICATE},
		{name: "READ RECORD", ins: 0xB2, wantRaw: INS_READ_RECORD},
		{name: "READ BINARY BER-TLV sets the format bit", ins: 0xB1,
			wantRaw: INS_READ_BINARY_BER, wantBER: true},
		{name: "6X is reserved for status words", ins: 0x6A, wantErr: true},
		{name: "9X is reserved for transport control", ins: 0x90, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInstruction(tt.ins)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NewInstruction(0x%02X) accepted a reserved code", byte(tt.ins))
				}
				return
			}
			if err != nil {
				t.Fatalf("NewInstruction(0x%02X) failed: %v", byte(tt.ins), err)
			}
			if got.Raw != tt.wantRaw || got.IsBERTLV != tt.wantBER {
				t.Errorf("NewInstruction(0x%02X) = %+v, want Raw 0x%02X BER %v",
					byte(tt.ins), got, byte(tt.wantRaw), tt.wantBER)
			}
		})
	}
}

func TestInsCode_String(t *testing.T) {
	tests := []struct {
		ins  InsCode
		want string
	}{
		{INS_GET_PROCESSING_OPTIONS, "GET PROCESSING OPTIONS"},
		{INS_GENERATE_AC, "GENERATE AC"},
		{INS_GET_CHALLENGE, "GET CHALLENGE"},
		{INS_INTERNAL_AUTHENTICATE, "INTERNAL AUTHENTICATE"},
		{0xE0, "INS(0xE0)"},
	}
	for _, tt := range tests {
		if got := tt.ins.String(); got != tt.want {
			t.Errorf("String(0x%02X) = %q, want %q", byte(tt.ins), got, tt.want)
		}
	}
}

func TestInstruction_Verbose(t *testing.T) {
	tests := []struct {
		ins      InsCode
		contains []string
	}{
		{INS_SELECT, []string{"INS: 0xA4", "Command: SELECT", "Format: Standard"}},
		{INS_READ_BINARY_BER, []string{"INS: 0xB1", "Command: READ BINARY (BER-TLV)", "Format: BER-TLV"}},
		{INS_GENERATE_AC, []string{"INS: 0xAE", "Command: GENERATE AC"}},
	}

	for _, tt := range tests {
		i, err := NewInstruction(tt.ins)
		if err != nil {
			t.Fatalf("NewInstruction(0x%02X) failed: %v", byte(tt.ins), err)
		}
		desc := i.Verbose()
		for _, part := range tt.contains {
			if !strings.Contains(desc, part) {
				t.Errorf("Verbose() = %q; want containing %q", desc, part)
			}
		}
	}
}
