package iso7816

import (
	"bytes"
	"testing"

	"github.com/chronlc/cardprobe/pkg/tlv"
)

func TestReadRecordCommands(t *testing.T) {
	cls, _ := NewClass(0x00)

	tests := []struct {
		name string
		cmd  *CommandAPDU
		want []byte
	}{
		{
			name: "Record 1 of SFI 1, the usual AFL read",
			cmd:  ReadRecord(cls, 1, 1),
			want: tlv.Hex("00 B2 01 0C 00"),
		},
		{
			name: "SFI sits in the high five bits of P2",
			cmd:  ReadRecord(cls, 10, 3),
			want: tlv.Hex("00 B2 03 54 00"),
		},
		{
			name: "SFI 0 addresses the current EF",
			cmd:  ReadRecord(cls, 0, 5),
			want: tlv.Hex("00 B2 05 04 00"),
		},
		{
			name: "Record number 255 survives P1 encoding",
			cmd:  ReadRecord(cls, 2, 0xFF),
			want: tlv.Hex("00 B2 FF 14 00"),
		},
		{
			name: "All records from record 1 of SFI 2",
			cmd:  ReadAllRecords(cls, 2, 1),
			want: tlv.Hex("00 B2 01 15 00"),
		},
		{
			name: "By identifier, next occurrence",
			cmd:  NewReadRecordCommand(cls, 10, 0xAA, ModeNextByID),
			want: tlv.Hex("00 B2 AA 52 00"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Bytes() failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Bytes() = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestReadRecordMode_String(t *testing.T) {
	tests := []struct {
		mode ReadRecordMode
		want string
	}{
		{ModeByNumber, "Ref Num: Read Record P1"},
		{ModeAllFromP1, "Ref Num: Read All from P1"},
		{ModeNextByID, "Ref ID: Next Occurrence"},
		{ReadRecordMode(0b111), "Unknown Mode (0x7)"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("String(%03b) = %q, want %q", byte(tt.mode), got, tt.want)
		}
	}
}
