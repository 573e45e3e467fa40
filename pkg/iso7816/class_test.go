package iso7816

import (
	"strings"
	"testing"
)

func TestNewClass(t *testing.T) {
	tests := []struct {
		name string
		cla  byte
		want Class
	}{
		{
			name: "Plain interindustry (SELECT, READ RECORD)",
			cla:  0b00000000,
			want: Class{Raw: 0x00},
		},
		{
			name: "EMV proprietary (GPO, GENERATE AC)",
			cla:  0b10000000,
			want: Class{Raw: 0x80, IsProprietary: true},
		},
		{
			name: "Proprietary keeps its low bits opaque",
			cla:  0b10110101,
			want: Class{Raw: 0xB5, IsProprietary: true},
		},
		{
			name: "First interindustry with chaining and channel",
			cla:  0b00010010,
			want: Class{Raw: 0x12, IsChained: true, Channel: 2},
		},
		{
			name: "First interindustry with SM header authenticated",
			cla:  0b00001100,
			want: Class{Raw: 0x0C, SecureMessaging: SMHeaderAuth},
		},
		{
			name: "Further interindustry channel 9",
			cla:  0b01000101,
			want: Class{Raw: 0x45, Channel: 9},
		},
		{
			name: "Further interindustry with SM bit",
			cla:  0b01100000,
			want: Class{Raw: 0x60, SecureMessaging: SMHeaderNoProc, Channel: 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewClass(tt.cla)
			if err != nil {
				t.Fatalf("NewClass(0x%02X) failed: %v", tt.cla, err)
			}
			if got != tt.want {
				t.Errorf("NewClass(0x%02X) = %+v, want %+v", tt.cla, got, tt.want)
			}
		})
	}

	t.Run("0xFF is reserved", func(t *testing.T) {
		if _, err := NewClass(0xFF); err == nil {
			t.Error("expected an error for CLA 0xFF, got nil")
		}
	})
}

func TestNewInterindustryClass(t *testing.T) {
	tests := []struct {
		name      string
		isChained bool
		sm        SecureMessaging
		channel   uint8
		wantRaw   byte
		wantErr   bool
	}{
		{name: "Channel 0 plain", wantRaw: 0x00},
		{name: "Channel 1 chained", isChained: true, channel: 1, wantRaw: 0x11},
		{name: "Channel 2 with SM not processed", sm: SMHeaderNoProc, channel: 2, wantRaw: 0x0A},
		{name: "Channel 4 switches to further encoding", channel: 4, wantRaw: 0x40},
		{name: "Channel 19 is the upper bound", channel: 19, wantRaw: 0x4F},
		{name: "Channel 20 out of range", channel: 20, wantErr: true},
		{name: "Header authenticated beyond channel 3", sm: SMHeaderAuth, channel: 5, wantErr: true},
		{name: "Proprietary SM beyond channel 3", sm: SMProprietary, channel: 7, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewInterindustryClass(tt.isChained, tt.sm, tt.channel)
			if tt.wantErr {
				if err == nil {
					t.Error("expected an error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewInterindustryClass failed: %v", err)
			}
			if got.Raw != tt.wantRaw {
				t.Errorf("Raw = 0x%02X, want 0x%02X", got.Raw, tt.wantRaw)
			}
		})
	}
}

func TestClass_EncodeRoundTrip(t *testing.T) {
	for _, cla := range []byte{0x00, 0x10, 0x0C, 0x42, 0x60, 0x80, 0x84, 0xA5} {
		decoded, err := NewClass(cla)
		if err != nil {
			t.Fatalf("NewClass(0x%02X) failed: %v", cla, err)
		}
		raw, err := decoded.Encode()
		if err != nil {
			t.Fatalf("Encode of 0x%02X failed: %v", cla, err)
		}
		if raw != cla {
			t.Errorf("round trip of 0x%02X yielded 0x%02X", cla, raw)
		}
	}
}

func TestClass_Verbose(t *testing.T) {
	prop, _ := NewClass(0x80)
	if got := prop.Verbose(); got != "Class: Proprietary (0x80)" {
		t.Errorf("Verbose() = %q", got)
	}

	inter, _ := NewClass(0x12)
	got := inter.Verbose()
	for _, want := range []string{"First Interindustry", "Chaining", "Logical Channel: 2"} {
		if !strings.Contains(got, want) {
			t.Errorf("Verbose() = %q, missing %q", got, want)
		}
	}
}
