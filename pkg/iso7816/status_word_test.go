package iso7816

import "testing"

func TestNewStatusWord(t *testing.T) {
	if got := NewStatusWord(0x6A, 0x83); got != SW_ERR_RECORD_NOT_FOUND {
		t.Errorf("NewStatusWord(6A, 83) = %04X, want 6A83", uint16(got))
	}
	if sw := NewStatusWord(0x61, 0x14); sw.SW1() != 0x61 || sw.SW2() != 0x14 {
		t.Errorf("SW1/SW2 split of 6114 = %02X/%02X", sw.SW1(), sw.SW2())
	}
}

func TestStatusWord_Classification(t *testing.T) {
	tests := []struct {
		name    string
		sw      StatusWord
		success bool
		warning bool
		isError bool
	}{
		{"Success", SW_NO_ERROR, true, false, false},
		{"Response bytes pending", 0x6114, true, false, false},
		{"File deactivated", SW_WARN_FILE_DEACTIVATED, false, true, false},
		{"PIN counter", 0x63C2, false, true, false},
		{"Conditions of use not satisfied", SW_ERR_COND_OF_USE_NOT_SAT, false, false, true},
		{"File not found", SW_ERR_FILE_NOT_FOUND, false, false, true},
		{"Record not found", SW_ERR_RECORD_NOT_FOUND, false, false, true},
		{"Class not supported", SW_ERR_CLA_NOT_SUPPORTED, false, false, true},
		{"Wrong length is not success", 0x6C14, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.IsSuccess(); got != tt.success {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.success)
			}
			if got := tt.sw.IsWarning(); got != tt.warning {
				t.Errorf("IsWarning() = %v, want %v", got, tt.warning)
			}
			if got := tt.sw.IsError(); got != tt.isError {
				t.Errorf("IsError() = %v, want %v", got, tt.isError)
			}
		})
	}
}

func TestStatusWord_IsTriggeringByCard(t *testing.T) {
	tests := []struct {
		name string
		sw   StatusWord
		want bool
	}{
		{"62 with SW2 in range", 0x6210, true},
		{"64 with SW2 at lower bound", 0x6402, true},
		{"64 with SW2 at upper bound", 0x6480, true},
		{"SW2 below range", 0x6201, false},
		{"SW2 above range", 0x6281, false},
		{"Wrong SW1", 0x6310, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.IsTriggeringByCard(); got != tt.want {
				t.Errorf("IsTriggeringByCard(%04X) = %v, want %v", uint16(tt.sw), got, tt.want)
			}
		})
	}
}

func TestStatusWord_IsCounter(t *testing.T) {
	tests := []struct {
		name string
		sw   StatusWord
		want bool
	}{
		{"Counter at zero", SW_WARN_COUNTER_0, true},
		{"Two retries left", 0x63C2, true},
		{"Counter nibble full", 0x63CF, true},
		{"63 without C nibble", 0x6381, false},
		{"C nibble under wrong SW1", 0x62C2, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.IsCounter(); got != tt.want {
				t.Errorf("IsCounter(%04X) = %v, want %v", uint16(tt.sw), got, tt.want)
			}
		})
	}
}

func TestStatusWord_String(t *testing.T) {
	tests := []struct {
		sw   StatusWord
		want string
	}{
		{SW_NO_ERROR, "SW_NO_ERROR"},
		{SW_ERR_FILE_NOT_FOUND, "SW_ERR_FILE_NOT_FOUND"},
		{SW_ERR_RECORD_NOT_FOUND, "SW_ERR_RECORD_NOT_FOUND"},
		{0x6114, "StatusWord(6114)"},
	}
	for _, tt := range tests {
		if got := tt.sw.String(); got != tt.want {
			t.Errorf("String(%04X) = %q, want %q", uint16(tt.sw), got, tt.want)
		}
	}
}

func TestStatusWord_Verbose(t *testing.T) {
	tests := []struct {
		name string
		sw   StatusWord
		want string
	}{
		{"Dynamic 61XX", 0x6114, "Process completed, 20 bytes available"},
		{"Dynamic 6CXX", 0x6C08, "Wrong length, correct Le is 8"},
		{"Triggering warning", 0x6210, "Warning (Triggering): Card expects query of 16 bytes"},
		{"Triggering abort", 0x6410, "Error/Abort (Triggering): Card expects query of 16 bytes"},
		{"Counter", 0x63C2, "Warning: State changed, counter = 2"},
		{"Named static word", SW_ERR_RECORD_NOT_FOUND, "[6A83] SW_ERR_RECORD_NOT_FOUND"},
		{"Unnamed 6A falls back to its category", 0x6A90, "[6A90] Checking Error: Wrong parameters"},
		{"Unnamed 69 falls back to its category", 0x6990, "[6990] Checking Error: Command not allowed"},
		{"Unknown category", 0x1234, "[1234] Unknown Status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sw.Verbose(); got != tt.want {
				t.Errorf("Verbose(%04X) = %q, want %q", uint16(tt.sw), got, tt.want)
			}
		})
	}
}
