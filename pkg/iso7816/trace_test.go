package iso7816

import "testing"

// exchange builds a completed command/response pair for trace tests.
func exchange(t *testing.T, ins InsCode, status StatusWord) Transaction {
	t.Helper()
	cls, err := NewClass(0x00)
	if err != nil {
		t.Fatalf("NewClass failed: %v", err)
	}
	instruction, err := NewInstruction(ins)
	if err != nil {
		t.Fatalf("NewInstruction(0x%02X) failed: %v", ins, err)
	}
	return Transaction{
		Command: NewCommandAPDU(cls, instruction, 0x00, 0x00, nil, 0),
		Response: &ResponseAPDU{
			Status: status,
		},
	}
}

func TestTransaction_IsSuccess(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{"Clean completion", Transaction{Response: &ResponseAPDU{Status: SW_NO_ERROR}}, true},
		{"Response pending counts as success", Transaction{Response: &ResponseAPDU{Status: 0x6114}}, true},
		{"Record not found", Transaction{Response: &ResponseAPDU{Status: SW_ERR_RECORD_NOT_FOUND}}, false},
		{"Missing response", Transaction{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tx.IsSuccess(); got != tt.want {
				t.Errorf("IsSuccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrace_IsSuccess(t *testing.T) {
	tests := []struct {
		name  string
		trace func(t *testing.T) Trace
		want  bool
	}{
		{
			name:  "Empty trace",
			trace: func(t *testing.T) Trace { return nil },
			want:  false,
		},
		{
			name: "Single successful selection",
			trace: func(t *testing.T) Trace {
				return Trace{exchange(t, INS_SELECT, SW_NO_ERROR)}
			},
			want: true,
		},
		{
			name: "Chained retrieval is judged on the final pair",
			trace: func(t *testing.T) Trace {
				return Trace{
					exchange(t, INS_SELECT, 0x6120),
					exchange(t, INS_GET_RESPONSE, SW_NO_ERROR),
				}
			},
			want: true,
		},
		{
			name: "Failure after a chain",
			trace: func(t *testing.T) Trace {
				return Trace{
					exchange(t, INS_SELECT, 0x6120),
					exchange(t, INS_GET_RESPONSE, SW_ERR_FILE_NOT_FOUND),
				}
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.trace(t).IsSuccess(); got != tt.want {
				t.Errorf("Trace.IsSuccess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTrace_Last(t *testing.T) {
	var empty Trace
	if empty.Last() != nil {
		t.Error("Last() on an empty trace should be nil")
	}

	trace := Trace{
		exchange(t, INS_READ_RECORD, 0x6C20),
		exchange(t, INS_READ_RECORD, SW_NO_ERROR),
	}
	last := trace.Last()
	if last == nil {
		t.Fatal("Last() returned nil for a populated trace")
	}
	if last.Response.Status != SW_NO_ERROR {
		t.Errorf("Last().Response.Status = %04X, want 9000", uint16(last.Response.Status))
	}
}
