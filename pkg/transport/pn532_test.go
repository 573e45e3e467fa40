package transport

import (
	"bytes"
	"context"
	"testing"

	"github.com/chronlc/cardprobe/pkg/tlv"
	"github.com/google/go-cmp/cmp"
)

// scriptPort fakes the PN532 byte stream: every host frame written gets
// acknowledged and answered through the handler, which receives the
// command code and parameters and returns the response payload that
// follows the code echo.
type scriptPort struct {
	t       *testing.T
	handler func(code byte, params []byte) []byte
	pending bytes.Buffer
	codes   []byte
}

func (s *scriptPort) Write(p []byte) (int, error) {
	s.t.Helper()
	if len(p) < 9 || p[5] != tfiHostToModule {
		// Wakeup preamble and other non-frames are swallowed.
		return len(p), nil
	}
	dataLen := int(p[3]) - 1 // LEN counts the TFI
	code := p[6]
	params := p[7 : 6+dataLen]

	s.codes = append(s.codes, code)
	s.pending.Write(ackFrame)
	s.pending.Write(moduleFrame(append([]byte{code + 1}, s.handler(code, params)...)))
	return len(p), nil
}

func (s *scriptPort) Read(p []byte) (int, error) { return s.pending.Read(p) }
func (s *scriptPort) Close() error               { return nil }
func (s *scriptPort) ResetInputBuffer() error    { s.pending.Reset(); return nil }

// moduleFrame wraps a payload the way the module frames its responses.
func moduleFrame(data []byte) []byte {
	length := byte(len(data) + 1)
	lcs := ^length + 1

	sum := byte(tfiModuleToHost)
	for _, b := range data {
		sum += b
	}
	dcs := ^sum + 1

	frame := append([]byte{0x00, 0x00, 0xFF, length, lcs, tfiModuleToHost}, data...)
	return append(frame, dcs, 0x00)
}

func TestPN532_Transceive(t *testing.T) {
	apdu := tlv.Hex("00 A4 0400 0E 325041592E5359532E4444463031 00")
	answer := tlv.Hex("6F 00 9000")

	port := &scriptPort{t: t, handler: func(code byte, params []byte) []byte {
		if code != cmdInDataExchange {
			t.Errorf("command code = 0x%02X, want InDataExchange", code)
		}
		if want := append([]byte{0x01}, apdu...); !bytes.Equal(params, want) {
			t.Errorf("params = % X, want target prefix plus the APDU", params)
		}
		return append([]byte{0x00}, answer...)
	}}
	p := &PN532{port: port, target: 1}

	got, err := p.Transceive(context.Background(), apdu)
	if err != nil {
		t.Fatalf("Transceive failed: %v", err)
	}
	if diff := cmp.Diff(answer, got); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestPN532_Transceive_ErrorStatus(t *testing.T) {
	port := &scriptPort{t: t, handler: func(code byte, params []byte) []byte {
		return []byte{0x01} // timeout status
	}}
	p := &PN532{port: port, target: 1}

	if _, err := p.Transceive(context.Background(), tlv.Hex("00 A4 0400")); err == nil {
		t.Error("expected an error for a non-zero exchange status")
	}
}

func TestPN532_InitAsTarget(t *testing.T) {
	activation := tlv.Hex("04 E0 80") // mode byte plus the initiator's RATS

	port := &scriptPort{t: t, handler: func(code byte, params []byte) []byte {
		if code != cmdTgInitAsTarget {
			t.Errorf("command code = 0x%02X, want TgInitAsTarget", code)
		}
		want := tlv.Hex(
			"04",       // PICC only
			"0004",     // ATQA
			"08123456", // UID
			"20",       // SAK
			"000000 00 00 00",
		)
		if !bytes.Equal(params, want) {
			t.Errorf("params = % X, want % X", params, want)
		}
		return activation
	}}
	p := &PN532{port: port}

	got, err := p.InitAsTarget(context.Background(), EMVCardIdentity())
	if err != nil {
		t.Fatalf("InitAsTarget failed: %v", err)
	}
	if diff := cmp.Diff(activation, got); diff != "" {
		t.Errorf("activation mismatch (-want +got):\n%s", diff)
	}
}

func TestPN532_TargetConversation(t *testing.T) {
	fromInitiator := tlv.Hex("00 A4 0400 0E 325041592E5359532E4444463031 00")
	toInitiator := tlv.Hex("6A82")

	var forwarded []byte
	port := &scriptPort{t: t, handler: func(code byte, params []byte) []byte {
		switch code {
		case cmdTgGetData:
			return append([]byte{0x00}, fromInitiator...)
		case cmdTgSetData:
			forwarded = append([]byte{}, params...)
			return []byte{0x00}
		default:
			t.Errorf("unexpected command 0x%02X", code)
			return []byte{0x00}
		}
	}}
	p := &PN532{port: port}

	got, err := p.GetTargetData(context.Background())
	if err != nil {
		t.Fatalf("GetTargetData failed: %v", err)
	}
	if diff := cmp.Diff(fromInitiator, got); diff != "" {
		t.Errorf("GetTargetData mismatch (-want +got):\n%s", diff)
	}

	if err := p.SetTargetData(context.Background(), toInitiator); err != nil {
		t.Fatalf("SetTargetData failed: %v", err)
	}
	if diff := cmp.Diff(toInitiator, forwarded); diff != "" {
		t.Errorf("forwarded payload mismatch (-want +got):\n%s", diff)
	}

	if want := []byte{cmdTgGetData, cmdTgSetData}; !bytes.Equal(port.codes, want) {
		t.Errorf("command order = % X, want % X", port.codes, want)
	}
}

func TestPN532_TargetDataErrorStatus(t *testing.T) {
	// 0x29 is the module's "released by initiator" status.
	port := &scriptPort{t: t, handler: func(code byte, params []byte) []byte {
		return []byte{0x29}
	}}
	p := &PN532{port: port}

	if _, err := p.GetTargetData(context.Background()); err == nil {
		t.Error("GetTargetData should fail on a released target")
	}
	if err := p.SetTargetData(context.Background(), tlv.Hex("9000")); err == nil {
		t.Error("SetTargetData should fail on a released target")
	}
}
