package transport

import (
	"fmt"
	"net"
	"strings"
	"time"

	"go.bug.st/serial"

	"github.com/chronlc/cardprobe/pkg/logger"
)

// Port defines the byte-stream interface a PN532 can sit behind: a
// physical serial line, or a TCP bridge for rfcomm-over-network setups.
type Port interface {
	Read([]byte) (int, error)
	Write([]byte) (int, error)
	Close() error
	ResetInputBuffer() error
}

// ============================================================================
// Serial Port (physical line or Bluetooth rfcomm binding)
// ============================================================================

// SerialPort wraps go.bug.st/serial for the PN532's UART framing.
type SerialPort struct {
	serial.Port
	portName string
}

var _ Port = (*SerialPort)(nil)

func openSerialPort(portName string, baudRate int) (Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, err
	}

	// Short read timeout so frame reads can poll against a deadline
	// instead of blocking forever.
	if err := port.SetReadTimeout(100 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set read timeout: %v", err)
	}

	logger.Info("serial port %s opened at %d bps (8N1)", portName, baudRate)
	return &SerialPort{Port: port, portName: portName}, nil
}

func (p *SerialPort) GetPortName() string {
	return p.portName
}

// ============================================================================
// TCP Port (serial-over-TCP bridges)
// ============================================================================

// TCPPort wraps a TCP connection as a Port interface
type TCPPort struct {
	conn    net.Conn
	address string
}

var _ Port = (*TCPPort)(nil)

func openTCPPort(address string) (Port, error) {
	conn, err := net.DialTimeout("tcp", address, 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", address, err)
	}

	logger.Info("connected to %s (TCP)", address)
	return &TCPPort{conn: conn, address: address}, nil
}

func (t *TCPPort) Read(p []byte) (n int, err error) {
	t.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	n, err = t.conn.Read(p)
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return n, nil // Timeout is expected
	}
	return n, err
}

func (t *TCPPort) Write(p []byte) (n int, err error) {
	return t.conn.Write(p)
}

func (t *TCPPort) Close() error {
	return t.conn.Close()
}

func (t *TCPPort) ResetInputBuffer() error {
	buf := make([]byte, 1024)
	t.conn.SetReadDeadline(time.Now().Add(10 * time.Millisecond))
	for {
		n, _ := t.conn.Read(buf)
		if n == 0 {
			break
		}
	}
	return nil
}

// ============================================================================
// Unified Open Function
// ============================================================================

// OpenPort opens a port, physical serial or TCP based on the address format.
// TCP addresses use "tcp://host:port"; everything else is treated as a
// serial device path ("/dev/rfcomm0", "/dev/ttyUSB0", "COM3").
func OpenPort(portName string, baudRate int) (Port, error) {
	if strings.HasPrefix(portName, "tcp://") {
		addr := strings.TrimPrefix(portName, "tcp://")
		return openTCPPort(addr)
	}
	return openSerialPort(portName, baudRate)
}
