package config

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/chronlc/cardprobe/pkg/emv"
)

// Config carries the command-line settings for one probing run.
type Config struct {
	Transport string // "pcsc" or "pn532"
	Port      string // serial device or tcp:// bridge for pn532
	BaudRate  int
	Profile   string // optional YAML terminal profile
	Amount    uint64 // authorized amount in minor currency units
	Decision  string // requested first cryptogram: aac, tc or arqc
	Timeout   time.Duration
	LogDir    string
	JSONOut   string // write the session report here when set
}

// Load parses flags and applies environment overrides.
func Load() *Config {
	// Default port based on OS
	defaultPort := "/dev/rfcomm0"
	if runtime.GOOS == "windows" {
		defaultPort = "COM3"
	}

	transport := flag.String("transport", "pcsc", "Card transport: pcsc or pn532")
	port := flag.String("port", defaultPort, "PN532 serial port (e.g. /dev/rfcomm0, COM3, tcp://host:port)")
	baud := flag.Int("baud", 115200, "PN532 baud rate")
	profile := flag.String("profile", "", "YAML terminal profile path")
	amount := flag.Uint64("amount", 0, "Authorized amount in minor currency units")
	decision := flag.String("decision", "arqc", "Requested cryptogram: aac, tc or arqc")
	timeout := flag.Duration("timeout", 3*time.Second, "Per-command card timeout")
	logDir := flag.String("logdir", "logs", "Log directory")
	jsonOut := flag.String("json", "", "Write the session report as JSON to this path")
	flag.Parse()

	// Allow environment variable override
	if env := os.Getenv("CARDPROBE_TRANSPORT"); env != "" {
		*transport = env
	}
	if env := os.Getenv("CARDPROBE_PORT"); env != "" {
		*port = env
	}
	if env := os.Getenv("CARDPROBE_BAUD"); env != "" {
		if v, err := strconv.Atoi(env); err == nil {
			*baud = v
		}
	}

	return &Config{
		Transport: strings.ToLower(*transport),
		Port:      *port,
		BaudRate:  *baud,
		Profile:   *profile,
		Amount:    *amount,
		Decision:  *decision,
		Timeout:   *timeout,
		LogDir:    *logDir,
		JSONOut:   *jsonOut,
	}
}

// DecisionValue maps the -decision flag to the first GENERATE AC request.
func (c *Config) DecisionValue() (emv.Decision, error) {
	switch strings.ToLower(c.Decision) {
	case "aac", "decline":
		return emv.RequestAAC, nil
	case "tc", "approve":
		return emv.RequestTC, nil
	case "arqc", "online":
		return emv.RequestARQC, nil
	default:
		return 0, fmt.Errorf("unknown decision %q (want aac, tc or arqc)", c.Decision)
	}
}
