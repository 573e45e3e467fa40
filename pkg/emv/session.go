package emv

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/chronlc/cardprobe/pkg/iso7816"
	"github.com/chronlc/cardprobe/pkg/tlv"
)

// SESSION:
// A Session is the mutable accumulator for exactly one transaction. The
// engine creates it at the start, feeds it phase by phase, and finalizes it
// as completed or errored. Phases run one at a time, so the Session needs
// no locking; independent sessions never share an instance.
//
// Duplicate tag policy: the database is last-write-wins. Later phases carry
// more authoritative data (a GENERATE AC response supersedes a record read),
// so a repeated tag overwrites the earlier value. Cardholder identifiers
// (PAN, Track2) are captured first-seen into their own fields.

// Exchange is one logged APDU round trip.
type Exchange struct {
	Phase    string             `json:"phase"`
	Command  []byte             `json:"command"`
	Response []byte             `json:"response"`
	SW       iso7816.StatusWord `json:"status_word"`
	Time     time.Time          `json:"timestamp"`
}

// AuthMethod identifies the offline authentication path taken.
type AuthMethod int

const (
	AuthNone AuthMethod = iota
	AuthSDA
	AuthDDA
	AuthCDA
)

func (m AuthMethod) String() string {
	switch m {
	case AuthSDA:
		return "SDA"
	case AuthDDA:
		return "DDA"
	case AuthCDA:
		return "CDA"
	default:
		return "NONE"
	}
}

// CryptogramType is the outcome encoded in the CID's top two bits.
type CryptogramType int

const (
	CryptogramAAC  CryptogramType = iota // transaction declined
	CryptogramTC                         // transaction approved offline
	CryptogramARQC                       // online authorization requested
	CryptogramRFU
)

func (c CryptogramType) String() string {
	switch c {
	case CryptogramAAC:
		return "AAC"
	case CryptogramTC:
		return "TC"
	case CryptogramARQC:
		return "ARQC"
	default:
		return "RFU"
	}
}

// CryptogramTypeFromCID maps Cryptogram Information Data to its type:
// bits 8-7 are 00 for AAC, 01 for TC, 10 for ARQC.
func CryptogramTypeFromCID(cid byte) CryptogramType {
	switch cid >> 6 {
	case 0b00:
		return CryptogramAAC
	case 0b01:
		return CryptogramTC
	case 0b10:
		return CryptogramARQC
	default:
		return CryptogramRFU
	}
}

// Session accumulates everything learned from one card transaction.
type Session struct {
	Started time.Time

	AID    []byte
	Label  string
	PAN    string
	Track2 []byte
	AIP    uint16

	AuthMethod AuthMethod
	AuthData   []byte // Signed Dynamic Application Data after DDA

	Cryptogram     []byte
	CryptogramType CryptogramType
	CID            byte
	ATC            []byte

	// SecondACSimulated marks that the second GENERATE AC used a stubbed
	// issuer decision instead of a real online authorization.
	SecondACSimulated bool

	Completed     bool
	FailureReason string

	Exchanges []Exchange

	db map[string][]byte
}

// NewSession creates an empty session accumulator.
func NewSession() *Session {
	return &Session{
		Started: time.Now(),
		db:      make(map[string][]byte),
	}
}

// Put stores a tag value; a later write for the same tag wins.
func (s *Session) Put(tag string, value []byte) {
	s.db[tag] = value
}

// Get looks up a tag accumulated during any earlier phase.
func (s *Session) Get(tag string) ([]byte, bool) {
	v, ok := s.db[tag]
	return v, ok
}

// Absorb decodes a response payload and folds every extractable tag into
// the database. Malformed trailing data is not an error here: whatever
// decoded before the defect is kept, the rest is ignored, and the decode
// error is returned for optional logging only.
func (s *Session) Absorb(data []byte) error {
	nodes, err := tlv.Decode(data)
	for _, n := range tlv.Flatten(nodes) {
		s.Put(n.TagString(), n.Value)
	}
	return err
}

// LogExchange appends one APDU round trip to the ordered exchange log.
func (s *Session) LogExchange(phase string, command, response []byte, sw iso7816.StatusWord) {
	s.Exchanges = append(s.Exchanges, Exchange{
		Phase:    phase,
		Command:  command,
		Response: response,
		SW:       sw,
		Time:     time.Now(),
	})
}

// Fail marks the session errored. Data collected so far stays exportable.
func (s *Session) Fail(reason string) {
	s.Completed = false
	s.FailureReason = reason
}

// TagMap returns a copy of the accumulated tag database, the canonical
// output consumed by analysis and export collaborators.
func (s *Session) TagMap() map[string][]byte {
	out := make(map[string][]byte, len(s.db))
	for k, v := range s.db {
		out[k] = v
	}
	return out
}

// Describe generates a human-readable report of the session outcome.
func (s *Session) Describe() string {
	var sb strings.Builder

	sb.WriteString("=== EMV TRANSACTION REPORT ===\n")

	status := "INCOMPLETE"
	if s.Completed {
		status = "COMPLETE"
	}
	if s.FailureReason != "" {
		status = fmt.Sprintf("ERROR (%s)", s.FailureReason)
	}
	sb.WriteString(fmt.Sprintf("[*] Outcome: %s\n", status))

	if len(s.AID) > 0 {
		sb.WriteString(fmt.Sprintf("    + AID:        %X", s.AID))
		if s.Label != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", s.Label))
		}
		sb.WriteString("\n")
	}
	if s.PAN != "" {
		sb.WriteString(fmt.Sprintf("    + PAN:        %s\n", s.PAN))
	}
	if len(s.Track2) > 0 {
		sb.WriteString(fmt.Sprintf("    + Track2:     %X\n", s.Track2))
	}
	if s.AIP != 0 {
		sb.WriteString(fmt.Sprintf("    + AIP:        %04X\n", s.AIP))
	}
	sb.WriteString(fmt.Sprintf("    + Auth:       %s\n", s.AuthMethod))

	if len(s.Cryptogram) > 0 {
		sb.WriteString(fmt.Sprintf("    + Cryptogram: %X (%s, CID %02X)\n", s.Cryptogram, s.CryptogramType, s.CID))
	}
	if len(s.ATC) > 0 {
		sb.WriteString(fmt.Sprintf("    + ATC:        %X\n", s.ATC))
	}
	if s.SecondACSimulated {
		sb.WriteString("    + Note:       second GENERATE AC used a SIMULATED issuer decision\n")
	}

	sb.WriteString(fmt.Sprintf("[*] Collected tags: %d\n", len(s.db)))
	tags := make([]string, 0, len(s.db))
	for tag := range s.db {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		sb.WriteString(fmt.Sprintf("    - %-5s %s\n", tag, strings.ToUpper(hex.EncodeToString(s.db[tag]))))
	}

	sb.WriteString(fmt.Sprintf("[*] Exchanges: %d\n", len(s.Exchanges)))
	for i, ex := range s.Exchanges {
		sb.WriteString(fmt.Sprintf("    [%02d] %-12s > %X\n", i+1, ex.Phase, ex.Command))
		sb.WriteString(fmt.Sprintf("         %-12s < %X [%04X]\n", "", ex.Response, uint16(ex.SW)))
	}

	return strings.TrimRight(sb.String(), "\n")
}

// Report is the JSON export shape: the canonical tag map plus the ordered
// exchange log.
type Report struct {
	Started        time.Time         `json:"started"`
	Completed      bool              `json:"completed"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	AID            string            `json:"aid,omitempty"`
	Label          string            `json:"label,omitempty"`
	PAN            string            `json:"pan,omitempty"`
	AuthMethod     string            `json:"auth_method"`
	Cryptogram     string            `json:"cryptogram,omitempty"`
	CryptogramType string            `json:"cryptogram_type,omitempty"`
	Tags           map[string]string `json:"tags"`
	Exchanges      []ReportExchange  `json:"exchanges"`
}

// ReportExchange is one exchange-log entry in export form.
type ReportExchange struct {
	Phase      string    `json:"phase"`
	Command    string    `json:"command"`
	Response   string    `json:"response"`
	StatusWord string    `json:"status_word"`
	Time       time.Time `json:"timestamp"`
}

// Export converts the session to its export shape.
func (s *Session) Export() *Report {
	r := &Report{
		Started:       s.Started,
		Completed:     s.Completed,
		FailureReason: s.FailureReason,
		AID:           strings.ToUpper(hex.EncodeToString(s.AID)),
		Label:         s.Label,
		PAN:           s.PAN,
		AuthMethod:    s.AuthMethod.String(),
		Tags:          make(map[string]string, len(s.db)),
	}

	if len(s.Cryptogram) > 0 {
		r.Cryptogram = strings.ToUpper(hex.EncodeToString(s.Cryptogram))
		r.CryptogramType = s.CryptogramType.String()
	}

	for tag, value := range s.db {
		r.Tags[tag] = strings.ToUpper(hex.EncodeToString(value))
	}

	for _, ex := range s.Exchanges {
		r.Exchanges = append(r.Exchanges, ReportExchange{
			Phase:      ex.Phase,
			Command:    strings.ToUpper(hex.EncodeToString(ex.Command)),
			Response:   strings.ToUpper(hex.EncodeToString(ex.Response)),
			StatusWord: fmt.Sprintf("%04X", uint16(ex.SW)),
			Time:       ex.Time,
		})
	}

	return r
}
