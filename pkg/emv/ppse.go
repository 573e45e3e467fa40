package emv

import (
	"fmt"
	"sort"
	"strings"

	"github.com/chronlc/cardprobe/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// PPSEName is the DF name of the Proximity Payment System Environment,
// selected first on every contactless transaction.
const PPSEName = "2PAY.SYS.DDF01"

type DirectoryDiscretionaryTemplate struct {
	ApplicationSelectionRegisteredProprietaryData []byte `tlv:"9F0A"`
	IssuerCountryCodeAlpha3                       []byte `tlv:"5F56" fmt:"ascii"`
	IssuerCountryCodeAlpha2                       []byte `tlv:"5F55" fmt:"ascii"`
	BankIdentifierCode                            []byte `tlv:"5F54" fmt:"ascii"`
	IBAN                                          []byte `tlv:"5F53" fmt:"ascii"`
	IssuerURL                                     []byte `tlv:"5F50" fmt:"ascii"`
	IssuerIdentificationNumber                    []byte `tlv:"42"`
	IssuerIdentificationNumberExtended            []byte `tlv:"9F0C"`
	LogEntry                                      []byte `tlv:"9F4D"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ApplicationTemplate (Tag '61') is one entry in the payment system
// directory. It carries what is needed to select the application it names.
type ApplicationTemplate struct {
	AID                          []byte                         `tlv:"4F"`             // Mandatory
	ApplicationLabel             []byte                         `tlv:"50" fmt:"ascii"` // Mandatory
	ApplicationPriorityIndicator []byte                         `tlv:"87" fmt:"int"`
	KernelIdentifier             []byte                         `tlv:"9F2A"`
	DirectoryDiscretionaryData   DirectoryDiscretionaryTemplate `tlv:"73"`
	ApplicationPreferredName     []byte                         `tlv:"9F12" fmt:"ascii"`
	DDFName                      []byte                         `tlv:"9D" fmt:"ascii"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// Priority returns the application priority order (low is preferred), or 0
// when the card assigned none.
func (a ApplicationTemplate) Priority() int {
	if len(a.ApplicationPriorityIndicator) == 0 {
		return 0
	}
	return int(a.ApplicationPriorityIndicator[0] & 0x0F)
}

// Label returns the readable application name, preferring tag 9F12.
func (a ApplicationTemplate) Label() string {
	if len(a.ApplicationPreferredName) > 0 {
		return string(a.ApplicationPreferredName)
	}
	return string(a.ApplicationLabel)
}

// DirectoryRecord represents the content of a record read from the PSE SFI.
// It is wrapped in a Record Template (Tag '70').
type DirectoryRecord struct {
	// A record can technically contain multiple application templates
	Applications []ApplicationTemplate `tlv:"61"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// ParseDirectoryRecord interprets raw bytes from a READ RECORD command as EMV directory data.
func ParseDirectoryRecord(data []byte) (*DirectoryRecord, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty record data")
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	// The record must be wrapped in Tag '70'
	var processingPackets []bertlv.TLV
	if len(packets) > 0 && strings.EqualFold(packets[0].Tag, "70") {
		processingPackets = packets[0].TLVs
	} else {
		return nil, fmt.Errorf("missing mandatory Record Template (Tag 70)")
	}

	record := &DirectoryRecord{}
	if err := tlv.UnmarshalFromPackets(processingPackets, record); err != nil {
		return nil, fmt.Errorf("failed to map directory record: %w", err)
	}

	return record, nil
}

// CandidateApplications extracts the directory entries from a PPSE FCI and
// orders them by priority indicator, stable for equal priorities so the
// card's listing order breaks ties.
func CandidateApplications(fci *FCI) []ApplicationTemplate {
	if fci == nil || fci.ProprietaryTemplate.IssuerDiscretionaryData == nil {
		return nil
	}

	apps := make([]ApplicationTemplate, 0)
	for _, app := range fci.ProprietaryTemplate.IssuerDiscretionaryData.Applications {
		if len(app.AID) == 0 {
			continue
		}
		apps = append(apps, app)
	}

	sort.SliceStable(apps, func(i, j int) bool {
		pi, pj := apps[i].Priority(), apps[j].Priority()
		if pi == 0 {
			return false
		}
		if pj == 0 {
			return true
		}
		return pi < pj
	})

	return apps
}

// Describe generates a report for all applications found in the record.
func (r *DirectoryRecord) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== EMV DIRECTORY RECORD ===")

	tlv.WriteStructFields(&sb, "Record", r)

	for i, app := range r.Applications {
		prefix := fmt.Sprintf("App[%d]", i+1)
		tlv.WriteStructFields(&sb, prefix, app)

		tlv.WriteStructFields(&sb, prefix+".Discretionary", app.DirectoryDiscretionaryData)
	}

	return strings.TrimRight(sb.String(), "\n")
}
