package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/chronlc/cardprobe/pkg/emv"
)

// Profile describes the terminal-side data elements of a transaction,
// loaded from a YAML file. All fields are optional; absent fields keep
// the engine defaults.
type Profile struct {
	// Amount in minor currency units (overridden by -amount when set).
	Amount *uint64 `yaml:"amount"`
	// AmountOther in minor currency units (cashback portion).
	AmountOther *uint64 `yaml:"amount_other"`
	// CountryCode is the ISO 3166 numeric code, e.g. 840.
	CountryCode *uint16 `yaml:"country_code"`
	// CurrencyCode is the ISO 4217 numeric code, e.g. 840.
	CurrencyCode *uint16 `yaml:"currency_code"`
	// TransactionType per EMV Book 4, e.g. 0 purchase, 1 cash advance.
	TransactionType *byte `yaml:"transaction_type"`
	// TTQ is the Terminal Transaction Qualifiers word as hex, e.g. "27000000".
	TTQ string `yaml:"ttq"`
	// TerminalType per EMV Book 4, e.g. 0x22 attended offline-capable.
	TerminalType *byte `yaml:"terminal_type"`
	// Date in YYYY-MM-DD form; defaults to today.
	Date string `yaml:"date"`
	// Tags maps extra EMV tags (hex) to hex values, injected verbatim
	// into the terminal parameter store for DOL lookups.
	Tags map[string]string `yaml:"tags"`
}

// LoadProfile reads and validates a YAML terminal profile.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open profile: %w", err)
	}
	defer f.Close()

	var p Profile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that hex-valued fields decode cleanly.
func (p *Profile) Validate() error {
	if p.TTQ != "" {
		b, err := hex.DecodeString(p.TTQ)
		if err != nil {
			return fmt.Errorf("ttq is not valid hex: %w", err)
		}
		if len(b) != 4 {
			return fmt.Errorf("ttq must be 4 bytes, got %d", len(b))
		}
	}
	if p.Date != "" {
		if _, err := time.Parse("2006-01-02", p.Date); err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
	}
	for tag, value := range p.Tags {
		if _, err := hex.DecodeString(tag); err != nil {
			return fmt.Errorf("tag %q is not valid hex: %w", tag, err)
		}
		if _, err := hex.DecodeString(value); err != nil {
			return fmt.Errorf("value for tag %s is not valid hex: %w", tag, err)
		}
	}
	return nil
}

// Params builds the terminal parameter store for one run from the
// profile plus the command line. A nil profile yields pure defaults.
func (p *Profile) Params(cfg *Config) (*emv.TerminalParams, error) {
	var tp emv.TransactionParameters

	if p != nil {
		if p.Amount != nil {
			tp.Amount = *p.Amount
		}
		if p.AmountOther != nil {
			tp.AmountOther = *p.AmountOther
		}
		if p.CountryCode != nil {
			tp.CountryCode = decimalToBCD16(*p.CountryCode)
		}
		if p.CurrencyCode != nil {
			tp.CurrencyCode = decimalToBCD16(*p.CurrencyCode)
		}
		if p.TransactionType != nil {
			tp.TransactionType = *p.TransactionType
		}
		if p.TTQ != "" {
			b, _ := hex.DecodeString(p.TTQ)
			tp.TTQ = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		}
		if p.TerminalType != nil {
			tp.TerminalType = *p.TerminalType
		}
		if p.Date != "" {
			tp.Date, _ = time.Parse("2006-01-02", p.Date)
		}
	}

	// Command-line amount wins over the profile.
	if cfg.Amount != 0 {
		tp.Amount = cfg.Amount
	}

	params, err := emv.NewTerminalParams(tp)
	if err != nil {
		return nil, err
	}

	if p != nil {
		for tag, value := range p.Tags {
			b, _ := hex.DecodeString(value)
			params.Set(strings.ToUpper(tag), b)
		}
	}
	return params, nil
}

// decimalToBCD16 turns a decimal code like 840 into its BCD form 0x0840,
// the encoding tags 9F1A and 5F2A carry on the wire.
func decimalToBCD16(v uint16) uint16 {
	var out uint16
	for shift := 0; v > 0 && shift < 16; shift += 4 {
		out |= (v % 10) << shift
		v /= 10
	}
	return out
}
