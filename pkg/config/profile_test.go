package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/chronlc/cardprobe/pkg/emv"
)

func writeProfile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profile.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadProfile(t *testing.T) {
	path := writeProfile(t, `
amount: 1500
country_code: 250
currency_code: 978
transaction_type: 0
ttq: "27000000"
date: "2026-08-30"
tags:
  "9F35": "22"
  "9f6e": "D8004000"
`)

	p, err := LoadProfile(path)
	if err != nil {
		t.Fatalf("LoadProfile: %v", err)
	}
	if p.Amount == nil || *p.Amount != 1500 {
		t.Errorf("amount = %v, want 1500", p.Amount)
	}
	if p.CountryCode == nil || *p.CountryCode != 250 {
		t.Errorf("country_code = %v, want 250", p.CountryCode)
	}
	if got := len(p.Tags); got != 2 {
		t.Errorf("tags = %d entries, want 2", got)
	}
}

func TestLoadProfile_UnknownField(t *testing.T) {
	path := writeProfile(t, "amount: 100\nbogus_field: 1\n")
	if _, err := LoadProfile(path); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestLoadProfile_BadHex(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"ttq not hex", `ttq: "zz000000"`},
		{"ttq wrong length", `ttq: "2700"`},
		{"bad date", `date: "30/08/2026"`},
		{"tag not hex", "tags:\n  \"9G35\": \"22\"\n"},
		{"value not hex", "tags:\n  \"9F35\": \"2\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeProfile(t, tc.body)
			if _, err := LoadProfile(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestProfileParams(t *testing.T) {
	path := writeProfile(t, `
amount: 2999
country_code: 250
currency_code: 978
tags:
  "9f35": "22"
`)
	p, err := LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}

	params, err := p.Params(&Config{})
	if err != nil {
		t.Fatal(err)
	}

	if got, _ := params.Get(emv.TagAmountAuthorized); string(got) != string([]byte{0, 0, 0, 0, 0x29, 0x99}) {
		t.Errorf("amount = % X, want 00 00 00 00 29 99", got)
	}
	if got, _ := params.Get(emv.TagTerminalCountry); string(got) != string([]byte{0x02, 0x50}) {
		t.Errorf("country = % X, want 02 50", got)
	}
	if got, _ := params.Get(emv.TagTransactionCurrency); string(got) != string([]byte{0x09, 0x78}) {
		t.Errorf("currency = % X, want 09 78", got)
	}
	if got, ok := params.Get("9F35"); !ok || string(got) != "\x22" {
		t.Errorf("tag 9F35 = % X, want 22", got)
	}
}

func TestProfileParams_AmountFlagWins(t *testing.T) {
	amount := uint64(100)
	p := &Profile{Amount: &amount}

	params, err := p.Params(&Config{Amount: 555})
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := params.Get(emv.TagAmountAuthorized); string(got) != string([]byte{0, 0, 0, 0, 0x05, 0x55}) {
		t.Errorf("amount = % X, want 00 00 00 00 05 55", got)
	}
}

func TestDecisionValue(t *testing.T) {
	cases := []struct {
		in   string
		want emv.Decision
		err  bool
	}{
		{"arqc", emv.RequestARQC, false},
		{"TC", emv.RequestTC, false},
		{"aac", emv.RequestAAC, false},
		{"maybe", 0, true},
	}
	for _, tc := range cases {
		got, err := (&Config{Decision: tc.in}).DecisionValue()
		if tc.err {
			if err == nil {
				t.Errorf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("%q = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
}
