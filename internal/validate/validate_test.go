package validate

import (
	"testing"
	"time"

	"credlens/internal/roster"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestLicenses_FoundAndExpired(t *testing.T) {
	now := date(2026, 1, 15)
	providers := []roster.Provider{
		{ProviderID: "P1", LicenseNumber: "NY1001", LicenseState: "NY"},
		{ProviderID: "P2", LicenseNumber: "CA2002", LicenseState: "CA"},
		{ProviderID: "P3", LicenseNumber: "ZZ9999", LicenseState: "NY"},
	}
	licenses := []roster.LicenseRecord{
		{LicenseNumber: "NY1001", State: "NY", Expiration: date(2027, 6, 30)},
		{LicenseNumber: "CA2002", State: "CA", Expiration: date(2025, 3, 1)},
	}

	flags := Licenses(providers, licenses, now)

	if !flags[0].Found || flags[0].Expired {
		t.Errorf("P1: got %+v, want found and current", flags[0])
	}
	if flags[0].ValidationState != "NY" {
		t.Errorf("P1 validation state = %q, want NY", flags[0].ValidationState)
	}
	if !flags[1].Found || !flags[1].Expired {
		t.Errorf("P2: got %+v, want found and expired", flags[1])
	}
	if flags[2].Found {
		t.Errorf("P3: got found for a license absent from both state DBs")
	}
}

func TestLicenses_StateMismatch(t *testing.T) {
	providers := []roster.Provider{
		{ProviderID: "P1", LicenseNumber: "CA5005", LicenseState: "NY"},
	}
	licenses := []roster.LicenseRecord{
		{LicenseNumber: "CA5005", State: "CA", Expiration: date(2027, 1, 1)},
	}

	flags := Licenses(providers, licenses, date(2026, 1, 1))
	if !flags[0].Found || !flags[0].StateMismatch {
		t.Errorf("got %+v, want found with state mismatch", flags[0])
	}
}

func TestLicenses_ConsolidationKeepsLatestExpiration(t *testing.T) {
	providers := []roster.Provider{
		{ProviderID: "P1", LicenseNumber: "NY1001", LicenseState: "NY"},
	}
	licenses := []roster.LicenseRecord{
		{LicenseNumber: "NY1001", State: "NY", Expiration: date(2024, 1, 1)},
		{LicenseNumber: "NY1001", State: "NY", Expiration: date(2027, 1, 1)},
	}

	flags := Licenses(providers, licenses, date(2026, 1, 1))
	if flags[0].Expired {
		t.Errorf("expired = true, want the renewal record to win consolidation")
	}
	if got, want := flags[0].StateExpiration, date(2027, 1, 1); !got.Equal(want) {
		t.Errorf("state expiration = %v, want %v", got, want)
	}
}

func TestLicenses_RosterExpirationFallback(t *testing.T) {
	// Not found in any state DB: the roster's own expiration decides.
	providers := []roster.Provider{
		{ProviderID: "P1", LicenseNumber: "XX1", LicenseExpiration: date(2025, 1, 1)},
		{ProviderID: "P2", LicenseNumber: "XX2", LicenseExpiration: date(2027, 1, 1)},
		{ProviderID: "P3", LicenseNumber: "XX3"},
	}

	flags := Licenses(providers, nil, date(2026, 1, 1))
	if !flags[0].Expired {
		t.Errorf("P1: want expired via roster fallback")
	}
	if flags[1].Expired {
		t.Errorf("P2: want current via roster fallback")
	}
	if flags[2].Expired {
		t.Errorf("P3: no expiration anywhere should not count as expired")
	}
}

func TestLicenses_EmptyLicenseNumberNeverMatches(t *testing.T) {
	providers := []roster.Provider{{ProviderID: "P1"}}
	licenses := []roster.LicenseRecord{{LicenseNumber: "", State: "NY", Expiration: date(2027, 1, 1)}}

	flags := Licenses(providers, licenses, date(2026, 1, 1))
	if flags[0].Found {
		t.Errorf("empty license number matched an empty-keyed record")
	}
}

func TestNPI(t *testing.T) {
	providers := []roster.Provider{
		{ProviderID: "P1", NPI: "1234567893"},
		{ProviderID: "P2", NPI: "9999999999"},
		{ProviderID: "P3"},
	}
	registry := []roster.NPIRecord{{NPI: "1234567893"}}

	flags := NPI(providers, registry)

	if !flags[0].Found || flags[0].Missing || flags[0].Invalid {
		t.Errorf("P1: got %+v, want found and valid", flags[0])
	}
	if flags[1].Found {
		t.Errorf("P2: found an NPI absent from the registry")
	}
	if !flags[1].Invalid {
		t.Errorf("P2: bad check digit not flagged invalid")
	}
	if !flags[2].Missing || flags[2].Found {
		t.Errorf("P3: got %+v, want missing", flags[2])
	}
}
