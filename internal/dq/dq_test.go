package dq

import (
	"math"
	"testing"
	"time"

	"credlens/internal/config"
	"credlens/internal/roster"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func testDataset() *roster.Dataset {
	return &roster.Dataset{
		Providers: []roster.Provider{
			{
				ProviderID: "P1", FirstName: "Jane", LastName: "Smith",
				FullNameClean: "jane smith", NPI: "1234567893",
				LicenseNumber: "NY1001", LicenseState: "NY", State: "NY",
				Specialty: "Cardiology", PhoneClean: "5551234567",
			},
			{
				ProviderID: "P2", FirstName: "Jon", LastName: "Smith",
				FullNameClean: "jane smith", // same cleaned name, same block
				LicenseNumber: "CA2002", LicenseState: "CA", State: "CA",
				Specialty: "Cardiology", PhoneClean: "",
			},
			{
				ProviderID: "P3", FirstName: "Maria", LastName: "Garcia",
				FullNameClean: "maria garcia", NPI: "1234567893",
				LicenseNumber: "NY1001", LicenseState: "NY", State: "CA",
				Specialty: "", PhoneClean: "5559876543",
			},
		},
		Licenses: []roster.LicenseRecord{
			{LicenseNumber: "NY1001", State: "NY", Expiration: date(2027, 6, 30)},
			{LicenseNumber: "CA2002", State: "CA", Expiration: date(2025, 1, 1)},
		},
		NPIs: []roster.NPIRecord{{NPI: "1234567893"}},
	}
}

func TestAugment_Flags(t *testing.T) {
	cfg := config.DefaultConfig()
	rows := Augment(testDataset(), cfg, date(2026, 1, 15))

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}

	// P1: clean except duplicate suspicion against P2.
	if rows[0].License.Expired || rows[0].NPI.Missing || rows[0].PhoneIssue {
		t.Errorf("P1 unexpectedly flagged: %+v", rows[0])
	}
	if !rows[0].DuplicateSuspect || !rows[1].DuplicateSuspect {
		t.Errorf("identical cleaned names in one block not flagged as duplicates")
	}

	// P2: expired CA license, no NPI, unusable phone.
	if !rows[1].License.Expired {
		t.Errorf("P2 expired license not flagged")
	}
	if !rows[1].NPI.Missing {
		t.Errorf("P2 missing NPI not flagged")
	}
	if !rows[1].PhoneIssue {
		t.Errorf("P2 phone issue not flagged")
	}

	// P3: blank specialty.
	if !rows[2].SpecialtyMissing {
		t.Errorf("P3 blank specialty not flagged")
	}
	if rows[2].DuplicateSuspect {
		t.Errorf("P3 flagged as duplicate with no similar name in its block")
	}
}

func TestAugment_MultiStateSingleLicense(t *testing.T) {
	// P1 and P3 share an NPI, span NY and CA, and hold one license number.
	cfg := config.DefaultConfig()
	rows := Augment(testDataset(), cfg, date(2026, 1, 15))

	if !rows[0].MultiStateSingleLicense || !rows[2].MultiStateSingleLicense {
		t.Errorf("shared-NPI entity across two states with one license not flagged")
	}
	if rows[1].MultiStateSingleLicense {
		t.Errorf("single-state entity flagged for multi-state")
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"jane smith", "jane smith", 100, 100},
		{"jane smith", "jane smyth", 85, 95},
		{"jane smith", "robert jones", 0, 40},
		{"", "jane smith", 0, 0},
	}
	for _, tt := range tests {
		got := nameSimilarity(tt.a, tt.b)
		if got < tt.min || got > tt.max {
			t.Errorf("nameSimilarity(%q, %q) = %.1f, want in [%.0f, %.0f]", tt.a, tt.b, got, tt.min, tt.max)
		}
	}
}

func TestSummarize_Score(t *testing.T) {
	cfg := config.DefaultConfig()
	rows := Augment(testDataset(), cfg, date(2026, 1, 15))
	stats := Summarize(rows, cfg.Scoring)

	if stats.TotalProviders != 3 {
		t.Fatalf("total = %d, want 3", stats.TotalProviders)
	}
	if stats.ExpiredLicenses.Count != 1 {
		t.Errorf("expired count = %d, want 1", stats.ExpiredLicenses.Count)
	}
	if stats.MissingNPI.Count != 1 {
		t.Errorf("missing NPI count = %d, want 1", stats.MissingNPI.Count)
	}
	if stats.Duplicates.Count != 2 {
		t.Errorf("duplicate count = %d, want 2", stats.Duplicates.Count)
	}

	// license 35*(1-1/3) + npi 25*(1-1/3) + dup 15*(1-2/3) +
	// contact 15*(1-1/3) + mismatch 10*(1-0)
	want := 35*(2.0/3) + 25*(2.0/3) + 15*(1.0/3) + 15*(2.0/3) + 10
	if math.Abs(stats.Score-want) > 0.01 {
		t.Errorf("score = %.2f, want %.2f", stats.Score, want)
	}
}

func TestSummarize_EmptyTable(t *testing.T) {
	stats := Summarize(nil, config.DefaultConfig().Scoring)
	if stats.Score != 0 {
		t.Errorf("empty table score = %.1f, want 0", stats.Score)
	}
	if stats.ExpiredLicenses.Percentage != 0 {
		t.Errorf("empty table percentage should be 0, got %.1f", stats.ExpiredLicenses.Percentage)
	}
}

func TestSummarizeByState(t *testing.T) {
	cfg := config.DefaultConfig()
	rows := Augment(testDataset(), cfg, date(2026, 1, 15))
	byState := SummarizeByState(rows)

	if len(byState) != 2 {
		t.Fatalf("got %d states, want 2", len(byState))
	}
	// CA carries the expired license, the missing NPI, and a duplicate.
	if byState[0].State != "CA" {
		t.Errorf("worst state = %s, want CA", byState[0].State)
	}
	var ca StateSummary
	for _, s := range byState {
		if s.State == "CA" {
			ca = s
		}
	}
	if ca.TotalRecords != 2 || ca.ExpiredLicenses != 1 || ca.MissingNPI != 1 {
		t.Errorf("CA summary = %+v", ca)
	}
}

func TestExpiringWithin(t *testing.T) {
	now := date(2026, 1, 1)
	rows := []Row{
		{Provider: roster.Provider{ProviderID: "soon", LicenseExpiration: date(2026, 2, 1)}},
		{Provider: roster.Provider{ProviderID: "later", LicenseExpiration: date(2026, 12, 1)}},
		{Provider: roster.Provider{ProviderID: "past", LicenseExpiration: date(2025, 6, 1)}},
		{Provider: roster.Provider{ProviderID: "none"}},
	}

	got := ExpiringWithin(rows, 90, now)
	if len(got) != 1 || got[0].ProviderID != "soon" {
		t.Fatalf("90-day window = %v rows, want just 'soon'", len(got))
	}

	got = ExpiringWithin(rows, 365, now)
	if len(got) != 2 {
		t.Fatalf("365-day window = %d rows, want 2", len(got))
	}
	if got[0].ProviderID != "soon" || got[1].ProviderID != "later" {
		t.Errorf("window not sorted soonest first: %s, %s", got[0].ProviderID, got[1].ProviderID)
	}
}

func TestExpiringWithin_PrefersStateExpiration(t *testing.T) {
	now := date(2026, 1, 1)
	rows := []Row{{
		Provider: roster.Provider{ProviderID: "P1", LicenseExpiration: date(2027, 1, 1)},
	}}
	rows[0].License.StateExpiration = date(2026, 2, 1)

	got := ExpiringWithin(rows, 90, now)
	if len(got) != 1 {
		t.Fatalf("state DB expiration inside window ignored")
	}
}

func TestUpdateList(t *testing.T) {
	cfg := config.DefaultConfig()
	rows := Augment(testDataset(), cfg, date(2026, 1, 15))
	list := UpdateList(rows)

	// All three rows carry at least one flag in the fixture.
	if len(list) != 3 {
		t.Errorf("update list = %d rows, want 3", len(list))
	}
}

func TestFilters(t *testing.T) {
	cfg := config.DefaultConfig()
	rows := Augment(testDataset(), cfg, date(2026, 1, 15))

	if got := Expired(rows); len(got) != 1 || got[0].ProviderID != "P2" {
		t.Errorf("Expired = %d rows", len(got))
	}
	if got := MissingNPI(rows); len(got) != 1 || got[0].ProviderID != "P2" {
		t.Errorf("MissingNPI = %d rows", len(got))
	}
	if got := PhoneIssues(rows); len(got) != 1 || got[0].ProviderID != "P2" {
		t.Errorf("PhoneIssues = %d rows", len(got))
	}
	if got := Duplicates(rows); len(got) != 2 {
		t.Errorf("Duplicates = %d rows, want 2", len(got))
	}
	if got := MultiState(rows); len(got) != 2 {
		t.Errorf("MultiState = %d rows, want 2", len(got))
	}
}
