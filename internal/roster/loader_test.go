package roster

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadRoster_SynonymHeaders(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "roster.csv", `prv_id,Provider_Name,NPI_Number,lic_no,issuing_state,expiration_date,Primary_Specialty,contact_phone,practice_state
P001,Jane Doe,1234567893,A12345,NY,2030-01-15,Cardiology,(212) 555-0123,NY
P002,John Roe,,B99999,CA,06/30/2020,Internal Medicine,bad-phone,CA
`)

	providers, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster failed: %v", err)
	}
	if len(providers) != 2 {
		t.Fatalf("expected 2 providers, got %d", len(providers))
	}

	p := providers[0]
	if p.ProviderID != "P001" {
		t.Errorf("ProviderID = %q", p.ProviderID)
	}
	if p.FullName != "Jane Doe" || p.FullNameClean != "jane doe" {
		t.Errorf("name normalization: %q / %q", p.FullName, p.FullNameClean)
	}
	if p.NPI != "1234567893" {
		t.Errorf("NPI = %q", p.NPI)
	}
	if p.LicenseState != "NY" {
		t.Errorf("LicenseState = %q", p.LicenseState)
	}
	if p.LicenseExpiration.IsZero() {
		t.Error("expected parsed expiration date")
	}
	if p.PhoneClean != "2125550123" {
		t.Errorf("PhoneClean = %q", p.PhoneClean)
	}

	q := providers[1]
	if q.HasNPI() {
		t.Error("expected missing NPI")
	}
	if q.PhoneClean != "" {
		t.Errorf("expected empty PhoneClean for bad phone, got %q", q.PhoneClean)
	}
}

func TestLoadRoster_NameParts(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "roster.csv", `provider_id,fname,lname,npi
P001,Jane,Doe,1234567893
`)

	providers, err := LoadRoster(path)
	if err != nil {
		t.Fatalf("LoadRoster failed: %v", err)
	}
	if providers[0].FullName != "Jane Doe" {
		t.Errorf("expected full name built from parts, got %q", providers[0].FullName)
	}
}

func TestLoadRoster_UnrecognizedHeader(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "bad.csv", "colA,colB\n1,2\n")

	if _, err := LoadRoster(path); err == nil {
		t.Error("expected error for a file with no recognized columns")
	}
}

func TestLoadLicenseDB(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "ny.csv", `license_number,expiration_date
A12345,2030-01-15
,2031-01-01
B77777,not-a-date
`)

	records, err := LoadLicenseDB(path, "NY")
	if err != nil {
		t.Fatalf("LoadLicenseDB failed: %v", err)
	}
	// Row without a license number is dropped.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].State != "NY" {
		t.Errorf("State = %q", records[0].State)
	}
	if records[1].Expiration.IsZero() == false {
		t.Error("expected zero expiration for unparseable date")
	}
}

func TestLoad_Parallel(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Roster: writeCSV(t, dir, "roster.csv", `provider_id,name,npi,license_number
P001,Jane Doe,1234567893,A12345
`),
		NYLicenses: writeCSV(t, dir, "ny.csv", `license_number,expiration_date
A12345,2030-01-15
`),
		CALicenses: writeCSV(t, dir, "ca.csv", `license_number,expiration_date
C55555,2028-03-01
`),
		NPIRegistry: writeCSV(t, dir, "npi.csv", `npi
1234567893
`),
	}

	ds, err := Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ds.Providers) != 1 {
		t.Errorf("providers = %d", len(ds.Providers))
	}
	if len(ds.Licenses) != 2 {
		t.Errorf("licenses = %d", len(ds.Licenses))
	}
	if len(ds.NPIs) != 1 {
		t.Errorf("npis = %d", len(ds.NPIs))
	}
}

func TestLoad_MissingReferenceFilesAreSkipped(t *testing.T) {
	dir := t.TempDir()
	paths := Paths{
		Roster: writeCSV(t, dir, "roster.csv", `provider_id,name,npi
P001,Jane Doe,1234567893
`),
		NYLicenses:  filepath.Join(dir, "absent_ny.csv"),
		CALicenses:  filepath.Join(dir, "absent_ca.csv"),
		NPIRegistry: filepath.Join(dir, "absent_npi.csv"),
	}

	ds, err := Load(context.Background(), paths)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(ds.Licenses) != 0 || len(ds.NPIs) != 0 {
		t.Error("expected empty reference data when files are absent")
	}
}
