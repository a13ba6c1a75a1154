// Package roster loads provider roster and reference CSVs and normalizes
// them into canonical records. Incoming files use inconsistent headers and
// formats; everything downstream works off the cleaned forms produced here.
package roster

import "time"

// Provider is one roster row after schema normalization and cleaning.
type Provider struct {
	ProviderID    string `json:"provider_id"`
	FirstName     string `json:"first_name,omitempty"`
	LastName      string `json:"last_name,omitempty"`
	FullName      string `json:"full_name,omitempty"`
	FullNameClean string `json:"full_name_clean"`

	NPI               string    `json:"npi,omitempty"`
	LicenseNumber     string    `json:"license_number,omitempty"`
	LicenseState      string    `json:"license_state,omitempty"`
	LicenseExpiration time.Time `json:"license_expiration,omitzero"` // zero when missing or unparseable

	Specialty string `json:"specialty,omitempty"`

	Phone      string `json:"phone,omitempty"`
	PhoneClean string `json:"phone_clean,omitempty"` // empty when the raw phone failed normalization
	Email      string `json:"email,omitempty"`

	AddressLine1 string `json:"address_line1,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	Zip          string `json:"zip,omitempty"`
}

// HasNPI reports whether the row carries an NPI value at all.
func (p *Provider) HasNPI() bool {
	return p.NPI != ""
}

// LicenseRecord is one row of a state license database.
type LicenseRecord struct {
	LicenseNumber string
	State         string // issuing state ("NY", "CA")
	Expiration    time.Time
}

// NPIRecord is one row of the NPI registry.
type NPIRecord struct {
	NPI string
}

// Dataset bundles all loaded inputs.
type Dataset struct {
	Providers []Provider
	Licenses  []LicenseRecord
	NPIs      []NPIRecord

	// Source paths, kept for snapshots and the dashboard.
	RosterPath string
	NYPath     string
	CAPath     string
	NPIPath    string
}
