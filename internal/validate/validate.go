// Package validate cross-references roster rows against state license
// databases and the NPI registry, producing per-row flags.
package validate

import (
	"strings"
	"time"

	"credlens/internal/logging"
	"credlens/internal/roster"
)

// LicenseFlags captures the outcome of license validation for one row.
type LicenseFlags struct {
	// Found is true when the roster license number exists in a state DB.
	Found bool `json:"found"`

	// Expired is true when the best available expiration is in the past.
	// The state DB expiration is preferred; the roster value is the fallback.
	Expired bool `json:"expired"`

	// StateMismatch is true when the license was found in a different state
	// than the roster claims.
	StateMismatch bool `json:"state_mismatch"`

	// ValidationState is the issuing state the license was found in ("" when
	// not found).
	ValidationState string `json:"validation_state,omitempty"`

	// StateExpiration is the expiration recorded by the state DB (zero when
	// not found or not recorded).
	StateExpiration time.Time `json:"state_expiration,omitzero"`
}

// NPIFlags captures the outcome of NPI validation for one row.
type NPIFlags struct {
	// Missing is true when the roster row has no NPI value.
	Missing bool `json:"missing"`

	// Found is true when the NPI exists in the registry.
	Found bool `json:"found"`

	// Invalid is true when an NPI is present but structurally invalid
	// (wrong length or bad check digit).
	Invalid bool `json:"invalid"`
}

// licenseEntry is the consolidated state-DB view of one license number.
type licenseEntry struct {
	state      string
	expiration time.Time
}

// consolidateLicenses merges the state databases into a single lookup keyed
// by license number. When the same number appears more than once, the record
// with the most recent expiration wins, which avoids one-to-many expansion
// when matching roster rows.
func consolidateLicenses(licenses []roster.LicenseRecord) map[string]licenseEntry {
	lookup := make(map[string]licenseEntry, len(licenses))
	for _, lic := range licenses {
		key := strings.TrimSpace(lic.LicenseNumber)
		if key == "" {
			continue
		}
		existing, ok := lookup[key]
		if !ok || lic.Expiration.After(existing.expiration) {
			lookup[key] = licenseEntry{state: lic.State, expiration: lic.Expiration}
		}
	}
	return lookup
}

// Licenses validates every roster row against the consolidated state
// databases. now is the reference date for expiry comparison.
func Licenses(providers []roster.Provider, licenses []roster.LicenseRecord, now time.Time) []LicenseFlags {
	timer := logging.StartTimer(logging.CategoryValidate, "Licenses")
	defer timer.Stop()

	lookup := consolidateLicenses(licenses)
	logging.ValidateDebug("Consolidated state DBs: %d unique licenses from %d records", len(lookup), len(licenses))

	flags := make([]LicenseFlags, len(providers))
	found, expired, mismatched := 0, 0, 0

	for i := range providers {
		p := &providers[i]
		f := &flags[i]

		key := strings.TrimSpace(p.LicenseNumber)
		if entry, ok := lookup[key]; ok && key != "" {
			f.Found = true
			f.ValidationState = entry.state
			f.StateExpiration = entry.expiration
			if p.LicenseState != "" && entry.state != p.LicenseState {
				f.StateMismatch = true
				mismatched++
			}
			found++
		}

		// Prefer the state DB expiration, fall back to the roster value.
		best := f.StateExpiration
		if best.IsZero() {
			best = p.LicenseExpiration
		}
		if !best.IsZero() && best.Before(now) {
			f.Expired = true
			expired++
		}
	}

	logging.Validate("License validation: %d/%d found, %d expired, %d state mismatches",
		found, len(providers), expired, mismatched)
	return flags
}

// NPI validates every roster row against the registry.
func NPI(providers []roster.Provider, registry []roster.NPIRecord) []NPIFlags {
	timer := logging.StartTimer(logging.CategoryValidate, "NPI")
	defer timer.Stop()

	known := make(map[string]bool, len(registry))
	for _, r := range registry {
		if r.NPI != "" {
			known[r.NPI] = true
		}
	}

	flags := make([]NPIFlags, len(providers))
	missing, invalid := 0, 0

	for i := range providers {
		p := &providers[i]
		f := &flags[i]

		if !p.HasNPI() {
			f.Missing = true
			missing++
			continue
		}
		f.Found = known[p.NPI]
		if !roster.ValidNPI(p.NPI) {
			f.Invalid = true
			invalid++
		}
	}

	logging.Validate("NPI validation: %d missing, %d structurally invalid, registry size %d",
		missing, invalid, len(known))
	return flags
}
