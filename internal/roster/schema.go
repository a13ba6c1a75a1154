package roster

import "strings"

// Canonical column names used throughout the pipeline.
const (
	ColProviderID        = "provider_id"
	ColFirstName         = "first_name"
	ColLastName          = "last_name"
	ColFullName          = "full_name"
	ColNPI               = "npi"
	ColLicenseNumber     = "license_number"
	ColLicenseState      = "license_state"
	ColLicenseExpiration = "license_expiration_date"
	ColSpecialty         = "specialty"
	ColPhone             = "phone"
	ColEmail             = "email"
	ColAddressLine1      = "address_line1"
	ColCity              = "address_city"
	ColState             = "address_state"
	ColZip               = "address_zip"
)

// columnSynonyms maps each canonical column to the header variants seen in
// real roster exports. Matching is case-insensitive on the trimmed header.
var columnSynonyms = map[string][]string{
	ColProviderID:        {"provider_id", "id", "prv_id", "provider_identifier"},
	ColFirstName:         {"first_name", "fname", "given_name", "provider_first_name"},
	ColLastName:          {"last_name", "lname", "surname", "provider_last_name"},
	ColFullName:          {"full_name", "name", "provider_name"},
	ColNPI:               {"npi", "npi_number", "provider_npi"},
	ColLicenseNumber:     {"license_number", "lic_no", "license", "provider_license_number"},
	ColLicenseState:      {"license_state", "state_license", "lic_state", "issuing_state"},
	ColLicenseExpiration: {"license_expiration_date", "expiration_date", "expiry", "exp_date", "license_exp", "license_expiration"},
	ColSpecialty:         {"specialty", "primary_specialty", "taxonomy", "taxonomy_code"},
	ColPhone:             {"phone", "phone_number", "telephone", "contact_phone", "practice_phone"},
	ColEmail:             {"email", "email_address", "contact_email"},
	ColAddressLine1:      {"address_line1", "address1", "street", "practice_address_line1", "mailing_address_line1"},
	ColCity:              {"address_city", "city", "practice_city", "mailing_city"},
	ColState:             {"address_state", "state", "practice_state", "mailing_state"},
	ColZip:               {"address_zip", "zip", "zipcode", "postal_code", "practice_zip", "mailing_zip"},
}

// synonymIndex is the reverse lookup: normalized header -> canonical column.
var synonymIndex = buildSynonymIndex()

func buildSynonymIndex() map[string]string {
	idx := make(map[string]string)
	for canonical, variants := range columnSynonyms {
		for _, v := range variants {
			idx[v] = canonical
		}
	}
	return idx
}

// CanonicalColumn resolves a raw CSV header to its canonical column name.
// Returns "" when the header is not recognized.
func CanonicalColumn(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	h = strings.ReplaceAll(h, " ", "_")
	return synonymIndex[h]
}

// mapHeader resolves every header of a CSV file, returning canonical name per
// column index ("" for unrecognized columns, which are ignored).
func mapHeader(headers []string) []string {
	mapped := make([]string, len(headers))
	for i, h := range headers {
		mapped[i] = CanonicalColumn(h)
	}
	return mapped
}
