package roster

import (
	"strings"
	"time"
	"unicode"
)

// dateLayouts are tried in order when parsing expiration dates.
// Roster exports mix ISO and US layouts freely.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
	"01-02-2006",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParseDate parses a date in any of the supported layouts.
// Returns the zero time when the value is empty or unparseable.
func ParseDate(value string) time.Time {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}

// NormalizePhone reduces a raw phone value to ten NANP digits.
// Returns "" when the value cannot be a valid US number: wrong digit count,
// or area/exchange code starting with 0 or 1.
func NormalizePhone(raw string) string {
	var digits []rune
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}

	// Strip a leading country code.
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return ""
	}
	// NANP: area code and exchange code both start with 2-9.
	if digits[0] < '2' || digits[3] < '2' {
		return ""
	}
	return string(digits)
}

// FormatPhone renders a normalized ten-digit phone as (NXX) NXX-XXXX.
func FormatPhone(clean string) string {
	if len(clean) != 10 {
		return clean
	}
	return "(" + clean[0:3] + ") " + clean[3:6] + "-" + clean[6:10]
}

// ValidNPI reports whether the value is a structurally valid NPI:
// ten digits with a correct Luhn check digit over the 80840 prefix.
func ValidNPI(npi string) bool {
	if len(npi) != 10 {
		return false
	}
	for _, r := range npi {
		if r < '0' || r > '9' {
			return false
		}
	}

	// Luhn over the first nine digits, doubling from the rightmost.
	// The 80840 card-issuer prefix contributes a constant 24.
	sum := 24
	double := true
	for i := 8; i >= 0; i-- {
		d := int(npi[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	check := (10 - sum%10) % 10
	return check == int(npi[9]-'0')
}

// CleanName lowercases, trims and collapses interior whitespace so that
// "  Smith,  JOHN " and "smith, john" compare equal.
func CleanName(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	return strings.Join(fields, " ")
}

// buildFullName prefers an explicit full name, falling back to
// "first last" when only the parts are present.
func buildFullName(full, first, last string) string {
	if strings.TrimSpace(full) != "" {
		return strings.TrimSpace(full)
	}
	combined := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	return combined
}
