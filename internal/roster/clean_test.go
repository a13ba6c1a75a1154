package roster

import (
	"testing"
	"time"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"formatted", "(212) 555-0123", "2125550123"},
		{"dotted", "212.555.0123", "2125550123"},
		{"country code", "+1 212 555 0123", "2125550123"},
		{"bare digits", "2125550123", "2125550123"},
		{"too short", "555-0123", ""},
		{"too long", "212555012345", ""},
		{"area code starts with 1", "1125550123", ""},
		{"exchange starts with 0", "2120550123", ""},
		{"letters only", "call me", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizePhone(tt.raw); got != tt.want {
				t.Errorf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormatPhone(t *testing.T) {
	if got := FormatPhone("2125550123"); got != "(212) 555-0123" {
		t.Errorf("FormatPhone = %q", got)
	}
	// Non-normalized input passes through unchanged.
	if got := FormatPhone("bad"); got != "bad" {
		t.Errorf("FormatPhone(bad) = %q", got)
	}
}

func TestValidNPI(t *testing.T) {
	tests := []struct {
		npi  string
		want bool
	}{
		{"1234567893", true}, // standard check-digit example
		{"1234567890", false},
		{"123456789", false},
		{"12345678931", false},
		{"12345abcde", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidNPI(tt.npi); got != tt.want {
			t.Errorf("ValidNPI(%q) = %v, want %v", tt.npi, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	for _, raw := range []string{"2025-06-30", "06/30/2025", "6/30/2025", "2025/06/30", "Jun 30, 2025"} {
		got := ParseDate(raw)
		if !got.Equal(want) {
			t.Errorf("ParseDate(%q) = %v, want %v", raw, got, want)
		}
	}

	if !ParseDate("not a date").IsZero() {
		t.Error("expected zero time for garbage input")
	}
	if !ParseDate("").IsZero() {
		t.Error("expected zero time for empty input")
	}
}

func TestCleanName(t *testing.T) {
	if got := CleanName("  Smith,   JOHN  "); got != "smith, john" {
		t.Errorf("CleanName = %q", got)
	}
}

func TestCanonicalColumn(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"NPI_Number", ColNPI},
		{" lic_no ", ColLicenseNumber},
		{"Practice State", ColState},
		{"expiration_date", ColLicenseExpiration},
		{"unknown_column", ""},
	}

	for _, tt := range tests {
		if got := CanonicalColumn(tt.header); got != tt.want {
			t.Errorf("CanonicalColumn(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}
