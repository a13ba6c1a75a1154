// Package nlu classifies free-text questions about roster quality into a
// fixed set of analytics intents. Classification runs as a chain: local LLM
// (when enabled), regex patterns, semantic similarity, then keyword fallback.
package nlu

import (
	"regexp"
	"strconv"
)

// Intent identifies one supported analytics operation.
type Intent string

const (
	IntentExpiredLicenseCount       Intent = "expired_license_count"
	IntentPhoneFormatIssues         Intent = "phone_format_issues"
	IntentMissingNPI                Intent = "missing_npi"
	IntentDuplicateRecords          Intent = "duplicate_records"
	IntentOverallQualityScore       Intent = "overall_quality_score"
	IntentSpecialtiesWithMostIssues Intent = "specialties_with_most_issues"
	IntentStateIssueSummary         Intent = "state_issue_summary"
	IntentComplianceReportExpired   Intent = "compliance_report_expired"
	IntentFilterByExpirationWindow  Intent = "filter_by_expiration_window"
	IntentMultiStateSingleLicense   Intent = "multi_state_single_license"
	IntentExportUpdateList          Intent = "export_update_list"
)

// AllIntents returns every supported intent in a stable order.
func AllIntents() []Intent {
	return []Intent{
		IntentExpiredLicenseCount,
		IntentPhoneFormatIssues,
		IntentMissingNPI,
		IntentDuplicateRecords,
		IntentOverallQualityScore,
		IntentSpecialtiesWithMostIssues,
		IntentStateIssueSummary,
		IntentComplianceReportExpired,
		IntentFilterByExpirationWindow,
		IntentMultiStateSingleLicense,
		IntentExportUpdateList,
	}
}

// Valid reports whether the intent is one of the supported set.
func (i Intent) Valid() bool {
	for _, known := range AllIntents() {
		if i == known {
			return true
		}
	}
	return false
}

// Params carries extracted query parameters.
type Params struct {
	// Days is the look-ahead window for expiration filters.
	Days int `json:"days,omitempty"`
}

// DefaultExpiryWindowDays is used when a window query names no day count.
const DefaultExpiryWindowDays = 90

// intentPatterns maps each intent to its trigger patterns. Order matters:
// the first matching intent wins, so more specific intents sit earlier in
// classification via AllIntents ordering.
var intentPatterns = map[Intent][]*regexp.Regexp{
	IntentExpiredLicenseCount: {
		regexp.MustCompile(`(?i)\bhow many\b.*\bexpired license`),
		regexp.MustCompile(`(?i)\bexpired licenses\b.*\bcount\b`),
	},
	IntentPhoneFormatIssues: {
		regexp.MustCompile(`(?i)\bphone\b.*(format|invalid|issue|problem)`),
	},
	IntentMissingNPI: {
		regexp.MustCompile(`(?i)\bmissing\b.*\bnpi\b`),
		regexp.MustCompile(`(?i)\bwhich\b.*\bnpi\b.*\bmissing\b`),
	},
	IntentDuplicateRecords: {
		regexp.MustCompile(`(?i)\bduplicate\b.*(record|provider)`),
		regexp.MustCompile(`(?i)\bpotential duplicate`),
	},
	IntentOverallQualityScore: {
		regexp.MustCompile(`(?i)\boverall\b.*\bquality score\b`),
		regexp.MustCompile(`(?i)\bdata quality score\b`),
	},
	IntentSpecialtiesWithMostIssues: {
		regexp.MustCompile(`(?i)\bspecialt(y|ies)\b.*\bmost\b.*(issue|problem)`),
	},
	IntentStateIssueSummary: {
		regexp.MustCompile(`(?i)\bsummary\b.*\b(state|by state)\b`),
	},
	IntentComplianceReportExpired: {
		regexp.MustCompile(`(?i)\bcompliance report\b.*\bexpired\b`),
	},
	IntentFilterByExpirationWindow: {
		regexp.MustCompile(`(?i)\bfilter\b.*\bexpiration\b.*\b(\d+)\s*days\b`),
		regexp.MustCompile(`(?i)\bexpire(s|d)?\b.*\bnext\b.*\b(\d+)\b\s*days`),
	},
	IntentMultiStateSingleLicense: {
		regexp.MustCompile(`(?i)\bmultiple states\b.*single license\b`),
	},
	IntentExportUpdateList: {
		regexp.MustCompile(`(?i)\bexport\b.*(update|credential) `),
	},
}

var daysPattern = regexp.MustCompile(`(?i)(\d+)\s*days`)

// ExtractParams pulls intent parameters out of the raw question. Only the
// expiration-window intent carries one: the day count, defaulting to 90.
func ExtractParams(intent Intent, text string) Params {
	if intent != IntentFilterByExpirationWindow {
		return Params{}
	}
	if m := daysPattern.FindStringSubmatch(text); m != nil {
		if days, err := strconv.Atoi(m[1]); err == nil {
			return Params{Days: days}
		}
	}
	return Params{Days: DefaultExpiryWindowDays}
}

// matchPatterns returns the first intent whose regex matches, along with the
// matched pattern text.
func matchPatterns(text string) (Intent, string, bool) {
	for _, intent := range AllIntents() {
		for _, p := range intentPatterns[intent] {
			if p.MatchString(text) {
				return intent, p.String(), true
			}
		}
	}
	return "", "", false
}
