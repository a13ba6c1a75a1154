// Package respond renders query results as natural-language answers with
// follow-up suggestions.
package respond

import (
	"fmt"
	"strings"

	"credlens/internal/engine"
	"credlens/internal/nlu"
)

// Answer is the rendered response to one query.
type Answer struct {
	Text      string   `json:"text"`
	FollowUps []string `json:"follow_ups"`
}

// Render produces the templated answer for a query result.
func Render(res *engine.Result) Answer {
	return Answer{
		Text:      renderText(res),
		FollowUps: followUps(res.Intent),
	}
}

func renderText(res *engine.Result) string {
	switch res.Intent {
	case nlu.IntentExpiredLicenseCount:
		if res.Count == 0 {
			return "No providers currently hold an expired license."
		}
		return fmt.Sprintf("%d %s an expired license.", res.Count, plural(res.Count, "provider holds", "providers hold"))

	case nlu.IntentPhoneFormatIssues:
		n := len(res.Providers)
		if n == 0 {
			return "Every provider phone number passed format validation."
		}
		return fmt.Sprintf("%d %s phone numbers that failed format validation.", n, plural(n, "provider has", "providers have"))

	case nlu.IntentMissingNPI:
		n := len(res.Providers)
		if n == 0 {
			return "Every provider has an NPI on file."
		}
		return fmt.Sprintf("%d %s missing an NPI.", n, plural(n, "provider is", "providers are"))

	case nlu.IntentDuplicateRecords:
		n := len(res.Providers)
		if n == 0 {
			return "No suspected duplicate records were found."
		}
		return fmt.Sprintf("%d records look like potential duplicates based on name similarity.", n)

	case nlu.IntentOverallQualityScore:
		return fmt.Sprintf("The overall data quality score is %.1f out of 100. %s", res.Score, scoreRemark(res.Score))

	case nlu.IntentSpecialtiesWithMostIssues:
		if len(res.Specialties) == 0 {
			return "No specialty-level issues were found."
		}
		top := res.Specialties[0]
		return fmt.Sprintf("%s has the most data quality issues (%d across %d records). %d specialties analyzed in total.",
			top.Specialty, top.TotalIssues(), top.TotalRecords, len(res.Specialties))

	case nlu.IntentStateIssueSummary:
		if len(res.States) == 0 {
			return "No state-level issues were found."
		}
		top := res.States[0]
		return fmt.Sprintf("Issues span %d states. %s has the most with %d issues across %d records.",
			len(res.States), top.State, top.TotalIssues(), top.TotalRecords)

	case nlu.IntentComplianceReportExpired:
		n := len(res.Providers)
		if n == 0 {
			return "Compliance report: no expired licenses on file."
		}
		return fmt.Sprintf("Compliance report: %d %s with an expired license, listed most overdue first.",
			n, plural(n, "provider", "providers"))

	case nlu.IntentFilterByExpirationWindow:
		n := len(res.Providers)
		if n == 0 {
			return fmt.Sprintf("No licenses expire within the next %d days.", res.Days)
		}
		return fmt.Sprintf("%d %s within the next %d days, soonest first.",
			n, plural(n, "license expires", "licenses expire"), res.Days)

	case nlu.IntentMultiStateSingleLicense:
		n := len(res.Providers)
		if n == 0 {
			return "No providers appear in multiple states on a single license."
		}
		return fmt.Sprintf("%d %s in multiple states while holding a single license.",
			n, plural(n, "provider appears", "providers appear"))

	case nlu.IntentExportUpdateList:
		n := len(res.Providers)
		if n == 0 {
			return "No providers need updates. The roster is clean."
		}
		return fmt.Sprintf("%d %s at least one correction. The list is ready for export.",
			n, plural(n, "provider needs", "providers need"))

	default:
		return "Query completed."
	}
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

func scoreRemark(score float64) string {
	switch {
	case score >= 90:
		return "Excellent shape."
	case score >= 80:
		return "Good, with room for improvement."
	case score >= 60:
		return "Several issue categories need attention."
	default:
		return "Significant cleanup is needed."
	}
}

// followUps suggests related questions per intent.
func followUps(intent nlu.Intent) []string {
	switch intent {
	case nlu.IntentExpiredLicenseCount:
		return []string{
			"Generate a compliance report for expired licenses",
			"Which licenses expire in the next 90 days?",
			"Show me a summary of issues by state",
		}
	case nlu.IntentPhoneFormatIssues:
		return []string{
			"Export the update list",
			"What is our overall quality score?",
		}
	case nlu.IntentMissingNPI:
		return []string{
			"Find potential duplicate provider records",
			"Export the update list",
		}
	case nlu.IntentDuplicateRecords:
		return []string{
			"Which specialties have the most issues?",
			"Export the update list",
		}
	case nlu.IntentOverallQualityScore:
		return []string{
			"How many providers have expired licenses?",
			"Which providers are missing NPI numbers?",
			"Show me a summary of issues by state",
		}
	case nlu.IntentSpecialtiesWithMostIssues:
		return []string{
			"Show me a summary of issues by state",
			"What is our overall quality score?",
		}
	case nlu.IntentStateIssueSummary:
		return []string{
			"Which specialties have the most issues?",
			"Providers in multiple states with a single license",
		}
	case nlu.IntentComplianceReportExpired:
		return []string{
			"Which licenses expire in the next 90 days?",
			"Export the update list",
		}
	case nlu.IntentFilterByExpirationWindow:
		return []string{
			"Generate a compliance report for expired licenses",
			"How many providers have expired licenses?",
		}
	case nlu.IntentMultiStateSingleLicense:
		return []string{
			"Find potential duplicate provider records",
			"Show me a summary of issues by state",
		}
	case nlu.IntentExportUpdateList:
		return []string{
			"What is our overall quality score?",
			"Which specialties have the most issues?",
		}
	default:
		return nil
	}
}

// RenderHistoryTrend summarizes a score series for the CLI history command.
func RenderHistoryTrend(scores []float64) string {
	if len(scores) < 2 {
		return "Not enough history to show a trend."
	}
	latest, previous := scores[0], scores[1]
	delta := latest - previous
	switch {
	case delta > 0.05:
		return fmt.Sprintf("Score improved from %.1f to %.1f since the previous run.", previous, latest)
	case delta < -0.05:
		return fmt.Sprintf("Score dropped from %.1f to %.1f since the previous run.", previous, latest)
	default:
		return fmt.Sprintf("Score is holding steady at %.1f.", latest)
	}
}

// FormatIntentTrace renders the classification trace for display.
func FormatIntentTrace(resolution nlu.Resolution) string {
	var b strings.Builder
	fmt.Fprintf(&b, "intent=%s method=%s", resolution.Intent, resolution.Method)
	if resolution.Pattern != "" {
		fmt.Fprintf(&b, " pattern=%s", resolution.Pattern)
	}
	if resolution.Phrase != "" {
		fmt.Fprintf(&b, " phrase=%q similarity=%.2f", resolution.Phrase, resolution.Similarity)
	}
	if resolution.Params.Days > 0 {
		fmt.Fprintf(&b, " days=%d", resolution.Params.Days)
	}
	return b.String()
}
