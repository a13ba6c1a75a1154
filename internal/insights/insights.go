// Package insights turns summary statistics into a rule-based narrative:
// an overall assessment, critical issues, recommendations, risk areas, and
// compliance status.
package insights

import (
	"fmt"
	"sort"
	"strings"

	"credlens/internal/dq"
	"credlens/internal/logging"
)

// Severity levels for critical issues.
const (
	SeverityHigh   = "High"
	SeverityMedium = "Medium"
	SeverityLow    = "Low"
)

// CriticalIssue is one issue category that crossed its alert threshold.
type CriticalIssue struct {
	Type       string  `json:"type"`
	Percentage float64 `json:"percentage"`
	Count      int     `json:"count"`
	Severity   string  `json:"severity"`
	Threshold  float64 `json:"threshold"`
}

// Recommendation is one actionable remediation step.
type Recommendation struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

// ComplianceEntry is the status of one compliance area.
type ComplianceEntry struct {
	Area   string `json:"area"`
	Status string `json:"status"`
}

// Report is the full generated insight set.
type Report struct {
	OverallAssessment string            `json:"overall_assessment"`
	CriticalIssues    []CriticalIssue   `json:"critical_issues"`
	Recommendations   []Recommendation  `json:"recommendations"`
	RiskAreas         []string          `json:"risk_areas"`
	ComplianceStatus  []ComplianceEntry `json:"compliance_status"`
}

// Generate builds the insight report from the flagged table and its summary.
func Generate(rows []dq.Row, stats dq.Stats) *Report {
	timer := logging.StartTimer(logging.CategoryInsights, "Generate")
	defer timer.Stop()

	return &Report{
		OverallAssessment: assessOverall(stats),
		CriticalIssues:    criticalIssues(stats),
		Recommendations:   recommendations(stats),
		RiskAreas:         riskAreas(rows),
		ComplianceStatus:  complianceStatus(stats),
	}
}

// assessOverall maps the combined issue rate across the four headline
// categories onto a quality tier.
func assessOverall(stats dq.Stats) string {
	if stats.TotalProviders == 0 {
		return "No provider data available for assessment."
	}

	totalIssues := stats.ExpiredLicenses.Count + stats.MissingNPI.Count +
		stats.PhoneIssues.Count + stats.Duplicates.Count
	issueRate := float64(totalIssues) / float64(stats.TotalProviders*4) * 100

	switch {
	case issueRate < 5:
		return "Excellent data quality: the provider roster shows minimal issues. Continue current data management practices."
	case issueRate < 15:
		return "Good data quality: the roster is generally solid with some areas for improvement. Focus on the identified issues to enhance compliance."
	case issueRate < 30:
		return "Moderate data quality: several issues require attention. Implement systematic improvements to ensure compliance."
	default:
		return "Poor data quality: significant issues pose compliance risks. Immediate action is required to address critical gaps."
	}
}

type alertThreshold struct {
	label      string
	percentage float64
	severity   string
}

// criticalIssues reports every category above its alert threshold, sorted by
// severity then affected percentage.
func criticalIssues(stats dq.Stats) []CriticalIssue {
	checks := []struct {
		stat dq.IssueStat
		th   alertThreshold
	}{
		{stats.ExpiredLicenses, alertThreshold{"Expired Licenses", 10, SeverityHigh}},
		{stats.MissingNPI, alertThreshold{"Missing NPI", 5, SeverityHigh}},
		{stats.PhoneIssues, alertThreshold{"Phone Issues", 15, SeverityMedium}},
		{stats.Duplicates, alertThreshold{"Duplicates", 3, SeverityHigh}},
	}

	var issues []CriticalIssue
	for _, c := range checks {
		if c.stat.Percentage > c.th.percentage {
			issues = append(issues, CriticalIssue{
				Type:       c.th.label,
				Percentage: c.stat.Percentage,
				Count:      c.stat.Count,
				Severity:   c.th.severity,
				Threshold:  c.th.percentage,
			})
		}
	}

	rank := map[string]int{SeverityHigh: 3, SeverityMedium: 2, SeverityLow: 1}
	sort.Slice(issues, func(i, j int) bool {
		if ri, rj := rank[issues[i].Severity], rank[issues[j].Severity]; ri != rj {
			return ri > rj
		}
		return issues[i].Percentage > issues[j].Percentage
	})
	return issues
}

// recommendations emits remediation steps for every category above its
// action threshold, plus a standing governance item.
func recommendations(stats dq.Stats) []Recommendation {
	var recs []Recommendation

	if stats.ExpiredLicenses.Percentage > 5 {
		recs = append(recs, Recommendation{
			Category:    "License Management",
			Priority:    SeverityHigh,
			Action:      "Implement automated license expiration alerts 90 days before expiry",
			Description: "Set up proactive monitoring to prevent license lapses and ensure continuous compliance",
		})
	}
	if stats.MissingNPI.Percentage > 2 {
		recs = append(recs, Recommendation{
			Category:    "NPI Verification",
			Priority:    SeverityHigh,
			Action:      "Establish mandatory NPI validation during provider onboarding",
			Description: "Require valid NPI numbers for all new providers and validate existing records",
		})
	}
	if stats.PhoneIssues.Percentage > 10 {
		recs = append(recs, Recommendation{
			Category:    "Data Standardization",
			Priority:    SeverityMedium,
			Action:      "Implement phone number validation and formatting standards",
			Description: "Use automated tools to standardize phone number formats and validate entries",
		})
	}
	if stats.Duplicates.Percentage > 1 {
		recs = append(recs, Recommendation{
			Category:    "Data Deduplication",
			Priority:    SeverityHigh,
			Action:      "Deploy automated duplicate detection and resolution workflow",
			Description: "Implement systematic duplicate detection and establish merge/resolution procedures",
		})
	}

	recs = append(recs, Recommendation{
		Category:    "Data Governance",
		Priority:    SeverityMedium,
		Action:      "Establish regular data quality monitoring and reporting",
		Description: "Schedule monthly data quality assessments and track improvement metrics over time",
	})
	return recs
}

// riskAreas names the states and specialties whose issue totals sit in the
// top quintile.
func riskAreas(rows []dq.Row) []string {
	var areas []string

	states := dq.SummarizeByState(rows)
	if names := topQuintile(len(states), 5, func(i int) (string, float64) {
		return states[i].State, float64(states[i].TotalIssues())
	}); len(names) > 0 {
		areas = append(areas, "High-risk states: "+strings.Join(names, ", "))
	}

	specs := dq.SummarizeBySpecialty(rows)
	if names := topQuintile(len(specs), 3, func(i int) (string, float64) {
		return specs[i].Specialty, float64(specs[i].TotalIssues())
	}); len(names) > 0 {
		areas = append(areas, "High-risk specialties: "+strings.Join(names, ", "))
	}

	return areas
}

// topQuintile returns up to limit names whose value is strictly above the
// 80th percentile of all values.
func topQuintile(n, limit int, at func(i int) (string, float64)) []string {
	if n == 0 {
		return nil
	}
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		_, values[i] = at(i)
	}
	cut := quantile(values, 0.8)

	var names []string
	for i := 0; i < n && len(names) < limit; i++ {
		name, v := at(i)
		if v > cut {
			names = append(names, name)
		}
	}
	return names
}

// quantile computes the q-quantile with linear interpolation between order
// statistics.
func quantile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// complianceStatus grades license, NPI, and overall quality compliance.
func complianceStatus(stats dq.Stats) []ComplianceEntry {
	var entries []ComplianceEntry

	switch pct := stats.ExpiredLicenses.Percentage; {
	case pct < 1:
		entries = append(entries, ComplianceEntry{"License Compliance", "Compliant"})
	case pct < 5:
		entries = append(entries, ComplianceEntry{"License Compliance", "At Risk"})
	default:
		entries = append(entries, ComplianceEntry{"License Compliance", "Non-Compliant"})
	}

	switch pct := stats.MissingNPI.Percentage; {
	case pct < 1:
		entries = append(entries, ComplianceEntry{"NPI Compliance", "Compliant"})
	case pct < 3:
		entries = append(entries, ComplianceEntry{"NPI Compliance", "At Risk"})
	default:
		entries = append(entries, ComplianceEntry{"NPI Compliance", "Non-Compliant"})
	}

	total := stats.TotalProviders
	if total == 0 {
		total = 1
	}
	totalIssues := stats.ExpiredLicenses.Count + stats.MissingNPI.Count +
		stats.PhoneIssues.Count + stats.Duplicates.Count
	qualityScore := (1 - float64(totalIssues)/float64(total*4)) * 100
	switch {
	case qualityScore > 90:
		entries = append(entries, ComplianceEntry{"Data Quality", "Excellent"})
	case qualityScore > 75:
		entries = append(entries, ComplianceEntry{"Data Quality", "Good"})
	default:
		entries = append(entries, ComplianceEntry{"Data Quality", "Needs Improvement"})
	}

	return entries
}

// Summary renders the report as a short plain-text narrative for the CLI
// and query responses.
func (r *Report) Summary() string {
	var b strings.Builder
	b.WriteString(r.OverallAssessment)

	if len(r.CriticalIssues) > 0 {
		fmt.Fprintf(&b, "\n\nCritical issues identified: %d require immediate attention.", len(r.CriticalIssues))
		top := r.CriticalIssues
		if len(top) > 3 {
			top = top[:3]
		}
		for _, issue := range top {
			fmt.Fprintf(&b, "\n  - %s: %.1f%% of providers affected", issue.Type, issue.Percentage)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Fprintf(&b, "\n\nPriority action: %s", r.Recommendations[0].Action)
	}
	return b.String()
}
