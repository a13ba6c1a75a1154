package dq

import (
	"sort"
	"time"
)

// StateSummary is the per-state issue breakdown.
type StateSummary struct {
	State           string `json:"state"`
	TotalRecords    int    `json:"total_records"`
	ExpiredLicenses int    `json:"expired_licenses"`
	MissingNPI      int    `json:"missing_npi"`
	PhoneIssues     int    `json:"phone_issues"`
	Duplicates      int    `json:"duplicates"`
	StateMismatches int    `json:"state_mismatches"`
}

// TotalIssues is the sum of all issue counts in the summary.
func (s *StateSummary) TotalIssues() int {
	return s.ExpiredLicenses + s.MissingNPI + s.PhoneIssues + s.Duplicates + s.StateMismatches
}

// SpecialtySummary is the per-specialty issue breakdown.
type SpecialtySummary struct {
	Specialty       string `json:"specialty"`
	TotalRecords    int    `json:"total_records"`
	ExpiredLicenses int    `json:"expired_licenses"`
	MissingNPI      int    `json:"missing_npi"`
	PhoneIssues     int    `json:"phone_issues"`
	Duplicates      int    `json:"duplicates"`
}

// TotalIssues is the sum of all issue counts in the summary.
func (s *SpecialtySummary) TotalIssues() int {
	return s.ExpiredLicenses + s.MissingNPI + s.PhoneIssues + s.Duplicates
}

// SummarizeByState groups the flagged table by address state. States sort
// by total issues descending so the worst appear first.
func SummarizeByState(rows []Row) []StateSummary {
	byState := make(map[string]*StateSummary)
	for i := range rows {
		r := &rows[i]
		state := r.State
		if state == "" {
			state = "(unknown)"
		}
		s, ok := byState[state]
		if !ok {
			s = &StateSummary{State: state}
			byState[state] = s
		}
		s.TotalRecords++
		if r.License.Expired {
			s.ExpiredLicenses++
		}
		if r.NPI.Missing {
			s.MissingNPI++
		}
		if r.PhoneIssue {
			s.PhoneIssues++
		}
		if r.DuplicateSuspect {
			s.Duplicates++
		}
		if r.License.StateMismatch {
			s.StateMismatches++
		}
	}

	out := make([]StateSummary, 0, len(byState))
	for _, s := range byState {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if ti, tj := out[i].TotalIssues(), out[j].TotalIssues(); ti != tj {
			return ti > tj
		}
		return out[i].State < out[j].State
	})
	return out
}

// SummarizeBySpecialty groups the flagged table by specialty, worst first.
func SummarizeBySpecialty(rows []Row) []SpecialtySummary {
	bySpec := make(map[string]*SpecialtySummary)
	for i := range rows {
		r := &rows[i]
		spec := r.Specialty
		if spec == "" {
			spec = "(unknown)"
		}
		s, ok := bySpec[spec]
		if !ok {
			s = &SpecialtySummary{Specialty: spec}
			bySpec[spec] = s
		}
		s.TotalRecords++
		if r.License.Expired {
			s.ExpiredLicenses++
		}
		if r.NPI.Missing {
			s.MissingNPI++
		}
		if r.PhoneIssue {
			s.PhoneIssues++
		}
		if r.DuplicateSuspect {
			s.Duplicates++
		}
	}

	out := make([]SpecialtySummary, 0, len(bySpec))
	for _, s := range bySpec {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if ti, tj := out[i].TotalIssues(), out[j].TotalIssues(); ti != tj {
			return ti > tj
		}
		return out[i].Specialty < out[j].Specialty
	})
	return out
}

// bestExpiration returns the expiration used for window filtering. The state
// DB value wins when present.
func bestExpiration(r *Row) time.Time {
	if !r.License.StateExpiration.IsZero() {
		return r.License.StateExpiration
	}
	return r.LicenseExpiration
}

// ExpiringWithin returns rows whose license expires between now and now+days,
// soonest first. Already-expired licenses are excluded; they belong in the
// compliance report.
func ExpiringWithin(rows []Row, days int, now time.Time) []Row {
	cutoff := now.AddDate(0, 0, days)
	var out []Row
	for i := range rows {
		exp := bestExpiration(&rows[i])
		if exp.IsZero() {
			continue
		}
		if !exp.Before(now) && !exp.After(cutoff) {
			out = append(out, rows[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return bestExpiration(&out[i]).Before(bestExpiration(&out[j]))
	})
	return out
}

// Expired returns every row whose license is flagged expired, most overdue
// first.
func Expired(rows []Row) []Row {
	var out []Row
	for i := range rows {
		if rows[i].License.Expired {
			out = append(out, rows[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ei, ej := bestExpiration(&out[i]), bestExpiration(&out[j])
		if ei.IsZero() != ej.IsZero() {
			return ej.IsZero()
		}
		return ei.Before(ej)
	})
	return out
}

// MissingNPI returns every row without an NPI.
func MissingNPI(rows []Row) []Row {
	var out []Row
	for i := range rows {
		if rows[i].NPI.Missing {
			out = append(out, rows[i])
		}
	}
	return out
}

// PhoneIssues returns every row whose phone failed normalization.
func PhoneIssues(rows []Row) []Row {
	var out []Row
	for i := range rows {
		if rows[i].PhoneIssue {
			out = append(out, rows[i])
		}
	}
	return out
}

// Duplicates returns every duplicate-suspect row grouped so suspects with
// similar names sit next to each other in the output.
func Duplicates(rows []Row) []Row {
	var out []Row
	for i := range rows {
		if rows[i].DuplicateSuspect {
			out = append(out, rows[i])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FullNameClean < out[j].FullNameClean
	})
	return out
}

// MultiState returns every row flagged for multiple states on one license.
func MultiState(rows []Row) []Row {
	var out []Row
	for i := range rows {
		if rows[i].MultiStateSingleLicense {
			out = append(out, rows[i])
		}
	}
	return out
}

// UpdateList returns every row carrying at least one flag, the worklist a
// credentialing team would export for outreach.
func UpdateList(rows []Row) []Row {
	var out []Row
	for i := range rows {
		if rows[i].HasIssue() {
			out = append(out, rows[i])
		}
	}
	return out
}
