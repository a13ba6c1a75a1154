package dq

import (
	"credlens/internal/config"
	"credlens/internal/logging"
)

// IssueStat is the count and rate of one issue category.
type IssueStat struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Stats summarizes the flagged table for scoring, insights, and the API.
type Stats struct {
	TotalProviders  int       `json:"total_providers"`
	ExpiredLicenses IssueStat `json:"expired_licenses"`
	MissingNPI      IssueStat `json:"missing_npi"`
	PhoneIssues     IssueStat `json:"phone_issues"`
	Duplicates      IssueStat `json:"duplicates"`
	StateMismatches IssueStat `json:"state_mismatches"`

	LicensesFound    int `json:"licenses_found"`
	SpecialtyMissing int `json:"specialty_missing"`
	MultiState       int `json:"multi_state_single_license"`
	NeedsUpdate      int `json:"needs_update"`

	Score float64 `json:"score"`
}

func pct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

func stat(count, total int) IssueStat {
	return IssueStat{Count: count, Percentage: pct(count, total)}
}

// Summarize counts every flag across the table and computes the weighted
// quality score.
func Summarize(rows []Row, weights config.ScoringConfig) Stats {
	var s Stats
	s.TotalProviders = len(rows)

	expired, missingNPI, phone, dup, mismatch := 0, 0, 0, 0, 0
	for i := range rows {
		r := &rows[i]
		if r.License.Expired {
			expired++
		}
		if r.License.Found {
			s.LicensesFound++
		}
		if r.License.StateMismatch {
			mismatch++
		}
		if r.NPI.Missing {
			missingNPI++
		}
		if r.PhoneIssue {
			phone++
		}
		if r.DuplicateSuspect {
			dup++
		}
		if r.SpecialtyMissing {
			s.SpecialtyMissing++
		}
		if r.MultiStateSingleLicense {
			s.MultiState++
		}
		if r.HasIssue() {
			s.NeedsUpdate++
		}
	}

	n := len(rows)
	s.ExpiredLicenses = stat(expired, n)
	s.MissingNPI = stat(missingNPI, n)
	s.PhoneIssues = stat(phone, n)
	s.Duplicates = stat(dup, n)
	s.StateMismatches = stat(mismatch, n)
	s.Score = score(s, weights)

	logging.Rules("Summary: %d providers, score %.1f (expired %d, missing NPI %d, phone %d, duplicates %d, mismatches %d)",
		n, s.Score, expired, missingNPI, phone, dup, mismatch)
	return s
}

// score computes the 0-100 weighted quality score. Each category contributes
// its weight scaled by the share of clean rows in that category.
func score(s Stats, weights config.ScoringConfig) float64 {
	if s.TotalProviders == 0 {
		return 0
	}
	contribution := func(weight int, st IssueStat) float64 {
		return float64(weight) * (1 - st.Percentage/100)
	}
	total := contribution(weights.License, s.ExpiredLicenses) +
		contribution(weights.NPI, s.MissingNPI) +
		contribution(weights.Duplicates, s.Duplicates) +
		contribution(weights.ContactFormat, s.PhoneIssues) +
		contribution(weights.Mismatches, s.StateMismatches)
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}
