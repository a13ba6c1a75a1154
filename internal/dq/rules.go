// Package dq runs row-level quality rules over a validated roster, computes
// the weighted quality score, and produces the aggregate views the dashboard
// and query engine serve.
package dq

import (
	"strings"
	"time"

	"github.com/agnivade/levenshtein"

	"credlens/internal/config"
	"credlens/internal/logging"
	"credlens/internal/roster"
	"credlens/internal/validate"
)

// Row is one provider with every validation and rule flag attached.
type Row struct {
	roster.Provider

	License validate.LicenseFlags `json:"license"`
	NPI     validate.NPIFlags     `json:"npi_flags"`

	// PhoneIssue is true when the raw phone could not be normalized.
	PhoneIssue bool `json:"phone_issue"`

	// SpecialtyMissing is true when the specialty column is blank.
	SpecialtyMissing bool `json:"specialty_missing"`

	// MultiStateSingleLicense is true when the same provider entity appears
	// under more than one address state but carries at most one license.
	MultiStateSingleLicense bool `json:"multi_state_single_license"`

	// DuplicateSuspect is true when another row's cleaned name is within the
	// similarity threshold inside the same blocking group.
	DuplicateSuspect bool `json:"duplicate_suspect"`
}

// HasIssue reports whether any quality flag is set on the row.
func (r *Row) HasIssue() bool {
	return r.License.Expired || r.License.StateMismatch || r.NPI.Missing ||
		r.PhoneIssue || r.SpecialtyMissing || r.MultiStateSingleLicense ||
		r.DuplicateSuspect
}

// entityKey groups rows that belong to the same provider entity. NPI wins
// when present; rows without one fall back to the cleaned full name.
func entityKey(p *roster.Provider) string {
	if p.HasNPI() {
		return p.NPI
	}
	return p.FullNameClean
}

// Augment combines the dataset with validation output and evaluates every
// row rule, producing the flagged table everything downstream consumes.
func Augment(ds *roster.Dataset, cfg *config.Config, now time.Time) []Row {
	timer := logging.StartTimer(logging.CategoryRules, "Augment")
	defer timer.Stop()

	licFlags := validate.Licenses(ds.Providers, ds.Licenses, now)
	npiFlags := validate.NPI(ds.Providers, ds.NPIs)

	rows := make([]Row, len(ds.Providers))
	for i := range ds.Providers {
		rows[i] = Row{
			Provider:         ds.Providers[i],
			License:          licFlags[i],
			NPI:              npiFlags[i],
			PhoneIssue:       ds.Providers[i].PhoneClean == "",
			SpecialtyMissing: strings.TrimSpace(ds.Providers[i].Specialty) == "",
		}
	}

	markMultiStateSingleLicense(rows)
	markDuplicateSuspects(rows, cfg.Thresholds)

	logging.Rules("Augmented %d rows (%d with at least one issue)", len(rows), countIssues(rows))
	return rows
}

func countIssues(rows []Row) int {
	n := 0
	for i := range rows {
		if rows[i].HasIssue() {
			n++
		}
	}
	return n
}

// markMultiStateSingleLicense flags every row of an entity that spans more
// than one address state while holding at most one distinct license number.
func markMultiStateSingleLicense(rows []Row) {
	type entityAgg struct {
		states   map[string]bool
		licenses map[string]bool
	}
	byEntity := make(map[string]*entityAgg)

	for i := range rows {
		key := entityKey(&rows[i].Provider)
		if key == "" {
			continue
		}
		agg, ok := byEntity[key]
		if !ok {
			agg = &entityAgg{states: make(map[string]bool), licenses: make(map[string]bool)}
			byEntity[key] = agg
		}
		if rows[i].State != "" {
			agg.states[rows[i].State] = true
		}
		if rows[i].LicenseNumber != "" {
			agg.licenses[rows[i].LicenseNumber] = true
		}
	}

	for i := range rows {
		key := entityKey(&rows[i].Provider)
		if key == "" {
			continue
		}
		agg := byEntity[key]
		if len(agg.states) > 1 && len(agg.licenses) <= 1 {
			rows[i].MultiStateSingleLicense = true
		}
	}
}

// blockKey buckets rows for pairwise comparison so duplicate detection stays
// far from O(n^2) over the whole roster. Rows block on the last-name prefix.
func blockKey(p *roster.Provider, keyLen int) string {
	name := strings.ToLower(strings.TrimSpace(p.LastName))
	if name == "" {
		// Fall back to the tail word of the cleaned full name.
		fields := strings.Fields(p.FullNameClean)
		if len(fields) > 0 {
			name = fields[len(fields)-1]
		}
	}
	if len(name) < keyLen {
		return ""
	}
	return name[:keyLen]
}

// nameSimilarity returns a 0-100 ratio between two cleaned names based on
// edit distance over the longer string.
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	dist := levenshtein.ComputeDistance(a, b)
	return (1 - float64(dist)/float64(longest)) * 100
}

// markDuplicateSuspects runs blocked pairwise name comparison and flags both
// sides of every pair at or above the similarity threshold.
func markDuplicateSuspects(rows []Row, th config.ThresholdsConfig) {
	keyLen := th.BlockKeyLen
	if keyLen < 1 {
		keyLen = 2
	}

	blocks := make(map[string][]int)
	for i := range rows {
		key := blockKey(&rows[i].Provider, keyLen)
		if key == "" {
			continue
		}
		blocks[key] = append(blocks[key], i)
	}

	pairs := 0
	for _, idxs := range blocks {
		for a := 0; a < len(idxs); a++ {
			for b := a + 1; b < len(idxs); b++ {
				i, j := idxs[a], idxs[b]
				pairs++
				if nameSimilarity(rows[i].FullNameClean, rows[j].FullNameClean) >= th.NameSimilarityMin {
					rows[i].DuplicateSuspect = true
					rows[j].DuplicateSuspect = true
				}
			}
		}
	}
	logging.RulesDebug("Duplicate detection: %d blocks, %d pairwise comparisons", len(blocks), pairs)
}
