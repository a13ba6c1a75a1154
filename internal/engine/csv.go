package engine

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"credlens/internal/dq"
)

// WriteResultCSV renders a query result as CSV for download and the report
// commands.
func WriteResultCSV(w io.Writer, res *Result) error {
	switch res.Kind {
	case KindProviders:
		return WriteProvidersCSV(w, res.Providers)
	case KindStates:
		return WriteStatesCSV(w, res.States)
	case KindSpecialties:
		return WriteSpecialtiesCSV(w, res.Specialties)
	case KindScore:
		cw := csv.NewWriter(w)
		cw.Write([]string{"score"})
		cw.Write([]string{fmt.Sprintf("%.1f", res.Score)})
		cw.Flush()
		return cw.Error()
	case KindCount:
		cw := csv.NewWriter(w)
		cw.Write([]string{"count"})
		cw.Write([]string{strconv.Itoa(res.Count)})
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("unknown result kind: %s", res.Kind)
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func boolCell(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// WriteProvidersCSV writes flagged provider rows with their issue columns.
func WriteProvidersCSV(w io.Writer, rows []dq.Row) error {
	cw := csv.NewWriter(w)
	header := []string{
		"provider_id", "full_name", "npi", "specialty",
		"license_number", "license_state", "license_expiration",
		"address_state", "phone",
		"license_found", "license_expired", "license_state_mismatch",
		"npi_missing", "phone_issue", "duplicate_suspect", "multi_state_single_license",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := range rows {
		r := &rows[i]
		record := []string{
			r.ProviderID, r.FullName, r.Provider.NPI, r.Specialty,
			r.LicenseNumber, r.LicenseState, formatDate(r.LicenseExpiration),
			r.State, r.Phone,
			boolCell(r.License.Found), boolCell(r.License.Expired), boolCell(r.License.StateMismatch),
			boolCell(r.NPI.Missing), boolCell(r.PhoneIssue), boolCell(r.DuplicateSuspect), boolCell(r.MultiStateSingleLicense),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteStatesCSV writes the per-state issue breakdown.
func WriteStatesCSV(w io.Writer, states []dq.StateSummary) error {
	cw := csv.NewWriter(w)
	header := []string{
		"state", "total_records", "expired_licenses", "missing_npi",
		"phone_issues", "duplicates", "state_mismatches", "total_issues",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range states {
		s := &states[i]
		record := []string{
			s.State, strconv.Itoa(s.TotalRecords), strconv.Itoa(s.ExpiredLicenses),
			strconv.Itoa(s.MissingNPI), strconv.Itoa(s.PhoneIssues),
			strconv.Itoa(s.Duplicates), strconv.Itoa(s.StateMismatches),
			strconv.Itoa(s.TotalIssues()),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSpecialtiesCSV writes the per-specialty issue breakdown.
func WriteSpecialtiesCSV(w io.Writer, specs []dq.SpecialtySummary) error {
	cw := csv.NewWriter(w)
	header := []string{
		"specialty", "total_records", "expired_licenses", "missing_npi",
		"phone_issues", "duplicates", "total_issues",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range specs {
		s := &specs[i]
		record := []string{
			s.Specialty, strconv.Itoa(s.TotalRecords), strconv.Itoa(s.ExpiredLicenses),
			strconv.Itoa(s.MissingNPI), strconv.Itoa(s.PhoneIssues),
			strconv.Itoa(s.Duplicates), strconv.Itoa(s.TotalIssues()),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
