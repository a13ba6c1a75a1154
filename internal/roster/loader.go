package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"credlens/internal/logging"

	"golang.org/x/sync/errgroup"
)

// readRows reads a CSV file and returns one canonical-column map per row.
// Unrecognized columns are dropped; short rows are padded.
func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // tolerate ragged rows
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", path, err)
	}
	mapped := mapHeader(header)

	recognized := 0
	for _, m := range mapped {
		if m != "" {
			recognized++
		}
	}
	logging.IngestDebug("%s: %d/%d columns recognized", filepath.Base(path), recognized, len(header))
	if recognized == 0 {
		return nil, fmt.Errorf("%s: no recognized columns in header %v", path, header)
	}

	var rows []map[string]string
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		row := make(map[string]string, recognized)
		for i, col := range mapped {
			if col == "" || i >= len(record) {
				continue
			}
			// First matching header wins for duplicated synonyms.
			if _, exists := row[col]; !exists {
				row[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// LoadRoster loads and normalizes the provider roster CSV.
func LoadRoster(path string) ([]Provider, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "LoadRoster")
	defer timer.Stop()

	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	providers := make([]Provider, 0, len(rows))
	phoneDropped := 0
	for _, row := range rows {
		p := Provider{
			ProviderID:    row[ColProviderID],
			FirstName:     row[ColFirstName],
			LastName:      row[ColLastName],
			NPI:           row[ColNPI],
			LicenseNumber: row[ColLicenseNumber],
			LicenseState:  strings.ToUpper(row[ColLicenseState]),
			Specialty:     row[ColSpecialty],
			Phone:         row[ColPhone],
			Email:         row[ColEmail],
			AddressLine1:  row[ColAddressLine1],
			City:          row[ColCity],
			State:         strings.ToUpper(row[ColState]),
			Zip:           row[ColZip],
		}
		p.FullName = buildFullName(row[ColFullName], p.FirstName, p.LastName)
		p.FullNameClean = CleanName(p.FullName)
		p.LicenseExpiration = ParseDate(row[ColLicenseExpiration])
		p.PhoneClean = NormalizePhone(p.Phone)
		if p.Phone != "" && p.PhoneClean == "" {
			phoneDropped++
		}
		providers = append(providers, p)
	}

	logging.Ingest("Roster loaded: %d providers (%d unusable phone values)", len(providers), phoneDropped)
	return providers, nil
}

// LoadLicenseDB loads a state license database CSV, tagging each record
// with the issuing state.
func LoadLicenseDB(path, state string) ([]LicenseRecord, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "LoadLicenseDB("+state+")")
	defer timer.Stop()

	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	records := make([]LicenseRecord, 0, len(rows))
	for _, row := range rows {
		lic := strings.TrimSpace(row[ColLicenseNumber])
		if lic == "" {
			continue
		}
		records = append(records, LicenseRecord{
			LicenseNumber: lic,
			State:         state,
			Expiration:    ParseDate(row[ColLicenseExpiration]),
		})
	}

	logging.Ingest("License DB %s loaded: %d records", state, len(records))
	return records, nil
}

// LoadNPIRegistry loads the NPI registry CSV.
func LoadNPIRegistry(path string) ([]NPIRecord, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "LoadNPIRegistry")
	defer timer.Stop()

	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	records := make([]NPIRecord, 0, len(rows))
	for _, row := range rows {
		npi := strings.TrimSpace(row[ColNPI])
		if npi == "" {
			continue
		}
		records = append(records, NPIRecord{NPI: npi})
	}

	logging.Ingest("NPI registry loaded: %d records", len(records))
	return records, nil
}

// Paths names the four CSV inputs.
type Paths struct {
	Roster      string
	NYLicenses  string
	CALicenses  string
	NPIRegistry string
}

// Dir returns the directory holding the roster file, which is where the
// watcher looks for changes.
func (p Paths) Dir() string {
	return filepath.Dir(p.Roster)
}

// PathsFromDir builds Paths from a datasets directory and file names.
func PathsFromDir(dir, roster, ny, ca, npi string) Paths {
	return Paths{
		Roster:      filepath.Join(dir, roster),
		NYLicenses:  filepath.Join(dir, ny),
		CALicenses:  filepath.Join(dir, ca),
		NPIRegistry: filepath.Join(dir, npi),
	}
}

// Load loads all four CSVs in parallel and bundles them into a Dataset.
// The roster is required; license databases and the registry may be absent,
// in which case the corresponding validations simply find nothing.
func Load(ctx context.Context, paths Paths) (*Dataset, error) {
	timer := logging.StartTimer(logging.CategoryIngest, "Load")
	defer timer.StopWithInfo()

	ds := &Dataset{
		RosterPath: paths.Roster,
		NYPath:     paths.NYLicenses,
		CAPath:     paths.CALicenses,
		NPIPath:    paths.NPIRegistry,
	}

	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		providers, err := LoadRoster(paths.Roster)
		if err != nil {
			return fmt.Errorf("roster: %w", err)
		}
		ds.Providers = providers
		return nil
	})

	var nyRecords, caRecords []LicenseRecord
	loadLicenses := func(path, state string) func() error {
		return func() error {
			if path == "" {
				return nil
			}
			records, err := LoadLicenseDB(path, state)
			if err != nil {
				if os.IsNotExist(underlying(err)) {
					logging.Get(logging.CategoryIngest).Warn("License DB %s missing at %s, skipping", state, path)
					return nil
				}
				return fmt.Errorf("license db %s: %w", state, err)
			}
			// Appends from parallel goroutines are safe here: one
			// goroutine per state, merged after Wait.
			switch state {
			case "NY":
				nyRecords = records
			case "CA":
				caRecords = records
			}
			return nil
		}
	}

	g.Go(loadLicenses(paths.NYLicenses, "NY"))
	g.Go(loadLicenses(paths.CALicenses, "CA"))

	g.Go(func() error {
		if paths.NPIRegistry == "" {
			return nil
		}
		records, err := LoadNPIRegistry(paths.NPIRegistry)
		if err != nil {
			if os.IsNotExist(underlying(err)) {
				logging.Get(logging.CategoryIngest).Warn("NPI registry missing at %s, skipping", paths.NPIRegistry)
				return nil
			}
			return fmt.Errorf("npi registry: %w", err)
		}
		ds.NPIs = records
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	ds.Licenses = append(nyRecords, caRecords...)

	logging.Ingest("Dataset loaded: %d providers, %d licenses, %d NPIs",
		len(ds.Providers), len(ds.Licenses), len(ds.NPIs))
	return ds, nil
}

// underlying unwraps to the innermost error for os.IsNotExist checks.
func underlying(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}
