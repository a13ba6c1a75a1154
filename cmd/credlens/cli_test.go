package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// setupWorkspace writes a dataset fixture plus a config file pointing the
// store at the temp dir, and sets the global flags to use them.
func setupWorkspace(t *testing.T) {
	t.Helper()
	logger = zap.NewNop()

	ws := t.TempDir()
	datasets := filepath.Join(ws, "datasets")
	if err := os.MkdirAll(datasets, 0755); err != nil {
		t.Fatal(err)
	}

	write := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(datasets, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	write("provider_roster_with_errors.csv",
		"provider_id,first_name,last_name,npi,license_number,license_state,license_expiration_date,specialty,phone,state\n"+
			"P1,Jane,Smith,1234567893,NY1001,NY,2099-06-30,Cardiology,(555) 123-4567,NY\n"+
			"P2,Robert,Jones,,CA2002,CA,2020-01-01,Dermatology,bad-phone,CA\n")
	write("ny_medical_license_database.csv",
		"license_number,expiration_date\nNY1001,2099-06-30\n")
	write("ca_medical_license_database.csv",
		"license_number,expiration_date\nCA2002,2020-01-01\n")
	write("mock_npi_registry.csv", "npi\n1234567893\n")

	cfgPath := filepath.Join(ws, "credlens.yaml")
	cfgYAML := "store:\n  database_path: " + filepath.Join(ws, "credlens.db") + "\n" +
		"embedding:\n  provider: \"\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfgYAML), 0644); err != nil {
		t.Fatal(err)
	}

	cfgFile = cfgPath
	dataDir = datasets
	t.Cleanup(func() {
		cfgFile = ""
		dataDir = ""
	})
}

func TestScoreCmd(t *testing.T) {
	setupWorkspace(t)

	if err := runScore(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runScore failed: %v", err)
	}
}

func TestQueryCmd(t *testing.T) {
	setupWorkspace(t)

	err := runQuery(&cobra.Command{}, []string{"How", "many", "providers", "have", "expired", "licenses?"})
	if err != nil {
		t.Fatalf("runQuery failed: %v", err)
	}
}

func TestReportCmd_CSVOutput(t *testing.T) {
	setupWorkspace(t)

	out := filepath.Join(t.TempDir(), "updates.csv")
	reportCSV = out
	defer func() { reportCSV = "" }()

	if err := reportUpdatesCmd.RunE(reportUpdatesCmd, nil); err != nil {
		t.Fatalf("report updates failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("csv not written: %v", err)
	}
	if len(data) == 0 {
		t.Error("csv file is empty")
	}
}

func TestHistoryCmd_AfterScore(t *testing.T) {
	setupWorkspace(t)

	// Scoring persists a snapshot; history should then find it.
	if err := runScore(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runScore failed: %v", err)
	}
	historyLimit = 10
	if err := runHistory(&cobra.Command{}, nil); err != nil {
		t.Fatalf("runHistory failed: %v", err)
	}
}
