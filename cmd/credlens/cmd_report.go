package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"credlens/internal/config"
	"credlens/internal/dq"
	"credlens/internal/engine"
	"credlens/internal/respond"
	"credlens/internal/store"
)

var (
	reportDays int
	reportCSV  string

	historyLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate roster reports",
}

var reportExpiringCmd = &cobra.Command{
	Use:   "expiring",
	Short: "Providers whose licenses expire within the window",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine, cfg *config.Config) *engine.Result {
			days := reportDays
			if days <= 0 {
				days = cfg.Thresholds.ExpiryWindowDays
			}
			rows := eng.FilterByExpirationWindow(days)
			return &engine.Result{Kind: engine.KindProviders, Providers: rows, Days: days}
		})
	},
}

var reportComplianceCmd = &cobra.Command{
	Use:   "compliance",
	Short: "Providers with already-expired licenses",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine, cfg *config.Config) *engine.Result {
			return &engine.Result{Kind: engine.KindProviders, Providers: eng.ComplianceReportExpired()}
		})
	},
}

var reportUpdatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Providers needing information updates",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine, cfg *config.Config) *engine.Result {
			return &engine.Result{Kind: engine.KindProviders, Providers: eng.ExportUpdateList()}
		})
	},
}

var reportStatesCmd = &cobra.Command{
	Use:   "states",
	Short: "Issue counts by state, worst first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine, cfg *config.Config) *engine.Result {
			return &engine.Result{Kind: engine.KindStates, States: eng.StateIssueSummary()}
		})
	},
}

var reportSpecialtiesCmd = &cobra.Command{
	Use:   "specialties",
	Short: "Issue counts by specialty, worst first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReport(func(eng *engine.Engine, cfg *config.Config) *engine.Result {
			return &engine.Result{Kind: engine.KindSpecialties, Specialties: eng.SpecialtiesWithMostIssues()}
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show quality score history across snapshots",
	RunE:  runHistory,
}

func init() {
	reportCmd.PersistentFlags().StringVarP(&reportCSV, "output", "o", "", "Write CSV to file instead of printing")
	reportExpiringCmd.Flags().IntVar(&reportDays, "days", 0, "Expiration window in days (default from config)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of snapshots to show")

	reportCmd.AddCommand(reportExpiringCmd)
	reportCmd.AddCommand(reportComplianceCmd)
	reportCmd.AddCommand(reportUpdatesCmd)
	reportCmd.AddCommand(reportStatesCmd)
	reportCmd.AddCommand(reportSpecialtiesCmd)
}

// runReport loads the datasets, builds a result and either prints it or
// writes it as CSV.
func runReport(build func(*engine.Engine, *config.Config) *engine.Result) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if st != nil {
		defer st.Close()
	}

	eng := newEngine(cfg, st)
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := eng.Load(ctx, datasetPaths(cfg)); err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}

	result := build(eng, cfg)

	if reportCSV != "" {
		f, err := os.Create(reportCSV)
		if err != nil {
			return fmt.Errorf("create %s: %w", reportCSV, err)
		}
		defer f.Close()
		if err := engine.WriteResultCSV(f, result); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
		fmt.Printf("Wrote %s\n", reportCSV)
		return nil
	}

	printReport(result)
	return nil
}

func printReport(result *engine.Result) {
	switch result.Kind {
	case engine.KindProviders:
		if len(result.Providers) == 0 {
			fmt.Println("No matching providers.")
			return
		}
		for _, r := range result.Providers {
			fmt.Printf("%-8s %-28s %-24s %s\n",
				r.ProviderID, r.FullNameClean, r.Specialty, providerNote(&r))
		}
		fmt.Printf("\n%d provider(s)\n", len(result.Providers))
	case engine.KindStates:
		fmt.Printf("%-6s %-10s %-8s %-12s %-7s %-10s\n",
			"state", "providers", "expired", "missing_npi", "phone", "duplicates")
		for _, s := range result.States {
			fmt.Printf("%-6s %-10d %-8d %-12d %-7d %-10d\n",
				s.State, s.TotalRecords, s.ExpiredLicenses, s.MissingNPI, s.PhoneIssues, s.Duplicates)
		}
	case engine.KindSpecialties:
		fmt.Printf("%-28s %-10s %-8s %-12s %-7s\n",
			"specialty", "providers", "expired", "missing_npi", "phone")
		for _, s := range result.Specialties {
			fmt.Printf("%-28s %-10d %-8d %-12d %-7d\n",
				s.Specialty, s.TotalRecords, s.ExpiredLicenses, s.MissingNPI, s.PhoneIssues)
		}
	}
}

// providerNote summarizes why a provider appears on a report line.
func providerNote(r *dq.Row) string {
	switch {
	case r.License.Expired:
		if exp := r.License.StateExpiration; !exp.IsZero() {
			return "expired " + exp.Format("2006-01-02")
		}
		return "expired"
	case !r.License.StateExpiration.IsZero():
		return "expires " + r.License.StateExpiration.Format("2006-01-02")
	case r.NPI.Missing:
		return "missing NPI"
	case r.PhoneIssue:
		return "phone format"
	case r.DuplicateSuspect:
		return "possible duplicate"
	default:
		return ""
	}
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)

	if cfg.Store.DatabasePath == "" {
		return fmt.Errorf("no database configured; set store.database_path")
	}
	st, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	snaps, err := st.History(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No snapshots yet. Run 'credlens score' or 'credlens serve' first.")
		return nil
	}

	scores := make([]float64, len(snaps))
	for i, s := range snaps {
		scores[i] = s.Score
	}
	fmt.Println(respond.RenderHistoryTrend(scores))
	fmt.Println()

	fmt.Printf("%-20s %-7s %-10s %-8s %-12s %s\n",
		"created", "score", "providers", "expired", "missing_npi", "roster")
	for _, s := range snaps {
		fmt.Printf("%-20s %-7.1f %-10d %-8d %-12d %s\n",
			s.CreatedAt.Format("2006-01-02 15:04:05"),
			s.Score, s.TotalProviders, s.ExpiredLicenses, s.MissingNPI, s.RosterFile)
	}
	return nil
}
