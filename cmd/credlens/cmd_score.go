package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var scoreInsights bool

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score the roster and print the quality summary",
	RunE:  runScore,
}

func init() {
	scoreCmd.Flags().BoolVar(&scoreInsights, "insights", false, "Include the narrative quality report")
}

func runScore(cmd *cobra.Command, args []string) error {
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

	s := eng.Stats()
	fmt.Printf("Data Quality Score: %.1f / 100\n\n", s.Score)
	fmt.Printf("Providers:              %d\n", s.TotalProviders)
	fmt.Printf("Expired licenses:       %d (%.1f%%)\n", s.ExpiredLicenses.Count, s.ExpiredLicenses.Percentage)
	fmt.Printf("Missing NPI:            %d (%.1f%%)\n", s.MissingNPI.Count, s.MissingNPI.Percentage)
	fmt.Printf("Phone format issues:    %d (%.1f%%)\n", s.PhoneIssues.Count, s.PhoneIssues.Percentage)
	fmt.Printf("Duplicate suspects:     %d (%.1f%%)\n", s.Duplicates.Count, s.Duplicates.Percentage)
	fmt.Printf("State mismatches:       %d (%.1f%%)\n", s.StateMismatches.Count, s.StateMismatches.Percentage)
	fmt.Printf("Multi-state, 1 license: %d\n", s.MultiState)
	fmt.Printf("Needing update:         %d\n", s.NeedsUpdate)

	if scoreInsights {
		fmt.Println()
		fmt.Println(eng.Insights().Summary())
	}
	return nil
}
