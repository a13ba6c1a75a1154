package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"credlens/internal/respond"
)

var queryJSON bool

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Ask a natural-language question about the roster",
	Long: `Classifies the question into an intent, runs the matching query and
prints the answer.

Examples:
  credlens query "How many providers have expired licenses?"
  credlens query "Which licenses expire in the next 60 days?"
  credlens query --json "What is the overall quality score?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Print the raw result as JSON")
}

func runQuery(cmd *cobra.Command, args []string) error {
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

	question := strings.Join(args, " ")
	resolution := newClassifier(cfg, st).Classify(ctx, question)
	result, err := eng.RunQuery(resolution.Intent, resolution.Params)
	if err != nil {
		return err
	}

	if queryJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"resolution": resolution,
			"result":     result,
		})
	}

	if verbose {
		fmt.Println(respond.FormatIntentTrace(resolution))
		fmt.Println()
	}
	answer := respond.Render(result)
	fmt.Println(answer.Text)
	if len(answer.FollowUps) > 0 {
		fmt.Println("\nYou could also ask:")
		for _, f := range answer.FollowUps {
			fmt.Printf("  - %s\n", f)
		}
	}
	return nil
}
