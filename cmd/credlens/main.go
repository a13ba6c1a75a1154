package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"credlens/internal/config"
	"credlens/internal/embedding"
	"credlens/internal/engine"
	"credlens/internal/logging"
	"credlens/internal/nlu"
	"credlens/internal/roster"
	"credlens/internal/store"
)

var (
	// Global flags
	verbose bool
	cfgFile string
	dataDir string
	timeout time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "credlens",
	Short: "CredLens - provider roster data-quality engine",
	Long: `CredLens ingests a provider roster CSV, cross-references it against the
NY and CA medical license databases and the NPI registry, and scores the
roster's data quality.

It answers natural-language questions about the roster ("How many providers
have expired licenses?") through a layered intent classifier, and serves an
interactive dashboard over HTTP.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default: credlens.yaml if present)")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "datasets", "d", "", "Dataset directory (overrides config)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(historyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the effective configuration: explicit --config file,
// a credlens.yaml in the working directory, or built-in defaults.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("credlens.yaml"); err == nil {
			path = "credlens.yaml"
		}
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// initLogging brings up the categorized file logger next to the database.
func initLogging(cfg *config.Config) {
	ws := filepath.Dir(cfg.Store.DatabasePath)
	if err := logging.Initialize(ws); err != nil {
		logger.Warn("File logging disabled", zap.Error(err))
		return
	}
	logging.Override(cfg.Logging.DebugMode || verbose, cfg.Logging.Level)
}

// datasetPaths resolves the four CSV inputs, honoring the --datasets override.
func datasetPaths(cfg *config.Config) roster.Paths {
	dir := cfg.Datasets.Dir
	if dataDir != "" {
		dir = dataDir
	}
	return roster.PathsFromDir(dir,
		cfg.Datasets.Roster,
		cfg.Datasets.NYLicenses,
		cfg.Datasets.CALicenses,
		cfg.Datasets.NPIRegistry)
}

// openStore opens SQLite persistence if configured. A nil return with nil
// error means persistence is disabled.
func openStore(cfg *config.Config) (*store.Store, error) {
	if cfg.Store.DatabasePath == "" {
		return nil, nil
	}
	return store.Open(cfg.Store.DatabasePath)
}

// newEngine builds the query engine, optionally backed by the store.
func newEngine(cfg *config.Config, st *store.Store) *engine.Engine {
	opts := []engine.Option{}
	if st != nil {
		opts = append(opts, engine.WithStore(st))
	}
	return engine.New(cfg, opts...)
}

// newClassifier assembles the layered intent classifier. Both the LLM and
// the semantic stage are optional; regex and keyword matching always work.
func newClassifier(cfg *config.Config, st *store.Store) *nlu.Classifier {
	var llm nlu.LLM
	if cfg.LLM.Enabled {
		llm = nlu.NewLLMClient(cfg.LLM.Host, cfg.LLM.Model)
	}

	var semantic nlu.Semantic
	eng, err := embedding.NewEngine(cfg.Embedding)
	switch {
	case errors.Is(err, embedding.ErrDisabled):
		logger.Debug("Semantic classification disabled")
	case err != nil:
		logger.Warn("Embedding engine unavailable", zap.Error(err))
	default:
		var patterns nlu.PatternSource
		if st != nil {
			patterns = st
		}
		semantic = nlu.NewSemanticClassifier(eng, patterns)
	}

	return nlu.NewClassifier(llm, semantic)
}
