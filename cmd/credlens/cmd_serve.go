package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"credlens/internal/roster"
	"credlens/internal/server"
)

var (
	serveAddr  string
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard and JSON API",
	Long: `Loads the datasets, starts the HTTP server and keeps it running until
interrupted. With --watch, dataset CSV changes trigger an automatic reload.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload when dataset files change")
}

func runServe(cmd *cobra.Command, args []string) error {
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
	paths := datasetPaths(cfg)

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), timeout)
	defer cancelLoad()
	if err := eng.Load(loadCtx, paths); err != nil {
		return fmt.Errorf("load datasets: %w", err)
	}
	stats := eng.Stats()
	logger.Info("Datasets loaded",
		zap.Int("providers", stats.TotalProviders),
		zap.Float64("score", stats.Score))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	if serveWatch || cfg.Datasets.Watch {
		watcher, err := roster.NewWatcher(paths.Dir(), func() {
			reloadCtx, done := context.WithTimeout(ctx, timeout)
			defer done()
			if err := eng.Load(reloadCtx, paths); err != nil {
				logger.Warn("Dataset reload failed", zap.Error(err))
				return
			}
			logger.Info("Datasets reloaded", zap.Float64("score", eng.QualityScore()))
		})
		if err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		if err := watcher.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		defer watcher.Stop()
		logger.Info("Watching for dataset changes", zap.String("dir", paths.Dir()))
	}

	addr := serveAddr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	srv := server.New(eng, newClassifier(cfg, st))
	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler()}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Serving", zap.String("addr", addr))
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		return httpSrv.Shutdown(shutdownCtx)
	}
}
