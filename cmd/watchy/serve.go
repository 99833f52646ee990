package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vollcheck/watchy/internal/api"
	"github.com/vollcheck/watchy/internal/catalog"
	"github.com/vollcheck/watchy/internal/classify"
	"github.com/vollcheck/watchy/internal/reconcile"
	"github.com/vollcheck/watchy/internal/report"
	"github.com/vollcheck/watchy/internal/track"
	"github.com/vollcheck/watchy/internal/util"
	"github.com/vollcheck/watchy/internal/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Watch the footage root and serve the catalog API",
	Long: `Start the tracker service: a recursive filesystem watch on the footage
root feeding the catalog, plus the HTTP API for statistics, search, the
processing queue, and triggering an initial scan.

The watcher and a concurrently triggered scan write through one engine,
so they never race on the same path.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int("port", 8000, "API listen port")
	serveCmd.Flags().String("artifacts", "artifacts", "directory for JSONL event logs")
	viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
	viper.BindPFlag("artifacts", serveCmd.Flags().Lookup("artifacts"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	root, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return fmt.Errorf("failed to create footage directory: %w", err)
	}

	dbPath := viper.GetString("db")
	util.InfoLog("Opening database: %s", dbPath)
	db, err := catalog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger(viper.GetString("artifacts"), logLevel)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		logger = report.NullLogger()
	}
	defer logger.Close()

	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}

	// The scan and the live event stream must agree on what to skip
	ignorePatterns := viper.GetStringSlice("ignore_patterns")
	ignores, err := watch.CompileIgnores(ignorePatterns)
	if err != nil {
		return fmt.Errorf("invalid ignore pattern: %w", err)
	}

	classifier := classify.New(viper.GetStringSlice("video_extensions"))
	engine := track.NewEngine(db, logger)
	normalizer := track.NewNormalizer(root, classifier)
	reconciler := reconcile.New(engine, classifier)
	reconciler.Ignores = ignores

	watcher, err := watch.New(watch.Config{
		Root:           root,
		IgnorePatterns: ignorePatterns,
	})
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	util.InfoLog("Watching directory: %s", root)

	// Pump raw events through the normalizer into the engine. Storage
	// failures are logged, never swallowed silently, so the operator can
	// spot catalog drift.
	go func() {
		for ev := range watcher.Events() {
			op, ok := normalizer.Normalize(ev)
			if !ok {
				continue
			}
			if err := engine.Submit(op); err != nil {
				util.ErrorLog("Failed to apply %s for %s: %v", op.Kind, op.Path, err)
			}
		}
	}()
	go func() {
		for err := range watcher.Errors() {
			util.WarnLog("Watcher error: %v", err)
		}
	}()

	server := api.NewServer(api.Config{
		Port:       viper.GetInt("port"),
		Root:       root,
		DBPath:     dbPath,
		Store:      db,
		Reconciler: reconciler,
	})
	if err := server.Start(); err != nil {
		watcher.Stop()
		return err
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	util.InfoLog("Shutting down...")
	if err := server.Stop(); err != nil {
		util.WarnLog("API shutdown: %v", err)
	}
	if err := watcher.Stop(); err != nil {
		util.WarnLog("Watcher shutdown: %v", err)
	}
	util.SuccessLog("Stopped")

	return nil
}
