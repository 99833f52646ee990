package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vollcheck/watchy/internal/catalog"
	"github.com/vollcheck/watchy/internal/classify"
	"github.com/vollcheck/watchy/internal/reconcile"
	"github.com/vollcheck/watchy/internal/report"
	"github.com/vollcheck/watchy/internal/track"
	"github.com/vollcheck/watchy/internal/util"
	"github.com/vollcheck/watchy/internal/watch"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Reconcile the catalog with the footage tree",
	Long: `Walk the footage root and track every entry found. A scan is additive:
it refreshes or adds catalog rows but never removes any, so it is safe to
run at any time, including while the service is live. Use it to populate
a fresh catalog or to correct drift from missed notifications.`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().Duration("timeout", 0, "abort the walk after this duration (0 = no limit)")
	viper.BindPFlag("scan-timeout", scanCmd.Flags().Lookup("timeout"))

	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))

	root, err := filepath.Abs(viper.GetString("root"))
	if err != nil {
		return fmt.Errorf("failed to resolve root: %w", err)
	}
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return fmt.Errorf("footage directory does not exist: %s", root)
	}

	dbPath := viper.GetString("db")
	util.InfoLog("Opening database: %s", dbPath)
	db, err := catalog.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ignores, err := watch.CompileIgnores(viper.GetStringSlice("ignore_patterns"))
	if err != nil {
		return fmt.Errorf("invalid ignore pattern: %w", err)
	}

	classifier := classify.New(viper.GetStringSlice("video_extensions"))
	engine := track.NewEngine(db, report.NullLogger())
	reconciler := reconcile.New(engine, classifier)
	reconciler.Ignores = ignores

	// Indeterminate progress bar when attached to a terminal
	var bar *progressbar.ProgressBar
	if util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
		bar = progressbar.NewOptions(-1,
			progressbar.OptionSetDescription("Scanning"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("entries"),
			progressbar.OptionThrottle(200*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		reconciler.OnEntry = func(string) { bar.Add(1) }
	}

	ctx := context.Background()
	if timeout := viper.GetDuration("scan-timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	util.InfoLog("Scanning: %s", root)
	result, err := reconciler.Reconcile(ctx, root)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	util.SuccessLog("Scan complete in %v", result.Elapsed.Round(time.Millisecond))
	util.InfoLog("  Entries touched: %d", result.Touched)
	if result.Skipped > 0 {
		util.WarnLog("  Entries skipped: %d", result.Skipped)
	}

	return nil
}
