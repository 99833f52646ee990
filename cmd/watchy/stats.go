package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/vollcheck/watchy/internal/catalog"
	"github.com/vollcheck/watchy/internal/util"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	util.SetQuiet(viper.GetBool("quiet"))

	db, err := catalog.Open(viper.GetString("db"))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	stats, err := db.Stats()
	if err != nil {
		return fmt.Errorf("failed to compute stats: %w", err)
	}

	fmt.Printf("Total tracked:   %d\n", stats.TotalTracked)
	fmt.Printf("Present on disk: %d\n", stats.PresentCount)
	fmt.Printf("Files:           %d (%s)\n", stats.TotalFiles, humanize.Bytes(uint64(stats.TotalSizeBytes)))
	fmt.Printf("Directories:     %d\n", stats.TotalDirectories)
	fmt.Printf("Processed:       %d\n", stats.ProcessedFiles)
	fmt.Printf("Unprocessed:     %d\n", stats.UnprocessedFiles)

	if len(stats.ByKind) > 0 {
		fmt.Println("\nBy kind:")
		for kind, count := range stats.ByKind {
			fmt.Printf("  %-10s %d\n", kind, count)
		}
	}

	return nil
}
