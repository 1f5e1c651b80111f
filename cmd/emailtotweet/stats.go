package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/the2hourclo/email-to-tweet-railway/internal/config"
	"github.com/the2hourclo/email-to-tweet-railway/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show run-log statistics",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	st, err := store.New(ctx, cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	stats, err := st.Stats(ctx)
	if err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	fmt.Println("Run Log")
	fmt.Println("=======")
	fmt.Printf("Total runs:      %d\n", stats.Total)
	fmt.Printf("Completed:       %d\n", stats.Completed)
	fmt.Printf("Failed:          %d\n", stats.Failed)
	fmt.Printf("Running:         %d\n", stats.Running)
	fmt.Printf("Concepts:        %d\n", stats.Concepts)

	runs, err := st.RecentRuns(ctx, 10)
	if err != nil {
		return fmt.Errorf("load recent runs: %w", err)
	}

	if len(runs) > 0 {
		fmt.Println("\nRecent runs:")
		for _, r := range runs {
			line := fmt.Sprintf("  %s  %-9s  %-11s  %d concepts", r.StartedAt.Format("2006-01-02 15:04"), r.Status, r.Mode, r.ConceptCount)
			if r.ErrorMessage.Valid {
				line += "  (" + r.ErrorMessage.String + ")"
			}
			fmt.Println(line)
		}
	}

	return nil
}
