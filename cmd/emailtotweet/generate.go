package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/the2hourclo/email-to-tweet-railway/internal/app"
	"github.com/the2hourclo/email-to-tweet-railway/internal/config"
)

var generateCmd = &cobra.Command{
	Use:   "generate <page-id>",
	Short: "Generate concepts for one source page",
	Long: `Run the full pipeline once for a single source page ID: read the
page, generate concepts, and write one tweets-database page per concept.`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pageID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.ValidateForGeneration(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	defer a.Close()

	summary, err := a.Runner.Process(ctx, pageID)
	if err != nil {
		return fmt.Errorf("process page: %w", err)
	}

	if summary.Skipped {
		fmt.Printf("Skipped: concepts already exist for %s\n", pageID)
		return nil
	}

	fmt.Printf("Generated %d concepts (%s mode), wrote %d pages\n",
		summary.ConceptCount, summary.Mode, len(summary.PageIDs))
	if summary.WriteErrors > 0 {
		fmt.Printf("Warning: %d concept pages fell back to plain-text error pages\n", summary.WriteErrors)
	}
	return nil
}
