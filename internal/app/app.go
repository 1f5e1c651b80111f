// Package app wires the application dependencies together.
package app

import (
	"context"

	"github.com/the2hourclo/email-to-tweet-railway/internal/config"
	"github.com/the2hourclo/email-to-tweet-railway/internal/guard"
	"github.com/the2hourclo/email-to-tweet-railway/internal/llm"
	"github.com/the2hourclo/email-to-tweet-railway/internal/notion"
	"github.com/the2hourclo/email-to-tweet-railway/internal/pipeline"
	"github.com/the2hourclo/email-to-tweet-railway/internal/store"
)

// App is the main application container holding all dependencies.
type App struct {
	Config *config.Config
	Store  *store.Store
	Notion *notion.Client
	Claude *llm.Client
	Runner *pipeline.Runner
}

// New creates a new application instance with all dependencies wired up.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	st, err := store.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	notionClient := notion.NewClient(notion.Config{
		APIKey: cfg.NotionAPIKey,
	})

	claude := llm.NewClient(llm.Config{
		APIKey: cfg.AnthropicAPIKey,
		Model:  cfg.ClaudeModel,
	})

	g := guard.New(guard.Config{
		Pages:      notionClient,
		Runs:       st,
		DatabaseID: cfg.TweetsDatabaseID,
	})

	runner := pipeline.NewRunner(pipeline.RunnerConfig{
		Orchestrator: pipeline.New(claude),
		Reader:       notionClient,
		Writer:       notionClient,
		Gate:         g,
		Recorder:     st,
		DatabaseID:   cfg.TweetsDatabaseID,
		Link:         cfg.NewsletterLink,
		PromptPageID: cfg.PromptPageID,
		MultiPass:    cfg.MultiPass,
		MaxConcepts:  cfg.MaxConcepts,
	})

	return &App{
		Config: cfg,
		Store:  st,
		Notion: notionClient,
		Claude: claude,
		Runner: runner,
	}, nil
}

// Close closes all resources.
func (a *App) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
