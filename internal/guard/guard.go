// Package guard prevents reprocessing of an already-processed source page.
// It combines a pure external read ("do derived pages already reference
// this source?") with an atomic local claim, closing the window where two
// concurrent deliveries for the same source could both start a pipeline.
package guard

import (
	"context"
	"fmt"
	"log/slog"
)

// PageQuerier answers whether derived pages already exist for a source.
type PageQuerier interface {
	HasDerivedPages(ctx context.Context, databaseID, sourceID string) (bool, error)
}

// RunClaimer owns the atomic source-ID claim.
type RunClaimer interface {
	ClaimRun(ctx context.Context, sourceID string) (bool, error)
	ReleaseRun(ctx context.Context, sourceID string) error
	CompleteRun(ctx context.Context, sourceID, mode string, conceptCount int) error
}

// ModeSkipped marks runs the guard short-circuited.
const ModeSkipped = "skipped"

// Guard is the idempotency check run before the orchestrator.
type Guard struct {
	pages      PageQuerier
	runs       RunClaimer
	databaseID string
}

// Config holds guard configuration.
type Config struct {
	Pages      PageQuerier
	Runs       RunClaimer
	DatabaseID string
}

// New creates a new Guard.
func New(cfg Config) *Guard {
	return &Guard{
		pages:      cfg.Pages,
		runs:       cfg.Runs,
		databaseID: cfg.DatabaseID,
	}
}

// ShouldSkip reports whether derived pages already exist for sourceID.
// Pure read, no side effects.
func (g *Guard) ShouldSkip(ctx context.Context, sourceID string) (bool, error) {
	exists, err := g.pages.HasDerivedPages(ctx, g.databaseID, sourceID)
	if err != nil {
		return false, fmt.Errorf("check derived pages: %w", err)
	}
	return exists, nil
}

// Acquire decides whether a pipeline run for sourceID may proceed. It
// first takes the atomic local claim, then double-checks the workspace for
// records created before the run log existed. Returns true when the caller
// should skip.
func (g *Guard) Acquire(ctx context.Context, sourceID string) (bool, error) {
	won, err := g.runs.ClaimRun(ctx, sourceID)
	if err != nil {
		return false, fmt.Errorf("claim source: %w", err)
	}
	if !won {
		slog.Info("source already claimed, skipping", "source_id", sourceID)
		return true, nil
	}

	skip, err := g.ShouldSkip(ctx, sourceID)
	if err != nil {
		// The claim must not leak when the check itself failed.
		if relErr := g.runs.ReleaseRun(ctx, sourceID); relErr != nil {
			slog.Warn("failed to release claim", "source_id", sourceID, "error", relErr)
		}
		return false, err
	}
	if skip {
		slog.Info("derived pages already exist, skipping", "source_id", sourceID)
		// Keep the claim, marked complete, so later deliveries
		// short-circuit without touching the workspace.
		if err := g.runs.CompleteRun(ctx, sourceID, ModeSkipped, 0); err != nil {
			slog.Warn("failed to record skip", "source_id", sourceID, "error", err)
		}
		return true, nil
	}

	return false, nil
}

// Release frees the claim after a run that produced nothing, so a
// redelivery can try again.
func (g *Guard) Release(ctx context.Context, sourceID string) error {
	return g.runs.ReleaseRun(ctx, sourceID)
}
