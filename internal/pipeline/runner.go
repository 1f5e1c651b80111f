package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/the2hourclo/email-to-tweet-railway/internal/concept"
)

// SourceReader reads a source page as flattened plain text.
type SourceReader interface {
	PageText(ctx context.Context, pageID string) (string, error)
}

// ConceptWriter persists one destination page per concept.
type ConceptWriter interface {
	CreateConceptPage(ctx context.Context, databaseID, sourceID string, c *concept.Concept) (string, error)
	CreateFallbackPage(ctx context.Context, databaseID, sourceID string, c *concept.Concept, writeErr error) (string, error)
}

// Gate is the idempotency guard in front of the orchestrator.
type Gate interface {
	Acquire(ctx context.Context, sourceID string) (bool, error)
	Release(ctx context.Context, sourceID string) error
}

// RunRecorder records run outcomes in the run log.
type RunRecorder interface {
	CompleteRun(ctx context.Context, sourceID, mode string, conceptCount int) error
	FailRun(ctx context.Context, sourceID, mode, errMsg string) error
}

// Runner executes one full pipeline invocation for a source page.
type Runner struct {
	orch     *Orchestrator
	reader   SourceReader
	writer   ConceptWriter
	gate     Gate
	recorder RunRecorder

	databaseID   string
	link         string
	promptPageID string
	multiPass    bool
	maxConcepts  int
}

// RunnerConfig holds runner dependencies and settings.
type RunnerConfig struct {
	Orchestrator *Orchestrator
	Reader       SourceReader
	Writer       ConceptWriter
	Gate         Gate
	Recorder     RunRecorder

	DatabaseID   string
	Link         string
	PromptPageID string // optional page whose text becomes the style guide
	MultiPass    bool
	MaxConcepts  int
}

// NewRunner creates a new Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	return &Runner{
		orch:         cfg.Orchestrator,
		reader:       cfg.Reader,
		writer:       cfg.Writer,
		gate:         cfg.Gate,
		recorder:     cfg.Recorder,
		databaseID:   cfg.DatabaseID,
		link:         cfg.Link,
		promptPageID: cfg.PromptPageID,
		multiPass:    cfg.MultiPass,
		maxConcepts:  cfg.MaxConcepts,
	}
}

// Summary reports the outcome of one invocation.
type Summary struct {
	SourceID     string
	Skipped      bool
	Mode         string
	ConceptCount int
	PageIDs      []string
	WriteErrors  int
}

// Process runs the full pipeline for one source page: guard, read,
// generate, persist, record. A skipped source is a success with zero new
// records.
func (r *Runner) Process(ctx context.Context, sourceID string) (*Summary, error) {
	skip, err := r.gate.Acquire(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("idempotency check: %w", err)
	}
	if skip {
		return &Summary{SourceID: sourceID, Skipped: true}, nil
	}

	sourceText, err := r.reader.PageText(ctx, sourceID)
	if err != nil {
		r.release(ctx, sourceID)
		return nil, fmt.Errorf("read source page: %w", err)
	}
	if strings.TrimSpace(sourceText) == "" {
		r.release(ctx, sourceID)
		return nil, fmt.Errorf("source page %s has no text content", sourceID)
	}

	cfg := PromptConfig{
		Link:        r.link,
		StyleGuide:  r.styleGuide(ctx),
		MaxConcepts: r.maxConcepts,
		MultiPass:   r.multiPass,
	}

	slog.Info("starting generation",
		"source_id", sourceID,
		"source_chars", len(sourceText),
		"multi_pass", cfg.MultiPass,
	)

	res, err := r.orch.Run(ctx, sourceText, cfg)
	if err != nil {
		if recErr := r.recorder.FailRun(ctx, sourceID, modeOf(cfg), err.Error()); recErr != nil {
			slog.Warn("failed to record failed run", "source_id", sourceID, "error", recErr)
		}
		return nil, fmt.Errorf("generate concepts: %w", err)
	}

	summary := &Summary{
		SourceID:     sourceID,
		Mode:         res.Mode,
		ConceptCount: len(res.Batch),
	}

	// Persist each concept independently so one rejected record never
	// loses the rest of the batch.
	for _, c := range res.Batch {
		pageID, err := r.writer.CreateConceptPage(ctx, r.databaseID, sourceID, c)
		if err != nil {
			slog.Error("concept page write rejected, writing fallback",
				"source_id", sourceID,
				"concept", c.Number,
				"error", err,
			)
			summary.WriteErrors++
			pageID, err = r.writer.CreateFallbackPage(ctx, r.databaseID, sourceID, c, err)
			if err != nil {
				slog.Error("fallback page write failed", "source_id", sourceID, "concept", c.Number, "error", err)
				continue
			}
		}
		summary.PageIDs = append(summary.PageIDs, pageID)
	}

	if err := r.recorder.CompleteRun(ctx, sourceID, res.Mode, len(res.Batch)); err != nil {
		slog.Warn("failed to record completed run", "source_id", sourceID, "error", err)
	}

	slog.Info("pipeline complete",
		"source_id", sourceID,
		"mode", res.Mode,
		"concepts", summary.ConceptCount,
		"pages", len(summary.PageIDs),
		"write_errors", summary.WriteErrors,
	)
	return summary, nil
}

// styleGuide loads the optional external prompt-template page. Absence or
// failure just means no style guide.
func (r *Runner) styleGuide(ctx context.Context) string {
	if r.promptPageID == "" {
		return ""
	}
	text, err := r.reader.PageText(ctx, r.promptPageID)
	if err != nil {
		slog.Warn("failed to load style guide page", "page_id", r.promptPageID, "error", err)
		return ""
	}
	return text
}

func (r *Runner) release(ctx context.Context, sourceID string) {
	if err := r.gate.Release(ctx, sourceID); err != nil {
		slog.Warn("failed to release claim", "source_id", sourceID, "error", err)
	}
}

func modeOf(cfg PromptConfig) string {
	if cfg.MultiPass {
		return ModeMultiPass
	}
	return ModeSinglePass
}
