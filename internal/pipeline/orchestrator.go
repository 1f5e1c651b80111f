// Package pipeline sequences the generation calls that turn one flattened
// source document into a validated batch of social post concepts. Data
// flows strictly forward: source text, raw model text, parsed concepts,
// normalized batch. No stage is ever retried within a run.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/the2hourclo/email-to-tweet-railway/internal/concept"
	"github.com/the2hourclo/email-to-tweet-railway/internal/extract"
)

// Stage names, in multi-pass order.
const (
	StageAnalyze    = "analyze"
	StageDraft      = "draft"
	StageAssess     = "assess"
	StageRefine     = "refine"
	StageEnhanceCTA = "enhance_cta"
	StageSinglePass = "single_pass"
)

// Modes a run can complete in.
const (
	ModeSinglePass = "single-pass"
	ModeMultiPass  = "multi-pass"
)

// Stage output token budgets.
const (
	structuredMaxTokens = 1024
	draftMaxTokens      = 4096
)

const defaultMaxConcepts = 5

// Generator is the external generative service.
type Generator interface {
	Generate(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// PromptConfig carries the per-run prompt parameters. It is constructed
// once per run and never mutated.
type PromptConfig struct {
	Link        string // CTA link token
	StyleGuide  string // optional upstream style-guide text
	MaxConcepts int
	MultiPass   bool
	JSONDraft   bool // single-pass output expected as JSON instead of annotated markdown
}

// StageResult is the raw text one stage returned, plus metadata. It is
// threaded through the run explicitly; stages share no mutable state.
type StageResult struct {
	Stage   string
	Output  string
	Elapsed time.Duration
	Err     error
}

// Result is a completed run: the normalized batch, the mode that produced
// it, and the per-stage trace.
type Result struct {
	Batch  concept.Batch
	Mode   string
	Stages []StageResult
}

// Orchestrator owns the single-pass vs. multi-pass decision and the
// whole-pipeline fallback.
type Orchestrator struct {
	gen Generator
}

// New creates a new Orchestrator.
func New(gen Generator) *Orchestrator {
	return &Orchestrator{gen: gen}
}

// Run generates a concept batch from flattened source text. In multi-pass
// mode any unrecovered stage failure discards partial state and re-runs
// single-pass against the original source; a second failure propagates.
func (o *Orchestrator) Run(ctx context.Context, sourceText string, cfg PromptConfig) (*Result, error) {
	if cfg.MaxConcepts <= 0 {
		cfg.MaxConcepts = defaultMaxConcepts
	}

	if cfg.MultiPass {
		res, err := o.runMultiPass(ctx, sourceText, cfg)
		if err == nil {
			return res, nil
		}
		slog.Warn("multi-pass failed, falling back to single-pass", "error", err)

		res, err = o.runSinglePass(ctx, sourceText, cfg)
		if err != nil {
			return nil, fmt.Errorf("single-pass fallback also failed: %w", err)
		}
		return res, nil
	}

	return o.runSinglePass(ctx, sourceText, cfg)
}

// runStage makes exactly one generation call and records its metadata.
func (o *Orchestrator) runStage(ctx context.Context, name, user string, maxTokens int) StageResult {
	start := time.Now()
	output, err := o.gen.Generate(ctx, SystemPrompt, user, maxTokens)
	res := StageResult{
		Stage:   name,
		Output:  output,
		Elapsed: time.Since(start),
		Err:     err,
	}
	if err != nil {
		slog.Warn("stage failed", "stage", name, "elapsed", res.Elapsed, "error", err)
	} else {
		slog.Debug("stage complete", "stage", name, "elapsed", res.Elapsed, "output_chars", len(output))
	}
	return res
}

func (o *Orchestrator) runSinglePass(ctx context.Context, sourceText string, cfg PromptConfig) (*Result, error) {
	template := SinglePassPrompt
	if cfg.JSONDraft {
		template = SinglePassJSONPrompt
	}
	prompt := fmt.Sprintf(template, cfg.MaxConcepts, styleGuideSection(cfg.StyleGuide), sourceText, cfg.Link)

	stage := o.runStage(ctx, StageSinglePass, prompt, draftMaxTokens)
	if stage.Err != nil {
		return nil, fmt.Errorf("single-pass generation: %w", stage.Err)
	}

	var batch concept.Batch
	if cfg.JSONDraft {
		raw, err := extract.Extract(stage.Output)
		if err != nil {
			// Extraction failure is fatal in single-pass mode.
			return nil, fmt.Errorf("single-pass extraction: %w", err)
		}
		batch, err = concept.FromJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("single-pass extraction: %w", err)
		}
	} else {
		batch = concept.ParseSections(stage.Output)
	}

	batch = concept.Normalize(batch, cfg.Link)
	if len(batch) == 0 {
		return nil, fmt.Errorf("single-pass produced no usable concepts")
	}

	return &Result{Batch: batch, Mode: ModeSinglePass, Stages: []StageResult{stage}}, nil
}

func (o *Orchestrator) runMultiPass(ctx context.Context, sourceText string, cfg PromptConfig) (*Result, error) {
	var stages []StageResult

	// Analyze. A failed analysis is substituted, never fatal.
	analysis, stage := o.analyze(ctx, sourceText)
	stages = append(stages, stage)

	// Draft. Failure here is fatal to multi-pass mode.
	draft, stage := o.draft(ctx, sourceText, analysis, cfg)
	stages = append(stages, stage)
	if stage.Err != nil {
		return nil, fmt.Errorf("draft stage: %w", stage.Err)
	}

	// Assess. A failed assessment defaults to "no refinement".
	assessment, stage := o.assess(ctx, draft)
	stages = append(stages, stage)

	// Refine, at most one round. Failure is fatal like the draft's.
	if assessment.NeedsRefinement {
		refined, stage := o.refine(ctx, draft, assessment)
		stages = append(stages, stage)
		if stage.Err != nil {
			return nil, fmt.Errorf("refine stage: %w", stage.Err)
		}
		draft = refined
	}

	batch := concept.ParseSections(draft)
	if len(batch) == 0 {
		return nil, fmt.Errorf("draft stage: no concepts parsed")
	}

	// EnhanceCTA. On failure the drafted CTAs stand.
	stage = o.enhanceCTAs(ctx, batch, analysis, cfg)
	stages = append(stages, stage)

	// FinalValidate.
	batch = concept.Normalize(batch, cfg.Link)
	if len(batch) == 0 {
		return nil, fmt.Errorf("no concepts survived validation")
	}

	return &Result{Batch: batch, Mode: ModeMultiPass, Stages: stages}, nil
}

// Analysis is the Analyze stage's structured read of the source.
type Analysis struct {
	ContentType string   `json:"contentType"`
	Theme       string   `json:"theme"`
	Audience    string   `json:"audience"`
	Insights    []string `json:"insights"`
}

// defaultAnalysis is the Analyze stage's local default.
func defaultAnalysis() Analysis {
	return Analysis{
		ContentType: "general",
		Theme:       "the main topic of the source email",
		Audience:    "the newsletter's existing readers",
		Insights:    []string{"the strongest point made in the email"},
	}
}

func (o *Orchestrator) analyze(ctx context.Context, sourceText string) (Analysis, StageResult) {
	stage := o.runStage(ctx, StageAnalyze, fmt.Sprintf(AnalyzePrompt, sourceText), structuredMaxTokens)
	if stage.Err != nil {
		return defaultAnalysis(), stage
	}

	var analysis Analysis
	if err := extract.Unmarshal(stage.Output, &analysis); err != nil {
		slog.Warn("analysis unparseable, using default", "error", err)
		stage.Err = err
		return defaultAnalysis(), stage
	}
	if analysis.Theme == "" {
		analysis = defaultAnalysis()
	}
	return analysis, stage
}

func (o *Orchestrator) draft(ctx context.Context, sourceText string, analysis Analysis, cfg PromptConfig) (string, StageResult) {
	insights := "- " + strings.Join(analysis.Insights, "\n- ")
	prompt := fmt.Sprintf(DraftPrompt,
		cfg.MaxConcepts,
		analysis.ContentType,
		analysis.Theme,
		analysis.Audience,
		insights,
		styleGuideSection(cfg.StyleGuide),
		sourceText,
		cfg.Link,
	)

	stage := o.runStage(ctx, StageDraft, prompt, draftMaxTokens)
	if stage.Err == nil && strings.TrimSpace(stage.Output) == "" {
		stage.Err = fmt.Errorf("empty draft output")
	}
	return stage.Output, stage
}

// Assessment is the Assess stage's verdict on the draft.
type Assessment struct {
	Score           int    `json:"score"`
	NeedsRefinement bool   `json:"needsRefinement"`
	Feedback        string `json:"feedback"`
}

func (o *Orchestrator) assess(ctx context.Context, draft string) (Assessment, StageResult) {
	stage := o.runStage(ctx, StageAssess, fmt.Sprintf(AssessPrompt, draft), structuredMaxTokens)
	if stage.Err != nil {
		return Assessment{Score: 7}, stage
	}

	var assessment Assessment
	if err := extract.Unmarshal(stage.Output, &assessment); err != nil {
		slog.Warn("assessment unparseable, skipping refinement", "error", err)
		stage.Err = err
		return Assessment{Score: 7}, stage
	}
	return assessment, stage
}

func (o *Orchestrator) refine(ctx context.Context, draft string, assessment Assessment) (string, StageResult) {
	feedback := assessment.Feedback
	if feedback == "" {
		feedback = "Tighten every hook and cut filler words."
	}

	stage := o.runStage(ctx, StageRefine, fmt.Sprintf(RefinePrompt, feedback, draft), draftMaxTokens)
	if stage.Err == nil && strings.TrimSpace(stage.Output) == "" {
		stage.Err = fmt.Errorf("empty refine output")
	}
	return stage.Output, stage
}

// enhanceCTAs rewrites every CTA in one call. Any failure leaves the
// drafted CTAs in place; the normalizer still guarantees the link.
func (o *Orchestrator) enhanceCTAs(ctx context.Context, batch concept.Batch, analysis Analysis, cfg PromptConfig) StageResult {
	var current strings.Builder
	for i, c := range batch {
		fmt.Fprintf(&current, "%d. %s\n", i+1, c.CTA)
	}

	stage := o.runStage(ctx, StageEnhanceCTA, fmt.Sprintf(EnhanceCTAPrompt, analysis.Theme, cfg.Link, current.String()), structuredMaxTokens)
	if stage.Err != nil {
		return stage
	}

	ctas, err := parseCTAs(stage.Output)
	if err != nil {
		slog.Warn("enhanced CTAs unparseable, keeping drafted CTAs", "error", err)
		stage.Err = err
		return stage
	}

	for i, c := range batch {
		if i < len(ctas) && strings.TrimSpace(ctas[i]) != "" {
			c.CTA = ctas[i]
		}
	}
	return stage
}

func parseCTAs(output string) ([]string, error) {
	var wrapper struct {
		CTAs []string `json:"ctas"`
	}
	if err := extract.Unmarshal(output, &wrapper); err == nil && len(wrapper.CTAs) > 0 {
		return wrapper.CTAs, nil
	}

	var bare []string
	if err := extract.Unmarshal(output, &bare); err != nil {
		return nil, err
	}
	return bare, nil
}

func styleGuideSection(styleGuide string) string {
	if strings.TrimSpace(styleGuide) == "" {
		return ""
	}
	return "STYLE GUIDE:\n---\n" + styleGuide + "\n---\n\n"
}
