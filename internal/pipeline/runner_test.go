package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/the2hourclo/email-to-tweet-railway/internal/concept"
)

type fakeReader struct {
	pages map[string]string
}

func (f *fakeReader) PageText(ctx context.Context, pageID string) (string, error) {
	text, ok := f.pages[pageID]
	if !ok {
		return "", errors.New("page not found")
	}
	return text, nil
}

type fakeWriter struct {
	created   []string
	fallbacks []string
	failFor   map[int]bool // concept numbers whose structured write is rejected
}

func (f *fakeWriter) CreateConceptPage(ctx context.Context, databaseID, sourceID string, c *concept.Concept) (string, error) {
	if f.failFor[c.Number] {
		return "", errors.New("validation_error")
	}
	id := fmt.Sprintf("page-%d", c.Number)
	f.created = append(f.created, id)
	return id, nil
}

func (f *fakeWriter) CreateFallbackPage(ctx context.Context, databaseID, sourceID string, c *concept.Concept, writeErr error) (string, error) {
	id := fmt.Sprintf("fallback-%d", c.Number)
	f.fallbacks = append(f.fallbacks, id)
	return id, nil
}

type fakeGate struct {
	skip     bool
	acquired []string
	released []string
}

func (f *fakeGate) Acquire(ctx context.Context, sourceID string) (bool, error) {
	f.acquired = append(f.acquired, sourceID)
	return f.skip, nil
}

func (f *fakeGate) Release(ctx context.Context, sourceID string) error {
	f.released = append(f.released, sourceID)
	return nil
}

type fakeRecorder struct {
	completed map[string]int
	failed    map[string]string
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{completed: make(map[string]int), failed: make(map[string]string)}
}

func (f *fakeRecorder) CompleteRun(ctx context.Context, sourceID, mode string, conceptCount int) error {
	f.completed[sourceID] = conceptCount
	return nil
}

func (f *fakeRecorder) FailRun(ctx context.Context, sourceID, mode, errMsg string) error {
	f.failed[sourceID] = errMsg
	return nil
}

func newTestRunner(gen Generator, reader *fakeReader, writer *fakeWriter, gate *fakeGate, rec *fakeRecorder) *Runner {
	return NewRunner(RunnerConfig{
		Orchestrator: New(gen),
		Reader:       reader,
		Writer:       writer,
		Gate:         gate,
		Recorder:     rec,
		DatabaseID:   "tweets-db",
		Link:         testLink,
		MaxConcepts:  3,
	})
}

func TestProcess_EndToEnd(t *testing.T) {
	// ~2500 characters of source text about time management.
	source := ""
	for len(source) < 2500 {
		source += "Time management is not about doing more things, it is about doing fewer things that matter. "
	}

	gen := &fakeGen{responses: []string{wellFormedDraft}}
	reader := &fakeReader{pages: map[string]string{"src-1": source}}
	writer := &fakeWriter{}
	gate := &fakeGate{}
	rec := newFakeRecorder()

	summary, err := newTestRunner(gen, reader, writer, gate, rec).Process(context.Background(), "src-1")
	require.NoError(t, err)

	assert.False(t, summary.Skipped)
	assert.Equal(t, ModeSinglePass, summary.Mode)
	assert.Equal(t, 3, summary.ConceptCount)
	assert.Equal(t, []string{"page-1", "page-2", "page-3"}, summary.PageIDs)
	assert.Zero(t, summary.WriteErrors)
	assert.Equal(t, 3, rec.completed["src-1"])

	// The generation prompt carried the flattened source.
	assert.Contains(t, gen.prompts[0], "fewer things that matter")
}

func TestProcess_SkippedSource(t *testing.T) {
	gen := &fakeGen{}
	reader := &fakeReader{pages: map[string]string{"src-1": "text"}}
	gate := &fakeGate{skip: true}
	rec := newFakeRecorder()

	summary, err := newTestRunner(gen, reader, &fakeWriter{}, gate, rec).Process(context.Background(), "src-1")
	require.NoError(t, err)

	assert.True(t, summary.Skipped)
	assert.Zero(t, summary.ConceptCount)
	assert.Empty(t, gen.prompts, "the orchestrator must not be invoked for a skipped source")
}

func TestProcess_MissingSourceReleasesClaim(t *testing.T) {
	gate := &fakeGate{}
	runner := newTestRunner(&fakeGen{}, &fakeReader{pages: map[string]string{}}, &fakeWriter{}, gate, newFakeRecorder())

	_, err := runner.Process(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, []string{"missing"}, gate.released)
}

func TestProcess_EmptySourceReleasesClaim(t *testing.T) {
	gate := &fakeGate{}
	reader := &fakeReader{pages: map[string]string{"src-1": "   \n  "}}
	runner := newTestRunner(&fakeGen{}, reader, &fakeWriter{}, gate, newFakeRecorder())

	_, err := runner.Process(context.Background(), "src-1")
	require.Error(t, err)
	assert.Equal(t, []string{"src-1"}, gate.released)
}

func TestProcess_GenerationFailureIsRecorded(t *testing.T) {
	gen := &fakeGen{errs: []error{errors.New("quota")}}
	reader := &fakeReader{pages: map[string]string{"src-1": "the email text"}}
	rec := newFakeRecorder()

	_, err := newTestRunner(gen, reader, &fakeWriter{}, &fakeGate{}, rec).Process(context.Background(), "src-1")
	require.Error(t, err)
	assert.Contains(t, rec.failed["src-1"], "quota")
}

func TestProcess_WriteFailureFallsBackPerRecord(t *testing.T) {
	gen := &fakeGen{responses: []string{wellFormedDraft}}
	reader := &fakeReader{pages: map[string]string{"src-1": "the email text"}}
	writer := &fakeWriter{failFor: map[int]bool{2: true}}
	rec := newFakeRecorder()

	summary, err := newTestRunner(gen, reader, writer, &fakeGate{}, rec).Process(context.Background(), "src-1")
	require.NoError(t, err)

	assert.Equal(t, 1, summary.WriteErrors)
	assert.Equal(t, []string{"page-1", "page-3"}, writer.created)
	assert.Equal(t, []string{"fallback-2"}, writer.fallbacks)
	assert.Equal(t, []string{"page-1", "fallback-2", "page-3"}, summary.PageIDs)
	assert.Equal(t, 3, rec.completed["src-1"])
}

func TestProcess_StyleGuidePageLoaded(t *testing.T) {
	gen := &fakeGen{responses: []string{wellFormedDraft}}
	reader := &fakeReader{pages: map[string]string{
		"src-1":     "the email text",
		"prompt-pg": "Always write in second person.",
	}}

	runner := NewRunner(RunnerConfig{
		Orchestrator: New(gen),
		Reader:       reader,
		Writer:       &fakeWriter{},
		Gate:         &fakeGate{},
		Recorder:     newFakeRecorder(),
		DatabaseID:   "tweets-db",
		Link:         testLink,
		PromptPageID: "prompt-pg",
		MaxConcepts:  3,
	})

	_, err := runner.Process(context.Background(), "src-1")
	require.NoError(t, err)
	assert.Contains(t, gen.prompts[0], "Always write in second person.")
}
