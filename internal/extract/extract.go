// Package extract coerces raw model output into parseable JSON using a
// cascade of extraction strategies. Each strategy is a pure function that
// either yields a candidate span or passes; the cascade stops at the first
// candidate that parses. Only when every strategy is exhausted does Extract
// return a Failure.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// snippetLen is how much of the input a Failure carries for diagnostics.
const snippetLen = 200

// Failure is returned when no extraction strategy produced parseable
// structure. It carries the head of the offending input.
type Failure struct {
	Snippet string
}

func (e *Failure) Error() string {
	return fmt.Sprintf("no parseable structure found in model output: %q", e.Snippet)
}

// IsFailure reports whether err is an extraction Failure.
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// strategy returns a candidate JSON span, or "" if it does not apply.
type strategy func(text string) string

var (
	jsonFenceRe   = regexp.MustCompile("(?s)```(?:json|JSON)\\s*\n(.*?)```")
	scriptFenceRe = regexp.MustCompile("(?s)```(?:javascript|js|typescript|ts)\\s*\n(.*?)```")
	bareFenceRe   = regexp.MustCompile("(?s)```\\s*\n(.*?)```")
	markerRe      = regexp.MustCompile(`(?im)^\s*(?:Response|Result|Output|Answer)\s*:\s*`)
)

// Extract runs the strategy cascade over text and returns the first span
// that parses as a JSON value. The returned RawMessage is valid JSON.
func Extract(text string) (json.RawMessage, error) {
	strategies := []strategy{
		wholeText,
		taggedFence(jsonFenceRe),
		taggedFence(scriptFenceRe),
		delimiterSpan,
		afterMarker,
	}

	for _, s := range strategies {
		candidate := s(text)
		if candidate == "" {
			continue
		}
		if raw, ok := tryParse(candidate); ok {
			return raw, nil
		}
	}

	// Repair pass: take the best candidate span from the structural
	// strategies and retry once after textual repairs.
	if candidate := bestCandidate(text); candidate != "" {
		if raw, ok := tryParse(Repair(candidate)); ok {
			return raw, nil
		}
	}

	return nil, &Failure{Snippet: head(text, snippetLen)}
}

// Unmarshal runs the cascade and decodes the extracted value into v.
func Unmarshal(text string, v any) error {
	raw, err := Extract(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &Failure{Snippet: head(text, snippetLen)}
	}
	return nil
}

// wholeText parses the trimmed input directly as a data literal.
func wholeText(text string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return ""
	}
	return trimmed
}

// taggedFence extracts the first fenced code block matching re.
func taggedFence(re *regexp.Regexp) strategy {
	return func(text string) string {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return ""
		}
		return strings.TrimSpace(m[1])
	}
}

// delimiterSpan scans for the first object or array delimiter and greedily
// takes everything through the last matching closer.
func delimiterSpan(text string) string {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return ""
	}
	var closer string
	if text[start] == '{' {
		closer = "}"
	} else {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

// afterMarker parses whatever follows a labeled-response marker such as
// "Response:" or "Output:".
func afterMarker(text string) string {
	loc := markerRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := strings.TrimSpace(text[loc[1]:])
	if rest == "" {
		return ""
	}
	// The tail may itself hold a span with leading prose.
	if span := delimiterSpan(rest); span != "" {
		return span
	}
	return rest
}

// bestCandidate picks the span the repair pass should operate on: a tagged
// fence if one exists, then a bare fence, then the greedy delimiter span.
func bestCandidate(text string) string {
	for _, s := range []strategy{
		taggedFence(jsonFenceRe),
		taggedFence(scriptFenceRe),
		taggedFence(bareFenceRe),
		delimiterSpan,
	} {
		if c := s(text); c != "" {
			return c
		}
	}
	return ""
}

func tryParse(candidate string) (json.RawMessage, bool) {
	var v any
	if err := json.Unmarshal([]byte(candidate), &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case map[string]any, []any:
		return json.RawMessage(candidate), true
	}
	// Scalars are technically valid JSON but never what a stage wants.
	return nil, false
}

func head(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
