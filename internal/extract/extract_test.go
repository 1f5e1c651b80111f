package extract

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_DirectParse(t *testing.T) {
	raw, err := Extract(`{"theme": "time management", "score": 8}`)
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, "time management", v["theme"])
}

func TestExtract_ArrayLiteral(t *testing.T) {
	raw, err := Extract(`[{"title": "one"}, {"title": "two"}]`)
	require.NoError(t, err)

	var v []map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Len(t, v, 2)
}

func TestExtract_JSONFence(t *testing.T) {
	text := "Here is the analysis you asked for:\n\n```json\n{\"contentType\": \"how-to\"}\n```\n\nLet me know if you need anything else."

	raw, err := Extract(text)
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, "how-to", v["contentType"])
}

func TestExtract_MislabeledFence(t *testing.T) {
	// Models sometimes tag JSON blocks as javascript.
	text := "```javascript\n{\"needsRefinement\": true}\n```"

	raw, err := Extract(text)
	require.NoError(t, err)

	var v map[string]bool
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.True(t, v["needsRefinement"])
}

func TestExtract_DelimiterSpan(t *testing.T) {
	text := `Sure! Based on the draft, my assessment is {"score": 6, "needsRefinement": true} which suggests another pass.`

	raw, err := Extract(text)
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, float64(6), v["score"])
}

func TestExtract_LabeledMarker(t *testing.T) {
	text := "Thinking through the draft step by step.\nResult:\n{\"score\": 9}"

	raw, err := Extract(text)
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, float64(9), v["score"])
}

func TestExtract_RepairPass(t *testing.T) {
	t.Run("trailing comma", func(t *testing.T) {
		text := "```json\n{\"theme\": \"focus\", \"insights\": [\"a\", \"b\",],}\n```"

		raw, err := Extract(text)
		require.NoError(t, err)

		var v map[string]any
		require.NoError(t, json.Unmarshal(raw, &v))
		assert.Equal(t, "focus", v["theme"])
	})

	t.Run("bareword keys and single quotes", func(t *testing.T) {
		text := "```js\n{theme: 'deep work', score: 7}\n```"

		raw, err := Extract(text)
		require.NoError(t, err)

		var v map[string]any
		require.NoError(t, json.Unmarshal(raw, &v))
		assert.Equal(t, "deep work", v["theme"])
		assert.Equal(t, float64(7), v["score"])
	})

	t.Run("literal newline inside string", func(t *testing.T) {
		text := "{\"note\": \"line one\nline two\"}"

		raw, err := Extract(text)
		require.NoError(t, err)

		var v map[string]string
		require.NoError(t, json.Unmarshal(raw, &v))
		assert.Equal(t, "line one\nline two", v["note"])
	})
}

func TestExtract_TotalFailure(t *testing.T) {
	text := "This is plain prose with no braces and no code fences at all. Nothing here resembles structured data."

	_, err := Extract(text)
	require.Error(t, err)
	assert.True(t, IsFailure(err))

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Equal(t, text, f.Snippet)
}

func TestExtract_FailureSnippetTruncated(t *testing.T) {
	text := strings.Repeat("no structure here ", 30)

	_, err := Extract(text)
	require.Error(t, err)

	var f *Failure
	require.ErrorAs(t, err, &f)
	assert.Len(t, []rune(f.Snippet), 200)
}

func TestExtract_ScalarIsNotStructure(t *testing.T) {
	_, err := Extract(`42`)
	assert.True(t, IsFailure(err))
}

func TestUnmarshal(t *testing.T) {
	type assessment struct {
		Score           int  `json:"score"`
		NeedsRefinement bool `json:"needsRefinement"`
	}

	var a assessment
	err := Unmarshal("```json\n{\"score\": 4, \"needsRefinement\": true}\n```", &a)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Score)
	assert.True(t, a.NeedsRefinement)
}

func TestRepair(t *testing.T) {
	in := `{title: 'a, b', items: ["x",],}`
	out := Repair(in)

	var v map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "a, b", v["title"])
}
