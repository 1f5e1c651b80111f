package concept

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `Here are three concepts based on your email.

CONCEPT #1: The Two-List Method
Main Content:
Post 1: Warren Buffett's pilot asked him how to prioritize. His answer: write down 25 goals, circle the top 5, and avoid the other 20 at all costs.
Post 2: The things you almost prioritize are the most dangerous ones. They feel productive while stealing time from what matters.
Single Aha Moment: Your secondary goals are your biggest distraction.
What/Why/Where:
What: A prioritization thread
Why: Everyone struggles with too many goals
Where: Best posted Monday morning
Call To Action: Get one time-management idea every week: [LINK]
Validation: Strong hook, clear payoff.

CONCEPT #2: Time Blocking Is Not Enough
Main Content: Blocking time on your calendar does nothing if you don't defend the block. Treat deep work appointments like meetings with your most important client: you.
Single Aha Moment: A calendar block is a promise, not a plan.
What/Why/Where:
What: A single contrarian post
Why: Time blocking advice is everywhere, defense of blocks is not
Where: Midweek
Call To Action: More like this every Friday: [LINK]
Validation: Good, could use a sharper opening line.

CONCEPT #3: The 2-Minute Audit
Main Content: Before you end your workday, spend two minutes writing down where the day actually went. Not where it was supposed to go. The gap between the two is your real to-do list.
Single Aha Moment: You can't fix a schedule you never audit.
What/Why/Where:
What: A daily habit post
Why: Low effort, immediately actionable
Where: Sunday evening
Call To Action: Weekly systems, no fluff: [LINK]
Validation: Solid.`

func TestParseSections(t *testing.T) {
	batch := ParseSections(sampleOutput)
	require.Len(t, batch, 3)

	first := batch[0]
	assert.Equal(t, 1, first.Number)
	assert.Equal(t, "The Two-List Method", first.Title)
	require.Len(t, first.Posts, 2)
	assert.Contains(t, first.Posts[0], "Warren Buffett")
	assert.Contains(t, first.Posts[1], "almost prioritize")
	assert.Equal(t, "Your secondary goals are your biggest distraction.", first.AhaMoment)
	assert.Equal(t, "A prioritization thread", first.WhatWhyWhere.What)
	assert.Equal(t, "Everyone struggles with too many goals", first.WhatWhyWhere.Why)
	assert.Equal(t, "Best posted Monday morning", first.WhatWhyWhere.Where)
	assert.Equal(t, "Get one time-management idea every week: [LINK]", first.CTA)
	assert.Equal(t, "Strong hook, clear payoff.", first.QualityNote)

	// Second concept has no Post N markers: the whole span is one post.
	second := batch[1]
	require.Len(t, second.Posts, 1)
	assert.Contains(t, second.Posts[0], "defend the block")
}

func TestParseSections_MalformedSectionIsIsolated(t *testing.T) {
	text := `CONCEPT #1: Good One
Main Content: A fine post about mornings.
Call To Action: Subscribe: [LINK]

CONCEPT #2: Broken One
The model just rambled here without any of the labels we expect,
so there is nothing structured to pull out of this section.

CONCEPT #3: Another Good One
Main Content: A fine post about evenings.
Call To Action: Subscribe: [LINK]`

	batch := ParseSections(text)
	require.Len(t, batch, 3)

	assert.NotContains(t, batch[0].QualityNote, ParseErrorNote)
	assert.Contains(t, batch[1].QualityNote, ParseErrorNote)
	assert.NotContains(t, batch[2].QualityNote, ParseErrorNote)

	// The sentinel still carries something reviewable.
	require.NotEmpty(t, batch[1].Posts)
	assert.Contains(t, batch[1].Posts[0], "rambled")

	assert.Equal(t, "A fine post about mornings.", batch[0].Posts[0])
	assert.Equal(t, "A fine post about evenings.", batch[2].Posts[0])
}

func TestParseSections_PreHeadingProseDiscarded(t *testing.T) {
	text := "Sure! I'd be happy to help. Here you go:\n\nCONCEPT #1: Only One\nMain Content: The post.\nCall To Action: Join: [LINK]"

	batch := ParseSections(text)
	require.Len(t, batch, 1)
	assert.Equal(t, "Only One", batch[0].Title)
}

func TestParseSections_LastResort(t *testing.T) {
	text := strings.Repeat("Plain prose with no concept headings whatsoever. ", 20)

	batch := ParseSections(text)
	require.Len(t, batch, 1)

	c := batch[0]
	assert.Equal(t, 1, c.Number)
	require.Len(t, c.Posts, 1)
	assert.LessOrEqual(t, len([]rune(c.Posts[0])), lastResortLen)
	assert.Contains(t, c.QualityNote, "degraded")
}

func TestParseSections_EmptyInput(t *testing.T) {
	assert.Nil(t, ParseSections(""))
	assert.Nil(t, ParseSections("   \n\t  "))
}

func TestParseSections_HeadingVariants(t *testing.T) {
	text := "## CONCEPT 1 - Markdown Heading\nMain Content: Post body.\n\n**CONCEPT #2: Bold Heading**\nMain Content: Another body."

	batch := ParseSections(text)
	require.Len(t, batch, 2)
	assert.Equal(t, "Markdown Heading", batch[0].Title)
	assert.Equal(t, "Bold Heading", batch[1].Title)
}

func TestParseSections_MissingLabelYieldsEmptySpan(t *testing.T) {
	text := `CONCEPT #1: No Aha Here
Main Content: Just a post.
Call To Action: Join: [LINK]`

	batch := ParseSections(text)
	require.Len(t, batch, 1)
	assert.Empty(t, batch[0].AhaMoment)
	assert.Equal(t, Placeholder, batch[0].WhatWhyWhere.What)
}

func TestFromJSON(t *testing.T) {
	t.Run("bare array", func(t *testing.T) {
		raw := json.RawMessage(`[
			{"number": 1, "title": "One", "posts": ["a post"], "ahaMoment": "aha", "cta": "join"},
			{"number": 2, "name": "Two", "tweets": ["tweet one", "tweet two"], "callToAction": "subscribe"}
		]`)

		batch, err := FromJSON(raw)
		require.NoError(t, err)
		require.Len(t, batch, 2)

		assert.Equal(t, "One", batch[0].Title)
		assert.Equal(t, []string{"a post"}, batch[0].Posts)
		assert.Equal(t, "Two", batch[1].Title)
		assert.Equal(t, []string{"tweet one", "tweet two"}, batch[1].Posts)
		assert.Equal(t, "subscribe", batch[1].CTA)
	})

	t.Run("wrapped object", func(t *testing.T) {
		raw := json.RawMessage(`{"concepts": [{"title": "Wrapped", "content": "the body"}]}`)

		batch, err := FromJSON(raw)
		require.NoError(t, err)
		require.Len(t, batch, 1)
		assert.Equal(t, []string{"the body"}, batch[0].Posts)
		assert.Equal(t, 1, batch[0].Number)
	})

	t.Run("not a concept shape", func(t *testing.T) {
		_, err := FromJSON(json.RawMessage(`{"score": 3}`))
		assert.Error(t, err)
	})

	t.Run("placeholders for missing what/why/where", func(t *testing.T) {
		raw := json.RawMessage(`[{"title": "T", "posts": ["p"]}]`)

		batch, err := FromJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, Placeholder, batch[0].WhatWhyWhere.What)
		assert.Equal(t, Placeholder, batch[0].WhatWhyWhere.Why)
		assert.Equal(t, Placeholder, batch[0].WhatWhyWhere.Where)
	})
}
