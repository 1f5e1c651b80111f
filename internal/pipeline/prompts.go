package pipeline

// SystemPrompt frames every generation call.
const SystemPrompt = `You are an expert social media ghostwriter. You turn long-form newsletter emails into short, punchy social post concepts that stand alone without the original email.

Guidelines:
1. HOOK FIRST: the opening line of every post must earn the next line
2. ONE IDEA PER POST: never cram two insights into one post
3. LENGTH: every post must be at most 500 characters
4. NO HASHTAG SOUP: at most one hashtag, usually none
5. PLAIN LANGUAGE: write like a person, not a brand account`

// AnalyzePrompt asks for a structured read of the source before drafting.
const AnalyzePrompt = `Analyze the following newsletter email before we repurpose it into social posts.

EMAIL:
---
%s
---

Respond with JSON only:
{
  "contentType": "how-to" | "story" | "opinion" | "list" | "general",
  "theme": "the one-sentence core theme",
  "audience": "who this is for",
  "insights": ["the 3-5 strongest standalone insights in the email"]
}`

// DraftPrompt produces the initial concepts, conditioned on the analysis.
const DraftPrompt = `Using the analysis below, turn this newsletter email into %d social post concepts.

ANALYSIS:
Content type: %s
Theme: %s
Audience: %s
Key insights:
%s

%sEMAIL:
---
%s
---

For each concept use EXACTLY this format:

CONCEPT #1: <short title>
Main Content:
Post 1: <the post text, max 500 characters>
Post 2: <optional additional post>
Single Aha Moment: <the one realization this concept delivers>
What/Why/Where:
What: <what kind of post this is>
Why: <why it will resonate>
Where: <when or where to post it>
Call To Action: <one sentence ending with the link %s>
Validation: <one-line self-check of the concept's strength>

Number the concepts sequentially. Do not add commentary before or after the concepts.`

// AssessPrompt scores a draft and decides whether one refinement round is
// worth running.
const AssessPrompt = `Score this set of social post concepts drafted from a newsletter email.

CONCEPTS:
---
%s
---

Judge hooks, clarity, and whether each post stands alone. Respond with JSON only:
{
  "score": 1-10,
  "needsRefinement": true | false,
  "feedback": "the most important concrete improvement, one or two sentences"
}

Set needsRefinement to true only if the score is 6 or below.`

// RefinePrompt rewrites the draft using the assessment feedback. The
// output format contract is the same as the draft's.
const RefinePrompt = `Improve these social post concepts using the feedback below. Keep the same number of concepts and EXACTLY the same output format (CONCEPT #N headings with Main Content, Single Aha Moment, What/Why/Where, Call To Action, Validation).

FEEDBACK:
%s

CONCEPTS:
---
%s
---

Return only the improved concepts.`

// EnhanceCTAPrompt rewrites every call-to-action in one call.
const EnhanceCTAPrompt = `Rewrite these calls-to-action for social post concepts about "%s". Each must be one sentence, specific to its concept, and end with exactly this link: %s

CURRENT CTAs:
%s

Respond with JSON only:
{
  "ctas": ["rewritten CTA for concept 1", "rewritten CTA for concept 2", ...]
}

Return exactly one rewritten CTA per input CTA, in the same order.`

// SinglePassPrompt does the whole job in one call.
const SinglePassPrompt = `Turn this newsletter email into %d social post concepts.

%sEMAIL:
---
%s
---

For each concept use EXACTLY this format:

CONCEPT #1: <short title>
Main Content:
Post 1: <the post text, max 500 characters>
Single Aha Moment: <the one realization this concept delivers>
What/Why/Where:
What: <what kind of post this is>
Why: <why it will resonate>
Where: <when or where to post it>
Call To Action: <one sentence ending with the link %s>
Validation: <one-line self-check of the concept's strength>

Number the concepts sequentially. Do not add commentary before or after the concepts.`

// SinglePassJSONPrompt is the JSON-shaped variant of the single pass.
const SinglePassJSONPrompt = `Turn this newsletter email into %d social post concepts.

%sEMAIL:
---
%s
---

Respond with a JSON array only. Each concept object:
{
  "number": 1,
  "title": "short title",
  "posts": ["post text, max 500 characters each"],
  "ahaMoment": "the one realization this concept delivers",
  "whatWhyWhere": {"what": "...", "why": "...", "where": "..."},
  "cta": "one sentence ending with the link %s",
  "qualityNote": "one-line self-check"
}`
