package concept

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// lastResortLen is how much of the raw input becomes a single concept when
// no section parses at all.
const lastResortLen = 500

var (
	headingRe = regexp.MustCompile(`(?im)^#{0,4}\s*(?:\*\*)?\s*CONCEPT\s*#?\s*(\d+)\s*(?:\*\*)?\s*[:.\-]?\s*(.*)$`)

	// labelRe matches any recognized sub-section label at the start of a
	// line. Spans run from the end of one label match to the start of the
	// next, so a missing label simply yields an empty span.
	labelRe = regexp.MustCompile(`(?im)^\s*(?:\*\*)?\s*(Main Content|Single Aha Moment|Aha Moment|What/Why/Where|Call to Action|CTA|Validation)\s*(?:\*\*)?\s*:`)

	postMarkerRe = regexp.MustCompile(`(?im)^\s*(?:\*\*)?\s*Post\s*#?\s*\d+\s*(?:\*\*)?\s*[:.\-]\s*`)

	subFieldRe = regexp.MustCompile(`(?im)^\s*[-•]?\s*(?:\*\*)?\s*(What|Why|Where)\s*(?:\*\*)?\s*:`)
)

// canonicalLabel maps label spellings the model is known to use onto one
// canonical name.
var canonicalLabel = map[string]string{
	"main content":      "content",
	"single aha moment": "aha",
	"aha moment":        "aha",
	"what/why/where":    "www",
	"call to action":    "cta",
	"cta":               "cta",
	"validation":        "validation",
}

// ParseSections parses annotated markdown holding multiple numbered
// "CONCEPT #N" sections into a Batch. A malformed section becomes a
// sentinel concept rather than discarding the rest; if nothing parses from
// non-empty input, the head of the input becomes a single one-post concept.
func ParseSections(text string) Batch {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	headings := headingRe.FindAllStringSubmatchIndex(text, -1)
	var batch Batch
	for i, h := range headings {
		// Heading line: full match h[0]:h[1], number h[2]:h[3], title h[4]:h[5].
		title := strings.TrimSpace(strings.Trim(text[h[4]:h[5]], "*# "))
		number := i + 1
		if n, err := strconv.Atoi(text[h[2]:h[3]]); err == nil {
			number = n
		}

		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		body := text[h[1]:end]

		batch = append(batch, parseSection(number, title, body))
	}

	if len(batch) == 0 {
		return Batch{lastResort(text)}
	}
	return batch
}

// parseSection extracts the labeled sub-sections of one concept body. All
// labels missing means the section is unusable; it is replaced by a
// sentinel so the batch survives.
func parseSection(number int, title, body string) *Concept {
	spans := labelSpans(body)
	if len(spans) == 0 {
		return sentinel(number, title, body)
	}

	c := &Concept{
		Number:       number,
		Title:        title,
		Posts:        splitPosts(spans["content"]),
		AhaMoment:    spans["aha"],
		WhatWhyWhere: parseWhatWhyWhere(spans["www"]),
		CTA:          spans["cta"],
		QualityNote:  spans["validation"],
	}
	if c.Title == "" {
		c.Title = fmt.Sprintf("Concept %d", number)
	}
	return c
}

// labelSpans returns the text between each recognized label and the next
// one, keyed by canonical label name.
func labelSpans(body string) map[string]string {
	matches := labelRe.FindAllStringSubmatchIndex(body, -1)
	spans := make(map[string]string, len(matches))
	for i, m := range matches {
		label := canonicalLabel[strings.ToLower(body[m[2]:m[3]])]
		end := len(body)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		// First spelling wins when a label repeats.
		if _, seen := spans[label]; !seen {
			spans[label] = strings.TrimSpace(body[m[1]:end])
		}
	}
	return spans
}

// splitPosts splits a main-content span on "Post N:" markers when present;
// otherwise the whole span is one post.
func splitPosts(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	markers := postMarkerRe.FindAllStringIndex(content, -1)
	if len(markers) == 0 {
		return []string{content}
	}

	var posts []string
	for i, m := range markers {
		end := len(content)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		if post := strings.TrimSpace(content[m[1]:end]); post != "" {
			posts = append(posts, post)
		}
	}
	return posts
}

func parseWhatWhyWhere(span string) WhatWhyWhere {
	www := WhatWhyWhere{What: Placeholder, Why: Placeholder, Where: Placeholder}

	matches := subFieldRe.FindAllStringSubmatchIndex(span, -1)
	for i, m := range matches {
		end := len(span)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		val := strings.TrimSpace(span[m[1]:end])
		if val == "" {
			continue
		}
		switch strings.ToLower(span[m[2]:m[3]]) {
		case "what":
			www.What = val
		case "why":
			www.Why = val
		case "where":
			www.Where = val
		}
	}
	return www
}

// sentinel replaces a section that had none of the expected labels. It
// keeps the head of the raw section as its single post so the concept is
// still reviewable, and its quality note marks the downgrade.
func sentinel(number int, title, body string) *Concept {
	if title == "" {
		title = fmt.Sprintf("Concept %d", number)
	}
	post := strings.TrimSpace(body)
	if len([]rune(post)) > 200 {
		post = string([]rune(post)[:200])
	}
	if post == "" {
		post = title
	}
	return &Concept{
		Number:       number,
		Title:        title,
		Posts:        []string{post},
		WhatWhyWhere: WhatWhyWhere{What: Placeholder, Why: Placeholder, Where: Placeholder},
		QualityNote:  ParseErrorNote + ": no labeled sections found",
	}
}

// lastResort turns the head of an input that yielded zero concepts into a
// single one-post concept, so non-empty input never produces an empty batch.
func lastResort(text string) *Concept {
	trimmed := strings.TrimSpace(text)
	runes := []rune(trimmed)
	if len(runes) > lastResortLen {
		trimmed = string(runes[:lastResortLen])
	}
	return &Concept{
		Number:       1,
		Title:        "Untitled concept",
		Posts:        []string{trimmed},
		WhatWhyWhere: WhatWhyWhere{What: Placeholder, Why: Placeholder, Where: Placeholder},
		QualityNote:  "degraded: no concept sections found, used raw output",
	}
}

// jsonConcept accepts the duck-typed field spellings models use when asked
// for JSON output.
type jsonConcept struct {
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	Name        string           `json:"name"`
	Posts       []string         `json:"posts"`
	Tweets      []string         `json:"tweets"`
	Content     string           `json:"content"`
	MainContent string           `json:"mainContent"`
	AhaMoment   string           `json:"ahaMoment"`
	Aha         string           `json:"aha_moment"`
	WWW         jsonWhatWhyWhere `json:"whatWhyWhere"`
	CTA         string           `json:"cta"`
	CallTo      string           `json:"callToAction"`
	Validation  string           `json:"validation"`
	QualityNote string           `json:"qualityNote"`
}

type jsonWhatWhyWhere struct {
	What  string `json:"what"`
	Why   string `json:"why"`
	Where string `json:"where"`
}

// FromJSON maps an extracted JSON value onto the canonical Batch shape.
// It accepts either a bare array of concepts or an object wrapping one
// under "concepts".
func FromJSON(raw json.RawMessage) (Batch, error) {
	var items []jsonConcept
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapper struct {
			Concepts []jsonConcept `json:"concepts"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil || wrapper.Concepts == nil {
			return nil, fmt.Errorf("value is neither a concept array nor a concepts object")
		}
		items = wrapper.Concepts
	}

	batch := make(Batch, 0, len(items))
	for i, item := range items {
		c := &Concept{
			Number:      item.Number,
			Title:       firstNonEmpty(item.Title, item.Name),
			Posts:       item.Posts,
			AhaMoment:   firstNonEmpty(item.AhaMoment, item.Aha),
			CTA:         firstNonEmpty(item.CTA, item.CallTo),
			QualityNote: firstNonEmpty(item.QualityNote, item.Validation),
			WhatWhyWhere: WhatWhyWhere{
				What:  firstNonEmpty(item.WWW.What, Placeholder),
				Why:   firstNonEmpty(item.WWW.Why, Placeholder),
				Where: firstNonEmpty(item.WWW.Where, Placeholder),
			},
		}
		if c.Number == 0 {
			c.Number = i + 1
		}
		if len(c.Posts) == 0 {
			c.Posts = item.Tweets
		}
		if len(c.Posts) == 0 {
			if content := firstNonEmpty(item.Content, item.MainContent); content != "" {
				c.Posts = []string{content}
			}
		}
		if c.Title == "" {
			c.Title = fmt.Sprintf("Concept %d", c.Number)
		}
		batch = append(batch, c)
	}
	return batch, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
