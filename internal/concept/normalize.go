package concept

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// MaxPostLen is the maximum character count for a post or CTA after
	// normalization.
	MaxPostLen = 500

	ellipsis = "..."
)

var (
	urlRe = regexp.MustCompile(`https?://[^\s)\]}"']+`)

	// linkPlaceholders are tokens models emit instead of a concrete link.
	linkPlaceholders = []string{
		"[LINK]",
		"[NEWSLETTER LINK]",
		"[INSERT LINK]",
		"[URL]",
		"{{link}}",
		"{link}",
		"<link>",
	}
)

// Normalize enforces the batch invariants in place: every post and CTA is
// at most MaxPostLen characters, every CTA ends with exactly linkToken,
// character counts are recomputed from the normalized text, concepts left
// with no posts are dropped, and numbering is contiguous from 1.
// Normalizing an already-normalized batch is a no-op.
func Normalize(batch Batch, linkToken string) Batch {
	out := batch[:0]
	for _, c := range batch {
		posts := c.Posts[:0]
		for _, p := range c.Posts {
			p = truncate(strings.TrimSpace(p))
			if p == "" {
				continue
			}
			posts = append(posts, p)
		}
		c.Posts = posts

		// A concept with nothing postable cannot satisfy the non-empty
		// posts invariant; drop it rather than persist an empty shell.
		if len(c.Posts) == 0 {
			continue
		}

		c.CharacterCounts = make([]string, len(c.Posts))
		for i, p := range c.Posts {
			c.CharacterCounts[i] = fmt.Sprintf("%d/%d", utf8.RuneCountInString(p), MaxPostLen)
		}

		c.CTA = normalizeCTA(c.CTA, linkToken)

		if c.WhatWhyWhere.What == "" {
			c.WhatWhyWhere.What = Placeholder
		}
		if c.WhatWhyWhere.Why == "" {
			c.WhatWhyWhere.Why = Placeholder
		}
		if c.WhatWhyWhere.Where == "" {
			c.WhatWhyWhere.Where = Placeholder
		}

		out = append(out, c)
	}

	for i, c := range out {
		c.Number = i + 1
	}
	return out
}

// normalizeCTA guarantees the CTA ends with exactly linkToken and nothing
// after it, in priority order: an already-terminal link is left alone, a
// known placeholder is substituted, the first URL-shaped substring is
// replaced, and otherwise the link is appended after stripping trailing
// sentence punctuation.
func normalizeCTA(cta, linkToken string) string {
	cta = strings.TrimSpace(cta)

	if strings.HasSuffix(cta, linkToken) {
		return fitCTA(cta, linkToken)
	}

	for _, ph := range linkPlaceholders {
		if idx := indexFold(cta, ph); idx >= 0 {
			return fitCTA(cta[:idx]+linkToken, linkToken)
		}
	}

	if loc := urlRe.FindStringIndex(cta); loc != nil {
		return fitCTA(cta[:loc[0]]+linkToken, linkToken)
	}

	cta = strings.TrimRight(cta, " .,!?:;")
	if cta == "" {
		return fitCTA(linkToken, linkToken)
	}
	return fitCTA(cta+": "+linkToken, linkToken)
}

// fitCTA trims a CTA to MaxPostLen without cutting into the terminal link.
func fitCTA(cta, linkToken string) string {
	cta = strings.TrimSpace(cta)
	if utf8.RuneCountInString(cta) <= MaxPostLen {
		return cta
	}

	body := strings.TrimSuffix(cta, linkToken)
	budget := MaxPostLen - utf8.RuneCountInString(linkToken) - len(ellipsis) - 1
	runes := []rune(body)
	if budget < 0 {
		budget = 0
	}
	if len(runes) > budget {
		body = strings.TrimRight(string(runes[:budget]), " .,!?:;") + ellipsis + " "
	}
	return body + linkToken
}

// truncate caps a post at MaxPostLen characters, marking the cut with an
// ellipsis. Counts are runes, not bytes.
func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxPostLen {
		return s
	}
	return string(runes[:MaxPostLen-len(ellipsis)]) + ellipsis
}

// indexFold is a case-insensitive strings.Index.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}
