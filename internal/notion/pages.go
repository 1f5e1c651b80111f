package notion

import (
	"context"
	"fmt"

	"github.com/the2hourclo/email-to-tweet-railway/internal/concept"
)

// sourceIDProperty is the rich_text property on the tweets database that
// back-references the source page. The idempotency query filters on it.
const sourceIDProperty = "Source ID"

type textContent struct {
	Content string `json:"content"`
}

type richTextItem struct {
	Type string      `json:"type"`
	Text textContent `json:"text"`
}

func text(s string) []richTextItem {
	return []richTextItem{{Type: "text", Text: textContent{Content: s}}}
}

type block map[string]any

func headingBlock(s string) block {
	return block{
		"object":    "block",
		"type":      "heading_2",
		"heading_2": map[string]any{"rich_text": text(s)},
	}
}

func paragraphBlock(s string) block {
	return block{
		"object":    "block",
		"type":      "paragraph",
		"paragraph": map[string]any{"rich_text": text(s)},
	}
}

type createPageRequest struct {
	Parent     map[string]string `json:"parent"`
	Properties map[string]any    `json:"properties"`
	Children   []block           `json:"children,omitempty"`
}

type createPageResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateConceptPage writes one concept as a page in the tweets database,
// with a block sequence mirroring the record's fields and a back-reference
// to the source page ID.
func (c *Client) CreateConceptPage(ctx context.Context, databaseID, sourceID string, con *concept.Concept) (string, error) {
	children := []block{headingBlock(fmt.Sprintf("Concept %d: %s", con.Number, con.Title))}

	for i, post := range con.Posts {
		label := "Post"
		if len(con.Posts) > 1 {
			label = fmt.Sprintf("Post %d", i+1)
		}
		if i < len(con.CharacterCounts) {
			label += " (" + con.CharacterCounts[i] + ")"
		}
		children = append(children, headingBlock(label), paragraphBlock(post))
	}

	if con.AhaMoment != "" {
		children = append(children, headingBlock("Aha Moment"), paragraphBlock(con.AhaMoment))
	}

	children = append(children,
		headingBlock("What / Why / Where"),
		paragraphBlock("What: "+con.WhatWhyWhere.What),
		paragraphBlock("Why: "+con.WhatWhyWhere.Why),
		paragraphBlock("Where: "+con.WhatWhyWhere.Where),
		headingBlock("Call To Action"),
		paragraphBlock(con.CTA),
	)

	if con.QualityNote != "" {
		children = append(children, headingBlock("Notes"), paragraphBlock(con.QualityNote))
	}

	req := createPageRequest{
		Parent: map[string]string{"database_id": databaseID},
		Properties: map[string]any{
			"Name": map[string]any{
				"title": text(fmt.Sprintf("%d. %s", con.Number, con.Title)),
			},
			sourceIDProperty: map[string]any{
				"rich_text": text(sourceID),
			},
		},
		Children: children,
	}

	var resp createPageResponse
	if err := c.do(ctx, "POST", "/pages", req, &resp); err != nil {
		return "", fmt.Errorf("create concept page: %w", err)
	}
	return resp.ID, nil
}

// CreateFallbackPage writes a minimal plain-text page when the structured
// write for a concept was rejected, so one bad record does not lose the
// rest of the batch.
func (c *Client) CreateFallbackPage(ctx context.Context, databaseID, sourceID string, con *concept.Concept, writeErr error) (string, error) {
	body := fmt.Sprintf("Structured write failed: %v", writeErr)
	content := con.Title
	if len(con.Posts) > 0 {
		content = con.Posts[0]
	}

	req := createPageRequest{
		Parent: map[string]string{"database_id": databaseID},
		Properties: map[string]any{
			"Name": map[string]any{
				"title": text(fmt.Sprintf("%d. %s (write error)", con.Number, con.Title)),
			},
			sourceIDProperty: map[string]any{
				"rich_text": text(sourceID),
			},
		},
		Children: []block{
			paragraphBlock(body),
			paragraphBlock(content),
		},
	}

	var resp createPageResponse
	if err := c.do(ctx, "POST", "/pages", req, &resp); err != nil {
		return "", fmt.Errorf("create fallback page: %w", err)
	}
	return resp.ID, nil
}

type queryRequest struct {
	Filter   map[string]any `json:"filter"`
	PageSize int            `json:"page_size"`
}

type queryResponse struct {
	Results []struct {
		ID string `json:"id"`
	} `json:"results"`
}

// HasDerivedPages reports whether any page in the tweets database already
// references sourceID. Pure read, no side effects.
func (c *Client) HasDerivedPages(ctx context.Context, databaseID, sourceID string) (bool, error) {
	req := queryRequest{
		Filter: map[string]any{
			"property":  sourceIDProperty,
			"rich_text": map[string]string{"equals": sourceID},
		},
		PageSize: 1,
	}

	var resp queryResponse
	path := fmt.Sprintf("/databases/%s/query", databaseID)
	if err := c.do(ctx, "POST", path, req, &resp); err != nil {
		return false, fmt.Errorf("query derived pages: %w", err)
	}
	return len(resp.Results) > 0, nil
}
