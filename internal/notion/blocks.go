package notion

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// SegmentType identifies the kind of text block a source page exposes.
type SegmentType string

const (
	SegmentParagraph SegmentType = "paragraph"
	SegmentHeading1  SegmentType = "heading_1"
	SegmentHeading2  SegmentType = "heading_2"
	SegmentHeading3  SegmentType = "heading_3"
	SegmentBulleted  SegmentType = "bulleted_list_item"
	SegmentNumbered  SegmentType = "numbered_list_item"
	SegmentQuote     SegmentType = "quote"
	SegmentCode      SegmentType = "code"
)

// Segment is one typed text block of a source document.
type Segment struct {
	Type SegmentType
	Text string
}

type richText struct {
	PlainText string `json:"plain_text"`
}

type richTextHolder struct {
	RichText []richText `json:"rich_text"`
}

type blockResult struct {
	Type             string          `json:"type"`
	Paragraph        *richTextHolder `json:"paragraph,omitempty"`
	Heading1         *richTextHolder `json:"heading_1,omitempty"`
	Heading2         *richTextHolder `json:"heading_2,omitempty"`
	Heading3         *richTextHolder `json:"heading_3,omitempty"`
	BulletedListItem *richTextHolder `json:"bulleted_list_item,omitempty"`
	NumberedListItem *richTextHolder `json:"numbered_list_item,omitempty"`
	Quote            *richTextHolder `json:"quote,omitempty"`
	Code             *richTextHolder `json:"code,omitempty"`
}

type blockChildrenResponse struct {
	Results    []blockResult `json:"results"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor"`
}

// ListSegments returns the ordered text segments of a page, following
// pagination until exhausted. Block types the pipeline has no use for are
// skipped.
func (c *Client) ListSegments(ctx context.Context, pageID string) ([]Segment, error) {
	var segments []Segment
	cursor := ""

	for {
		path := fmt.Sprintf("/blocks/%s/children?page_size=100", url.PathEscape(pageID))
		if cursor != "" {
			path += "&start_cursor=" + url.QueryEscape(cursor)
		}

		var resp blockChildrenResponse
		if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
			return nil, fmt.Errorf("list blocks: %w", err)
		}

		for _, b := range resp.Results {
			if seg, ok := b.segment(); ok {
				segments = append(segments, seg)
			}
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	return segments, nil
}

func (b blockResult) segment() (Segment, bool) {
	var holder *richTextHolder
	switch SegmentType(b.Type) {
	case SegmentParagraph:
		holder = b.Paragraph
	case SegmentHeading1:
		holder = b.Heading1
	case SegmentHeading2:
		holder = b.Heading2
	case SegmentHeading3:
		holder = b.Heading3
	case SegmentBulleted:
		holder = b.BulletedListItem
	case SegmentNumbered:
		holder = b.NumberedListItem
	case SegmentQuote:
		holder = b.Quote
	case SegmentCode:
		holder = b.Code
	default:
		return Segment{}, false
	}
	if holder == nil {
		return Segment{}, false
	}

	var sb strings.Builder
	for _, rt := range holder.RichText {
		sb.WriteString(rt.PlainText)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return Segment{}, false
	}
	return Segment{Type: SegmentType(b.Type), Text: text}, true
}

// Flatten joins typed segments into one plain-text document: headings get
// #/##/### prefixes, bullets get •, numbered items count up within each
// contiguous run.
func Flatten(segments []Segment) string {
	var lines []string
	numbered := 0

	for _, seg := range segments {
		if seg.Type != SegmentNumbered {
			numbered = 0
		}
		switch seg.Type {
		case SegmentHeading1:
			lines = append(lines, "# "+seg.Text)
		case SegmentHeading2:
			lines = append(lines, "## "+seg.Text)
		case SegmentHeading3:
			lines = append(lines, "### "+seg.Text)
		case SegmentBulleted:
			lines = append(lines, "• "+seg.Text)
		case SegmentNumbered:
			numbered++
			lines = append(lines, fmt.Sprintf("%d. %s", numbered, seg.Text))
		default:
			lines = append(lines, seg.Text)
		}
	}

	return strings.Join(lines, "\n")
}

// PageText is a convenience that lists a page's segments and flattens them.
func (c *Client) PageText(ctx context.Context, pageID string) (string, error) {
	segments, err := c.ListSegments(ctx, pageID)
	if err != nil {
		return "", err
	}
	return Flatten(segments), nil
}
