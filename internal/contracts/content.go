package contracts

import (
	"strings"
	"time"
)

// ContentItem represents a unit of ingested social text (post or comment).
// Immutable once ingested; the pipeline never mutates it.
type ContentItem struct {
	ID        string    `json:"id"`
	Subreddit string    `json:"subreddit"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Score     int       `json:"score"` // engagement (upvotes)
	ParentID  string    `json:"parent_id,omitempty"`
	IsComment bool      `json:"is_comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Text returns the full analyzable text of the item
func (c *ContentItem) Text() string {
	if c.Title == "" {
		return c.Body
	}
	if c.Body == "" {
		return c.Title
	}
	return c.Title + "\n" + c.Body
}

// IsReply reports whether the item is a reply to another item
func (c *ContentItem) IsReply() bool {
	return c.ParentID != ""
}

// HighValue reports whether fetching the parent on a cache miss is worth
// the extra call: long, well-upvoted replies only.
func (c *ContentItem) HighValue() bool {
	return len(c.Text()) > 150 && c.Score > 10
}

// NormalizeSymbol uppercases and trims a raw ticker mention
func NormalizeSymbol(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}
