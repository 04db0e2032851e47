package reddit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/pulse/internal/contracts"
	"github.com/wonny/pulse/pkg/config"
	"github.com/wonny/pulse/pkg/httputil"
	"github.com/wonny/pulse/pkg/logger"
)

// Client reads posts and comments from the Reddit JSON API.
// Item IDs are Reddit fullnames (t3_* for posts, t1_* for comments).
type Client struct {
	cfg        config.RedditConfig
	httpClient *httputil.Client
	logger     *logger.Logger
}

var _ contracts.ContentSource = (*Client)(nil)

// NewClient creates a Reddit API client
func NewClient(cfg config.RedditConfig, httpClient *httputil.Client, log *logger.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     log,
	}
}

// listing is the envelope every Reddit listing endpoint returns
type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

// thing is one kinded entry inside a listing
type thing struct {
	Kind string    `json:"kind"` // t1 = comment, t3 = post
	Data thingData `json:"data"`
}

type thingData struct {
	Name       string  `json:"name"` // fullname, e.g. t3_abc123
	Subreddit  string  `json:"subreddit"`
	Author     string  `json:"author"`
	Title      string  `json:"title"`
	Selftext   string  `json:"selftext"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	ParentID   string  `json:"parent_id"`
	CreatedUTC float64 `json:"created_utc"`
}

// GetRecentItems returns the newest posts in a subreddit
func (c *Client) GetRecentItems(ctx context.Context, container string, limit int) ([]contracts.ContentItem, error) {
	url := fmt.Sprintf("%s/r/%s/new.json?limit=%d", c.cfg.BaseURL, container, limit)

	var resp listing
	if err := c.httpClient.GetJSON(ctx, url, c.headers(), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", container, err)
	}

	items := make([]contracts.ContentItem, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		items = append(items, toContentItem(child))
	}

	c.logger.WithFields(map[string]interface{}{
		"subreddit": container,
		"items":     len(items),
	}).Debug("Fetched recent items")

	return items, nil
}

// GetChildItems returns comments under an item. For a post the whole
// comment listing is returned flat; for a comment only direct replies.
func (c *Client) GetChildItems(ctx context.Context, itemID string, limit int) ([]contracts.ContentItem, error) {
	article := strings.TrimPrefix(itemID, "t3_")
	url := fmt.Sprintf("%s/comments/%s.json?limit=%d", c.cfg.BaseURL, article, limit)

	// The comments endpoint returns two listings: the post, then the tree
	var resp []listing
	if err := c.httpClient.GetJSON(ctx, url, c.headers(), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch comments for %s: %w", itemID, err)
	}
	if len(resp) < 2 {
		return nil, nil
	}

	wantParent := strings.HasPrefix(itemID, "t1_")
	items := make([]contracts.ContentItem, 0, len(resp[1].Data.Children))
	for _, child := range resp[1].Data.Children {
		if child.Kind != "t1" {
			continue
		}
		if wantParent && child.Data.ParentID != itemID {
			continue
		}
		items = append(items, toContentItem(child))
	}
	return items, nil
}

// GetItemByID fetches a single item by fullname
func (c *Client) GetItemByID(ctx context.Context, itemID string) (*contracts.ContentItem, error) {
	url := fmt.Sprintf("%s/api/info.json?id=%s", c.cfg.BaseURL, itemID)

	var resp listing
	if err := c.httpClient.GetJSON(ctx, url, c.headers(), &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch item %s: %w", itemID, err)
	}
	if len(resp.Data.Children) == 0 {
		return nil, fmt.Errorf("item %s not found", itemID)
	}

	item := toContentItem(resp.Data.Children[0])
	return &item, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"User-Agent": c.cfg.UserAgent,
	}
}

// toContentItem maps a Reddit thing onto the pipeline's content shape
func toContentItem(t thing) contracts.ContentItem {
	isComment := t.Kind == "t1"

	body := t.Data.Selftext
	if isComment {
		body = t.Data.Body
	}

	parentID := ""
	if isComment {
		parentID = t.Data.ParentID
	}

	return contracts.ContentItem{
		ID:        t.Data.Name,
		Subreddit: t.Data.Subreddit,
		Author:    t.Data.Author,
		Title:     t.Data.Title,
		Body:      body,
		Score:     t.Data.Score,
		ParentID:  parentID,
		IsComment: isComment,
		CreatedAt: time.Unix(int64(t.Data.CreatedUTC), 0).UTC(),
	}
}
