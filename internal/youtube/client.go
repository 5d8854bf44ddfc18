// Package youtube talks to the YouTube Data API and to public channel feeds.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trendscout/internal/model"
)

// DefaultBaseURL is the YouTube Data API v3 endpoint.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

// genericQuery is searched when a request has no theme.
const genericQuery = "trending"

const maxBodySize = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client searches videos and loads their statistics. It is the only holder of
// the API key.
type Client struct {
	client  HTTPClient
	apiKey  string
	baseURL string
}

// New creates a Client for the public API.
func New(client HTTPClient, apiKey string) *Client {
	return NewWithBaseURL(client, apiKey, DefaultBaseURL)
}

// NewWithBaseURL creates a Client against a custom API root (for testing).
func NewWithBaseURL(client HTTPClient, apiKey, baseURL string) *Client {
	return &Client{
		client:  client,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Search runs one upstream search for p, then loads statistics for the returned
// videos in a single batch. Channel statistics are loaded with a third call
// only when p.WithChannelStats is set. The calls are sequential; the first
// failure aborts the whole search. Candidates keep the search result order.
// An empty search result yields an empty, non-nil slice.
func (c *Client) Search(ctx context.Context, p model.SearchParams) ([]model.RawCandidate, error) {
	ids, err := c.searchIDs(ctx, p)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []model.RawCandidate{}, nil
	}

	videos, err := c.videos(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]model.RawCandidate, 0, len(ids))
	for _, id := range ids {
		v, ok := videos[id]
		if !ok {
			continue
		}
		candidates = append(candidates, v)
	}

	if !p.WithChannelStats || len(candidates) == 0 {
		return candidates, nil
	}

	channels, err := c.channels(ctx, channelIDs(candidates))
	if err != nil {
		return nil, err
	}
	for i := range candidates {
		if ch, ok := channels[candidates[i].ChannelID]; ok {
			candidates[i].Channel = &ch
		}
	}
	return candidates, nil
}

func (c *Client) searchIDs(ctx context.Context, p model.SearchParams) ([]string, error) {
	q := p.Query
	if strings.TrimSpace(q) == "" {
		q = genericQuery
	}
	params := url.Values{
		"part":       {"snippet"},
		"type":       {"video"},
		"q":          {q},
		"maxResults": {strconv.Itoa(p.Limit)},
	}
	if p.Locale != "" {
		params.Set("relevanceLanguage", p.Locale)
	}
	if p.RegionCode != "" {
		params.Set("regionCode", p.RegionCode)
	}
	if p.Duration != model.DurationAny {
		params.Set("videoDuration", string(p.Duration))
	}

	var resp searchResponse
	if err := c.getJSON(ctx, "search", params, &resp); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(resp.Items))
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		id := item.ID.VideoID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Client) videos(ctx context.Context, ids []string) (map[string]model.RawCandidate, error) {
	params := url.Values{
		"part": {"statistics,snippet"},
		"id":   {strings.Join(ids, ",")},
	}

	var resp videosResponse
	if err := c.getJSON(ctx, "videos", params, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]model.RawCandidate, len(resp.Items))
	for _, item := range resp.Items {
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		out[item.ID] = model.RawCandidate{
			ID:           item.ID,
			Title:        item.Snippet.Title,
			ChannelID:    item.Snippet.ChannelID,
			ChannelTitle: item.Snippet.ChannelTitle,
			PublishedAt:  publishedAt,
			ViewCount:    parseCount(item.Statistics.ViewCount),
			LikeCount:    parseCount(item.Statistics.LikeCount),
			CommentCount: parseCount(item.Statistics.CommentCount),
		}
	}
	return out, nil
}

func (c *Client) channels(ctx context.Context, ids []string) (map[string]model.ChannelStats, error) {
	params := url.Values{
		"part": {"statistics,snippet"},
		"id":   {strings.Join(ids, ",")},
	}

	var resp channelsResponse
	if err := c.getJSON(ctx, "channels", params, &resp); err != nil {
		return nil, err
	}

	out := make(map[string]model.ChannelStats, len(resp.Items))
	for _, item := range resp.Items {
		publishedAt, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
		out[item.ID] = model.ChannelStats{
			SubscriberCount: parseCount(item.Statistics.SubscriberCount),
			VideoCount:      parseCount(item.Statistics.VideoCount),
			PublishedAt:     publishedAt,
		}
	}
	return out, nil
}

// getJSON performs a GET against endpoint and decodes the JSON body into out.
// Returned errors never carry the request URL.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	params.Set("key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create %s request: %w", endpoint, stripURL(err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", endpoint, stripURL(err))
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr errorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%s: unexpected status %d: %s", endpoint, resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("%s: unexpected status %d", endpoint, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}

// stripURL drops the request URL, which embeds the API key, from transport errors.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

// parseCount parses a decimal counter. Absent or malformed values are 0.
func parseCount(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func channelIDs(candidates []model.RawCandidate) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range candidates {
		if c.ChannelID == "" || seen[c.ChannelID] {
			continue
		}
		seen[c.ChannelID] = true
		ids = append(ids, c.ChannelID)
	}
	return ids
}
