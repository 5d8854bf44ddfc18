package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

// DefaultFeedURL is the public Atom feed of a channel's latest uploads.
const DefaultFeedURL = "https://www.youtube.com/feeds/videos.xml"

// Feed is a parsed channel feed.
type Feed struct {
	ChannelID string
	Title     string
	Videos    []FeedVideo
}

// FeedVideo is one upload listed in a channel feed.
type FeedVideo struct {
	ID          string
	Title       string
	PublishedAt time.Time
	ViewCount   int64
}

// FeedClient downloads channel feeds. Feeds need no API key.
type FeedClient struct {
	client  HTTPClient
	baseURL string
}

// NewFeedClient creates a FeedClient with the given HTTP client.
func NewFeedClient(client HTTPClient) *FeedClient {
	return NewFeedClientWithURL(client, DefaultFeedURL)
}

// NewFeedClientWithURL creates a FeedClient against a custom feed endpoint.
func NewFeedClientWithURL(client HTTPClient, baseURL string) *FeedClient {
	return &FeedClient{client: client, baseURL: baseURL}
}

// ChannelFeed downloads and parses the feed of channelID.
func (f *FeedClient) ChannelFeed(ctx context.Context, channelID string) (*Feed, error) {
	u := f.baseURL + "?" + url.Values{"channel_id": {channelID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "trendscout/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return ParseFeed(channelID, string(body))
}

// ParseFeed parses a channel Atom feed document.
func ParseFeed(channelID, doc string) (*Feed, error) {
	parsed, err := gofeed.NewParser().ParseString(doc)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	feed := &Feed{ChannelID: channelID, Title: parsed.Title}
	for _, item := range parsed.Items {
		id := itemVideoID(item)
		if id == "" {
			continue
		}
		v := FeedVideo{ID: id, Title: item.Title, ViewCount: itemViews(item)}
		if item.PublishedParsed != nil {
			v.PublishedAt = item.PublishedParsed.UTC()
		}
		feed.Videos = append(feed.Videos, v)
	}
	return feed, nil
}

// itemVideoID reads yt:videoId, falling back to the v parameter of the link.
func itemVideoID(item *gofeed.Item) string {
	if id := firstValue(item.Extensions, "yt", "videoId"); id != "" {
		return id
	}
	u, err := url.Parse(item.Link)
	if err != nil {
		return ""
	}
	return u.Query().Get("v")
}

// itemViews reads media:group/media:community/media:statistics@views.
func itemViews(item *gofeed.Item) int64 {
	groups := item.Extensions["media"]["group"]
	if len(groups) == 0 {
		return 0
	}
	community := groups[0].Children["community"]
	if len(community) == 0 {
		return 0
	}
	stats := community[0].Children["statistics"]
	if len(stats) == 0 {
		return 0
	}
	n, err := strconv.ParseInt(strings.TrimSpace(stats[0].Attrs["views"]), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func firstValue(exts ext.Extensions, prefix, name string) string {
	vals := exts[prefix][name]
	if len(vals) == 0 {
		return ""
	}
	return strings.TrimSpace(vals[0].Value)
}
