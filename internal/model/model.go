// Package model defines the domain types used across the application.
package model

import "time"

// RawCandidate is one video as returned by the upstream platform, before ranking.
type RawCandidate struct {
	ID           string
	Title        string
	ChannelID    string
	ChannelTitle string
	PublishedAt  time.Time
	ViewCount    int64
	LikeCount    int64
	CommentCount int64
	Channel      *ChannelStats
}

// ChannelStats holds the statistics of the channel that published a candidate.
type ChannelStats struct {
	SubscriberCount int64
	VideoCount      int64
	PublishedAt     time.Time
}

// Metrics are the time-normalized popularity figures derived for a candidate.
type Metrics struct {
	AgeHours          float64
	ViewsPerHour      float64
	ViewsPerHourRatio float64
	HasReference      bool
}

// Duration restricts upstream search to a video length bucket.
type Duration string

// Supported duration buckets. The empty value means any length.
const (
	DurationAny    Duration = ""
	DurationShort  Duration = "short"
	DurationMedium Duration = "medium"
	DurationLong   Duration = "long"
)

// Default FilterSpec values.
const (
	DefaultMinViewsPerHour = 130
	DefaultMinViews        = 100000
	DefaultLocale          = "en"
	DefaultRegionCode      = "US"
	DefaultResultLimit     = 10
	MaxResultLimit         = 50
)

// FilterSpec is the normalized form of a ranking request.
type FilterSpec struct {
	SearchText           string
	MinViewsPerHour      float64
	MinViews             int64
	MinViewsPerHourRatio float64
	RecentOnly           bool
	MaxAgeMonths         int
	Locale               string
	RegionCode           string
	ResultLimit          int

	MaxChannelAgeMonths int
	MaxSubscribers      int64
	MaxChannelVideos    int64
	MinEngagementPct    float64
	Duration            Duration
}

// DefaultFilterSpec returns a FilterSpec with every field at its default.
func DefaultFilterSpec(searchText string) FilterSpec {
	return FilterSpec{
		SearchText:      searchText,
		MinViewsPerHour: DefaultMinViewsPerHour,
		MinViews:        DefaultMinViews,
		Locale:          DefaultLocale,
		RegionCode:      DefaultRegionCode,
		ResultLimit:     DefaultResultLimit,
	}
}

// NeedsChannelStats reports whether any predicate depends on channel statistics.
func (s FilterSpec) NeedsChannelStats() bool {
	return s.MaxChannelAgeMonths > 0 || s.MaxSubscribers > 0 || s.MaxChannelVideos > 0
}

// RankedResult is one item of a ranking response.
type RankedResult struct {
	Title        string    `json:"title"`
	VideoID      string    `json:"videoId"`
	Views        int64     `json:"views"`
	ViewsPerHour int64     `json:"viewsPerHour"`
	AgeHours     int64     `json:"ageHours"`
	PublishedAt  time.Time `json:"publishedAt"`
	Locale       string    `json:"locale"`
	RegionCode   string    `json:"regionCode"`
	ChannelTitle string    `json:"channelTitle,omitempty"`
	URL          string    `json:"url"`
}

// SearchParams is what the upstream search needs from a FilterSpec.
type SearchParams struct {
	Query            string
	Locale           string
	RegionCode       string
	Limit            int
	Duration         Duration
	WithChannelStats bool
}

// SearchParamsFor derives upstream search parameters from a spec.
func SearchParamsFor(spec FilterSpec) SearchParams {
	return SearchParams{
		Query:            spec.SearchText,
		Locale:           spec.Locale,
		RegionCode:       spec.RegionCode,
		Limit:            spec.ResultLimit,
		Duration:         spec.Duration,
		WithChannelStats: spec.NeedsChannelStats(),
	}
}

// Snapshot is a view count observed for a video at a point in time.
type Snapshot struct {
	VideoID    string
	ViewCount  int64
	ObservedAt time.Time
}

// WatchedChannel is a channel whose feed is polled for view snapshots.
type WatchedChannel struct {
	ID           int64
	ChatID       int64
	ChannelID    string
	Title        string
	CreatedAt    time.Time
	LastPolledAt *time.Time
}

// VideoURL returns the watch page URL for a video ID.
func VideoURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}
