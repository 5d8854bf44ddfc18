package youtube

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"trendscout/internal/model"
)

const testKey = "secret-key-123"

type mockResponse struct {
	body       string
	statusCode int
	err        error
}

// mockTransport answers by the last path element of the request URL.
type mockTransport struct {
	responses map[string]mockResponse
	requests  []*http.Request
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req)
	r, ok := m.responses[path.Base(req.URL.Path)]
	if !ok {
		return &http.Response{StatusCode: http.StatusNotFound, Body: io.NopCloser(strings.NewReader(""))}, nil
	}
	if r.err != nil {
		return nil, &url.Error{Op: "Get", URL: req.URL.String(), Err: r.err}
	}
	return &http.Response{
		StatusCode: r.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(r.body)),
	}, nil
}

func (m *mockTransport) endpoints() []string {
	var out []string
	for _, r := range m.requests {
		out = append(out, path.Base(r.URL.Path))
	}
	return out
}

const searchBody = `{"items":[
	{"id":{"videoId":"v1"}},
	{"id":{"videoId":"v2"}},
	{"id":{"videoId":"v1"}},
	{"id":{"channelId":"not-a-video"}}
]}`

const videosBody = `{"items":[
	{"id":"v2","snippet":{"title":"Second","channelId":"c1","channelTitle":"Chan","publishedAt":"2025-06-01T10:00:00Z"},
	 "statistics":{"viewCount":"abc","likeCount":"7"}},
	{"id":"v1","snippet":{"title":"First","channelId":"c1","channelTitle":"Chan","publishedAt":"2025-06-01T08:00:00Z"},
	 "statistics":{"viewCount":"150000","likeCount":"900","commentCount":"100"}}
]}`

const channelsBody = `{"items":[
	{"id":"c1","snippet":{"title":"Chan","publishedAt":"2025-01-01T00:00:00Z"},
	 "statistics":{"subscriberCount":"4200","videoCount":"31"}}
]}`

func TestSearch(t *testing.T) {
	ok := func(body string) mockResponse { return mockResponse{body: body, statusCode: http.StatusOK} }
	chStats := &model.ChannelStats{SubscriberCount: 4200, VideoCount: 31, PublishedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}

	tests := []struct {
		name          string
		params        model.SearchParams
		responses     map[string]mockResponse
		want          []model.RawCandidate
		wantEndpoints []string
		wantErr       bool
	}{
		{
			name:      "search then statistics",
			params:    model.SearchParams{Query: "music", Locale: "en", RegionCode: "US", Limit: 10},
			responses: map[string]mockResponse{"search": ok(searchBody), "videos": ok(videosBody)},
			want: []model.RawCandidate{
				{
					ID: "v1", Title: "First", ChannelID: "c1", ChannelTitle: "Chan",
					PublishedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
					ViewCount:   150000, LikeCount: 900, CommentCount: 100,
				},
				{
					ID: "v2", Title: "Second", ChannelID: "c1", ChannelTitle: "Chan",
					PublishedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
					LikeCount:   7,
				},
			},
			wantEndpoints: []string{"search", "videos"},
		},
		{
			name:   "channel statistics when requested",
			params: model.SearchParams{Query: "music", Limit: 10, WithChannelStats: true},
			responses: map[string]mockResponse{
				"search": ok(searchBody), "videos": ok(videosBody), "channels": ok(channelsBody),
			},
			want: []model.RawCandidate{
				{
					ID: "v1", Title: "First", ChannelID: "c1", ChannelTitle: "Chan",
					PublishedAt: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
					ViewCount:   150000, LikeCount: 900, CommentCount: 100, Channel: chStats,
				},
				{
					ID: "v2", Title: "Second", ChannelID: "c1", ChannelTitle: "Chan",
					PublishedAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
					LikeCount:   7, Channel: chStats,
				},
			},
			wantEndpoints: []string{"search", "videos", "channels"},
		},
		{
			name:          "empty search skips statistics",
			params:        model.SearchParams{Query: "nothing", Limit: 10},
			responses:     map[string]mockResponse{"search": ok(`{"items":[]}`)},
			want:          []model.RawCandidate{},
			wantEndpoints: []string{"search"},
		},
		{
			name:          "search failure",
			params:        model.SearchParams{Query: "x", Limit: 10},
			responses:     map[string]mockResponse{"search": {statusCode: http.StatusForbidden, body: `{"error":{"code":403,"message":"quota exceeded"}}`}},
			wantEndpoints: []string{"search"},
			wantErr:       true,
		},
		{
			name:          "statistics transport failure",
			params:        model.SearchParams{Query: "x", Limit: 10},
			responses:     map[string]mockResponse{"search": ok(searchBody), "videos": {err: io.ErrUnexpectedEOF}},
			wantEndpoints: []string{"search", "videos"},
			wantErr:       true,
		},
		{
			name:          "malformed statistics body",
			params:        model.SearchParams{Query: "x", Limit: 10},
			responses:     map[string]mockResponse{"search": ok(searchBody), "videos": ok("not json")},
			wantEndpoints: []string{"search", "videos"},
			wantErr:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &mockTransport{responses: tt.responses}
			c := NewWithBaseURL(transport, testKey, "https://api.test/youtube/v3")

			got, err := c.Search(context.Background(), tt.params)
			if diff := cmp.Diff(tt.wantEndpoints, transport.endpoints()); diff != "" {
				t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
			}
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if strings.Contains(err.Error(), testKey) {
					t.Errorf("error leaks the API key: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Search() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchQueryParameters(t *testing.T) {
	tests := []struct {
		name   string
		params model.SearchParams
		want   url.Values
	}{
		{
			name:   "full parameters",
			params: model.SearchParams{Query: "cooking tips", Locale: "fr", RegionCode: "FR", Limit: 25, Duration: model.DurationShort},
			want: url.Values{
				"part": {"snippet"}, "type": {"video"}, "q": {"cooking tips"}, "maxResults": {"25"},
				"relevanceLanguage": {"fr"}, "regionCode": {"FR"}, "videoDuration": {"short"}, "key": {testKey},
			},
		},
		{
			name:   "empty query searches generic trending",
			params: model.SearchParams{Limit: 10},
			want: url.Values{
				"part": {"snippet"}, "type": {"video"}, "q": {"trending"}, "maxResults": {"10"}, "key": {testKey},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &mockTransport{responses: map[string]mockResponse{
				"search": {body: `{"items":[]}`, statusCode: http.StatusOK},
			}}
			c := NewWithBaseURL(transport, testKey, "https://api.test/youtube/v3/")
			if _, err := c.Search(context.Background(), tt.params); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, transport.requests[0].URL.Query()); diff != "" {
				t.Errorf("query mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStatisticsBatchedByID(t *testing.T) {
	transport := &mockTransport{responses: map[string]mockResponse{
		"search": {body: searchBody, statusCode: http.StatusOK},
		"videos": {body: videosBody, statusCode: http.StatusOK},
	}}
	c := NewWithBaseURL(transport, testKey, "https://api.test/youtube/v3")
	if _, err := c.Search(context.Background(), model.SearchParams{Query: "x", Limit: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q := transport.requests[1].URL.Query()
	if diff := cmp.Diff("v1,v2", q.Get("id")); diff != "" {
		t.Errorf("id mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("statistics,snippet", q.Get("part")); diff != "" {
		t.Errorf("part mismatch (-want +got):\n%s", diff)
	}
}

func TestStripURL(t *testing.T) {
	inner := errors.New("connection refused")
	err := stripURL(&url.Error{Op: "Get", URL: "https://api.test/search?key=" + testKey, Err: inner})
	if !errors.Is(err, inner) {
		t.Errorf("stripURL() = %v, want %v", err, inner)
	}
	if strings.Contains(err.Error(), testKey) {
		t.Errorf("stripURL() kept the URL: %v", err)
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{in: "150000", want: 150000},
		{in: "", want: 0},
		{in: "12.5", want: 0},
		{in: "-3", want: 0},
		{in: "99999999999999999999", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, parseCount(tt.in)); diff != "" {
				t.Errorf("parseCount(%q) mismatch (-want +got):\n%s", tt.in, diff)
			}
		})
	}
}
