package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"trendscout/internal/model"
	"trendscout/internal/storage"
	"trendscout/internal/youtube"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type mockFeeds struct {
	mu    sync.Mutex
	feeds map[string]*youtube.Feed
	calls []string
}

func (m *mockFeeds) ChannelFeed(_ context.Context, channelID string) (*youtube.Feed, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, channelID)
	f, ok := m.feeds[channelID]
	if !ok {
		return nil, errors.New("feed unavailable")
	}
	return f, nil
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestScheduler(store storage.Storage, feeds FeedSource) *Scheduler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewWithFeeds(store, feeds, log, time.Minute, 24*time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func addWatches(t *testing.T, store storage.Storage, watches ...model.WatchedChannel) []model.WatchedChannel {
	t.Helper()
	for i := range watches {
		if err := store.AddWatch(context.Background(), &watches[i]); err != nil {
			t.Fatalf("add watch: %v", err)
		}
	}
	return watches
}

func TestCollectRecordsSnapshots(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	watches := addWatches(t, store,
		model.WatchedChannel{ChatID: 1, ChannelID: "UC1"},
		model.WatchedChannel{ChatID: 2, ChannelID: "UC1"},
		model.WatchedChannel{ChatID: 1, ChannelID: "UC2"},
	)

	feeds := &mockFeeds{feeds: map[string]*youtube.Feed{
		"UC1": {ChannelID: "UC1", Title: "One", Videos: []youtube.FeedVideo{
			{ID: "a", ViewCount: 1000},
			{ID: "b", ViewCount: 20},
		}},
		"UC2": {ChannelID: "UC2", Title: "Two", Videos: []youtube.FeedVideo{
			{ID: "c", ViewCount: 5},
		}},
	}}

	newTestScheduler(store, feeds).collect(ctx)

	if diff := cmp.Diff([]string{"UC1", "UC2"}, feeds.calls); diff != "" {
		t.Errorf("polled channels mismatch (-want +got):\n%s", diff)
	}

	got, err := store.LatestSnapshots(ctx, []string{"a", "b", "c"}, now.Add(time.Second))
	if err != nil {
		t.Fatalf("latest snapshots: %v", err)
	}
	want := map[string]model.Snapshot{
		"a": {VideoID: "a", ViewCount: 1000, ObservedAt: now},
		"b": {VideoID: "b", ViewCount: 20, ObservedAt: now},
		"c": {VideoID: "c", ViewCount: 5, ObservedAt: now},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("snapshots mismatch (-want +got):\n%s", diff)
	}

	for _, w := range watches {
		updated, err := store.GetWatch(ctx, w.ID)
		if err != nil {
			t.Fatalf("get watch: %v", err)
		}
		if diff := cmp.Diff(&now, updated.LastPolledAt); diff != "" {
			t.Errorf("watch %d LastPolledAt mismatch (-want +got):\n%s", w.ID, diff)
		}
	}
}

func TestCollectSkipsFailedFeed(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	watches := addWatches(t, store,
		model.WatchedChannel{ChatID: 1, ChannelID: "broken"},
		model.WatchedChannel{ChatID: 1, ChannelID: "UC2"},
	)

	feeds := &mockFeeds{feeds: map[string]*youtube.Feed{
		"UC2": {ChannelID: "UC2", Videos: []youtube.FeedVideo{{ID: "c", ViewCount: 5}}},
	}}

	newTestScheduler(store, feeds).collect(ctx)

	broken, err := store.GetWatch(ctx, watches[0].ID)
	if err != nil {
		t.Fatalf("get watch: %v", err)
	}
	if broken.LastPolledAt != nil {
		t.Errorf("failed channel LastPolledAt = %v, want nil", broken.LastPolledAt)
	}

	got, err := store.LatestSnapshots(ctx, []string{"c"}, now.Add(time.Second))
	if err != nil {
		t.Fatalf("latest snapshots: %v", err)
	}
	if diff := cmp.Diff(1, len(got)); diff != "" {
		t.Errorf("snapshot count mismatch (-want +got):\n%s", diff)
	}
}

func TestCollectPrunesOldSnapshots(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	err := store.RecordSnapshots(ctx, []model.Snapshot{
		{VideoID: "old", ViewCount: 1, ObservedAt: now.Add(-48 * time.Hour)},
		{VideoID: "fresh", ViewCount: 2, ObservedAt: now.Add(-time.Hour)},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	newTestScheduler(store, &mockFeeds{}).collect(ctx)

	got, err := store.LatestSnapshots(ctx, []string{"old", "fresh"}, now)
	if err != nil {
		t.Fatalf("latest snapshots: %v", err)
	}
	if _, ok := got["old"]; ok {
		t.Error("expected snapshot past retention to be pruned")
	}
	if _, ok := got["fresh"]; !ok {
		t.Error("expected recent snapshot to be kept")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	s := newTestScheduler(store, &mockFeeds{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
