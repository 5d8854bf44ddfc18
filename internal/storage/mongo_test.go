package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"trendscout/internal/model"
)

func newTestMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	name := fmt.Sprintf("trendscout_test_%d", time.Now().UnixNano())
	m, err := NewMongo(ctx, uri, name)
	if err != nil {
		t.Fatalf("new mongo: %v", err)
	}
	t.Cleanup(func() {
		_ = m.db.Drop(context.Background())
		_ = m.Close()
	})
	return m
}

func TestMongoWatches(t *testing.T) {
	ctx := context.Background()
	m := newTestMongo(t)

	a := model.WatchedChannel{ChatID: 1, ChannelID: "UC1", Title: "One"}
	b := model.WatchedChannel{ChatID: 1, ChannelID: "UC2"}
	for _, w := range []*model.WatchedChannel{&a, &b} {
		if err := m.AddWatch(ctx, w); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if a.ID == b.ID || a.ID == 0 {
		t.Fatalf("expected distinct non-zero IDs, got %d and %d", a.ID, b.ID)
	}
	if err := m.AddWatch(ctx, &model.WatchedChannel{ChatID: 1, ChannelID: "UC1"}); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("duplicate add error = %v, want ErrAlreadyExists", err)
	}

	if err := m.MarkPolled(ctx, "UC1", base); err != nil {
		t.Fatalf("mark polled: %v", err)
	}
	got, err := m.GetWatch(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := a
	want.LastPolledAt = &base
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("GetWatch mismatch (-want +got):\n%s", diff)
	}

	list, err := m.ListWatches(ctx, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff(2, len(list)); diff != "" {
		t.Errorf("list count mismatch (-want +got):\n%s", diff)
	}

	if err := m.DeleteWatch(ctx, b.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := m.GetWatch(ctx, b.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete error = %v, want ErrNotFound", err)
	}
}

func TestMongoSnapshots(t *testing.T) {
	ctx := context.Background()
	m := newTestMongo(t)

	err := m.RecordSnapshots(ctx, []model.Snapshot{
		{VideoID: "v1", ViewCount: 100, ObservedAt: base.Add(-3 * time.Hour)},
		{VideoID: "v1", ViewCount: 200, ObservedAt: base.Add(-2 * time.Hour)},
		{VideoID: "v1", ViewCount: 300, ObservedAt: base},
		{VideoID: "v2", ViewCount: 50, ObservedAt: base.Add(-time.Hour)},
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := m.LatestSnapshots(ctx, []string{"v1", "v2", "v3"}, base)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	want := map[string]model.Snapshot{
		"v1": {VideoID: "v1", ViewCount: 200, ObservedAt: base.Add(-2 * time.Hour)},
		"v2": {VideoID: "v2", ViewCount: 50, ObservedAt: base.Add(-time.Hour)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LatestSnapshots mismatch (-want +got):\n%s", diff)
	}

	n, err := m.PruneSnapshots(ctx, base.Add(-90*time.Minute))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if diff := cmp.Diff(int64(2), n); diff != "" {
		t.Errorf("pruned count mismatch (-want +got):\n%s", diff)
	}
}
