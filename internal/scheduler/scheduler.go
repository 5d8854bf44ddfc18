// Package scheduler periodically collects view snapshots of watched channels.
package scheduler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"trendscout/internal/metrics"
	"trendscout/internal/model"
	"trendscout/internal/storage"
	"trendscout/internal/youtube"
)

// FeedSource downloads the feed of a channel.
type FeedSource interface {
	ChannelFeed(ctx context.Context, channelID string) (*youtube.Feed, error)
}

// Scheduler polls the feeds of watched channels, records their view counts
// and prunes snapshots past retention.
type Scheduler struct {
	store     storage.Storage
	feeds     FeedSource
	log       *slog.Logger
	tick      time.Duration
	retention time.Duration
	now       func() time.Time
}

// New creates a Scheduler reading public channel feeds with the default HTTP client.
func New(store storage.Storage, log *slog.Logger, tick, retention time.Duration) *Scheduler {
	return NewWithFeeds(store, youtube.NewFeedClient(http.DefaultClient), log, tick, retention)
}

// NewWithFeeds creates a Scheduler with a custom feed source (useful for testing).
func NewWithFeeds(store storage.Storage, feeds FeedSource, log *slog.Logger, tick, retention time.Duration) *Scheduler {
	return &Scheduler{
		store:     store,
		feeds:     feeds,
		log:       log,
		tick:      tick,
		retention: retention,
		now:       time.Now,
	}
}

// Run starts the collection loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.collect(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.collect(ctx)
		}
	}
}

func (s *Scheduler) collect(ctx context.Context) {
	watches, err := s.store.ListAllWatches(ctx)
	if err != nil {
		s.log.Error("list watches", "error", err)
		return
	}

	for _, channelID := range distinctChannels(watches) {
		if ctx.Err() != nil {
			return
		}
		s.pollChannel(ctx, channelID)
	}

	s.prune(ctx)
}

func (s *Scheduler) pollChannel(ctx context.Context, channelID string) {
	s.log.Debug("polling channel", "channel_id", channelID)

	feed, err := s.feeds.ChannelFeed(ctx, channelID)
	if err != nil {
		metrics.FeedPollsTotal.WithLabelValues("error").Inc()
		s.log.Error("fetch channel feed", "channel_id", channelID, "error", err)
		return
	}
	metrics.FeedPollsTotal.WithLabelValues("ok").Inc()

	now := s.now().UTC()
	snaps := make([]model.Snapshot, 0, len(feed.Videos))
	for _, v := range feed.Videos {
		snaps = append(snaps, model.Snapshot{VideoID: v.ID, ViewCount: v.ViewCount, ObservedAt: now})
	}
	if err := s.store.RecordSnapshots(ctx, snaps); err != nil {
		s.log.Error("record snapshots", "channel_id", channelID, "error", err)
		return
	}
	metrics.SnapshotsRecorded.WithLabelValues("feed").Add(float64(len(snaps)))

	if err := s.store.MarkPolled(ctx, channelID, now); err != nil {
		s.log.Error("mark polled", "channel_id", channelID, "error", err)
	}
	if len(snaps) > 0 {
		s.log.Info("recorded snapshots", "channel_id", channelID, "title", feed.Title, "count", len(snaps))
	}
}

func (s *Scheduler) prune(ctx context.Context) {
	if s.retention <= 0 {
		return
	}
	n, err := s.store.PruneSnapshots(ctx, s.now().Add(-s.retention))
	if err != nil {
		s.log.Error("prune snapshots", "error", err)
		return
	}
	metrics.SnapshotsPruned.Add(float64(n))
	if n > 0 {
		s.log.Info("pruned snapshots", "count", n)
	}
}

// distinctChannels returns each watched channel ID once, in first-seen order.
func distinctChannels(watches []model.WatchedChannel) []string {
	seen := make(map[string]bool, len(watches))
	var ids []string
	for _, w := range watches {
		if seen[w.ChannelID] {
			continue
		}
		seen[w.ChannelID] = true
		ids = append(ids, w.ChannelID)
	}
	return ids
}
