// Package rank implements the candidate filter and ranking pipeline.
package rank

import (
	"cmp"
	"math"
	"slices"
	"time"

	"trendscout/internal/model"
	"trendscout/internal/velocity"
)

// Age limits expressed in hours. A month is counted as 30 days.
const (
	RecentMaxAgeHours = 7 * 24
	HoursPerMonth     = 30 * 24
)

// scored is a candidate annotated with its metrics.
type scored struct {
	c model.RawCandidate
	m model.Metrics
}

// Rank computes metrics for every candidate at now, keeps those that pass all
// predicates of spec and returns them ordered by velocity.
// refs holds the reference snapshot per video ID, if any.
// The result is never nil.
func Rank(candidates []model.RawCandidate, spec model.FilterSpec, now time.Time, refs map[string]model.Snapshot) []model.RankedResult {
	kept := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		var ref *model.Snapshot
		if s, ok := refs[c.ID]; ok {
			ref = &s
		}
		s := scored{c: c, m: velocity.Compute(c.PublishedAt, c.ViewCount, now, ref)}
		if Match(s.c, s.m, spec, now) {
			kept = append(kept, s)
		}
	}

	slices.SortFunc(kept, compare)

	out := make([]model.RankedResult, 0, len(kept))
	for _, s := range kept {
		out = append(out, model.RankedResult{
			Title:        s.c.Title,
			VideoID:      s.c.ID,
			Views:        max(s.c.ViewCount, 0),
			ViewsPerHour: int64(math.Round(s.m.ViewsPerHour)),
			AgeHours:     int64(math.Round(s.m.AgeHours)),
			PublishedAt:  s.c.PublishedAt,
			Locale:       spec.Locale,
			RegionCode:   spec.RegionCode,
			ChannelTitle: s.c.ChannelTitle,
			URL:          model.VideoURL(s.c.ID),
		})
	}
	return out
}

// Match reports whether a candidate with metrics m passes every predicate of spec.
// Predicates are evaluated in a fixed order and the first failure short-circuits.
// The ratio predicate is skipped for candidates without a reference snapshot.
// A set channel predicate fails when the candidate carries no channel statistics.
func Match(c model.RawCandidate, m model.Metrics, spec model.FilterSpec, now time.Time) bool {
	if max(c.ViewCount, 0) < spec.MinViews {
		return false
	}
	if m.ViewsPerHour < spec.MinViewsPerHour {
		return false
	}
	if spec.MinViewsPerHour > 0 && m.AgeHours <= 0 {
		return false
	}
	if spec.MinViewsPerHourRatio > 0 && m.HasReference && m.ViewsPerHourRatio < spec.MinViewsPerHourRatio {
		return false
	}
	if spec.RecentOnly && m.AgeHours > RecentMaxAgeHours {
		return false
	}
	if spec.MaxAgeMonths > 0 && m.AgeHours > float64(spec.MaxAgeMonths*HoursPerMonth) {
		return false
	}
	if spec.MinEngagementPct > 0 && velocity.EngagementPct(c.ViewCount, c.LikeCount, c.CommentCount) < spec.MinEngagementPct {
		return false
	}
	if !spec.NeedsChannelStats() {
		return true
	}
	if c.Channel == nil {
		return false
	}
	if spec.MaxSubscribers > 0 && c.Channel.SubscriberCount > spec.MaxSubscribers {
		return false
	}
	if spec.MaxChannelVideos > 0 && c.Channel.VideoCount > spec.MaxChannelVideos {
		return false
	}
	if spec.MaxChannelAgeMonths > 0 && now.Sub(c.Channel.PublishedAt).Hours() > float64(spec.MaxChannelAgeMonths*HoursPerMonth) {
		return false
	}
	return true
}

// compare orders by velocity desc, views desc, publish time desc, then video ID asc.
func compare(a, b scored) int {
	if c := cmp.Compare(b.m.ViewsPerHour, a.m.ViewsPerHour); c != 0 {
		return c
	}
	if c := cmp.Compare(b.c.ViewCount, a.c.ViewCount); c != 0 {
		return c
	}
	if c := b.c.PublishedAt.Compare(a.c.PublishedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.c.ID, b.c.ID)
}
