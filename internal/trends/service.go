// Package trends orchestrates one ranking request: resolve intent, fetch
// candidates upstream, look up reference snapshots, rank, then record and
// publish the outcome.
package trends

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"trendscout/internal/events"
	"trendscout/internal/intent"
	"trendscout/internal/metrics"
	"trendscout/internal/model"
	"trendscout/internal/rank"
)

// Errors returned by Trending.
var (
	ErrMissingQuery = errors.New("missing query")
	ErrUpstream     = errors.New("upstream request failed")
)

// Source fetches raw candidates from the video platform.
type Source interface {
	Search(ctx context.Context, p model.SearchParams) ([]model.RawCandidate, error)
}

// SnapshotStore keeps historical view counts.
type SnapshotStore interface {
	RecordSnapshots(ctx context.Context, snaps []model.Snapshot) error
	LatestSnapshots(ctx context.Context, videoIDs []string, before time.Time) (map[string]model.Snapshot, error)
}

// Response is the outcome of a ranking request.
type Response struct {
	RequestID string
	Spec      model.FilterSpec
	Results   []model.RankedResult
}

// Service runs ranking requests. It is safe for concurrent use.
type Service struct {
	source    Source
	snapshots SnapshotStore
	publisher events.Publisher
	log       *slog.Logger
	refMinAge time.Duration
	now       func() time.Time
	newID     func() string
}

// New creates a Service. snapshots may be nil, in which case no velocity
// ratio reference is ever available. A snapshot only serves as reference
// once it is at least refMinAge old.
func New(source Source, snapshots SnapshotStore, publisher events.Publisher, log *slog.Logger, refMinAge time.Duration) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		source:    source,
		snapshots: snapshots,
		publisher: publisher,
		log:       log,
		refMinAge: refMinAge,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Trending resolves in, applies o and returns the ranked candidates.
// It returns ErrMissingQuery without any upstream call when in is empty and
// an error wrapping ErrUpstream when the platform request fails. Zero
// candidates is a successful, empty response.
func (s *Service) Trending(ctx context.Context, in intent.Input, o intent.Overrides) (*Response, error) {
	strategy := "text"
	if len(in.Criteria) > 0 {
		strategy = "checklist"
	}
	if in.Empty() {
		metrics.RankingsTotal.WithLabelValues(strategy, "invalid").Inc()
		return nil, ErrMissingQuery
	}

	spec := o.Apply(intent.Resolve(in))
	if err := spec.Validate(); err != nil {
		metrics.RankingsTotal.WithLabelValues(strategy, "invalid").Inc()
		return nil, fmt.Errorf("resolve filter: %w", err)
	}

	reqID := s.newID()
	log := s.log.With("request_id", reqID)
	now := s.now()

	start := time.Now()
	candidates, err := s.source.Search(ctx, model.SearchParamsFor(spec))
	if err != nil {
		metrics.UpstreamDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		metrics.RankingsTotal.WithLabelValues(strategy, "upstream_error").Inc()
		log.Error("upstream search", "query", spec.SearchText, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	metrics.UpstreamDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	metrics.CandidatesFetched.Observe(float64(len(candidates)))

	refs := s.references(ctx, log, candidates, now)
	results := rank.Rank(candidates, spec, now, refs)
	s.record(ctx, log, candidates, now)

	metrics.ResultsReturned.Observe(float64(len(results)))
	metrics.RankingsTotal.WithLabelValues(strategy, "ok").Inc()
	log.Info("ranked",
		"strategy", strategy,
		"query", spec.SearchText,
		"region", spec.RegionCode,
		"candidates", len(candidates),
		"results", len(results),
		"references", len(refs),
	)

	ev := events.Ranked{RequestID: reqID, Query: in.Query, Criteria: in.Criteria, Results: results}
	if err := s.publisher.PublishRanked(ctx, ev); err != nil {
		log.Warn("publish ranking event", "error", err)
	}

	return &Response{RequestID: reqID, Spec: spec, Results: results}, nil
}

func (s *Service) references(ctx context.Context, log *slog.Logger, candidates []model.RawCandidate, now time.Time) map[string]model.Snapshot {
	if s.snapshots == nil || len(candidates) == 0 {
		return nil
	}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	refs, err := s.snapshots.LatestSnapshots(ctx, ids, now.Add(-s.refMinAge))
	if err != nil {
		log.Warn("load reference snapshots", "error", err)
		return nil
	}
	return refs
}

func (s *Service) record(ctx context.Context, log *slog.Logger, candidates []model.RawCandidate, now time.Time) {
	if s.snapshots == nil || len(candidates) == 0 {
		return
	}
	snaps := make([]model.Snapshot, 0, len(candidates))
	for _, c := range candidates {
		snaps = append(snaps, model.Snapshot{VideoID: c.ID, ViewCount: c.ViewCount, ObservedAt: now})
	}
	if err := s.snapshots.RecordSnapshots(ctx, snaps); err != nil {
		log.Warn("record snapshots", "error", err)
		return
	}
	metrics.SnapshotsRecorded.WithLabelValues("search").Add(float64(len(snaps)))
}
