// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"trendscout/internal/model"
)

// Sentinel errors returned by every implementation.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// Storage is the interface for all persistence operations.
// Implementations are safe for concurrent use.
type Storage interface {
	AddWatch(ctx context.Context, w *model.WatchedChannel) error
	GetWatch(ctx context.Context, id int64) (*model.WatchedChannel, error)
	ListWatches(ctx context.Context, chatID int64) ([]model.WatchedChannel, error)
	ListAllWatches(ctx context.Context) ([]model.WatchedChannel, error)
	DeleteWatch(ctx context.Context, id int64) error
	MarkPolled(ctx context.Context, channelID string, at time.Time) error

	RecordSnapshots(ctx context.Context, snaps []model.Snapshot) error
	// LatestSnapshots returns, per video ID, the most recent snapshot observed
	// strictly before the given time. Videos without one are absent from the map.
	LatestSnapshots(ctx context.Context, videoIDs []string, before time.Time) (map[string]model.Snapshot, error)
	PruneSnapshots(ctx context.Context, before time.Time) (int64, error)

	Close() error
}
