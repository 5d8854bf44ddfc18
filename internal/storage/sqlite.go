package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"trendscout/internal/model"
	"trendscout/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// AddWatch inserts a watched channel and populates its ID and CreatedAt.
// Watching the same channel twice from one chat returns ErrAlreadyExists.
func (s *SQLite) AddWatch(ctx context.Context, w *model.WatchedChannel) error {
	now := s.now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO watched_channels (chat_id, channel_id, title, created_at) VALUES (?, ?, ?, ?)`,
		w.ChatID, w.ChannelID, w.Title, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert watch: %w", ErrAlreadyExists)
		}
		return fmt.Errorf("insert watch: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	w.ID = id
	w.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetWatch returns a single watched channel by its ID.
func (s *SQLite) GetWatch(ctx context.Context, id int64) (*model.WatchedChannel, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, channel_id, title, created_at, last_polled_at
		 FROM watched_channels WHERE id = ?`, id,
	)
	w, err := scanWatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return w, err
}

// ListWatches returns the channels watched from the given chat.
func (s *SQLite) ListWatches(ctx context.Context, chatID int64) ([]model.WatchedChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, channel_id, title, created_at, last_polled_at
		 FROM watched_channels WHERE chat_id = ? ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query watches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanWatches(rows)
}

// ListAllWatches returns every watched channel of every chat.
func (s *SQLite) ListAllWatches(ctx context.Context) ([]model.WatchedChannel, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, channel_id, title, created_at, last_polled_at
		 FROM watched_channels ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query all watches: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanWatches(rows)
}

// DeleteWatch removes a watched channel by its ID.
func (s *SQLite) DeleteWatch(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM watched_channels WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete watch: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPolled sets the last poll time of every watch of channelID.
func (s *SQLite) MarkPolled(ctx context.Context, channelID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE watched_channels SET last_polled_at = ? WHERE channel_id = ?`,
		at.UTC().Format(timeLayout), channelID,
	)
	if err != nil {
		return fmt.Errorf("mark polled: %w", err)
	}
	return nil
}

// RecordSnapshots stores view counts. A second snapshot of the same video at
// the same second replaces the first.
func (s *SQLite) RecordSnapshots(ctx context.Context, snaps []model.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO view_snapshots (video_id, view_count, observed_at) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, snap := range snaps {
		if _, err := stmt.ExecContext(ctx, snap.VideoID, max(snap.ViewCount, 0), snap.ObservedAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	return tx.Commit()
}

// LatestSnapshots returns the newest snapshot before the given time for each video.
func (s *SQLite) LatestSnapshots(ctx context.Context, videoIDs []string, before time.Time) (map[string]model.Snapshot, error) {
	out := make(map[string]model.Snapshot, len(videoIDs))
	if len(videoIDs) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(videoIDs)+1)
	for _, id := range videoIDs {
		args = append(args, id)
	}
	args = append(args, before.UTC().Format(timeLayout))

	// SQLite returns the bare columns of the row holding the MAX.
	query := `SELECT video_id, view_count, MAX(observed_at)
		FROM view_snapshots
		WHERE video_id IN (` + placeholders(len(videoIDs)) + `) AND observed_at < ?
		GROUP BY video_id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var snap model.Snapshot
		var observed string
		if err := rows.Scan(&snap.VideoID, &snap.ViewCount, &observed); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.ObservedAt, _ = time.Parse(timeLayout, observed)
		out[snap.VideoID] = snap
	}
	return out, rows.Err()
}

// PruneSnapshots deletes snapshots observed before the given time.
func (s *SQLite) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM view_snapshots WHERE observed_at < ?`, before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

type scannable interface {
	Scan(dest ...any) error
}

func scanWatch(row scannable) (*model.WatchedChannel, error) {
	var w model.WatchedChannel
	var created string
	var polled sql.NullString
	err := row.Scan(&w.ID, &w.ChatID, &w.ChannelID, &w.Title, &created, &polled)
	if err != nil {
		return nil, fmt.Errorf("scan watch: %w", err)
	}
	w.CreatedAt, _ = time.Parse(timeLayout, created)
	if polled.Valid {
		t, _ := time.Parse(timeLayout, polled.String)
		w.LastPolledAt = &t
	}
	return &w, nil
}

func scanWatches(rows *sql.Rows) ([]model.WatchedChannel, error) {
	var watches []model.WatchedChannel
	for rows.Next() {
		w, err := scanWatch(rows)
		if err != nil {
			return nil, err
		}
		watches = append(watches, *w)
	}
	return watches, rows.Err()
}
