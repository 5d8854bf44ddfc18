package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"trendscout/internal/model"
)

const (
	watchesCollection   = "watched_channels"
	snapshotsCollection = "view_snapshots"
	countersCollection  = "counters"
)

// Mongo implements Storage backed by MongoDB.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time
}

type watchDoc struct {
	ID           int64      `bson:"_id"`
	ChatID       int64      `bson:"chat_id"`
	ChannelID    string     `bson:"channel_id"`
	Title        string     `bson:"title"`
	CreatedAt    time.Time  `bson:"created_at"`
	LastPolledAt *time.Time `bson:"last_polled_at,omitempty"`
}

type snapshotDoc struct {
	VideoID    string    `bson:"video_id"`
	ViewCount  int64     `bson:"view_count"`
	ObservedAt time.Time `bson:"observed_at"`
}

// NewMongo connects to uri, selects database and ensures indexes.
func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	m := &Mongo{client: client, db: client.Database(database), now: time.Now}
	if err := m.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return m, nil
}

func (m *Mongo) ensureIndexes(ctx context.Context) error {
	_, err := m.db.Collection(watchesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "chat_id", Value: 1}, {Key: "channel_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "channel_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create watch indexes: %w", err)
	}

	_, err = m.db.Collection(snapshotsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "video_id", Value: 1}, {Key: "observed_at", Value: -1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "observed_at", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create snapshot indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// nextID returns the next value of a named sequence.
func (m *Mongo) nextID(ctx context.Context, name string) (int64, error) {
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := m.db.Collection(countersCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("next %s id: %w", name, err)
	}
	return doc.Seq, nil
}

// AddWatch inserts a watched channel and populates its ID and CreatedAt.
func (m *Mongo) AddWatch(ctx context.Context, w *model.WatchedChannel) error {
	id, err := m.nextID(ctx, watchesCollection)
	if err != nil {
		return err
	}
	created := m.now().UTC().Truncate(time.Millisecond)
	_, err = m.db.Collection(watchesCollection).InsertOne(ctx, watchDoc{
		ID:        id,
		ChatID:    w.ChatID,
		ChannelID: w.ChannelID,
		Title:     w.Title,
		CreatedAt: created,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert watch: %w", ErrAlreadyExists)
		}
		return fmt.Errorf("insert watch: %w", err)
	}
	w.ID = id
	w.CreatedAt = created
	return nil
}

// GetWatch returns a single watched channel by its ID.
func (m *Mongo) GetWatch(ctx context.Context, id int64) (*model.WatchedChannel, error) {
	var doc watchDoc
	err := m.db.Collection(watchesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find watch: %w", err)
	}
	w := doc.model()
	return &w, nil
}

// ListWatches returns the channels watched from the given chat.
func (m *Mongo) ListWatches(ctx context.Context, chatID int64) ([]model.WatchedChannel, error) {
	return m.findWatches(ctx, bson.M{"chat_id": chatID})
}

// ListAllWatches returns every watched channel of every chat.
func (m *Mongo) ListAllWatches(ctx context.Context) ([]model.WatchedChannel, error) {
	return m.findWatches(ctx, bson.M{})
}

func (m *Mongo) findWatches(ctx context.Context, filter bson.M) ([]model.WatchedChannel, error) {
	cur, err := m.db.Collection(watchesCollection).Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find watches: %w", err)
	}
	var docs []watchDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode watches: %w", err)
	}

	var out []model.WatchedChannel
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// DeleteWatch removes a watched channel by its ID.
func (m *Mongo) DeleteWatch(ctx context.Context, id int64) error {
	res, err := m.db.Collection(watchesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete watch: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkPolled sets the last poll time of every watch of channelID.
func (m *Mongo) MarkPolled(ctx context.Context, channelID string, at time.Time) error {
	_, err := m.db.Collection(watchesCollection).UpdateMany(ctx,
		bson.M{"channel_id": channelID},
		bson.M{"$set": bson.M{"last_polled_at": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("mark polled: %w", err)
	}
	return nil
}

// RecordSnapshots upserts view counts keyed by video and observation time.
func (m *Mongo) RecordSnapshots(ctx context.Context, snaps []model.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	ops := make([]mongo.WriteModel, 0, len(snaps))
	for _, s := range snaps {
		doc := snapshotDoc{VideoID: s.VideoID, ViewCount: max(s.ViewCount, 0), ObservedAt: s.ObservedAt.UTC().Truncate(time.Millisecond)}
		ops = append(ops, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"video_id": doc.VideoID, "observed_at": doc.ObservedAt}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	_, err := m.db.Collection(snapshotsCollection).BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	return nil
}

// LatestSnapshots returns the newest snapshot before the given time for each video.
func (m *Mongo) LatestSnapshots(ctx context.Context, videoIDs []string, before time.Time) (map[string]model.Snapshot, error) {
	out := make(map[string]model.Snapshot, len(videoIDs))
	if len(videoIDs) == 0 {
		return out, nil
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"video_id":    bson.M{"$in": videoIDs},
			"observed_at": bson.M{"$lt": before.UTC()},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "video_id", Value: 1}, {Key: "observed_at", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":         "$video_id",
			"view_count":  bson.M{"$first": "$view_count"},
			"observed_at": bson.M{"$first": "$observed_at"},
		}}},
	}
	cur, err := m.db.Collection(snapshotsCollection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate snapshots: %w", err)
	}

	var rows []struct {
		VideoID    string    `bson:"_id"`
		ViewCount  int64     `bson:"view_count"`
		ObservedAt time.Time `bson:"observed_at"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	for _, r := range rows {
		out[r.VideoID] = model.Snapshot{VideoID: r.VideoID, ViewCount: r.ViewCount, ObservedAt: r.ObservedAt.UTC()}
	}
	return out, nil
}

// PruneSnapshots deletes snapshots observed before the given time.
func (m *Mongo) PruneSnapshots(ctx context.Context, before time.Time) (int64, error) {
	res, err := m.db.Collection(snapshotsCollection).DeleteMany(ctx, bson.M{"observed_at": bson.M{"$lt": before.UTC()}})
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.DeletedCount, nil
}

func (d watchDoc) model() model.WatchedChannel {
	w := model.WatchedChannel{
		ID:        d.ID,
		ChatID:    d.ChatID,
		ChannelID: d.ChannelID,
		Title:     d.Title,
		CreatedAt: d.CreatedAt.UTC(),
	}
	if d.LastPolledAt != nil {
		t := d.LastPolledAt.UTC()
		w.LastPolledAt = &t
	}
	return w
}
