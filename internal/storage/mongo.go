package storage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pr1t4m-d3y/Amazon-Hackathon/internal/domain"
)

const recordsCollection = "simplification_records"

// MongoStore persists records in MongoDB. A TTL index on expires_at lets the
// database drop expired records on its own; DeleteExpired covers deployments
// where the background TTL monitor lags.
type MongoStore struct {
	records *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongo")
	}

	records := client.Database(database).Collection(recordsCollection)

	_, err = records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ttl index")
	}

	return &MongoStore{records: records}, nil
}

func (s *MongoStore) Persist(ctx context.Context, record domain.Record) error {
	if !record.ExpiresAt.After(record.CreatedAt) {
		return ErrInvalidExpiry
	}

	_, err := s.records.ReplaceOne(ctx,
		bson.M{"session_id": record.SessionID},
		record,
		options.Replace().SetUpsert(true),
	)
	return errors.Wrap(err, "persist record")
}

func (s *MongoStore) Get(ctx context.Context, sessionID string) (domain.Record, error) {
	var record domain.Record
	err := s.records.FindOne(ctx, bson.M{
		"session_id": sessionID,
		"expires_at": bson.M{"$gt": time.Now()},
	}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Record{}, ErrNotFound
	}
	if err != nil {
		return domain.Record{}, errors.Wrap(err, "find record")
	}
	return record, nil
}

func (s *MongoStore) Purge(ctx context.Context, sessionID string) error {
	_, err := s.records.DeleteOne(ctx, bson.M{"session_id": sessionID})
	return errors.Wrap(err, "purge record")
}

func (s *MongoStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.records.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$lte": time.Now()},
	})
	if err != nil {
		return 0, errors.Wrap(err, "delete expired records")
	}
	return int(res.DeletedCount), nil
}
