package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const (
	DefaultCollection = "profiles"
	defaultMaxPool    = 30
	defaultMinPool    = 3
	indexTimeout      = 10 * time.Second
)

// MongoOptions configures the durable profile store.
type MongoOptions struct {
	URI        string
	Database   string
	Collection string
	Logger     *zap.Logger
}

// MongoStore persists profile records in one collection with a unique
// index on email.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// OpenMongo connects, pings with a primary-preferred read preference and
// ensures the email index.
func OpenMongo(ctx context.Context, opts MongoOptions) (*MongoStore, error) {
	if opts.URI == "" || opts.Database == "" {
		return nil, errors.New("mongo uri and database required")
	}
	if opts.Collection == "" {
		opts.Collection = DefaultCollection
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetMaxPoolSize(defaultMaxPool).
		SetMinPoolSize(defaultMinPool).
		SetReadPreference(readpref.PrimaryPreferred())
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.PrimaryPreferred()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewMongoStore(client.Database(opts.Database).Collection(opts.Collection), logger)
	s.client = client
	return s, nil
}

// NewMongoStore wraps an existing collection. Index creation failures are
// logged and do not stop startup.
func NewMongoStore(coll *mongo.Collection, logger *zap.Logger) *MongoStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		logger.Warn("profile email index not created", zap.Error(err))
	}
	return &MongoStore{coll: coll, logger: logger}
}

func (s *MongoStore) Upsert(ctx context.Context, rec Record) error {
	email := normalizeEmail(rec.Email)
	if email == "" {
		return errors.New("email required")
	}
	now := time.Now().UTC()
	created := rec.CreatedAt
	if created.IsZero() {
		created = now
	}
	update := bson.M{
		"$set": bson.M{
			"session_id": rec.SessionID,
			"role":       rec.Role,
			"info":       rec.Blob,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"email":      email,
			"created_at": created,
		},
	}
	_, err := s.coll.UpdateOne(ctx, bson.M{"email": email}, update, options.Update().SetUpsert(true))
	if err != nil {
		s.logger.Error("profile upsert failed", zap.Error(err))
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

func (s *MongoStore) FindByEmail(ctx context.Context, email string) (Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"email": normalizeEmail(email)}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("find profile: %w", err)
	}
	return rec, nil
}

func (s *MongoStore) Delete(ctx context.Context, email string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"email": normalizeEmail(email)}); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

// Close disconnects the client when the store opened it.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
