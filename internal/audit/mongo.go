package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/observability"
)

// Retention is how long api_logs documents live before the TTL monitor removes them.
const Retention = 30 * 24 * time.Hour

type MongoSink struct {
	coll *mongo.Collection
}

func NewMongoSink(coll *mongo.Collection) *MongoSink { return &MongoSink{coll: coll} }

// EnsureIndexes creates the timestamp TTL index and an endpoint lookup index.
func (s *MongoSink) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(Retention / time.Second)).SetName("timestamp_ttl"),
		},
		{
			Keys:    bson.D{{Key: "endpoint", Value: 1}, {Key: "timestamp", Value: -1}},
			Options: options.Index().SetName("endpoint_timestamp"),
		},
	})
	if err != nil {
		return fmt.Errorf("create api_logs indexes: %w", err)
	}
	return nil
}

func (s *MongoSink) Record(ctx context.Context, rec model.ApiCallRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if _, err := s.coll.InsertOne(ctx, rec); err != nil {
		observability.IncAudit("mongo", "error")
		return fmt.Errorf("insert api log: %w", err)
	}
	observability.IncAudit("mongo", "ok")
	return nil
}
