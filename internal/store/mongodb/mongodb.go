// Package mongodb stores performance records in the district_performance collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/mongostore"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/store"
)

func init() {
	store.Register("mongo", func(ctx context.Context, d store.Deps) (store.Store, error) {
		if d.Mongo == nil {
			return nil, errors.New("mongo client is required")
		}
		s := New(d.Mongo, d.Options)
		if err := s.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		return s, nil
	})
}

type Store struct {
	cli  *mongostore.Client
	coll *mongo.Collection
	now  func() time.Time
}

func New(cli *mongostore.Client, opts store.Options) *Store {
	return &Store{
		cli:  cli,
		coll: cli.Collection(mongostore.PerformanceCollection),
		now:  opts.Clock(),
	}
}

// EnsureIndexes creates the unique record key index plus the history and compare indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "stateCode", Value: 1},
				{Key: "districtCode", Value: 1},
				{Key: "financialYear", Value: 1},
				{Key: "month", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("record_key"),
		},
		{
			Keys: bson.D{
				{Key: "stateCode", Value: 1},
				{Key: "districtCode", Value: 1},
				{Key: "financialYear", Value: -1},
				{Key: "monthIndex", Value: -1},
			},
			Options: options.Index().SetName("district_history"),
		},
		{
			Keys:    bson.D{{Key: "lastUpdated", Value: 1}},
			Options: options.Index().SetName("last_updated"),
		},
	})
	if err != nil {
		return fmt.Errorf("create %s indexes: %w", mongostore.PerformanceCollection, err)
	}
	return nil
}

func keyFilter(k model.PerformanceKey) bson.D {
	return bson.D{
		{Key: "stateCode", Value: k.StateCode},
		{Key: "districtCode", Value: k.DistrictCode},
		{Key: "financialYear", Value: k.FiscalYear},
		{Key: "month", Value: k.Month},
	}
}

func (s *Store) findOne(ctx context.Context, filter bson.D) (model.PerformanceRecord, bool, error) {
	var r model.PerformanceRecord
	err := s.coll.FindOne(ctx, filter).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.PerformanceRecord{}, false, nil
	}
	if err != nil {
		return model.PerformanceRecord{}, false, fmt.Errorf("find performance record: %w", err)
	}
	r.LastUpdated = r.LastUpdated.UTC()
	return r, true, nil
}

func (s *Store) Find(ctx context.Context, key model.PerformanceKey) (model.PerformanceRecord, bool, error) {
	return s.findOne(ctx, keyFilter(key))
}

// FindFresh filters on lastUpdated server side.
func (s *Store) FindFresh(ctx context.Context, key model.PerformanceKey, maxAge time.Duration) (model.PerformanceRecord, bool, error) {
	f := append(keyFilter(key), bson.E{Key: "lastUpdated", Value: bson.D{{Key: "$gte", Value: s.now().Add(-maxAge)}}})
	return s.findOne(ctx, f)
}

func (s *Store) Upsert(ctx context.Context, rec model.PerformanceRecord) (model.PerformanceRecord, error) {
	rec, err := store.Prepare(rec, s.now())
	if err != nil {
		return model.PerformanceRecord{}, err
	}
	// mongo keeps millisecond precision; stamp what will be read back
	rec.LastUpdated = rec.LastUpdated.Truncate(time.Millisecond)
	_, err = s.coll.ReplaceOne(ctx, keyFilter(rec.Key()), rec, options.Replace().SetUpsert(true))
	if err != nil {
		return model.PerformanceRecord{}, fmt.Errorf("upsert performance record: %w", err)
	}
	return rec, nil
}

func (s *Store) list(ctx context.Context, filter bson.D, opts *options.FindOptions) ([]model.PerformanceRecord, error) {
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("query performance records: %w", err)
	}
	out := make([]model.PerformanceRecord, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode performance records: %w", err)
	}
	for i := range out {
		out[i].LastUpdated = out[i].LastUpdated.UTC()
	}
	return out, nil
}

func (s *Store) History(ctx context.Context, stateCode, districtCode string, limit int) ([]model.PerformanceRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "financialYear", Value: -1},
		{Key: "monthIndex", Value: -1},
		{Key: "month", Value: -1},
	})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.list(ctx, bson.D{
		{Key: "stateCode", Value: stateCode},
		{Key: "districtCode", Value: districtCode},
	}, opts)
}

func (s *Store) Compare(ctx context.Context, stateCode, fiscalYear, month string) ([]model.PerformanceRecord, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "districtName", Value: 1},
		{Key: "districtCode", Value: 1},
	})
	return s.list(ctx, bson.D{
		{Key: "stateCode", Value: stateCode},
		{Key: "financialYear", Value: fiscalYear},
		{Key: "month", Value: month},
	}, opts)
}

func (s *Store) Ping(ctx context.Context) error { return s.cli.Ping(ctx) }

// Close is a no-op; the shared client is closed by its owner.
func (s *Store) Close(context.Context) error { return nil }
