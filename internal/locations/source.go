package locations

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mohammed-shakir/mgnrega-tracker/internal/core/model"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/geo"
	"github.com/mohammed-shakir/mgnrega-tracker/internal/mongostore"
)

// Source loads the district master. The order returned is the tie-break order for
// nearest-district detection.
type Source interface {
	Load(ctx context.Context) ([]model.DistrictLocation, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.DistrictLocation, error)

func (f SourceFunc) Load(ctx context.Context) ([]model.DistrictLocation, error) { return f(ctx) }

// Static serves the built-in district list.
var Static Source = SourceFunc(func(context.Context) ([]model.DistrictLocation, error) {
	return geo.Districts(), nil
})

// MongoSource reads the district_master collection.
type MongoSource struct {
	coll *mongo.Collection
}

func NewMongoSource(cli *mongostore.Client) *MongoSource {
	return &MongoSource{coll: cli.Collection(mongostore.DistrictCollection)}
}

func (m *MongoSource) EnsureIndexes(ctx context.Context) error {
	_, err := m.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "districtCode", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("district_code"),
		},
		{
			Keys:    bson.D{{Key: "stateCode", Value: 1}, {Key: "districtName", Value: 1}},
			Options: options.Index().SetName("state_district_name"),
		},
	})
	if err != nil {
		return fmt.Errorf("create %s indexes: %w", mongostore.DistrictCollection, err)
	}
	return nil
}

// Load returns every district that has coordinates, ordered by district code.
func (m *MongoSource) Load(ctx context.Context) ([]model.DistrictLocation, error) {
	filter := bson.D{
		{Key: "latitude", Value: bson.D{{Key: "$exists", Value: true}}},
		{Key: "longitude", Value: bson.D{{Key: "$exists", Value: true}}},
	}
	cur, err := m.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "districtCode", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query district master: %w", err)
	}
	out := make([]model.DistrictLocation, 0, 64)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode district master: %w", err)
	}
	return out, nil
}

// Seed upserts locs by district code and stamps lastSynced.
func (m *MongoSource) Seed(ctx context.Context, locs []model.DistrictLocation) (int64, error) {
	if len(locs) == 0 {
		return 0, nil
	}
	now := time.Now().UTC()
	models := make([]mongo.WriteModel, 0, len(locs))
	for _, l := range locs {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.D{{Key: "districtCode", Value: l.DistrictCode}}).
			SetUpdate(bson.D{{Key: "$set", Value: bson.D{
				{Key: "stateCode", Value: l.StateCode},
				{Key: "stateName", Value: l.StateName},
				{Key: "districtCode", Value: l.DistrictCode},
				{Key: "districtName", Value: l.DistrictName},
				{Key: "latitude", Value: l.Latitude},
				{Key: "longitude", Value: l.Longitude},
				{Key: "isActive", Value: l.IsActive},
				{Key: "lastSynced", Value: now},
			}}}).
			SetUpsert(true))
	}
	res, err := m.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return 0, fmt.Errorf("seed district master: %w", err)
	}
	return res.UpsertedCount + res.ModifiedCount, nil
}
