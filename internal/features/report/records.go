package report

import (
	"context"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RecordRepository reads the documents a report is computed from.
type RecordRepository interface {
	// Find returns up to limit records of source matching filter, newest
	// first, along with the total number of matches.
	Find(ctx context.Context, orgID, source string, filter bson.M, limit int64) ([]Record, int64, error)
}

type RecordRepositoryImpl struct {
	collections map[string]*mongo.Collection
}

func NewRecordRepository(db *database.MongodbDB) RecordRepository {
	return &RecordRepositoryImpl{
		collections: map[string]*mongo.Collection{
			models.SourceLeads:     db.DB.Collection("leads"),
			models.SourceCustomers: db.DB.Collection("customers"),
		},
	}
}

func (r *RecordRepositoryImpl) Find(ctx context.Context, orgID, source string, filter bson.M, limit int64) ([]Record, int64, error) {
	coll, ok := r.collections[source]
	if !ok {
		return nil, 0, invalid("unknown data source %q", source)
	}

	query := scopedFilter(orgID, filter)
	total, err := coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cursor, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	records := []Record{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func scopedFilter(orgID string, filter bson.M) bson.M {
	if len(filter) == 0 {
		return bson.M{"org_id": orgID}
	}
	return bson.M{"$and": []bson.M{{"org_id": orgID}, filter}}
}
