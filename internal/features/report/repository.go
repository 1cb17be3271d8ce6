package report

import (
	"context"
	"errors"
	"time"

	"go-crm-reports/internal/common/models"
	"go-crm-reports/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportRepository stores report configs. Every call is scoped to one
// organization.
type ReportRepository interface {
	Create(ctx context.Context, report *models.ReportConfig) error
	Get(ctx context.Context, orgID, id string) (*models.ReportConfig, error)
	List(ctx context.Context, orgID string) ([]models.ReportSummary, error)
	Update(ctx context.Context, orgID, id string, report *models.ReportConfig) error
	Delete(ctx context.Context, orgID, id string) error
	EnsureIndexes(ctx context.Context) error
}

type ReportRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewReportRepository(db *database.MongodbDB) ReportRepository {
	return &ReportRepositoryImpl{
		Collection: db.DB.Collection("report_configs"),
	}
}

func (r *ReportRepositoryImpl) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "org_id", Value: 1}, {Key: "created_at", Value: 1}}},
	})
	return err
}

func (r *ReportRepositoryImpl) Create(ctx context.Context, report *models.ReportConfig) error {
	now := time.Now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	_, err := r.Collection.InsertOne(ctx, report)
	return err
}

func (r *ReportRepositoryImpl) Get(ctx context.Context, orgID, id string) (*models.ReportConfig, error) {
	var report models.ReportConfig
	err := r.Collection.FindOne(ctx, bson.M{"_id": id, "org_id": orgID}).Decode(&report)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportRepositoryImpl) List(ctx context.Context, orgID string) ([]models.ReportSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "title": 1})

	cursor, err := r.Collection.Find(ctx, bson.M{"org_id": orgID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []struct {
		ID    string `bson:"_id"`
		Title string `bson:"title"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.ReportSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.ReportSummary{ID: d.ID, Title: d.Title})
	}
	return out, nil
}

func (r *ReportRepositoryImpl) Update(ctx context.Context, orgID, id string, report *models.ReportConfig) error {
	report.UpdatedAt = time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"title":           report.Title,
			"description":     report.Description,
			"data_source":     report.DataSource,
			"available_cards": report.AvailableCards,
			"displayed_cards": report.DisplayedCards,
			"updated_at":      report.UpdatedAt,
		},
	}
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": id, "org_id": orgID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ReportRepositoryImpl) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": id, "org_id": orgID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
