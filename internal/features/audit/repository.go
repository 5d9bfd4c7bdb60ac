package audit

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-reporting/internal/database"
)

// AuditRepository is append-only on purpose: entries are never updated, and
// the only delete path is the cascade that runs when a report is removed.
type AuditRepository interface {
	Append(ctx context.Context, entry *AccessLogEntry) error
	List(ctx context.Context, filter ListFilter, page, limit int64) ([]AccessLogEntry, int64, error)
	DeleteByReport(ctx context.Context, reportID string) error
	EnsureIndexes(ctx context.Context) error
}

type MongoAuditRepository struct {
	Collection *mongo.Collection
}

func NewAuditRepository(db *database.MongodbDB) AuditRepository {
	return &MongoAuditRepository{Collection: db.DB.Collection("access_logs")}
}

func (r *MongoAuditRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "report_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		{Keys: bson.D{{Key: "share_id", Value: 1}, {Key: "timestamp", Value: -1}}},
	})
	return err
}

func (r *MongoAuditRepository) Append(ctx context.Context, entry *AccessLogEntry) error {
	entry.ID = primitive.NewObjectID()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	_, err := r.Collection.InsertOne(ctx, entry)
	return err
}

func (r *MongoAuditRepository) DeleteByReport(ctx context.Context, reportID string) error {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return errors.New("invalid report id")
	}
	_, err = r.Collection.DeleteMany(ctx, bson.M{"report_id": oid})
	return err
}

func (r *MongoAuditRepository) List(ctx context.Context, filter ListFilter, page, limit int64) ([]AccessLogEntry, int64, error) {
	query := bson.M{}
	if filter.ReportID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.ReportID)
		if err != nil {
			return nil, 0, errors.New("invalid report id")
		}
		query["report_id"] = oid
	}
	if filter.ShareID != "" {
		oid, err := primitive.ObjectIDFromHex(filter.ShareID)
		if err != nil {
			return nil, 0, errors.New("invalid share id")
		}
		query["share_id"] = oid
	}
	if filter.AccessType != "" {
		query["access_type"] = filter.AccessType
	}
	if filter.Success != nil {
		query["success"] = *filter.Success
	}
	if filter.From != nil || filter.To != nil {
		span := bson.M{}
		if filter.From != nil {
			span["$gte"] = *filter.From
		}
		if filter.To != nil {
			span["$lte"] = *filter.To
		}
		query["timestamp"] = span
	}

	total, err := r.Collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := r.Collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var out []AccessLogEntry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
