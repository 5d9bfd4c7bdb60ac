package share

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

var (
	ErrShareNotFound  = errors.New("share not found")
	ErrQuotaExhausted = errors.New("share access quota exhausted")
)

type ShareRepository interface {
	Create(ctx context.Context, link *ShareLink) error
	GetByToken(ctx context.Context, token string) (*ShareLink, error)
	GetByID(ctx context.Context, id string) (*ShareLink, error)
	ListByReport(ctx context.Context, reportID string) ([]ShareLink, error)
	// Revoke is idempotent: revoking an already revoked share succeeds
	// without touching revoked_at again.
	Revoke(ctx context.Context, id string) error
	// ConsumeQuota atomically claims one access slot and stamps the last
	// access time. The filter and the increment run as a single
	// findOneAndUpdate, so two racing requests on the last slot resolve
	// to exactly one winner.
	ConsumeQuota(ctx context.Context, id string) error
	DeleteByReport(ctx context.Context, reportID string) error
	EnsureIndexes(ctx context.Context) error
}

type MongoShareRepository struct {
	Collection *mongo.Collection
}

func NewShareRepository(db *database.MongodbDB) ShareRepository {
	return &MongoShareRepository{Collection: db.DB.Collection("share_links")}
}

func (r *MongoShareRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "report_id", Value: 1}}},
	})
	return err
}

func (r *MongoShareRepository) Create(ctx context.Context, link *ShareLink) error {
	link.ID = primitive.NewObjectID()
	link.CreatedAt = time.Now().UTC()
	_, err := r.Collection.InsertOne(ctx, link)
	return err
}

func (r *MongoShareRepository) GetByToken(ctx context.Context, token string) (*ShareLink, error) {
	var link ShareLink
	if err := r.Collection.FindOne(ctx, bson.M{"token": token}).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *MongoShareRepository) GetByID(ctx context.Context, id string) (*ShareLink, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrShareNotFound
	}
	var link ShareLink
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&link); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrShareNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *MongoShareRepository) ListByReport(ctx context.Context, reportID string) ([]ShareLink, error) {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return nil, ErrShareNotFound
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.Collection.Find(ctx, bson.M{"report_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ShareLink
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoShareRepository) Revoke(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrShareNotFound
	}
	res, err := r.Collection.UpdateOne(ctx,
		bson.M{"_id": oid, "revoked": false},
		bson.M{"$set": bson.M{"revoked": true, "revoked_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either missing or already revoked; only the former is an error.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *MongoShareRepository) ConsumeQuota(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrShareNotFound
	}
	filter := bson.M{
		"_id":     oid,
		"revoked": false,
		"$or": []bson.M{
			{"max_access_count": 0},
			{"$expr": bson.M{"$lt": []string{"$current_access_count", "$max_access_count"}}},
		},
	}
	err = r.Collection.FindOneAndUpdate(ctx, filter, bson.M{
		"$inc": bson.M{"current_access_count": 1},
		"$set": bson.M{"last_accessed_at": time.Now().UTC()},
	}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrQuotaExhausted
	}
	return err
}

func (r *MongoShareRepository) DeleteByReport(ctx context.Context, reportID string) error {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return ErrShareNotFound
	}
	_, err = r.Collection.DeleteMany(ctx, bson.M{"report_id": oid})
	return err
}
