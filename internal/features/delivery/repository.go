package delivery

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

var ErrDeliveryNotFound = errors.New("delivery not found")

type DeliveryRepository interface {
	Create(ctx context.Context, d *ShareEmailDelivery) (string, error)
	GetByID(ctx context.Context, id string) (*ShareEmailDelivery, error)
	ListByReport(ctx context.Context, reportID string) ([]ShareEmailDelivery, error)
	RecordAttempt(ctx context.Context, id string, status string, attempts int, lastError string, sentAt *time.Time) error
	Delete(ctx context.Context, id string) error
	DeleteByReport(ctx context.Context, reportID string) error
}

type MongoDeliveryRepository struct {
	Collection *mongo.Collection
}

func NewDeliveryRepository(db *database.MongodbDB) DeliveryRepository {
	return &MongoDeliveryRepository{Collection: db.DB.Collection("share_email_deliveries")}
}

func (r *MongoDeliveryRepository) Create(ctx context.Context, d *ShareEmailDelivery) (string, error) {
	d.ID = primitive.NewObjectID()
	d.Status = DeliveryPending
	d.CreatedAt = time.Now().UTC()
	d.UpdatedAt = d.CreatedAt
	if _, err := r.Collection.InsertOne(ctx, d); err != nil {
		return "", err
	}
	return d.ID.Hex(), nil
}

func (r *MongoDeliveryRepository) GetByID(ctx context.Context, id string) (*ShareEmailDelivery, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrDeliveryNotFound
	}
	var d ShareEmailDelivery
	if err := r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *MongoDeliveryRepository) ListByReport(ctx context.Context, reportID string) ([]ShareEmailDelivery, error) {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return nil, ErrDeliveryNotFound
	}
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := r.Collection.Find(ctx, bson.M{"report_id": oid}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ShareEmailDelivery
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoDeliveryRepository) RecordAttempt(ctx context.Context, id string, status string, attempts int, lastError string, sentAt *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrDeliveryNotFound
	}
	set := bson.M{
		"status":     status,
		"attempts":   attempts,
		"last_error": lastError,
		"updated_at": time.Now().UTC(),
	}
	if sentAt != nil {
		set["sent_at"] = *sentAt
	}
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

func (r *MongoDeliveryRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrDeliveryNotFound
	}
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrDeliveryNotFound
	}
	return nil
}

func (r *MongoDeliveryRepository) DeleteByReport(ctx context.Context, reportID string) error {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		return ErrDeliveryNotFound
	}
	_, err = r.Collection.DeleteMany(ctx, bson.M{"report_id": oid})
	return err
}
