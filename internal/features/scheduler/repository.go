package scheduler

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

// ErrAlreadyClaimed means another worker owns this occurrence.
var ErrAlreadyClaimed = errors.New("occurrence already claimed")

type OccurrenceRepository interface {
	// Claim inserts the occurrence. The unique index on key turns the
	// insert into an atomic claim: the duplicate-key loser backs off.
	Claim(ctx context.Context, occ *Occurrence) error
	SetOutcome(ctx context.Context, key, status, instanceID, errMsg string, attempts int) error
	List(ctx context.Context, configID string, limit int64) ([]Occurrence, error)
	EnsureIndexes(ctx context.Context) error
}

type MongoOccurrenceRepository struct {
	Collection *mongo.Collection
}

func NewOccurrenceRepository(db *database.MongodbDB) OccurrenceRepository {
	return &MongoOccurrenceRepository{Collection: db.DB.Collection("schedule_occurrences")}
}

func (r *MongoOccurrenceRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "config_id", Value: 1}, {Key: "due_at", Value: -1}},
		},
	})
	return err
}

func (r *MongoOccurrenceRepository) Claim(ctx context.Context, occ *Occurrence) error {
	occ.ID = primitive.NewObjectID()
	occ.ClaimedAt = time.Now().UTC()
	if _, err := r.Collection.InsertOne(ctx, occ); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyClaimed
		}
		return err
	}
	return nil
}

func (r *MongoOccurrenceRepository) SetOutcome(ctx context.Context, key, status, instanceID, errMsg string, attempts int) error {
	_, err := r.Collection.UpdateOne(ctx, bson.M{"key": key}, bson.M{"$set": bson.M{
		"status":      status,
		"instance_id": instanceID,
		"error":       errMsg,
		"attempts":    attempts,
	}})
	return err
}

func (r *MongoOccurrenceRepository) List(ctx context.Context, configID string, limit int64) ([]Occurrence, error) {
	filter := bson.M{}
	if configID != "" {
		oid, err := primitive.ObjectIDFromHex(configID)
		if err != nil {
			return nil, errors.New("invalid config id")
		}
		filter["config_id"] = oid
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.M{"due_at": -1}).SetLimit(limit)
	cursor, err := r.Collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Occurrence
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
