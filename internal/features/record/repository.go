package record

import (
	"context"
	"fmt"

	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MaxPageSize bounds any single query. The generator always works on a
// bounded page of source records.
const MaxPageSize = 1000

// Store is the external record-store collaborator: the report generator
// pulls filtered pages of analysis records through it, treating the record
// shape as opaque maps.
type Store interface {
	Query(ctx context.Context, recordType string, filters []common_models.Filter, sortBy, sortOrder string, page, limit int64) ([]map[string]any, int64, error)
	Get(ctx context.Context, recordType, id string) (map[string]any, error)
	Create(ctx context.Context, recordType string, data map[string]any) (string, error)
	Update(ctx context.Context, recordType, id string, patch map[string]any) error
	Delete(ctx context.Context, recordType, id string) error
}

type MongoStore struct {
	DB *mongo.Database
}

func NewStore(mongodb *database.MongodbDB) Store {
	return &MongoStore{DB: mongodb.DB}
}

func (s *MongoStore) Query(ctx context.Context, recordType string, filters []common_models.Filter, sortBy, sortOrder string, page, limit int64) ([]map[string]any, int64, error) {
	query, err := CompileFilters(filters)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if sortBy == "" {
		sortBy = "created_at"
	}
	order := -1
	if sortOrder == "asc" {
		order = 1
	}

	col := s.DB.Collection(recordType)
	opts := options.Find().
		SetLimit(limit).
		SetSkip((page - 1) * limit).
		SetSort(bson.D{{Key: sortBy, Value: order}})

	cursor, err := col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var results []map[string]any
	if err := cursor.All(ctx, &results); err != nil {
		return nil, 0, err
	}

	total, err := col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	return results, total, nil
}

func (s *MongoStore) Get(ctx context.Context, recordType, id string) (map[string]any, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid record id: %w", err)
	}

	var result map[string]any
	err = s.DB.Collection(recordType).FindOne(ctx, bson.M{"_id": oid}).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("record not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *MongoStore) Create(ctx context.Context, recordType string, data map[string]any) (string, error) {
	res, err := s.DB.Collection(recordType).InsertOne(ctx, data)
	if err != nil {
		return "", err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return fmt.Sprintf("%v", res.InsertedID), nil
}

func (s *MongoStore) Update(ctx context.Context, recordType, id string, patch map[string]any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}
	_, err = s.DB.Collection(recordType).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": patch})
	return err
}

func (s *MongoStore) Delete(ctx context.Context, recordType, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid record id: %w", err)
	}
	_, err = s.DB.Collection(recordType).DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
