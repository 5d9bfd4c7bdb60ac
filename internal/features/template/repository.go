package template

import (
	"context"
	"errors"
	"time"

	"go-reporting/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("template not found")

type TemplateRepository interface {
	Create(ctx context.Context, t *ReportTemplate) error
	GetByID(ctx context.Context, id string) (*ReportTemplate, error)
	List(ctx context.Context, category string) ([]ReportTemplate, error)
	Update(ctx context.Context, t *ReportTemplate) error
	Delete(ctx context.Context, id string) error
	AppendVersion(ctx context.Context, v *TemplateVersion) error
	ListVersions(ctx context.Context, templateID string) ([]TemplateVersion, error)
}

type TemplateRepositoryImpl struct {
	Collection *mongo.Collection
	Versions   *mongo.Collection
}

func NewTemplateRepository(mongodb *database.MongodbDB) TemplateRepository {
	return &TemplateRepositoryImpl{
		Collection: mongodb.DB.Collection("report_templates"),
		Versions:   mongodb.DB.Collection("template_versions"),
	}
}

func (r *TemplateRepositoryImpl) Create(ctx context.Context, t *ReportTemplate) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.Version = 1
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	_, err := r.Collection.InsertOne(ctx, t)
	return err
}

func (r *TemplateRepositoryImpl) GetByID(ctx context.Context, id string) (*ReportTemplate, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var t ReportTemplate
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *TemplateRepositoryImpl) List(ctx context.Context, category string) ([]ReportTemplate, error) {
	query := bson.M{}
	if category != "" {
		query["category"] = category
	}

	cursor, err := r.Collection.Find(ctx, query, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var templates []ReportTemplate
	if err := cursor.All(ctx, &templates); err != nil {
		return nil, err
	}
	return templates, nil
}

func (r *TemplateRepositoryImpl) Update(ctx context.Context, t *ReportTemplate) error {
	t.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":       t.Name,
			"category":   t.Category,
			"body":       t.Body,
			"variables":  t.Variables,
			"version":    t.Version,
			"updated_at": t.UpdatedAt,
		},
	}
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": t.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TemplateRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	if _, err := r.Versions.DeleteMany(ctx, bson.M{"template_id": oid}); err != nil {
		return err
	}
	res, err := r.Collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TemplateRepositoryImpl) AppendVersion(ctx context.Context, v *TemplateVersion) error {
	if v.ID.IsZero() {
		v.ID = primitive.NewObjectID()
	}
	v.CreatedAt = time.Now()
	_, err := r.Versions.InsertOne(ctx, v)
	return err
}

func (r *TemplateRepositoryImpl) ListVersions(ctx context.Context, templateID string) ([]TemplateVersion, error) {
	oid, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		return nil, ErrNotFound
	}

	cursor, err := r.Versions.Find(ctx, bson.M{"template_id": oid}, options.Find().SetSort(bson.M{"version": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var versions []TemplateVersion
	if err := cursor.All(ctx, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}
