package reportconfig

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

var ErrNotFound = errors.New("report config not found")

type ConfigRepository interface {
	Create(ctx context.Context, cfg *ReportConfig) error
	GetByID(ctx context.Context, id string) (*ReportConfig, error)
	List(ctx context.Context, workspaceID string) ([]ReportConfig, error)
	Update(ctx context.Context, cfg *ReportConfig) error
	Delete(ctx context.Context, id string) error

	// ListDue returns enabled configs whose next_run has passed and whose
	// once-schedules are not yet consumed. The scheduler polls through this.
	ListDue(ctx context.Context, now time.Time) ([]ReportConfig, error)
	UpdateScheduleState(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time, consumed bool) error
	CountByTemplate(ctx context.Context, templateID string) (int64, error)
}

type ConfigRepositoryImpl struct {
	Collection *mongo.Collection
}

func NewConfigRepository(mongodb *database.MongodbDB) ConfigRepository {
	return &ConfigRepositoryImpl{
		Collection: mongodb.DB.Collection("report_configs"),
	}
}

func (r *ConfigRepositoryImpl) Create(ctx context.Context, cfg *ReportConfig) error {
	if cfg.ID.IsZero() {
		cfg.ID = primitive.NewObjectID()
	}
	cfg.CreatedAt = time.Now()
	cfg.UpdatedAt = cfg.CreatedAt
	_, err := r.Collection.InsertOne(ctx, cfg)
	return err
}

func (r *ConfigRepositoryImpl) GetByID(ctx context.Context, id string) (*ReportConfig, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var cfg ReportConfig
	err = r.Collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&cfg)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (r *ConfigRepositoryImpl) List(ctx context.Context, workspaceID string) ([]ReportConfig, error) {
	query := bson.M{}
	if workspaceID != "" {
		query["workspace_id"] = workspaceID
	}

	cursor, err := r.Collection.Find(ctx, query, options.Find().SetSort(bson.M{"created_at": -1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []ReportConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *ConfigRepositoryImpl) Update(ctx context.Context, cfg *ReportConfig) error {
	cfg.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":        cfg.Name,
			"description": cfg.Description,
			"template_id": cfg.TemplateID,
			"record_type": cfg.RecordType,
			"schedule":    cfg.Schedule,
			"recipients":  cfg.Recipients,
			"filters":     cfg.Filters,
			"format":      cfg.Format,
			"delivery":    cfg.Delivery,
			"enabled":     cfg.Enabled,
			"updated_at":  cfg.UpdatedAt,
		},
	}
	res, err := r.Collection.UpdateOne(ctx, bson.M{"_id": cfg.ID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ConfigRepositoryImpl) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
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

func (r *ConfigRepositoryImpl) ListDue(ctx context.Context, now time.Time) ([]ReportConfig, error) {
	query := bson.M{
		"enabled":           true,
		"schedule.consumed": false,
		"schedule.next_run": bson.M{"$lte": now},
	}

	cursor, err := r.Collection.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var configs []ReportConfig
	if err := cursor.All(ctx, &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

func (r *ConfigRepositoryImpl) UpdateScheduleState(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time, consumed bool) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	set := bson.M{
		"schedule.last_run": lastRun,
		"schedule.consumed": consumed,
	}
	unset := bson.M{}
	if nextRun != nil {
		set["schedule.next_run"] = *nextRun
	} else {
		unset["schedule.next_run"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	_, err = r.Collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *ConfigRepositoryImpl) CountByTemplate(ctx context.Context, templateID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		return 0, nil
	}
	return r.Collection.CountDocuments(ctx, bson.M{"template_id": oid})
}
