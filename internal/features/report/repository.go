package report

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
	ErrInstanceNotFound = errors.New("report instance not found")
	ErrReportNotFound   = errors.New("report not found")
)

type ReportRepository interface {
	CreateInstance(ctx context.Context, inst *ReportInstance) (string, error)
	MarkGenerating(ctx context.Context, id string) error
	CompleteInstance(ctx context.Context, id string, durationMs int64) error
	FailInstance(ctx context.Context, id string, reason string, durationMs int64) error
	SetInstanceMetadata(ctx context.Context, id string, key string, value any) error
	GetInstance(ctx context.Context, id string) (*ReportInstance, error)
	ListInstances(ctx context.Context, workspaceID, configID string, limit int64) ([]ReportInstance, error)
	ListStaleGenerating(ctx context.Context, cutoff time.Time) ([]ReportInstance, error)
	ListFailedWithArtifact(ctx context.Context, cutoff time.Time) ([]ReportInstance, error)
	DeleteInstance(ctx context.Context, id string) error

	CreateReport(ctx context.Context, rep *Report) (string, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	GetReportByInstance(ctx context.Context, instanceID string) (*Report, error)
	ListReports(ctx context.Context, workspaceID string, configID string, limit int64) ([]Report, error)
	DeleteReport(ctx context.Context, id string) error
	CountByConfig(ctx context.Context, configID string) (int64, error)
	CountInstancesByTemplate(ctx context.Context, templateID string) (int64, error)
}

type MongoReportRepository struct {
	instances *mongo.Collection
	reports   *mongo.Collection
}

func NewReportRepository(db *database.MongodbDB) ReportRepository {
	return &MongoReportRepository{
		instances: db.DB.Collection("report_instances"),
		reports:   db.DB.Collection("reports"),
	}
}

func (r *MongoReportRepository) CreateInstance(ctx context.Context, inst *ReportInstance) (string, error) {
	inst.ID = primitive.NewObjectID()
	if inst.GeneratedAt.IsZero() {
		inst.GeneratedAt = time.Now().UTC()
	}
	inst.Status = StatusPending
	if _, err := r.instances.InsertOne(ctx, inst); err != nil {
		return "", err
	}
	return inst.ID.Hex(), nil
}

func (r *MongoReportRepository) MarkGenerating(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInstanceNotFound
	}
	res, err := r.instances.UpdateOne(ctx,
		bson.M{"_id": oid, "status": StatusPending},
		bson.M{"$set": bson.M{"status": StatusGenerating}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

func (r *MongoReportRepository) CompleteInstance(ctx context.Context, id string, durationMs int64) error {
	return r.finishInstance(ctx, id, bson.M{
		"status":       StatusCompleted,
		"completed_at": time.Now().UTC(),
		"duration_ms":  durationMs,
	})
}

func (r *MongoReportRepository) FailInstance(ctx context.Context, id string, reason string, durationMs int64) error {
	return r.finishInstance(ctx, id, bson.M{
		"status":       StatusFailed,
		"completed_at": time.Now().UTC(),
		"duration_ms":  durationMs,
		"error":        reason,
	})
}

func (r *MongoReportRepository) finishInstance(ctx context.Context, id string, set bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInstanceNotFound
	}
	res, err := r.instances.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

func (r *MongoReportRepository) SetInstanceMetadata(ctx context.Context, id string, key string, value any) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInstanceNotFound
	}
	_, err = r.instances.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"metadata." + key: value}})
	return err
}

func (r *MongoReportRepository) GetInstance(ctx context.Context, id string) (*ReportInstance, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInstanceNotFound
	}
	var inst ReportInstance
	if err := r.instances.FindOne(ctx, bson.M{"_id": oid}).Decode(&inst); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrInstanceNotFound
		}
		return nil, err
	}
	return &inst, nil
}

func (r *MongoReportRepository) ListInstances(ctx context.Context, workspaceID, configID string, limit int64) ([]ReportInstance, error) {
	filter := bson.M{"workspace_id": workspaceID}
	if configID != "" {
		oid, err := primitive.ObjectIDFromHex(configID)
		if err != nil {
			return nil, ErrInstanceNotFound
		}
		filter["config_id"] = oid
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.M{"generated_at": -1}).SetLimit(limit)
	cursor, err := r.instances.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ReportInstance
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoReportRepository) ListStaleGenerating(ctx context.Context, cutoff time.Time) ([]ReportInstance, error) {
	cursor, err := r.instances.Find(ctx, bson.M{
		"status":       StatusGenerating,
		"generated_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ReportInstance
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoReportRepository) ListFailedWithArtifact(ctx context.Context, cutoff time.Time) ([]ReportInstance, error) {
	cursor, err := r.instances.Find(ctx, bson.M{
		"status":                 StatusFailed,
		"generated_at":           bson.M{"$lt": cutoff},
		"metadata.artifact_path": bson.M{"$exists": true, "$ne": ""},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []ReportInstance
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoReportRepository) DeleteInstance(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInstanceNotFound
	}
	_, err = r.instances.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *MongoReportRepository) CreateReport(ctx context.Context, rep *Report) (string, error) {
	rep.ID = primitive.NewObjectID()
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = time.Now().UTC()
	}
	if _, err := r.reports.InsertOne(ctx, rep); err != nil {
		return "", err
	}
	return rep.ID.Hex(), nil
}

func (r *MongoReportRepository) GetReport(ctx context.Context, id string) (*Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrReportNotFound
	}
	var rep Report
	if err := r.reports.FindOne(ctx, bson.M{"_id": oid}).Decode(&rep); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (r *MongoReportRepository) GetReportByInstance(ctx context.Context, instanceID string) (*Report, error) {
	oid, err := primitive.ObjectIDFromHex(instanceID)
	if err != nil {
		return nil, ErrReportNotFound
	}
	var rep Report
	if err := r.reports.FindOne(ctx, bson.M{"instance_id": oid}).Decode(&rep); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrReportNotFound
		}
		return nil, err
	}
	return &rep, nil
}

func (r *MongoReportRepository) ListReports(ctx context.Context, workspaceID string, configID string, limit int64) ([]Report, error) {
	filter := bson.M{"workspace_id": workspaceID}
	if configID != "" {
		oid, err := primitive.ObjectIDFromHex(configID)
		if err != nil {
			return nil, ErrReportNotFound
		}
		filter["config_id"] = oid
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	opts := options.Find().SetSort(bson.M{"generated_at": -1}).SetLimit(limit)
	cursor, err := r.reports.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Report
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoReportRepository) DeleteReport(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrReportNotFound
	}
	res, err := r.reports.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *MongoReportRepository) CountByConfig(ctx context.Context, configID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(configID)
	if err != nil {
		return 0, nil
	}
	return r.reports.CountDocuments(ctx, bson.M{"config_id": oid})
}

// CountInstancesByTemplate covers every generated report too: each report
// row registers a completed instance carrying the template id.
func (r *MongoReportRepository) CountInstancesByTemplate(ctx context.Context, templateID string) (int64, error) {
	oid, err := primitive.ObjectIDFromHex(templateID)
	if err != nil {
		return 0, nil
	}
	return r.instances.CountDocuments(ctx, bson.M{"template_id": oid})
}
