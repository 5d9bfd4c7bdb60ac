package permission

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

var ErrMemberNotFound = errors.New("workspace member not found")

type MemberRepository interface {
	Upsert(ctx context.Context, member *WorkspaceMember) error
	Get(ctx context.Context, userID, workspaceID string) (*WorkspaceMember, error)
	ListByWorkspace(ctx context.Context, workspaceID string) ([]WorkspaceMember, error)
	Remove(ctx context.Context, userID, workspaceID string) error
	EnsureIndexes(ctx context.Context) error
}

type MongoMemberRepository struct {
	Collection *mongo.Collection
}

func NewMemberRepository(db *database.MongodbDB) MemberRepository {
	return &MongoMemberRepository{Collection: db.DB.Collection("workspace_members")}
}

func (r *MongoMemberRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.Collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "workspace_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (r *MongoMemberRepository) Upsert(ctx context.Context, member *WorkspaceMember) error {
	now := time.Now().UTC()
	filter := bson.M{"user_id": member.UserID, "workspace_id": member.WorkspaceID}
	update := bson.M{
		"$set": bson.M{
			"role":       member.Role,
			"added_by":   member.AddedBy,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"_id":        primitive.NewObjectID(),
			"created_at": now,
		},
	}
	_, err := r.Collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *MongoMemberRepository) Get(ctx context.Context, userID, workspaceID string) (*WorkspaceMember, error) {
	var member WorkspaceMember
	err := r.Collection.FindOne(ctx, bson.M{"user_id": userID, "workspace_id": workspaceID}).Decode(&member)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MongoMemberRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]WorkspaceMember, error) {
	cursor, err := r.Collection.Find(ctx, bson.M{"workspace_id": workspaceID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []WorkspaceMember
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *MongoMemberRepository) Remove(ctx context.Context, userID, workspaceID string) error {
	res, err := r.Collection.DeleteOne(ctx, bson.M{"user_id": userID, "workspace_id": workspaceID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrMemberNotFound
	}
	return nil
}
