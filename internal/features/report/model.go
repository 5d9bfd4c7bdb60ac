package report

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Instance lifecycle states. An instance is created pending, moves to
// generating before any external I/O happens, and finishes in exactly one
// of completed or failed.
const (
	StatusPending    = "pending"
	StatusGenerating = "generating"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ReportInstance records a single generation attempt for a report config.
type ReportInstance struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConfigID    primitive.ObjectID `json:"configId" bson:"config_id"`
	TemplateID  primitive.ObjectID `json:"templateId" bson:"template_id"`
	WorkspaceID string             `json:"workspaceId" bson:"workspace_id"`
	Status      string             `json:"status" bson:"status"`
	Manual      bool               `json:"manual" bson:"manual"`
	GeneratedAt time.Time          `json:"generatedAt" bson:"generated_at"`
	CompletedAt *time.Time         `json:"completedAt,omitempty" bson:"completed_at,omitempty"`
	DurationMs  int64              `json:"durationMs" bson:"duration_ms"`
	Error       string             `json:"error,omitempty" bson:"error,omitempty"`
	Metadata    map[string]any     `json:"metadata,omitempty" bson:"metadata,omitempty"`
}

// Report is the durable artifact row a completed instance registers.
type Report struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	InstanceID  primitive.ObjectID `json:"instanceId" bson:"instance_id"`
	ConfigID    primitive.ObjectID `json:"configId" bson:"config_id"`
	Name        string             `json:"name" bson:"name"`
	Format      string             `json:"format" bson:"format"`
	FilePath    string             `json:"filePath" bson:"file_path"`
	FileSize    int64              `json:"fileSize" bson:"file_size"`
	OwnerID     string             `json:"ownerId" bson:"owner_id"`
	WorkspaceID string             `json:"workspaceId" bson:"workspace_id"`
	GeneratedAt time.Time          `json:"generatedAt" bson:"generated_at"`
}
