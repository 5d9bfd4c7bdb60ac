package template

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TemplateVariable declares one variable a template expects. Required and
// default handling live here, validated once at generation time, instead of
// being scattered across callers.
type TemplateVariable struct {
	Name     string      `json:"name" bson:"name"`
	Type     string      `json:"type" bson:"type"` // text, number, boolean, date, list, map
	Required bool        `json:"required" bson:"required"`
	Default  interface{} `json:"default,omitempty" bson:"default,omitempty"`
}

// ReportTemplate is the body + declared variables a report is rendered from.
// Once referenced by a generated report it only changes through a versioned
// update, which snapshots the previous revision.
type ReportTemplate struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Category  string             `json:"category" bson:"category"` // e.g. "performance", "security", "summary"
	Body      string             `json:"body" bson:"body"`
	Variables []TemplateVariable `json:"variables" bson:"variables"`
	Version   int                `json:"version" bson:"version"`
	IsSystem  bool               `json:"is_system" bson:"is_system"`
	CreatedBy string             `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// TemplateVersion is an immutable snapshot appended on every versioned update.
type TemplateVersion struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	TemplateID primitive.ObjectID `json:"template_id" bson:"template_id"`
	Version    int                `json:"version" bson:"version"`
	Body       string             `json:"body" bson:"body"`
	Variables  []TemplateVariable `json:"variables" bson:"variables"`
	CreatedBy  string             `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
}
