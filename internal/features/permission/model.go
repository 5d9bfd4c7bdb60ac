package permission

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	common_models "go-reporting/internal/common/models"
)

const (
	RoleViewer = "viewer"
	RoleEditor = "editor"
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
)

// WorkspaceMember binds a user to a workspace with one role.
type WorkspaceMember struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID      string             `json:"userId" bson:"user_id"`
	WorkspaceID string             `json:"workspaceId" bson:"workspace_id"`
	Role        string             `json:"role" bson:"role"`
	AddedBy     string             `json:"addedBy,omitempty" bson:"added_by,omitempty"`
	CreatedAt   time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updatedAt" bson:"updated_at"`
}

// roleCapabilities is the whole authorization model: a role either carries
// a capability or it does not.
var roleCapabilities = map[string]map[string]bool{
	RoleViewer: {
		common_models.CapabilityRead: true,
	},
	RoleEditor: {
		common_models.CapabilityRead:  true,
		common_models.CapabilityWrite: true,
	},
	RoleOwner: {
		common_models.CapabilityRead:   true,
		common_models.CapabilityWrite:  true,
		common_models.CapabilityDelete: true,
		common_models.CapabilityManage: true,
	},
	RoleAdmin: {
		common_models.CapabilityRead:   true,
		common_models.CapabilityWrite:  true,
		common_models.CapabilityDelete: true,
		common_models.CapabilityManage: true,
	},
}

// RoleGrants reports whether a role carries a capability. Unknown roles
// grant nothing.
func RoleGrants(role, capability string) bool {
	return roleCapabilities[role][capability]
}

func ValidRole(role string) bool {
	_, ok := roleCapabilities[role]
	return ok
}
