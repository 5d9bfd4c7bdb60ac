package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	StatusActive    = "active"
	StatusSuspended = "suspended"
)

// User is an operator account. Workspace membership and the role it
// carries live in the permission feature; the Roles slice here is only
// baked into issued tokens.
type User struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username     string             `json:"username" bson:"username"`
	Email        string             `json:"email" bson:"email"`
	PasswordHash string             `json:"-" bson:"password_hash"`
	WorkspaceID  string             `json:"workspace_id" bson:"workspace_id"`
	Roles        []string           `json:"roles" bson:"roles"`
	Status       string             `json:"status" bson:"status"`
	CreatedAt    time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at" bson:"updated_at"`
}
