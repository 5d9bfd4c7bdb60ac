package share

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	// ShareTypeEmail shares are minted by the generator when a config
	// delivers by email; link and download shares are created by hand.
	ShareTypeLink     = "link"
	ShareTypeEmail    = "email"
	ShareTypeDownload = "download"

	PermissionView     = "view"
	PermissionDownload = "download"
	PermissionEmail    = "email"
)

// ShareLink grants bearer access to one report. The token is the whole
// credential; everything else narrows what the bearer may do.
type ShareLink struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ReportID           primitive.ObjectID `json:"reportId" bson:"report_id"`
	Token              string             `json:"token" bson:"token"`
	Type               string             `json:"type" bson:"type"`
	Permissions        []string           `json:"permissions" bson:"permissions"`
	ExpiresAt          *time.Time         `json:"expiresAt,omitempty" bson:"expires_at,omitempty"`
	MaxAccessCount     int                `json:"maxAccessCount" bson:"max_access_count"` // 0 = unlimited
	CurrentAccessCount int                `json:"currentAccessCount" bson:"current_access_count"`
	PasswordHash       string             `json:"-" bson:"password_hash,omitempty"`
	AllowedIPs         []string           `json:"allowedIps,omitempty" bson:"allowed_ips,omitempty"`
	Revoked            bool               `json:"revoked" bson:"revoked"`
	RevokedAt          *time.Time         `json:"revokedAt,omitempty" bson:"revoked_at,omitempty"`
	LastAccessedAt     *time.Time         `json:"lastAccessedAt,omitempty" bson:"last_accessed_at,omitempty"`
	CreatedBy          string             `json:"createdBy" bson:"created_by"`
	WorkspaceID        string             `json:"workspaceId,omitempty" bson:"workspace_id,omitempty"`
	CreatedAt          time.Time          `json:"createdAt" bson:"created_at"`
}

func (s *ShareLink) HasPermission(p string) bool {
	for _, perm := range s.Permissions {
		if perm == p {
			return true
		}
	}
	return false
}
