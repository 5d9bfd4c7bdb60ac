package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AccessView     = "view"
	AccessDownload = "download"
	AccessShare    = "share"
)

// AccessLogEntry is one immutable row in the access audit trail. Entries
// are appended and read, never updated; the only delete is the cascade
// that runs when the owning report is removed.
type AccessLogEntry struct {
	ID           primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	ReportID     primitive.ObjectID  `json:"reportId" bson:"report_id"`
	ShareID      *primitive.ObjectID `json:"shareId,omitempty" bson:"share_id,omitempty"`
	AccessType   string              `json:"accessType" bson:"access_type"`
	Success      bool                `json:"success" bson:"success"`
	ErrorMessage string              `json:"errorMessage,omitempty" bson:"error_message,omitempty"`
	Actor        string              `json:"actor,omitempty" bson:"actor,omitempty"`
	IP           string              `json:"ip" bson:"ip"`
	UserAgent    string              `json:"userAgent,omitempty" bson:"user_agent,omitempty"`
	Timestamp    time.Time           `json:"timestamp" bson:"timestamp"`
}

// ListFilter narrows an audit query. Zero values mean "any".
type ListFilter struct {
	ReportID   string
	ShareID    string
	AccessType string
	Success    *bool
	From       *time.Time
	To         *time.Time
}
