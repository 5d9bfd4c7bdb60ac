package delivery

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// ShareEmailDelivery tracks one emailed report share. One row covers the
// whole recipient list of a send call; attempts count sends of that list,
// not individual recipients.
type ShareEmailDelivery struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ShareID    primitive.ObjectID `json:"shareId" bson:"share_id"`
	ReportID   primitive.ObjectID `json:"reportId" bson:"report_id"`
	Recipients []string           `json:"recipients" bson:"recipients"`
	Subject    string             `json:"subject" bson:"subject"`
	Body       string             `json:"body" bson:"body"`
	ShareURL   string             `json:"shareUrl" bson:"share_url"`
	Status     string             `json:"status" bson:"status"`
	Attempts   int                `json:"attempts" bson:"attempts"`
	LastError  string             `json:"lastError,omitempty" bson:"last_error,omitempty"`
	CreatedAt  time.Time          `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time          `json:"updatedAt" bson:"updated_at"`
	SentAt     *time.Time         `json:"sentAt,omitempty" bson:"sent_at,omitempty"`
}
