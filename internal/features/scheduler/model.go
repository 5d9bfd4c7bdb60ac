package scheduler

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	OccurrenceTriggered = "triggered"
	OccurrenceFailed    = "failed"
)

// Occurrence is the claim record for a single scheduled firing of a report
// config. Its key is unique per (config, due time), so concurrent scheduler
// workers can race on the insert and exactly one wins.
type Occurrence struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ConfigID   primitive.ObjectID `json:"configId" bson:"config_id"`
	Key        string             `json:"key" bson:"key"`
	DueAt      time.Time          `json:"dueAt" bson:"due_at"`
	ClaimedAt  time.Time          `json:"claimedAt" bson:"claimed_at"`
	Status     string             `json:"status" bson:"status"`
	Attempts   int                `json:"attempts" bson:"attempts"`
	InstanceID string             `json:"instanceId,omitempty" bson:"instance_id,omitempty"`
	Error      string             `json:"error,omitempty" bson:"error,omitempty"`
}

// OccurrenceKey identifies one firing of one config. Two workers that see
// the same due config at the same due time compute the same key.
func OccurrenceKey(configID primitive.ObjectID, dueAt time.Time) string {
	return fmt.Sprintf("%s@%d", configID.Hex(), dueAt.Unix())
}
