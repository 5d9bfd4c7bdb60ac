package models

import (
	"fmt"
	"time"
)

// Filter is a single field/operator/value triple applied when pulling
// source records for a report. Operators form a closed set; anything else
// is rejected both at config save time and at query compile time.
type Filter struct {
	Field    string      `json:"field" bson:"field"`
	Operator string      `json:"operator" bson:"operator"` // eq, ne, gt, lt, gte, lte, in, contains, starts_with
	Value    interface{} `json:"value" bson:"value"`
}

var validOperators = map[string]bool{
	"eq":          true,
	"ne":          true,
	"gt":          true,
	"lt":          true,
	"gte":         true,
	"lte":         true,
	"in":          true,
	"contains":    true,
	"starts_with": true,
}

// ValidateFilters rejects unknown operators and empty field names.
func ValidateFilters(filters []Filter) error {
	for _, f := range filters {
		if f.Field == "" {
			return fmt.Errorf("filter field is required")
		}
		if !validOperators[f.Operator] {
			return fmt.Errorf("unsupported filter operator: %s", f.Operator)
		}
	}
	return nil
}

// Capability actions resolved from a subject's workspace membership role.
const (
	CapabilityRead   = "read"
	CapabilityWrite  = "write"
	CapabilityDelete = "delete"
	CapabilityManage = "manage"
)

type Log struct {
	Message      string    `bson:"message" json:"message"`
	IpAddress    string    `bson:"ip_address" json:"ip_address"`
	ActorID      string    `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	LogLevelId   int       `bson:"log_level_id" json:"log_level_id"`
	Caller       string    `bson:"caller,omitempty" json:"caller,omitempty"`
	CreatedOnUtc time.Time `bson:"created_on_utc" json:"created_on_utc"`
}
