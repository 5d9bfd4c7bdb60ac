package reportconfig

import (
	"time"

	common_models "go-reporting/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ScheduleOnce      = "once"
	ScheduleRecurring = "recurring"

	FormatHTML = "html"
	FormatText = "text"
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	DeliveryStorage = "storage"
	DeliveryEmail   = "email"
)

// Schedule is either a one-shot execution timestamp or a recurring
// cron expression. A once schedule is consumed permanently after its single
// trigger; re-enabling means creating a new config.
type Schedule struct {
	Type     string     `json:"type" bson:"type"` // once | recurring
	RunAt    *time.Time `json:"run_at,omitempty" bson:"run_at,omitempty"`
	Cron     string     `json:"cron,omitempty" bson:"cron,omitempty"`
	Consumed bool       `json:"consumed" bson:"consumed"`
	LastRun  *time.Time `json:"last_run,omitempty" bson:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty" bson:"next_run,omitempty"`
}

type Recipient struct {
	Email   string `json:"email" bson:"email"`
	Enabled bool   `json:"enabled" bson:"enabled"`
}

type Format struct {
	Type    string         `json:"type" bson:"type"` // html | text | csv | xlsx
	Columns []string       `json:"columns,omitempty" bson:"columns,omitempty"`
	Options map[string]any `json:"options,omitempty" bson:"options,omitempty"`
}

type Delivery struct {
	Method  string `json:"method" bson:"method"` // storage | email
	Subject string `json:"subject,omitempty" bson:"subject,omitempty"`
	Body    string `json:"body,omitempty" bson:"body,omitempty"`
}

// ReportConfig is a named, reusable generation configuration.
type ReportConfig struct {
	ID          primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	Name        string                 `json:"name" bson:"name"`
	Description string                 `json:"description,omitempty" bson:"description,omitempty"`
	TemplateID  primitive.ObjectID     `json:"template_id" bson:"template_id"`
	RecordType  string                 `json:"record_type" bson:"record_type"` // source collection of analysis records
	Schedule    Schedule               `json:"schedule" bson:"schedule"`
	Recipients  []Recipient            `json:"recipients,omitempty" bson:"recipients,omitempty"`
	Filters     []common_models.Filter `json:"filters,omitempty" bson:"filters,omitempty"`
	Format      Format                 `json:"format" bson:"format"`
	Delivery    Delivery               `json:"delivery" bson:"delivery"`
	Enabled     bool                   `json:"enabled" bson:"enabled"`
	OwnerID     string                 `json:"owner_id" bson:"owner_id"`
	WorkspaceID string                 `json:"workspace_id,omitempty" bson:"workspace_id,omitempty"`
	CreatedAt   time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" bson:"updated_at"`
}

// EnabledRecipients returns the active delivery targets in declared order.
func (c *ReportConfig) EnabledRecipients() []string {
	var out []string
	for _, r := range c.Recipients {
		if r.Enabled && r.Email != "" {
			out = append(out, r.Email)
		}
	}
	return out
}
