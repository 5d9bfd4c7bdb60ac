package reportconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/features/template"
	"go-reporting/pkg/utils"

	"github.com/robfig/cron/v3"
)

type ConfigService interface {
	CreateConfig(ctx context.Context, cfg *ReportConfig) error
	GetConfig(ctx context.Context, id string) (*ReportConfig, error)
	ListConfigs(ctx context.Context, workspaceID string) ([]ReportConfig, error)
	UpdateConfig(ctx context.Context, id string, cfg *ReportConfig) error
	DeleteConfig(ctx context.Context, id string) error
}

type ConfigServiceImpl struct {
	Repo         ConfigRepository
	TemplateRepo template.TemplateRepository
}

func NewConfigService(repo ConfigRepository, templateRepo template.TemplateRepository) ConfigService {
	return &ConfigServiceImpl{
		Repo:         repo,
		TemplateRepo: templateRepo,
	}
}

func (s *ConfigServiceImpl) CreateConfig(ctx context.Context, cfg *ReportConfig) error {
	if err := s.validate(ctx, cfg); err != nil {
		return err
	}

	if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); ok {
		cfg.OwnerID = claims.UserID
		cfg.WorkspaceID = claims.WorkspaceID
	}

	initSchedule(&cfg.Schedule)
	return s.Repo.Create(ctx, cfg)
}

func (s *ConfigServiceImpl) GetConfig(ctx context.Context, id string) (*ReportConfig, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *ConfigServiceImpl) ListConfigs(ctx context.Context, workspaceID string) ([]ReportConfig, error) {
	return s.Repo.List(ctx, workspaceID)
}

func (s *ConfigServiceImpl) UpdateConfig(ctx context.Context, id string, cfg *ReportConfig) error {
	current, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.validate(ctx, cfg); err != nil {
		return err
	}

	cfg.ID = current.ID
	cfg.OwnerID = current.OwnerID
	cfg.WorkspaceID = current.WorkspaceID

	// A changed schedule restarts bookkeeping from scratch; a consumed once
	// schedule stays consumed (re-enabling needs a new config).
	if scheduleChanged(current.Schedule, cfg.Schedule) {
		cfg.Schedule.Consumed = current.Schedule.Type == ScheduleOnce && current.Schedule.Consumed
		initSchedule(&cfg.Schedule)
	} else {
		cfg.Schedule = current.Schedule
	}

	return s.Repo.Update(ctx, cfg)
}

func (s *ConfigServiceImpl) DeleteConfig(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *ConfigServiceImpl) validate(ctx context.Context, cfg *ReportConfig) error {
	if cfg.Name == "" {
		return errors.New("config name is required")
	}
	if cfg.TemplateID.IsZero() {
		return errors.New("template_id is required")
	}
	if _, err := s.TemplateRepo.GetByID(ctx, cfg.TemplateID.Hex()); err != nil {
		return fmt.Errorf("template not found: %s", cfg.TemplateID.Hex())
	}
	if cfg.RecordType == "" {
		return errors.New("record_type is required")
	}

	if err := common_models.ValidateFilters(cfg.Filters); err != nil {
		return err
	}

	switch cfg.Format.Type {
	case FormatHTML, FormatText, FormatCSV, FormatXLSX:
	default:
		return fmt.Errorf("unsupported format type: %s", cfg.Format.Type)
	}

	switch cfg.Delivery.Method {
	case DeliveryStorage:
	case DeliveryEmail:
		if len(cfg.EnabledRecipients()) == 0 {
			return errors.New("email delivery requires at least one enabled recipient")
		}
	default:
		return fmt.Errorf("unsupported delivery method: %s", cfg.Delivery.Method)
	}

	switch cfg.Schedule.Type {
	case ScheduleOnce:
		if cfg.Schedule.RunAt == nil {
			return errors.New("once schedule requires run_at")
		}
	case ScheduleRecurring:
		if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
			return fmt.Errorf("invalid cron expression: %w", err)
		}
	default:
		return fmt.Errorf("unsupported schedule type: %s", cfg.Schedule.Type)
	}

	return nil
}

// initSchedule computes the first next_run for a freshly created or
// rescheduled config.
func initSchedule(sch *Schedule) {
	sch.LastRun = nil
	if sch.Consumed {
		sch.NextRun = nil
		return
	}

	switch sch.Type {
	case ScheduleOnce:
		sch.NextRun = sch.RunAt
	case ScheduleRecurring:
		// Validated earlier; ParseStandard cannot fail here
		schedule, _ := cron.ParseStandard(sch.Cron)
		next := schedule.Next(time.Now())
		sch.NextRun = &next
	}
}

func scheduleChanged(old, new Schedule) bool {
	if old.Type != new.Type || old.Cron != new.Cron {
		return true
	}
	switch {
	case old.RunAt == nil && new.RunAt == nil:
		return false
	case old.RunAt == nil || new.RunAt == nil:
		return true
	default:
		return !old.RunAt.Equal(*new.RunAt)
	}
}
