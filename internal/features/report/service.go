package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-reporting/internal/config"
	"go-reporting/internal/features/record"
	"go-reporting/internal/features/reportconfig"
	"go-reporting/internal/features/template"
	"go-reporting/internal/storage"
	"go-reporting/pkg/utils"
)

var (
	ErrConfigDisabled = errors.New("report config is disabled")
	ErrNotOwner       = errors.New("not the report owner")
)

// EmailHandoff hands a freshly generated report to the sharing layer for
// email delivery. Wired in main to avoid a dependency cycle with the share
// feature. Handoff failures never change the instance outcome.
type EmailHandoff interface {
	SendReportEmail(ctx context.Context, reportID string, recipients []string, subject, body string) error
}

// CascadePurger removes share links and delivery rows that reference a
// report being deleted.
type CascadePurger interface {
	PurgeReportRefs(ctx context.Context, reportID string) error
}

// AccessRecorder appends an access log entry for a direct, authenticated
// report download (no share link involved), and removes a report's trail
// when the report itself is deleted.
type AccessRecorder interface {
	RecordDirectAccess(ctx context.Context, reportID, accessType string, success bool, errMsg, actor, ip, userAgent string)
	PurgeReportLogs(ctx context.Context, reportID string) error
}

// Notifier pushes report lifecycle events to connected clients.
type Notifier interface {
	Broadcast(event string, payload any)
}

type ReportService interface {
	Generate(ctx context.Context, configID string, manual bool) (string, error)
	GetInstance(ctx context.Context, id string) (*ReportInstance, error)
	ListInstances(ctx context.Context, workspaceID, configID string, limit int64) ([]ReportInstance, error)
	GetReport(ctx context.Context, id string) (*Report, error)
	ListReports(ctx context.Context, workspaceID, configID string, limit int64) ([]Report, error)
	Download(ctx context.Context, id, actor, ip, userAgent string) (io.ReadCloser, *Report, error)
	DeleteReport(ctx context.Context, id, actor string) error
	SweepOrphans(ctx context.Context) error
}

type ReportServiceImpl struct {
	Repo      ReportRepository
	Configs   reportconfig.ConfigRepository
	Templates template.TemplateRepository
	Records   record.Store
	Blobs     storage.BlobStorage
	Handoff   EmailHandoff
	Purger    CascadePurger
	Access    AccessRecorder
	Notify    Notifier
	Cfg       *config.Config
	Logger    *zap.Logger
}

func NewReportService(
	repo ReportRepository,
	configs reportconfig.ConfigRepository,
	templates template.TemplateRepository,
	records record.Store,
	blobs storage.BlobStorage,
	handoff EmailHandoff,
	purger CascadePurger,
	access AccessRecorder,
	notify Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) ReportService {
	return &ReportServiceImpl{
		Repo:      repo,
		Configs:   configs,
		Templates: templates,
		Records:   records,
		Blobs:     blobs,
		Handoff:   handoff,
		Purger:    purger,
		Access:    access,
		Notify:    notify,
		Cfg:       cfg,
		Logger:    logger,
	}
}

// Generate runs the full pipeline for one config. It returns the instance
// id as soon as one has been durably created; from that point on every
// failure is recorded on the instance and also returned, so callers can
// tell a pre-instance failure (empty id, safe to retry) from a captured
// one.
func (s *ReportServiceImpl) Generate(ctx context.Context, configID string, manual bool) (string, error) {
	cfg, err := s.Configs.GetByID(ctx, configID)
	if err != nil {
		return "", err
	}
	if !cfg.Enabled && !manual {
		return "", ErrConfigDisabled
	}

	inst := &ReportInstance{
		ConfigID:    cfg.ID,
		TemplateID:  cfg.TemplateID,
		WorkspaceID: cfg.WorkspaceID,
		Manual:      manual,
		Metadata: map[string]any{
			"config_name": cfg.Name,
			"record_type": cfg.RecordType,
			"format":      cfg.Format.Type,
		},
	}
	instanceID, err := s.Repo.CreateInstance(ctx, inst)
	if err != nil {
		return "", err
	}

	start := time.Now()
	if err := s.Repo.MarkGenerating(ctx, instanceID); err != nil {
		return instanceID, s.fail(ctx, instanceID, start, err)
	}

	genCtx, cancel := context.WithTimeout(ctx, s.Cfg.GenerateTimeout)
	defer cancel()

	rep, err := s.generate(genCtx, cfg, instanceID)
	if err != nil {
		return instanceID, s.fail(ctx, instanceID, start, err)
	}

	if err := s.Repo.CompleteInstance(ctx, instanceID, time.Since(start).Milliseconds()); err != nil {
		return instanceID, err
	}

	s.Logger.Info("report generated",
		zap.String("configId", configID),
		zap.String("instanceId", instanceID),
		zap.String("reportId", rep.ID.Hex()),
		zap.Duration("took", time.Since(start)))

	if s.Notify != nil {
		s.Notify.Broadcast("report.completed", map[string]any{
			"reportId":   rep.ID.Hex(),
			"instanceId": instanceID,
			"configId":   configID,
			"name":       rep.Name,
		})
	}

	if cfg.Delivery.Method == reportconfig.DeliveryEmail {
		recipients := cfg.EnabledRecipients()
		if len(recipients) > 0 {
			if err := s.Handoff.SendReportEmail(ctx, rep.ID.Hex(), recipients, cfg.Delivery.Subject, cfg.Delivery.Body); err != nil {
				// Delivery runs on its own retry budget; the report itself
				// is already complete.
				s.Logger.Error("email delivery handoff failed",
					zap.String("reportId", rep.ID.Hex()), zap.Error(err))
			}
		}
	}

	return instanceID, nil
}

// generate performs the external I/O half of the pipeline: source query,
// render or tabular export, artifact write, report registration.
func (s *ReportServiceImpl) generate(ctx context.Context, cfg *reportconfig.ReportConfig, instanceID string) (*Report, error) {
	tmpl, err := s.Templates.GetByID(ctx, cfg.TemplateID.Hex())
	if err != nil {
		return nil, fmt.Errorf("resolve template: %w", err)
	}

	records, total, err := s.Records.Query(ctx, cfg.RecordType, cfg.Filters, "", "", 1, record.MaxPageSize)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}

	now := time.Now().UTC()
	data, ext, err := s.buildArtifact(cfg, tmpl, records, total, now)
	if err != nil {
		return nil, err
	}

	name := utils.Slugify(cfg.Name) + "-" + now.Format("20060102-150405") + ext
	path, size, err := s.Blobs.WriteArtifact(ctx, name, data)
	if err != nil {
		return nil, fmt.Errorf("write artifact: %w", err)
	}

	// Remember the path before registration so the orphan sweep can reclaim
	// the file if the report row never lands.
	if err := s.Repo.SetInstanceMetadata(ctx, instanceID, "artifact_path", path); err != nil {
		s.Logger.Warn("record artifact path failed", zap.String("instanceId", instanceID), zap.Error(err))
	}

	instOID, _ := primitive.ObjectIDFromHex(instanceID)
	rep := &Report{
		InstanceID:  instOID,
		ConfigID:    cfg.ID,
		Name:        cfg.Name,
		Format:      cfg.Format.Type,
		FilePath:    path,
		FileSize:    size,
		OwnerID:     cfg.OwnerID,
		WorkspaceID: cfg.WorkspaceID,
		GeneratedAt: now,
	}
	if _, err := s.Repo.CreateReport(ctx, rep); err != nil {
		if delErr := s.Blobs.DeleteArtifact(ctx, path); delErr != nil {
			s.Logger.Warn("reclaim orphan artifact failed", zap.String("path", path), zap.Error(delErr))
		}
		return nil, fmt.Errorf("register report: %w", err)
	}
	return rep, nil
}

func (s *ReportServiceImpl) buildArtifact(cfg *reportconfig.ReportConfig, tmpl *template.ReportTemplate, records []map[string]any, total int64, now time.Time) ([]byte, string, error) {
	switch cfg.Format.Type {
	case reportconfig.FormatCSV:
		data, err := exportCSV(records, cfg.Format.Columns)
		return data, ".csv", err
	case reportconfig.FormatXLSX:
		data, err := exportXLSX(records, cfg.Format.Columns, cfg.Name)
		return data, ".xlsx", err
	}

	bag := map[string]any{
		"config": map[string]any{
			"name":        cfg.Name,
			"description": cfg.Description,
		},
		"template": map[string]any{
			"name":     tmpl.Name,
			"category": tmpl.Category,
			"version":  tmpl.Version,
		},
		"summary": map[string]any{
			"count":        len(records),
			"total":        total,
			"generated_at": now,
		},
		"records": records,
	}
	resolved, err := template.ResolveVariables(tmpl.Variables, bag)
	if err != nil {
		return nil, "", fmt.Errorf("resolve variables: %w", err)
	}

	ext := ".txt"
	if cfg.Format.Type == reportconfig.FormatHTML {
		ext = ".html"
	}
	return []byte(template.Render(tmpl.Body, resolved)), ext, nil
}

func (s *ReportServiceImpl) fail(ctx context.Context, instanceID string, start time.Time, cause error) error {
	reason := cause.Error()
	if err := s.Repo.FailInstance(ctx, instanceID, reason, time.Since(start).Milliseconds()); err != nil {
		s.Logger.Error("mark instance failed", zap.String("instanceId", instanceID), zap.Error(err))
	}
	s.Logger.Error("report generation failed", zap.String("instanceId", instanceID), zap.Error(cause))
	return cause
}

func (s *ReportServiceImpl) GetInstance(ctx context.Context, id string) (*ReportInstance, error) {
	return s.Repo.GetInstance(ctx, id)
}

func (s *ReportServiceImpl) ListInstances(ctx context.Context, workspaceID, configID string, limit int64) ([]ReportInstance, error) {
	return s.Repo.ListInstances(ctx, workspaceID, configID, limit)
}

func (s *ReportServiceImpl) GetReport(ctx context.Context, id string) (*Report, error) {
	return s.Repo.GetReport(ctx, id)
}

func (s *ReportServiceImpl) ListReports(ctx context.Context, workspaceID, configID string, limit int64) ([]Report, error) {
	return s.Repo.ListReports(ctx, workspaceID, configID, limit)
}

// Download streams a report artifact to an authenticated owner and records
// the access either way.
func (s *ReportServiceImpl) Download(ctx context.Context, id, actor, ip, userAgent string) (io.ReadCloser, *Report, error) {
	rep, err := s.Repo.GetReport(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.Blobs.ReadArtifact(ctx, rep.FilePath)
	if err != nil {
		s.Access.RecordDirectAccess(ctx, id, "download", false, err.Error(), actor, ip, userAgent)
		return nil, nil, err
	}
	s.Access.RecordDirectAccess(ctx, id, "download", true, "", actor, ip, userAgent)
	return rc, rep, nil
}

func (s *ReportServiceImpl) DeleteReport(ctx context.Context, id, actor string) error {
	rep, err := s.Repo.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if rep.OwnerID != actor {
		if claims, ok := ctx.Value(utils.UserClaimsKey).(*utils.UserClaims); !ok || !claims.HasRole("admin") {
			return ErrNotOwner
		}
	}

	if err := s.Purger.PurgeReportRefs(ctx, id); err != nil {
		return err
	}
	if err := s.Access.PurgeReportLogs(ctx, id); err != nil {
		s.Logger.Warn("purge access logs failed", zap.String("reportId", id), zap.Error(err))
	}
	if err := s.Blobs.DeleteArtifact(ctx, rep.FilePath); err != nil {
		s.Logger.Warn("delete artifact failed", zap.String("path", rep.FilePath), zap.Error(err))
	}
	if err := s.Repo.DeleteReport(ctx, id); err != nil {
		return err
	}

	// The instance row stays as generation history while its config lives;
	// once the config is gone too, the instance has no remaining anchor.
	if !rep.ConfigID.IsZero() {
		if _, err := s.Configs.GetByID(ctx, rep.ConfigID.Hex()); err != nil {
			if delErr := s.Repo.DeleteInstance(ctx, rep.InstanceID.Hex()); delErr != nil {
				s.Logger.Warn("delete orphaned instance failed",
					zap.String("instanceId", rep.InstanceID.Hex()), zap.Error(delErr))
			}
		}
	}
	return nil
}

// SweepOrphans fails instances stuck in generating well past the timeout
// and reclaims artifact files left behind by failed registrations.
func (s *ReportServiceImpl) SweepOrphans(ctx context.Context) error {
	cutoff := time.Now().Add(-2 * s.Cfg.GenerateTimeout)

	stale, err := s.Repo.ListStaleGenerating(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, inst := range stale {
		age := time.Since(inst.GeneratedAt).Milliseconds()
		if err := s.Repo.FailInstance(ctx, inst.ID.Hex(), "generation timed out", age); err != nil {
			s.Logger.Warn("sweep stale instance failed", zap.String("instanceId", inst.ID.Hex()), zap.Error(err))
		}
	}

	orphans, err := s.Repo.ListFailedWithArtifact(ctx, cutoff)
	if err != nil {
		return err
	}
	for _, inst := range orphans {
		if _, err := s.Repo.GetReportByInstance(ctx, inst.ID.Hex()); err == nil {
			continue
		}
		path, _ := inst.Metadata["artifact_path"].(string)
		if path == "" {
			continue
		}
		if err := s.Blobs.DeleteArtifact(ctx, path); err != nil {
			s.Logger.Warn("reclaim orphan artifact failed", zap.String("path", path), zap.Error(err))
			continue
		}
		if err := s.Repo.SetInstanceMetadata(ctx, inst.ID.Hex(), "artifact_path", ""); err != nil {
			s.Logger.Warn("clear artifact path failed", zap.String("instanceId", inst.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}
