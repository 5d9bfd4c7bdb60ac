package share

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/features/audit"
	"go-reporting/internal/features/delivery"
	"go-reporting/internal/features/report"
	"go-reporting/internal/storage"
)

var (
	ErrShareRevoked     = errors.New("share has been revoked")
	ErrShareExpired     = errors.New("share has expired")
	ErrIPNotAllowed     = errors.New("client address not allowed")
	ErrPasswordRequired = errors.New("password required")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrPermissionDenied = errors.New("share does not grant this permission")
	ErrNotReportOwner   = errors.New("not the report owner")
)

// emailShareTTL bounds shares minted for email delivery.
const emailShareTTL = 7 * 24 * time.Hour

// ReportStore is the slice of the report store shares need.
type ReportStore interface {
	GetReport(ctx context.Context, id string) (*report.Report, error)
}

// CapabilityResolver is the slice of the permission service shares need:
// workspace-scoped capability lookups for non-owner actors.
type CapabilityResolver interface {
	HasCapability(ctx context.Context, userID, workspaceID, action string) (bool, error)
}

type CreateShareRequest struct {
	ReportID       string     `json:"report_id"`
	Type           string     `json:"type"`
	Permissions    []string   `json:"permissions"`
	ExpiresAt      *time.Time `json:"expires_at"`
	MaxAccessCount int        `json:"max_access_count"`
	Password       string     `json:"password"`
	AllowedIPs     []string   `json:"allowed_ips"`

	// Email shares only.
	Recipients []string `json:"recipients,omitempty"`
	Subject    string   `json:"subject,omitempty"`
	Body       string   `json:"body,omitempty"`
}

type ShareService interface {
	CreateShare(ctx context.Context, req *CreateShareRequest, actor string) (*ShareLink, error)
	ListByReport(ctx context.Context, reportID string) ([]ShareLink, error)
	Revoke(ctx context.Context, id, actor string) error
	View(ctx context.Context, token, password, ip, userAgent string) (*report.Report, *ShareLink, error)
	Download(ctx context.Context, token, password, ip, userAgent string) (io.ReadCloser, *report.Report, error)

	// SendReportEmail is the generator's delivery handoff: it mints an
	// email-type share and enqueues one delivery covering all recipients.
	SendReportEmail(ctx context.Context, reportID string, recipients []string, subject, body string) error
	// PurgeReportRefs removes shares and delivery rows for a report being
	// deleted. The access trail is purged separately by the audit feature.
	PurgeReportRefs(ctx context.Context, reportID string) error
}

type ShareServiceImpl struct {
	Repo       ShareRepository
	Reports    ReportStore
	Perms      CapabilityResolver
	Blobs      storage.BlobStorage
	Deliveries delivery.DeliveryService
	Audit      audit.AuditService
	Cfg        *config.Config
	Logger     *zap.Logger
}

func NewShareService(
	repo ShareRepository,
	reports ReportStore,
	perms CapabilityResolver,
	blobs storage.BlobStorage,
	deliveries delivery.DeliveryService,
	auditService audit.AuditService,
	cfg *config.Config,
	logger *zap.Logger,
) ShareService {
	return &ShareServiceImpl{
		Repo:       repo,
		Reports:    reports,
		Perms:      perms,
		Blobs:      blobs,
		Deliveries: deliveries,
		Audit:      auditService,
		Cfg:        cfg,
		Logger:     logger,
	}
}

// canManageShares reports whether a non-owner actor may mint or revoke
// shares for a report. Workspace write capability is the bar; every role
// carrying manage also carries write.
func (s *ShareServiceImpl) canManageShares(ctx context.Context, actor, workspaceID string) (bool, error) {
	return s.Perms.HasCapability(ctx, actor, workspaceID, common_models.CapabilityWrite)
}

func (s *ShareServiceImpl) CreateShare(ctx context.Context, req *CreateShareRequest, actor string) (*ShareLink, error) {
	rep, err := s.Reports.GetReport(ctx, req.ReportID)
	if err != nil {
		return nil, err
	}
	if rep.OwnerID != actor {
		allowed, permErr := s.canManageShares(ctx, actor, rep.WorkspaceID)
		if permErr != nil {
			return nil, permErr
		}
		if !allowed {
			return nil, ErrNotReportOwner
		}
	}

	shareType := req.Type
	if shareType == "" {
		shareType = ShareTypeLink
	}
	if shareType != ShareTypeLink && shareType != ShareTypeEmail && shareType != ShareTypeDownload {
		return nil, errors.New("unknown share type: " + shareType)
	}
	if shareType == ShareTypeEmail && len(req.Recipients) == 0 {
		return nil, errors.New("email shares require at least one recipient")
	}

	perms := req.Permissions
	if len(perms) == 0 {
		perms = []string{PermissionView}
	}
	for _, p := range perms {
		if p != PermissionView && p != PermissionDownload && p != PermissionEmail {
			return nil, errors.New("unknown permission: " + p)
		}
	}
	if req.ExpiresAt != nil && req.ExpiresAt.Before(time.Now()) {
		return nil, errors.New("expiry must be in the future")
	}
	if req.MaxAccessCount < 0 {
		return nil, errors.New("max access count must not be negative")
	}

	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	link := &ShareLink{
		ReportID:       rep.ID,
		Token:          token,
		Type:           shareType,
		Permissions:    perms,
		ExpiresAt:      req.ExpiresAt,
		MaxAccessCount: req.MaxAccessCount,
		AllowedIPs:     req.AllowedIPs,
		CreatedBy:      actor,
		WorkspaceID:    rep.WorkspaceID,
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		link.PasswordHash = string(hash)
	}

	if err := s.Repo.Create(ctx, link); err != nil {
		return nil, err
	}

	if shareType == ShareTypeEmail {
		if err := s.enqueueEmail(ctx, link, rep, req.Recipients, req.Subject, req.Body); err != nil {
			return nil, err
		}
	}
	return link, nil
}

// enqueueEmail stores one delivery row covering the whole recipient list.
func (s *ShareServiceImpl) enqueueEmail(ctx context.Context, link *ShareLink, rep *report.Report, recipients []string, subject, body string) error {
	if subject == "" {
		subject = "Report: " + rep.Name
	}
	d := &delivery.ShareEmailDelivery{
		ShareID:    link.ID,
		ReportID:   rep.ID,
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		ShareURL:   s.Cfg.PublicURL + "/share/" + link.Token,
	}
	_, err := s.Deliveries.Enqueue(ctx, d)
	return err
}

func (s *ShareServiceImpl) ListByReport(ctx context.Context, reportID string) ([]ShareLink, error) {
	return s.Repo.ListByReport(ctx, reportID)
}

func (s *ShareServiceImpl) Revoke(ctx context.Context, id, actor string) error {
	link, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	rep, err := s.Reports.GetReport(ctx, link.ReportID.Hex())
	if err == nil && rep.OwnerID != actor && link.CreatedBy != actor {
		allowed, permErr := s.canManageShares(ctx, actor, rep.WorkspaceID)
		if permErr != nil {
			return permErr
		}
		if !allowed {
			return ErrNotReportOwner
		}
	}
	return s.Repo.Revoke(ctx, id)
}

// validate checks a share in fixed order: revoked, expired, quota, client
// address, password, permission. The first violation wins, so a caller on
// a revoked share always hears "revoked" even if its password is wrong too.
func (s *ShareServiceImpl) validate(link *ShareLink, password, ip, needPerm string) error {
	if link.Revoked {
		return ErrShareRevoked
	}
	if link.ExpiresAt != nil && time.Now().After(*link.ExpiresAt) {
		return ErrShareExpired
	}
	if link.MaxAccessCount > 0 && link.CurrentAccessCount >= link.MaxAccessCount {
		return ErrQuotaExhausted
	}
	if len(link.AllowedIPs) > 0 {
		allowed := false
		for _, a := range link.AllowedIPs {
			if a == ip {
				allowed = true
				break
			}
		}
		if !allowed {
			return ErrIPNotAllowed
		}
	}
	if link.PasswordHash != "" {
		if password == "" {
			return ErrPasswordRequired
		}
		if bcrypt.CompareHashAndPassword([]byte(link.PasswordHash), []byte(password)) != nil {
			return ErrInvalidPassword
		}
	}
	if !link.HasPermission(needPerm) {
		return ErrPermissionDenied
	}
	return nil
}

// access resolves the token, validates, atomically consumes a quota slot
// and records the attempt. The audit entry lands before any bytes are
// served.
func (s *ShareServiceImpl) access(ctx context.Context, token, password, ip, userAgent, accessType string) (*ShareLink, *report.Report, error) {
	link, err := s.Repo.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}

	if err := s.validate(link, password, ip, accessType); err != nil {
		s.Audit.RecordShareAccess(ctx, link.ReportID, link.ID, accessType, false, err.Error(), ip, userAgent)
		return nil, nil, err
	}

	// Resolve the report before touching the quota; a failed lookup must
	// not burn an access slot.
	rep, err := s.Reports.GetReport(ctx, link.ReportID.Hex())
	if err != nil {
		s.Audit.RecordShareAccess(ctx, link.ReportID, link.ID, accessType, false, err.Error(), ip, userAgent)
		return nil, nil, err
	}

	if err := s.Repo.ConsumeQuota(ctx, link.ID.Hex()); err != nil {
		s.Audit.RecordShareAccess(ctx, link.ReportID, link.ID, accessType, false, err.Error(), ip, userAgent)
		return nil, nil, err
	}

	s.Audit.RecordShareAccess(ctx, link.ReportID, link.ID, accessType, true, "", ip, userAgent)
	return link, rep, nil
}

func (s *ShareServiceImpl) View(ctx context.Context, token, password, ip, userAgent string) (*report.Report, *ShareLink, error) {
	link, rep, err := s.access(ctx, token, password, ip, userAgent, PermissionView)
	if err != nil {
		return nil, nil, err
	}
	return rep, link, nil
}

func (s *ShareServiceImpl) Download(ctx context.Context, token, password, ip, userAgent string) (io.ReadCloser, *report.Report, error) {
	_, rep, err := s.access(ctx, token, password, ip, userAgent, PermissionDownload)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.Blobs.ReadArtifact(ctx, rep.FilePath)
	if err != nil {
		return nil, nil, err
	}
	return rc, rep, nil
}

func (s *ShareServiceImpl) SendReportEmail(ctx context.Context, reportID string, recipients []string, subject, body string) error {
	rep, err := s.Reports.GetReport(ctx, reportID)
	if err != nil {
		return err
	}
	token, err := NewToken()
	if err != nil {
		return err
	}

	expires := time.Now().UTC().Add(emailShareTTL)
	link := &ShareLink{
		ReportID:    rep.ID,
		Token:       token,
		Type:        ShareTypeEmail,
		Permissions: []string{PermissionView, PermissionDownload},
		ExpiresAt:   &expires,
		CreatedBy:   rep.OwnerID,
		WorkspaceID: rep.WorkspaceID,
	}
	if err := s.Repo.Create(ctx, link); err != nil {
		return err
	}

	return s.enqueueEmail(ctx, link, rep, recipients, subject, body)
}

func (s *ShareServiceImpl) PurgeReportRefs(ctx context.Context, reportID string) error {
	if err := s.Deliveries.DeleteByReport(ctx, reportID); err != nil {
		return err
	}
	return s.Repo.DeleteByReport(ctx, reportID)
}
