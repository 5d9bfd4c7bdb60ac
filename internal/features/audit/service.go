package audit

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type AuditService interface {
	// RecordShareAccess appends an entry for a share-link access attempt,
	// successful or not. Logging never blocks the access path, so append
	// failures are only logged.
	RecordShareAccess(ctx context.Context, reportID, shareID primitive.ObjectID, accessType string, success bool, errMsg, ip, userAgent string)
	RecordDirectAccess(ctx context.Context, reportID, accessType string, success bool, errMsg, actor, ip, userAgent string)
	ListEntries(ctx context.Context, filter ListFilter, page, limit int64) ([]AccessLogEntry, int64, error)
	// PurgeReportLogs is the one sanctioned delete: it runs as part of the
	// cascade when the report itself is removed.
	PurgeReportLogs(ctx context.Context, reportID string) error
}

type AuditServiceImpl struct {
	Repo   AuditRepository
	Logger *zap.Logger
}

func NewAuditService(repo AuditRepository, logger *zap.Logger) AuditService {
	return &AuditServiceImpl{Repo: repo, Logger: logger}
}

func (s *AuditServiceImpl) RecordShareAccess(ctx context.Context, reportID, shareID primitive.ObjectID, accessType string, success bool, errMsg, ip, userAgent string) {
	entry := &AccessLogEntry{
		ReportID:     reportID,
		ShareID:      &shareID,
		AccessType:   accessType,
		Success:      success,
		ErrorMessage: errMsg,
		IP:           ip,
		UserAgent:    userAgent,
	}
	if err := s.Repo.Append(ctx, entry); err != nil {
		s.Logger.Error("append access log failed",
			zap.String("reportId", reportID.Hex()),
			zap.String("ip", ip),
			zap.Error(err))
	}
}

func (s *AuditServiceImpl) RecordDirectAccess(ctx context.Context, reportID, accessType string, success bool, errMsg, actor, ip, userAgent string) {
	oid, err := primitive.ObjectIDFromHex(reportID)
	if err != nil {
		s.Logger.Error("append access log failed", zap.String("reportId", reportID), zap.Error(err))
		return
	}
	entry := &AccessLogEntry{
		ReportID:     oid,
		AccessType:   accessType,
		Success:      success,
		ErrorMessage: errMsg,
		Actor:        actor,
		IP:           ip,
		UserAgent:    userAgent,
	}
	if err := s.Repo.Append(ctx, entry); err != nil {
		s.Logger.Error("append access log failed", zap.String("reportId", reportID), zap.String("ip", ip), zap.Error(err))
	}
}

func (s *AuditServiceImpl) ListEntries(ctx context.Context, filter ListFilter, page, limit int64) ([]AccessLogEntry, int64, error) {
	return s.Repo.List(ctx, filter, page, limit)
}

func (s *AuditServiceImpl) PurgeReportLogs(ctx context.Context, reportID string) error {
	return s.Repo.DeleteByReport(ctx, reportID)
}
