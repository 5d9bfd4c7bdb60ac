package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"go-reporting/internal/config"
	"go-reporting/internal/email"
	"go-reporting/internal/features/report"
	"go-reporting/internal/storage"
)

var (
	ErrAlreadySent       = errors.New("delivery already sent")
	ErrAttemptsExhausted = errors.New("delivery attempts exhausted")
)

// Artifacts up to this size ride along as an attachment; larger reports are
// delivered as a share link only.
const maxAttachmentSize = 10 << 20

// ReportFinder is the slice of the report store deliveries need.
type ReportFinder interface {
	GetReport(ctx context.Context, id string) (*report.Report, error)
}

type DeliveryService interface {
	// Enqueue stores the row and runs the automatic attempt loop in the
	// background.
	Enqueue(ctx context.Context, d *ShareEmailDelivery) (string, error)
	// Retry runs one more attempt by hand. Once the attempt budget is
	// spent it refuses unless force is set; force ignores the cap.
	Retry(ctx context.Context, id string, force bool) error
	Get(ctx context.Context, id string) (*ShareEmailDelivery, error)
	ListByReport(ctx context.Context, reportID string) ([]ShareEmailDelivery, error)
	Delete(ctx context.Context, id string) error
	DeleteByReport(ctx context.Context, reportID string) error
}

type DeliveryServiceImpl struct {
	Repo       DeliveryRepository
	Reports    ReportFinder
	Blobs      storage.BlobStorage
	Sender     email.Sender
	Cfg        *config.Config
	Logger     *zap.Logger
	RetryDelay time.Duration
}

func NewDeliveryService(
	repo DeliveryRepository,
	reports ReportFinder,
	blobs storage.BlobStorage,
	sender email.Sender,
	cfg *config.Config,
	logger *zap.Logger,
) DeliveryService {
	return &DeliveryServiceImpl{
		Repo:       repo,
		Reports:    reports,
		Blobs:      blobs,
		Sender:     sender,
		Cfg:        cfg,
		Logger:     logger,
		RetryDelay: time.Second,
	}
}

func (s *DeliveryServiceImpl) Enqueue(ctx context.Context, d *ShareEmailDelivery) (string, error) {
	if len(d.Recipients) == 0 {
		return "", errors.New("at least one recipient is required")
	}
	id, err := s.Repo.Create(ctx, d)
	if err != nil {
		return "", err
	}
	go s.deliverWithRetries(context.Background(), id)
	return id, nil
}

// deliverWithRetries is the automatic path: attempts until the first
// success or until the budget is spent, backing off between attempts.
func (s *DeliveryServiceImpl) deliverWithRetries(ctx context.Context, id string) {
	for {
		d, err := s.Repo.GetByID(ctx, id)
		if err != nil {
			s.Logger.Error("load delivery failed", zap.String("deliveryId", id), zap.Error(err))
			return
		}
		if d.Status == DeliverySent || d.Attempts >= s.Cfg.DeliveryMaxAttempts {
			return
		}
		if err := s.attempt(ctx, d); err == nil {
			return
		}
		time.Sleep(time.Duration(d.Attempts) * s.RetryDelay)
	}
}

// attempt runs exactly one send and records the outcome. Both the
// automatic loop and manual retries go through here.
func (s *DeliveryServiceImpl) attempt(ctx context.Context, d *ShareEmailDelivery) error {
	attempts := d.Attempts + 1

	sendCtx, cancel := context.WithTimeout(ctx, s.Cfg.SendTimeout)
	defer cancel()

	err := s.send(sendCtx, d)
	if err == nil {
		now := time.Now().UTC()
		if recErr := s.Repo.RecordAttempt(ctx, d.ID.Hex(), DeliverySent, attempts, "", &now); recErr != nil {
			s.Logger.Error("record sent delivery failed", zap.String("deliveryId", d.ID.Hex()), zap.Error(recErr))
		}
		d.Attempts = attempts
		d.Status = DeliverySent
		return nil
	}

	// Every failed attempt lands as failed; pending is reserved for rows
	// that have never been attempted. Retry eligibility hangs off the
	// attempt count, not the status.
	if recErr := s.Repo.RecordAttempt(ctx, d.ID.Hex(), DeliveryFailed, attempts, err.Error(), nil); recErr != nil {
		s.Logger.Error("record failed delivery failed", zap.String("deliveryId", d.ID.Hex()), zap.Error(recErr))
	}
	d.Attempts = attempts
	d.Status = DeliveryFailed
	s.Logger.Warn("email delivery attempt failed",
		zap.String("deliveryId", d.ID.Hex()),
		zap.Strings("recipients", d.Recipients),
		zap.Int("attempt", attempts),
		zap.Error(err))
	return err
}

func (s *DeliveryServiceImpl) send(ctx context.Context, d *ShareEmailDelivery) error {
	body := d.Body
	if body != "" {
		body += "\n\n"
	}
	body += "Your report is available here: " + d.ShareURL

	rep, err := s.Reports.GetReport(ctx, d.ReportID.Hex())
	if err != nil {
		return fmt.Errorf("resolve report: %w", err)
	}
	if rep.FileSize > maxAttachmentSize {
		return s.Sender.Send(ctx, d.Recipients, d.Subject, body)
	}

	rc, err := s.Blobs.ReadArtifact(ctx, rep.FilePath)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read artifact: %w", err)
	}
	return s.Sender.SendWithAttachment(ctx, d.Recipients, d.Subject, body, filepath.Base(rep.FilePath), data)
}

func (s *DeliveryServiceImpl) Retry(ctx context.Context, id string, force bool) error {
	d, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if d.Status == DeliverySent {
		return ErrAlreadySent
	}
	if d.Attempts >= s.Cfg.DeliveryMaxAttempts && !force {
		return ErrAttemptsExhausted
	}
	return s.attempt(ctx, d)
}

func (s *DeliveryServiceImpl) Get(ctx context.Context, id string) (*ShareEmailDelivery, error) {
	return s.Repo.GetByID(ctx, id)
}

func (s *DeliveryServiceImpl) ListByReport(ctx context.Context, reportID string) ([]ShareEmailDelivery, error) {
	return s.Repo.ListByReport(ctx, reportID)
}

func (s *DeliveryServiceImpl) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func (s *DeliveryServiceImpl) DeleteByReport(ctx context.Context, reportID string) error {
	return s.Repo.DeleteByReport(ctx, reportID)
}
