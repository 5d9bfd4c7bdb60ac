package delivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-reporting/internal/config"
	"go-reporting/internal/features/report"
)

type fakeDeliveryRepo struct {
	rows map[string]*ShareEmailDelivery
}

func (f *fakeDeliveryRepo) Create(_ context.Context, d *ShareEmailDelivery) (string, error) {
	d.ID = primitive.NewObjectID()
	d.Status = DeliveryPending
	f.rows[d.ID.Hex()] = d
	return d.ID.Hex(), nil
}

func (f *fakeDeliveryRepo) GetByID(_ context.Context, id string) (*ShareEmailDelivery, error) {
	d, ok := f.rows[id]
	if !ok {
		return nil, ErrDeliveryNotFound
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDeliveryRepo) ListByReport(context.Context, string) ([]ShareEmailDelivery, error) {
	return nil, nil
}

func (f *fakeDeliveryRepo) RecordAttempt(_ context.Context, id string, status string, attempts int, lastError string, sentAt *time.Time) error {
	d, ok := f.rows[id]
	if !ok {
		return ErrDeliveryNotFound
	}
	d.Status = status
	d.Attempts = attempts
	d.LastError = lastError
	d.SentAt = sentAt
	return nil
}

func (f *fakeDeliveryRepo) Delete(_ context.Context, id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeDeliveryRepo) DeleteByReport(context.Context, string) error { return nil }

type fakeReportFinder struct {
	rep *report.Report
}

func (f *fakeReportFinder) GetReport(context.Context, string) (*report.Report, error) {
	return f.rep, nil
}

type fakeDeliveryBlob struct {
	data []byte
}

func (f *fakeDeliveryBlob) WriteArtifact(context.Context, string, []byte) (string, int64, error) {
	return "", 0, nil
}

func (f *fakeDeliveryBlob) ReadArtifact(context.Context, string) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(f.data)), nil
}

func (f *fakeDeliveryBlob) DeleteArtifact(context.Context, string) error { return nil }

type scriptedSender struct {
	failures    int
	sends       int
	attachments int
}

func (s *scriptedSender) Send(context.Context, []string, string, string) error {
	s.sends++
	if s.sends <= s.failures {
		return errors.New("smtp connection refused")
	}
	return nil
}

func (s *scriptedSender) SendWithAttachment(ctx context.Context, to []string, subject, body, _ string, _ []byte) error {
	s.attachments++
	return s.Send(ctx, to, subject, body)
}

func newDeliveryHarness(fileSize int64, sender *scriptedSender) (*DeliveryServiceImpl, *fakeDeliveryRepo, *ShareEmailDelivery) {
	repo := &fakeDeliveryRepo{rows: map[string]*ShareEmailDelivery{}}
	rep := &report.Report{
		ID:       primitive.NewObjectID(),
		FilePath: "2026/01/weekly.csv",
		FileSize: fileSize,
	}
	svc := &DeliveryServiceImpl{
		Repo:    repo,
		Reports: &fakeReportFinder{rep: rep},
		Blobs:   &fakeDeliveryBlob{data: []byte("a,b\n1,2\n")},
		Sender:  sender,
		Cfg: &config.Config{
			DeliveryMaxAttempts: 3,
			SendTimeout:         time.Second,
		},
		Logger:     zap.NewNop(),
		RetryDelay: 0,
	}
	d := &ShareEmailDelivery{
		ShareID:    primitive.NewObjectID(),
		ReportID:   rep.ID,
		Recipients: []string{"ops@example.com", "lead@example.com"},
		Subject:    "Weekly report",
		ShareURL:   "http://localhost:8080/share/tok",
	}
	id, _ := repo.Create(context.Background(), d)
	_ = id
	return svc, repo, d
}

func TestRetryExhaustedBudgetRequiresForce(t *testing.T) {
	sender := &scriptedSender{failures: 100}
	svc, repo, d := newDeliveryHarness(64, sender)
	ctx := context.Background()
	id := d.ID.Hex()

	// Burn the whole automatic budget.
	for i := 0; i < svc.Cfg.DeliveryMaxAttempts; i++ {
		row, _ := repo.GetByID(ctx, id)
		_ = svc.attempt(ctx, row)
	}

	row, _ := repo.GetByID(ctx, id)
	if row.Status != DeliveryFailed || row.Attempts != 3 {
		t.Fatalf("after budget: status=%q attempts=%d, want failed/3", row.Status, row.Attempts)
	}
	if row.LastError == "" {
		t.Fatal("failed delivery has no recorded error")
	}

	if err := svc.Retry(ctx, id, false); !errors.Is(err, ErrAttemptsExhausted) {
		t.Fatalf("retry without force: err = %v, want ErrAttemptsExhausted", err)
	}
	row, _ = repo.GetByID(ctx, id)
	if row.Attempts != 3 {
		t.Fatalf("refused retry still consumed an attempt: %d", row.Attempts)
	}

	// Force ignores the cap and runs one real attempt.
	_ = svc.Retry(ctx, id, true)
	row, _ = repo.GetByID(ctx, id)
	if row.Attempts != 4 {
		t.Fatalf("forced retry attempts = %d, want 4", row.Attempts)
	}
}

func TestFailedAttemptIsMarkedFailed(t *testing.T) {
	sender := &scriptedSender{failures: 1}
	svc, repo, d := newDeliveryHarness(64, sender)
	ctx := context.Background()
	id := d.ID.Hex()

	row, _ := repo.GetByID(ctx, id)
	if err := svc.attempt(ctx, row); err == nil {
		t.Fatal("first scripted attempt should fail")
	}

	row, _ = repo.GetByID(ctx, id)
	if row.Status != DeliveryFailed {
		t.Fatalf("status after failed attempt = %q, want %q", row.Status, DeliveryFailed)
	}
	if row.Attempts != 1 || row.LastError == "" {
		t.Fatalf("failed attempt bookkeeping: attempts=%d lastError=%q", row.Attempts, row.LastError)
	}

	// A failed attempt inside the budget stays retryable without force.
	if err := svc.Retry(ctx, id, false); err != nil {
		t.Fatalf("retry of failed delivery: %v", err)
	}
	row, _ = repo.GetByID(ctx, id)
	if row.Status != DeliverySent {
		t.Fatalf("after retry: status = %q, want %q", row.Status, DeliverySent)
	}
}

func TestRetrySucceedsAndRecordsSent(t *testing.T) {
	sender := &scriptedSender{failures: 1}
	svc, repo, d := newDeliveryHarness(64, sender)
	ctx := context.Background()
	id := d.ID.Hex()

	row, _ := repo.GetByID(ctx, id)
	if err := svc.attempt(ctx, row); err == nil {
		t.Fatal("first scripted attempt should fail")
	}
	if err := svc.Retry(ctx, id, false); err != nil {
		t.Fatalf("second attempt: %v", err)
	}

	row, _ = repo.GetByID(ctx, id)
	if row.Status != DeliverySent || row.SentAt == nil {
		t.Fatalf("sent delivery not recorded: status=%q sentAt=%v", row.Status, row.SentAt)
	}
	if err := svc.Retry(ctx, id, true); !errors.Is(err, ErrAlreadySent) {
		t.Fatalf("retry of sent delivery: err = %v, want ErrAlreadySent", err)
	}
}

func TestSmallArtifactsRideAsAttachment(t *testing.T) {
	sender := &scriptedSender{}
	svc, repo, d := newDeliveryHarness(64, sender)
	row, _ := repo.GetByID(context.Background(), d.ID.Hex())
	if err := svc.attempt(context.Background(), row); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if sender.attachments != 1 {
		t.Fatalf("attachment sends = %d, want 1", sender.attachments)
	}

	big := &scriptedSender{}
	svcBig, repoBig, dBig := newDeliveryHarness(maxAttachmentSize+1, big)
	rowBig, _ := repoBig.GetByID(context.Background(), dBig.ID.Hex())
	if err := svcBig.attempt(context.Background(), rowBig); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if big.attachments != 0 || big.sends != 1 {
		t.Fatalf("large artifact: attachments=%d sends=%d, want link-only send", big.attachments, big.sends)
	}
}
