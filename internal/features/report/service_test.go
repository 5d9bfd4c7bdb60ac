package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/config"
	"go-reporting/internal/features/reportconfig"
	"go-reporting/internal/features/template"
)

type fakeReportRepo struct {
	instances map[string]*ReportInstance
	reports   map[string]*Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{instances: map[string]*ReportInstance{}, reports: map[string]*Report{}}
}

func (f *fakeReportRepo) CreateInstance(_ context.Context, inst *ReportInstance) (string, error) {
	inst.ID = primitive.NewObjectID()
	inst.Status = StatusPending
	inst.GeneratedAt = time.Now().UTC()
	f.instances[inst.ID.Hex()] = inst
	return inst.ID.Hex(), nil
}

func (f *fakeReportRepo) MarkGenerating(_ context.Context, id string) error {
	inst, ok := f.instances[id]
	if !ok || inst.Status != StatusPending {
		return ErrInstanceNotFound
	}
	inst.Status = StatusGenerating
	return nil
}

func (f *fakeReportRepo) CompleteInstance(_ context.Context, id string, durationMs int64) error {
	inst, ok := f.instances[id]
	if !ok {
		return ErrInstanceNotFound
	}
	now := time.Now().UTC()
	inst.Status = StatusCompleted
	inst.CompletedAt = &now
	inst.DurationMs = durationMs
	return nil
}

func (f *fakeReportRepo) FailInstance(_ context.Context, id string, reason string, durationMs int64) error {
	inst, ok := f.instances[id]
	if !ok {
		return ErrInstanceNotFound
	}
	now := time.Now().UTC()
	inst.Status = StatusFailed
	inst.CompletedAt = &now
	inst.DurationMs = durationMs
	inst.Error = reason
	return nil
}

func (f *fakeReportRepo) SetInstanceMetadata(_ context.Context, id string, key string, value any) error {
	inst, ok := f.instances[id]
	if !ok {
		return ErrInstanceNotFound
	}
	if inst.Metadata == nil {
		inst.Metadata = map[string]any{}
	}
	inst.Metadata[key] = value
	return nil
}

func (f *fakeReportRepo) GetInstance(_ context.Context, id string) (*ReportInstance, error) {
	inst, ok := f.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return inst, nil
}

func (f *fakeReportRepo) ListInstances(context.Context, string, string, int64) ([]ReportInstance, error) {
	return nil, nil
}

func (f *fakeReportRepo) ListStaleGenerating(_ context.Context, cutoff time.Time) ([]ReportInstance, error) {
	var out []ReportInstance
	for _, inst := range f.instances {
		if inst.Status == StatusGenerating && inst.GeneratedAt.Before(cutoff) {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) ListFailedWithArtifact(_ context.Context, cutoff time.Time) ([]ReportInstance, error) {
	var out []ReportInstance
	for _, inst := range f.instances {
		path, _ := inst.Metadata["artifact_path"].(string)
		if inst.Status == StatusFailed && path != "" && inst.GeneratedAt.Before(cutoff) {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (f *fakeReportRepo) DeleteInstance(_ context.Context, id string) error {
	delete(f.instances, id)
	return nil
}

func (f *fakeReportRepo) CreateReport(_ context.Context, rep *Report) (string, error) {
	rep.ID = primitive.NewObjectID()
	f.reports[rep.ID.Hex()] = rep
	return rep.ID.Hex(), nil
}

func (f *fakeReportRepo) GetReport(_ context.Context, id string) (*Report, error) {
	rep, ok := f.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return rep, nil
}

func (f *fakeReportRepo) GetReportByInstance(_ context.Context, instanceID string) (*Report, error) {
	for _, rep := range f.reports {
		if rep.InstanceID.Hex() == instanceID {
			return rep, nil
		}
	}
	return nil, ErrReportNotFound
}

func (f *fakeReportRepo) ListReports(context.Context, string, string, int64) ([]Report, error) {
	return nil, nil
}

func (f *fakeReportRepo) DeleteReport(_ context.Context, id string) error {
	if _, ok := f.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(f.reports, id)
	return nil
}

func (f *fakeReportRepo) CountByConfig(context.Context, string) (int64, error) { return 0, nil }

func (f *fakeReportRepo) CountInstancesByTemplate(context.Context, string) (int64, error) {
	return 0, nil
}

type fakeConfigRepo struct {
	configs map[string]*reportconfig.ReportConfig
}

func (f *fakeConfigRepo) Create(_ context.Context, cfg *reportconfig.ReportConfig) error {
	f.configs[cfg.ID.Hex()] = cfg
	return nil
}

func (f *fakeConfigRepo) GetByID(_ context.Context, id string) (*reportconfig.ReportConfig, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return nil, reportconfig.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeConfigRepo) List(context.Context, string) ([]reportconfig.ReportConfig, error) {
	return nil, nil
}
func (f *fakeConfigRepo) Update(context.Context, *reportconfig.ReportConfig) error { return nil }
func (f *fakeConfigRepo) Delete(context.Context, string) error                     { return nil }
func (f *fakeConfigRepo) ListDue(context.Context, time.Time) ([]reportconfig.ReportConfig, error) {
	return nil, nil
}
func (f *fakeConfigRepo) UpdateScheduleState(context.Context, string, time.Time, *time.Time, bool) error {
	return nil
}
func (f *fakeConfigRepo) CountByTemplate(context.Context, string) (int64, error) { return 0, nil }

type fakeTemplateRepo struct {
	templates map[string]*template.ReportTemplate
}

func (f *fakeTemplateRepo) Create(_ context.Context, t *template.ReportTemplate) error {
	f.templates[t.ID.Hex()] = t
	return nil
}

func (f *fakeTemplateRepo) GetByID(_ context.Context, id string) (*template.ReportTemplate, error) {
	t, ok := f.templates[id]
	if !ok {
		return nil, template.ErrNotFound
	}
	return t, nil
}

func (f *fakeTemplateRepo) List(context.Context, string) ([]template.ReportTemplate, error) {
	return nil, nil
}
func (f *fakeTemplateRepo) Update(context.Context, *template.ReportTemplate) error { return nil }
func (f *fakeTemplateRepo) Delete(context.Context, string) error                   { return nil }
func (f *fakeTemplateRepo) AppendVersion(context.Context, *template.TemplateVersion) error {
	return nil
}
func (f *fakeTemplateRepo) ListVersions(context.Context, string) ([]template.TemplateVersion, error) {
	return nil, nil
}

type fakeRecordStore struct {
	records []map[string]any
	err     error
}

func (f *fakeRecordStore) Query(context.Context, string, []common_models.Filter, string, string, int64, int64) ([]map[string]any, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.records, int64(len(f.records)), nil
}

func (f *fakeRecordStore) Get(context.Context, string, string) (map[string]any, error) {
	return nil, nil
}
func (f *fakeRecordStore) Create(context.Context, string, map[string]any) (string, error) {
	return "", nil
}
func (f *fakeRecordStore) Update(context.Context, string, string, map[string]any) error { return nil }
func (f *fakeRecordStore) Delete(context.Context, string, string) error                 { return nil }

type fakeBlob struct {
	files map[string][]byte
	err   error
}

func newFakeBlob() *fakeBlob { return &fakeBlob{files: map[string][]byte{}} }

func (f *fakeBlob) WriteArtifact(_ context.Context, name string, data []byte) (string, int64, error) {
	if f.err != nil {
		return "", 0, f.err
	}
	f.files[name] = data
	return name, int64(len(data)), nil
}

func (f *fakeBlob) ReadArtifact(_ context.Context, path string) (io.ReadCloser, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("no such artifact")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlob) DeleteArtifact(_ context.Context, path string) error {
	delete(f.files, path)
	return nil
}

type fakeHandoff struct {
	calls []string
}

func (f *fakeHandoff) SendReportEmail(_ context.Context, reportID string, _ []string, _, _ string) error {
	f.calls = append(f.calls, reportID)
	return nil
}

type fakePurger struct{}

func (fakePurger) PurgeReportRefs(context.Context, string) error { return nil }

type fakeAccess struct {
	entries []string
}

func (f *fakeAccess) RecordDirectAccess(_ context.Context, reportID, accessType string, success bool, _, _, _, _ string) {
	f.entries = append(f.entries, reportID+"/"+accessType)
}

func (f *fakeAccess) PurgeReportLogs(context.Context, string) error { return nil }

type testHarness struct {
	svc     *ReportServiceImpl
	repo    *fakeReportRepo
	blob    *fakeBlob
	records *fakeRecordStore
	handoff *fakeHandoff
	access  *fakeAccess
	cfg     *reportconfig.ReportConfig
}

func newHarness(t *testing.T, body string, formatType string, delivery reportconfig.Delivery) *testHarness {
	t.Helper()

	tmpl := &template.ReportTemplate{
		ID:       primitive.NewObjectID(),
		Name:     "Weekly Summary",
		Category: "summary",
		Body:     body,
		Version:  1,
	}
	cfg := &reportconfig.ReportConfig{
		ID:          primitive.NewObjectID(),
		Name:        "Weekly Report",
		TemplateID:  tmpl.ID,
		RecordType:  "analysis_records",
		Format:      reportconfig.Format{Type: formatType},
		Delivery:    delivery,
		Enabled:     true,
		OwnerID:     "owner-1",
		WorkspaceID: "ws-1",
	}

	repo := newFakeReportRepo()
	blob := newFakeBlob()
	records := &fakeRecordStore{records: []map[string]any{
		{"name": "alpha", "score": float64(10)},
		{"name": "beta", "score": float64(20)},
	}}
	handoff := &fakeHandoff{}
	access := &fakeAccess{}

	svc := &ReportServiceImpl{
		Repo:      repo,
		Configs:   &fakeConfigRepo{configs: map[string]*reportconfig.ReportConfig{cfg.ID.Hex(): cfg}},
		Templates: &fakeTemplateRepo{templates: map[string]*template.ReportTemplate{tmpl.ID.Hex(): tmpl}},
		Records:   records,
		Blobs:     blob,
		Handoff:   handoff,
		Purger:    fakePurger{},
		Access:    access,
		Cfg:       &config.Config{GenerateTimeout: time.Minute},
		Logger:    zap.NewNop(),
	}
	return &testHarness{svc: svc, repo: repo, blob: blob, records: records, handoff: handoff, access: access, cfg: cfg}
}

func TestGenerateCompletesAndRegistersArtifact(t *testing.T) {
	h := newHarness(t, "Config {{config.name}}: {{summary.count}} rows", "html",
		reportconfig.Delivery{Method: reportconfig.DeliveryStorage})

	instanceID, err := h.svc.Generate(context.Background(), h.cfg.ID.Hex(), false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	inst := h.repo.instances[instanceID]
	if inst.Status != StatusCompleted {
		t.Fatalf("instance status = %q, want %q", inst.Status, StatusCompleted)
	}
	if inst.CompletedAt == nil {
		t.Fatal("completed instance has no completion timestamp")
	}

	rep, err := h.repo.GetReportByInstance(context.Background(), instanceID)
	if err != nil {
		t.Fatalf("report not registered: %v", err)
	}

	stored := h.blob.files[rep.FilePath]
	want := "Config Weekly Report: 2 rows"
	if string(stored) != want {
		t.Fatalf("artifact = %q, want %q", stored, want)
	}
	if rep.FileSize != int64(len(stored)) {
		t.Fatalf("file size %d does not match stored bytes %d", rep.FileSize, len(stored))
	}
	if len(h.handoff.calls) != 0 {
		t.Fatalf("storage delivery triggered email handoff %v", h.handoff.calls)
	}
}

func TestGenerateFailureIsCapturedOnInstance(t *testing.T) {
	h := newHarness(t, "body", "html", reportconfig.Delivery{Method: reportconfig.DeliveryStorage})
	h.records.err = errors.New("source collection unreachable")

	instanceID, err := h.svc.Generate(context.Background(), h.cfg.ID.Hex(), false)
	if err == nil {
		t.Fatal("expected error from failed generation")
	}
	if instanceID == "" {
		t.Fatal("instance should exist once generation has started")
	}

	inst := h.repo.instances[instanceID]
	if inst.Status != StatusFailed {
		t.Fatalf("instance status = %q, want %q", inst.Status, StatusFailed)
	}
	if !strings.Contains(inst.Error, "source collection unreachable") {
		t.Fatalf("instance error %q does not capture the cause", inst.Error)
	}
	if len(h.repo.reports) != 0 {
		t.Fatal("failed generation must not register a report")
	}
}

func TestGenerateDisabledConfig(t *testing.T) {
	h := newHarness(t, "body", "text", reportconfig.Delivery{Method: reportconfig.DeliveryStorage})
	h.cfg.Enabled = false

	if _, err := h.svc.Generate(context.Background(), h.cfg.ID.Hex(), false); !errors.Is(err, ErrConfigDisabled) {
		t.Fatalf("scheduled run of disabled config: err = %v, want ErrConfigDisabled", err)
	}

	// A manual trigger bypasses the enabled flag.
	if _, err := h.svc.Generate(context.Background(), h.cfg.ID.Hex(), true); err != nil {
		t.Fatalf("manual run of disabled config: %v", err)
	}
}

func TestGenerateEmailDeliveryHandoff(t *testing.T) {
	h := newHarness(t, "body", "csv", reportconfig.Delivery{
		Method:  reportconfig.DeliveryEmail,
		Subject: "Weekly report",
	})
	h.cfg.Recipients = []reportconfig.Recipient{
		{Email: "a@example.com", Enabled: true},
		{Email: "b@example.com", Enabled: false},
	}

	if _, err := h.svc.Generate(context.Background(), h.cfg.ID.Hex(), false); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(h.handoff.calls) != 1 {
		t.Fatalf("email handoff calls = %d, want 1", len(h.handoff.calls))
	}
}

func TestDownloadRoundTripsArtifactBytes(t *testing.T) {
	h := newHarness(t, "report body text", "text", reportconfig.Delivery{Method: reportconfig.DeliveryStorage})

	instanceID, err := h.svc.Generate(context.Background(), h.cfg.ID.Hex(), false)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	rep, err := h.repo.GetReportByInstance(context.Background(), instanceID)
	if err != nil {
		t.Fatalf("report not registered: %v", err)
	}

	rc, _, err := h.svc.Download(context.Background(), rep.ID.Hex(), "owner-1", "10.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if !bytes.Equal(got, h.blob.files[rep.FilePath]) {
		t.Fatal("downloaded bytes differ from stored artifact")
	}
	if len(h.access.entries) != 1 || h.access.entries[0] != rep.ID.Hex()+"/download" {
		t.Fatalf("access log entries = %v", h.access.entries)
	}
}

func TestSweepOrphansReclaimsStaleState(t *testing.T) {
	h := newHarness(t, "body", "text", reportconfig.Delivery{Method: reportconfig.DeliveryStorage})

	// A crashed worker leaves an instance stuck in generating.
	stuck := &ReportInstance{ConfigID: h.cfg.ID, WorkspaceID: "ws-1"}
	stuckID, _ := h.repo.CreateInstance(context.Background(), stuck)
	_ = h.repo.MarkGenerating(context.Background(), stuckID)
	stuck.GeneratedAt = time.Now().Add(-time.Hour)

	// A failed registration leaves an artifact with no report row.
	orphan := &ReportInstance{ConfigID: h.cfg.ID, WorkspaceID: "ws-1"}
	orphanID, _ := h.repo.CreateInstance(context.Background(), orphan)
	_ = h.repo.MarkGenerating(context.Background(), orphanID)
	_ = h.repo.FailInstance(context.Background(), orphanID, "register report: write conflict", 5)
	_ = h.repo.SetInstanceMetadata(context.Background(), orphanID, "artifact_path", "orphan.txt")
	orphan.GeneratedAt = time.Now().Add(-time.Hour)
	h.blob.files["orphan.txt"] = []byte("dangling")

	if err := h.svc.SweepOrphans(context.Background()); err != nil {
		t.Fatalf("SweepOrphans: %v", err)
	}

	if h.repo.instances[stuckID].Status != StatusFailed {
		t.Fatalf("stale instance status = %q, want %q", h.repo.instances[stuckID].Status, StatusFailed)
	}
	if _, ok := h.blob.files["orphan.txt"]; ok {
		t.Fatal("orphan artifact was not reclaimed")
	}
}

func TestExportCSVDeterministicColumns(t *testing.T) {
	records := []map[string]any{
		{"b": "2", "a": "1"},
		{"a": "3", "c": "4"},
	}

	first, err := exportCSV(records, nil)
	if err != nil {
		t.Fatalf("exportCSV: %v", err)
	}
	second, err := exportCSV(records, nil)
	if err != nil {
		t.Fatalf("exportCSV: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatal("identical inputs produced different csv output")
	}

	lines := strings.Split(strings.TrimSpace(string(first)), "\n")
	if lines[0] != "a,b,c" {
		t.Fatalf("header = %q, want sorted union of keys", lines[0])
	}
	if lines[1] != "1,2," || lines[2] != "3,,4" {
		t.Fatalf("rows = %q", lines[1:])
	}
}
