package reportconfig

import (
	"context"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	common_models "go-reporting/internal/common/models"
	"go-reporting/internal/features/template"
)

type fakeConfigRepo struct {
	configs map[string]*ReportConfig
}

func newFakeConfigRepo() *fakeConfigRepo {
	return &fakeConfigRepo{configs: map[string]*ReportConfig{}}
}

func (f *fakeConfigRepo) Create(_ context.Context, cfg *ReportConfig) error {
	if cfg.ID.IsZero() {
		cfg.ID = primitive.NewObjectID()
	}
	f.configs[cfg.ID.Hex()] = cfg
	return nil
}

func (f *fakeConfigRepo) GetByID(_ context.Context, id string) (*ReportConfig, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *cfg
	return &cp, nil
}

func (f *fakeConfigRepo) List(context.Context, string) ([]ReportConfig, error) { return nil, nil }

func (f *fakeConfigRepo) Update(_ context.Context, cfg *ReportConfig) error {
	if _, ok := f.configs[cfg.ID.Hex()]; !ok {
		return ErrNotFound
	}
	f.configs[cfg.ID.Hex()] = cfg
	return nil
}

func (f *fakeConfigRepo) Delete(_ context.Context, id string) error {
	delete(f.configs, id)
	return nil
}

func (f *fakeConfigRepo) ListDue(context.Context, time.Time) ([]ReportConfig, error) {
	return nil, nil
}

func (f *fakeConfigRepo) UpdateScheduleState(context.Context, string, time.Time, *time.Time, bool) error {
	return nil
}

func (f *fakeConfigRepo) CountByTemplate(context.Context, string) (int64, error) { return 0, nil }

type fakeTemplateRepo struct {
	templates map[string]*template.ReportTemplate
}

func (f *fakeTemplateRepo) Create(context.Context, *template.ReportTemplate) error { return nil }

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

func newConfigHarness() (ConfigService, *fakeConfigRepo, primitive.ObjectID) {
	repo := newFakeConfigRepo()
	tmplID := primitive.NewObjectID()
	tmpls := &fakeTemplateRepo{templates: map[string]*template.ReportTemplate{
		tmplID.Hex(): {ID: tmplID, Name: "Weekly Summary", Body: "Report for {{config.name}}"},
	}}
	return NewConfigService(repo, tmpls), repo, tmplID
}

func validConfig(tmplID primitive.ObjectID) *ReportConfig {
	return &ReportConfig{
		Name:       "weekly",
		TemplateID: tmplID,
		RecordType: "findings",
		Format:     Format{Type: FormatHTML},
		Delivery:   Delivery{Method: DeliveryStorage},
		Schedule:   Schedule{Type: ScheduleRecurring, Cron: "0 9 * * 1"},
		Enabled:    true,
	}
}

func TestCreateConfigValidation(t *testing.T) {
	svc, _, tmplID := newConfigHarness()
	runAt := time.Now().Add(time.Hour)

	tests := []struct {
		name    string
		mutate  func(*ReportConfig)
		wantErr bool
	}{
		{"valid recurring", func(*ReportConfig) {}, false},
		{"valid once", func(c *ReportConfig) {
			c.Schedule = Schedule{Type: ScheduleOnce, RunAt: &runAt}
		}, false},
		{"missing name", func(c *ReportConfig) { c.Name = "" }, true},
		{"unknown template", func(c *ReportConfig) { c.TemplateID = primitive.NewObjectID() }, true},
		{"missing record type", func(c *ReportConfig) { c.RecordType = "" }, true},
		{"bad filter operator", func(c *ReportConfig) {
			c.Filters = []common_models.Filter{{Field: "severity", Operator: "like", Value: "high"}}
		}, true},
		{"bad format", func(c *ReportConfig) { c.Format.Type = "pdf" }, true},
		{"email without recipients", func(c *ReportConfig) {
			c.Delivery = Delivery{Method: DeliveryEmail}
		}, true},
		{"email with disabled recipient only", func(c *ReportConfig) {
			c.Delivery = Delivery{Method: DeliveryEmail}
			c.Recipients = []Recipient{{Email: "ops@example.com", Enabled: false}}
		}, true},
		{"bad cron", func(c *ReportConfig) { c.Schedule.Cron = "every tuesday" }, true},
		{"once without run_at", func(c *ReportConfig) {
			c.Schedule = Schedule{Type: ScheduleOnce}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(tmplID)
			tt.mutate(cfg)
			err := svc.CreateConfig(context.Background(), cfg)
			if tt.wantErr && err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestCreateConfigComputesNextRun(t *testing.T) {
	svc, repo, tmplID := newConfigHarness()

	cfg := validConfig(tmplID)
	if err := svc.CreateConfig(context.Background(), cfg); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}

	stored := repo.configs[cfg.ID.Hex()]
	if stored.Schedule.NextRun == nil {
		t.Fatal("recurring config stored without next_run")
	}
	if !stored.Schedule.NextRun.After(time.Now()) {
		t.Fatalf("next_run %v is not in the future", stored.Schedule.NextRun)
	}
	if stored.Schedule.LastRun != nil {
		t.Fatal("fresh config should have no last_run")
	}
}

func TestUpdateConfigScheduleBookkeeping(t *testing.T) {
	svc, repo, tmplID := newConfigHarness()
	ctx := context.Background()

	cfg := validConfig(tmplID)
	if err := svc.CreateConfig(ctx, cfg); err != nil {
		t.Fatalf("CreateConfig: %v", err)
	}
	id := cfg.ID.Hex()

	// Simulate scheduler bookkeeping on the stored row.
	ran := time.Now().Add(-time.Hour)
	repo.configs[id].Schedule.LastRun = &ran

	t.Run("unchanged schedule keeps bookkeeping", func(t *testing.T) {
		upd := validConfig(tmplID)
		upd.Description = "now with a description"
		if err := svc.UpdateConfig(ctx, id, upd); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		if repo.configs[id].Schedule.LastRun == nil {
			t.Fatal("untouched schedule lost its last_run")
		}
	})

	t.Run("changed cron resets bookkeeping", func(t *testing.T) {
		upd := validConfig(tmplID)
		upd.Schedule.Cron = "30 6 * * *"
		if err := svc.UpdateConfig(ctx, id, upd); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		got := repo.configs[id].Schedule
		if got.LastRun != nil {
			t.Fatal("rescheduled config kept stale last_run")
		}
		if got.NextRun == nil {
			t.Fatal("rescheduled config missing next_run")
		}
	})

	t.Run("consumed once stays consumed", func(t *testing.T) {
		past := time.Now().Add(-24 * time.Hour)
		once := validConfig(tmplID)
		once.Schedule = Schedule{Type: ScheduleOnce, RunAt: &past}
		if err := svc.CreateConfig(ctx, once); err != nil {
			t.Fatalf("CreateConfig: %v", err)
		}
		onceID := once.ID.Hex()
		repo.configs[onceID].Schedule.Consumed = true

		future := time.Now().Add(time.Hour)
		upd := validConfig(tmplID)
		upd.Schedule = Schedule{Type: ScheduleOnce, RunAt: &future}
		if err := svc.UpdateConfig(ctx, onceID, upd); err != nil {
			t.Fatalf("UpdateConfig: %v", err)
		}
		got := repo.configs[onceID].Schedule
		if !got.Consumed {
			t.Fatal("consumed once schedule was revived by an update")
		}
		if got.NextRun != nil {
			t.Fatal("consumed schedule must not regain a next_run")
		}
	})
}
