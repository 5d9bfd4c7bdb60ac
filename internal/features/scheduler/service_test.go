package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"go-reporting/internal/config"
	"go-reporting/internal/features/reportconfig"
)

type fakeOccurrenceRepo struct {
	mu     sync.Mutex
	byKey  map[string]*Occurrence
	status map[string]string
}

func newFakeOccurrenceRepo() *fakeOccurrenceRepo {
	return &fakeOccurrenceRepo{byKey: map[string]*Occurrence{}, status: map[string]string{}}
}

func (f *fakeOccurrenceRepo) Claim(_ context.Context, occ *Occurrence) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byKey[occ.Key]; ok {
		return ErrAlreadyClaimed
	}
	occ.ID = primitive.NewObjectID()
	occ.ClaimedAt = time.Now().UTC()
	f.byKey[occ.Key] = occ
	return nil
}

func (f *fakeOccurrenceRepo) SetOutcome(_ context.Context, key, status, instanceID, errMsg string, attempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	occ, ok := f.byKey[key]
	if !ok {
		return errors.New("unknown occurrence")
	}
	occ.Status = status
	occ.InstanceID = instanceID
	occ.Error = errMsg
	occ.Attempts = attempts
	f.status[key] = status
	return nil
}

func (f *fakeOccurrenceRepo) List(context.Context, string, int64) ([]Occurrence, error) {
	return nil, nil
}
func (f *fakeOccurrenceRepo) EnsureIndexes(context.Context) error { return nil }

type fakeScheduleConfigs struct {
	mu      sync.Mutex
	configs map[string]*reportconfig.ReportConfig
}

func (f *fakeScheduleConfigs) Create(context.Context, *reportconfig.ReportConfig) error { return nil }

func (f *fakeScheduleConfigs) GetByID(_ context.Context, id string) (*reportconfig.ReportConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[id]
	if !ok {
		return nil, reportconfig.ErrNotFound
	}
	return cfg, nil
}

func (f *fakeScheduleConfigs) List(context.Context, string) ([]reportconfig.ReportConfig, error) {
	return nil, nil
}
func (f *fakeScheduleConfigs) Update(context.Context, *reportconfig.ReportConfig) error { return nil }
func (f *fakeScheduleConfigs) Delete(context.Context, string) error                     { return nil }

func (f *fakeScheduleConfigs) ListDue(_ context.Context, now time.Time) ([]reportconfig.ReportConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []reportconfig.ReportConfig
	for _, cfg := range f.configs {
		if cfg.Enabled && !cfg.Schedule.Consumed && cfg.Schedule.NextRun != nil && !cfg.Schedule.NextRun.After(now) {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (f *fakeScheduleConfigs) UpdateScheduleState(_ context.Context, id string, lastRun time.Time, nextRun *time.Time, consumed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg, ok := f.configs[id]
	if !ok {
		return reportconfig.ErrNotFound
	}
	cfg.Schedule.LastRun = &lastRun
	cfg.Schedule.NextRun = nextRun
	if consumed {
		cfg.Schedule.Consumed = true
	}
	return nil
}

func (f *fakeScheduleConfigs) CountByTemplate(context.Context, string) (int64, error) { return 0, nil }

type fakeGenerator struct {
	mu         sync.Mutex
	calls      int
	instanceID string
	err        error
}

func (f *fakeGenerator) Generate(context.Context, string, bool) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.instanceID, f.err
}

func (f *fakeGenerator) SweepOrphans(context.Context) error { return nil }

func newTestScheduler(configs *fakeScheduleConfigs, gen *fakeGenerator, occ *fakeOccurrenceRepo) *Scheduler {
	return &Scheduler{
		Occurrences: occ,
		Configs:     configs,
		Generator:   gen,
		Cfg: &config.Config{
			SchedulerInterval: time.Second,
			TriggerRetries:    3,
		},
		Logger:     zap.NewNop(),
		RetryDelay: 0,
	}
}

func onceConfig(due time.Time) *reportconfig.ReportConfig {
	return &reportconfig.ReportConfig{
		ID:      primitive.NewObjectID(),
		Name:    "once report",
		Enabled: true,
		Schedule: reportconfig.Schedule{
			Type:    reportconfig.ScheduleOnce,
			RunAt:   &due,
			NextRun: &due,
		},
	}
}

func TestOnceScheduleFiresExactlyOnce(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	cfg := onceConfig(due)
	configs := &fakeScheduleConfigs{configs: map[string]*reportconfig.ReportConfig{cfg.ID.Hex(): cfg}}
	gen := &fakeGenerator{instanceID: "inst-1"}
	occ := newFakeOccurrenceRepo()
	s := newTestScheduler(configs, gen, occ)

	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generate calls = %d, want 1", gen.calls)
	}
	if !cfg.Schedule.Consumed {
		t.Fatal("once schedule not consumed after trigger")
	}

	// A later poll sees nothing due: the schedule is consumed.
	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("second Poll: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("consumed schedule fired again, calls = %d", gen.calls)
	}
}

func TestConcurrentWorkersClaimOnce(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	cfg := onceConfig(due)
	gen := &fakeGenerator{instanceID: "inst-1"}
	occ := newFakeOccurrenceRepo()

	// Two workers share the occurrence store but see independent copies of
	// the due config, as two processes polling the same database would.
	configsA := &fakeScheduleConfigs{configs: map[string]*reportconfig.ReportConfig{cfg.ID.Hex(): cfg}}
	cfgCopy := *cfg
	configsB := &fakeScheduleConfigs{configs: map[string]*reportconfig.ReportConfig{cfg.ID.Hex(): &cfgCopy}}

	var wg sync.WaitGroup
	for _, s := range []*Scheduler{
		newTestScheduler(configsA, gen, occ),
		newTestScheduler(configsB, gen, occ),
	} {
		wg.Add(1)
		go func(s *Scheduler) {
			defer wg.Done()
			_ = s.Poll(context.Background())
		}(s)
	}
	wg.Wait()

	if gen.calls != 1 {
		t.Fatalf("generate calls = %d, want exactly 1 across workers", gen.calls)
	}
}

func TestPreInstanceFailureRetries(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	cfg := onceConfig(due)
	configs := &fakeScheduleConfigs{configs: map[string]*reportconfig.ReportConfig{cfg.ID.Hex(): cfg}}
	gen := &fakeGenerator{instanceID: "", err: errors.New("config store down")}
	occ := newFakeOccurrenceRepo()
	s := newTestScheduler(configs, gen, occ)

	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if gen.calls != 3 {
		t.Fatalf("generate calls = %d, want full retry budget of 3", gen.calls)
	}

	key := OccurrenceKey(cfg.ID, due.UTC())
	if occ.status[key] != OccurrenceFailed {
		t.Fatalf("occurrence status = %q, want %q", occ.status[key], OccurrenceFailed)
	}
	if !cfg.Schedule.Consumed {
		t.Fatal("once schedule must be consumed even after a failed trigger")
	}
}

func TestCapturedFailureIsNotRetried(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	cfg := onceConfig(due)
	configs := &fakeScheduleConfigs{configs: map[string]*reportconfig.ReportConfig{cfg.ID.Hex(): cfg}}
	// An instance id with an error means generation ran and recorded its
	// own failure.
	gen := &fakeGenerator{instanceID: "inst-9", err: errors.New("render failed")}
	occ := newFakeOccurrenceRepo()
	s := newTestScheduler(configs, gen, occ)

	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if gen.calls != 1 {
		t.Fatalf("generate calls = %d, want 1 (no retry once an instance exists)", gen.calls)
	}

	key := OccurrenceKey(cfg.ID, due.UTC())
	if occ.byKey[key].Status != OccurrenceTriggered {
		t.Fatalf("occurrence status = %q, want %q", occ.byKey[key].Status, OccurrenceTriggered)
	}
	if occ.byKey[key].InstanceID != "inst-9" {
		t.Fatalf("occurrence instance = %q", occ.byKey[key].InstanceID)
	}
}

func TestRecurringScheduleAdvances(t *testing.T) {
	due := time.Now().Add(-time.Minute)
	cfg := &reportconfig.ReportConfig{
		ID:      primitive.NewObjectID(),
		Name:    "hourly report",
		Enabled: true,
		Schedule: reportconfig.Schedule{
			Type:    reportconfig.ScheduleRecurring,
			Cron:    "0 * * * *",
			NextRun: &due,
		},
	}
	configs := &fakeScheduleConfigs{configs: map[string]*reportconfig.ReportConfig{cfg.ID.Hex(): cfg}}
	gen := &fakeGenerator{instanceID: "inst-1"}
	s := newTestScheduler(configs, gen, newFakeOccurrenceRepo())

	if err := s.Poll(context.Background()); err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if cfg.Schedule.Consumed {
		t.Fatal("recurring schedule must never be consumed")
	}
	if cfg.Schedule.NextRun == nil || !cfg.Schedule.NextRun.After(time.Now()) {
		t.Fatalf("next run not advanced: %v", cfg.Schedule.NextRun)
	}
}
