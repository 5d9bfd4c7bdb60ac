package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"go-reporting/internal/config"
	"go-reporting/internal/features/report"
	"go-reporting/internal/features/reportconfig"
)

// Generator is the slice of the report service the scheduler drives.
type Generator interface {
	Generate(ctx context.Context, configID string, manual bool) (string, error)
	SweepOrphans(ctx context.Context) error
}

// Scheduler polls for due configs and fires each occurrence exactly once
// across all workers. Claiming happens through a unique occurrence key, so
// the loop itself needs no coordination beyond the database.
type Scheduler struct {
	Occurrences OccurrenceRepository
	Configs     reportconfig.ConfigRepository
	Generator   Generator
	Cfg         *config.Config
	Logger      *zap.Logger
	RetryDelay  time.Duration

	sweepCounter int
}

func NewScheduler(
	occurrences OccurrenceRepository,
	configs reportconfig.ConfigRepository,
	generator Generator,
	cfg *config.Config,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		Occurrences: occurrences,
		Configs:     configs,
		Generator:   generator,
		Cfg:         cfg,
		Logger:      logger,
		RetryDelay:  time.Second,
	}
}

// Run polls until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Cfg.SchedulerInterval)
	defer ticker.Stop()

	s.Logger.Info("scheduler started", zap.Duration("interval", s.Cfg.SchedulerInterval))
	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			if err := s.Poll(ctx); err != nil {
				s.Logger.Error("scheduler poll failed", zap.Error(err))
			}
			s.sweepCounter++
			if s.sweepCounter%10 == 0 {
				if err := s.Generator.SweepOrphans(ctx); err != nil {
					s.Logger.Error("orphan sweep failed", zap.Error(err))
				}
			}
		}
	}
}

// Poll runs one scheduling pass: list due configs, claim each occurrence,
// trigger the winners and advance their schedules.
func (s *Scheduler) Poll(ctx context.Context) error {
	now := time.Now().UTC()
	due, err := s.Configs.ListDue(ctx, now)
	if err != nil {
		return err
	}

	for i := range due {
		cfg := &due[i]
		if cfg.Schedule.NextRun == nil {
			continue
		}
		dueAt := cfg.Schedule.NextRun.UTC()

		occ := &Occurrence{
			ConfigID: cfg.ID,
			Key:      OccurrenceKey(cfg.ID, dueAt),
			DueAt:    dueAt,
		}
		if err := s.Occurrences.Claim(ctx, occ); err != nil {
			if errors.Is(err, ErrAlreadyClaimed) {
				continue
			}
			s.Logger.Error("claim occurrence failed", zap.String("key", occ.Key), zap.Error(err))
			continue
		}

		s.fire(ctx, cfg, occ, now)
	}
	return nil
}

// fire triggers generation for a claimed occurrence and then advances the
// schedule. A once schedule is consumed after its single trigger no matter
// how generation ends.
func (s *Scheduler) fire(ctx context.Context, cfg *reportconfig.ReportConfig, occ *Occurrence, now time.Time) {
	var (
		instanceID string
		lastErr    error
		attempts   int
	)
	for attempts < s.Cfg.TriggerRetries {
		attempts++
		instanceID, lastErr = s.Generator.Generate(ctx, cfg.ID.Hex(), false)
		if instanceID != "" || lastErr == nil {
			// An instance exists: the outcome is recorded on it, never
			// retried here.
			break
		}
		if errors.Is(lastErr, report.ErrConfigDisabled) {
			break
		}
		s.Logger.Warn("trigger attempt failed",
			zap.String("configId", cfg.ID.Hex()),
			zap.Int("attempt", attempts),
			zap.Error(lastErr))
		if attempts < s.Cfg.TriggerRetries {
			time.Sleep(time.Duration(attempts) * s.RetryDelay)
		}
	}

	status := OccurrenceTriggered
	errMsg := ""
	if instanceID == "" {
		status = OccurrenceFailed
		if lastErr != nil {
			errMsg = lastErr.Error()
		}
	} else if lastErr != nil {
		errMsg = lastErr.Error()
	}
	if err := s.Occurrences.SetOutcome(ctx, occ.Key, status, instanceID, errMsg, attempts); err != nil {
		s.Logger.Error("record occurrence outcome failed", zap.String("key", occ.Key), zap.Error(err))
	}

	consumed := false
	var nextRun *time.Time
	if cfg.Schedule.Type == reportconfig.ScheduleOnce {
		consumed = true
	} else if sched, err := cron.ParseStandard(cfg.Schedule.Cron); err == nil {
		next := sched.Next(now)
		nextRun = &next
	}
	if err := s.Configs.UpdateScheduleState(ctx, cfg.ID.Hex(), now, nextRun, consumed); err != nil {
		s.Logger.Error("advance schedule failed", zap.String("configId", cfg.ID.Hex()), zap.Error(err))
	}
}

func (s *Scheduler) ListOccurrences(ctx context.Context, configID string, limit int64) ([]Occurrence, error) {
	return s.Occurrences.List(ctx, configID, limit)
}

// RegisterScheduler ties the poll loop to the application lifecycle.
func RegisterScheduler(lc fx.Lifecycle, s *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
