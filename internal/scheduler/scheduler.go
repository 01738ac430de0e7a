// Package scheduler runs recurring bulk extraction jobs from cron
// expressions in configuration.
package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/config"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

// BulkTrigger starts a bulk extraction job.
type BulkTrigger interface {
	TriggerBulk(ctx context.Context, forecasterIDs []string, sources []domain.ChannelType) (*domain.ExtractionJob, error)
}

// ScheduledJob describes one configured recurring run.
type ScheduledJob struct {
	Name        string    `json:"name"`
	Cron        string    `json:"cron"`
	Description string    `json:"description,omitempty"`
	NextRun     time.Time `json:"next_run"`
}

type entry struct {
	cfg config.ScheduleConfig
	id  cron.EntryID
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron    *cron.Cron
	trigger BulkTrigger
	entries []entry
	log     logger.Logger
}

// New builds a scheduler from the configured schedules. Invalid cron
// expressions are logged and skipped so one bad entry cannot take down the
// rest.
func New(schedules []config.ScheduleConfig, trigger BulkTrigger, log logger.Logger) *Scheduler {
	s := &Scheduler{
		cron:    cron.New(),
		trigger: trigger,
		log:     log,
	}

	for _, sc := range schedules {
		sc := sc
		id, err := s.cron.AddFunc(sc.Cron, func() { s.run(sc) })
		if err != nil {
			log.Error("invalid schedule skipped",
				logger.String("name", sc.Name),
				logger.String("cron", sc.Cron),
				logger.Error(err),
			)
			continue
		}
		s.entries = append(s.entries, entry{cfg: sc, id: id})
	}

	return s
}

func (s *Scheduler) run(sc config.ScheduleConfig) {
	sources := make([]domain.ChannelType, 0, len(sc.Sources))
	for _, src := range sc.Sources {
		sources = append(sources, domain.ChannelType(src))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	job, err := s.trigger.TriggerBulk(ctx, sc.ForecasterIDs, sources)
	if err != nil {
		s.log.Error("scheduled run failed to start",
			logger.String("schedule", sc.Name),
			logger.Error(err),
		)
		return
	}

	s.log.Info("scheduled run started",
		logger.String("schedule", sc.Name),
		logger.String("job_id", job.ID),
	)
}

// Start begins executing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", logger.Int("schedules", len(s.entries)))
}

// Stop halts the runner, waiting for in-flight triggers.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// List returns the configured schedules with their next run times.
func (s *Scheduler) List() []ScheduledJob {
	jobs := make([]ScheduledJob, 0, len(s.entries))
	for _, e := range s.entries {
		jobs = append(jobs, ScheduledJob{
			Name:        e.cfg.Name,
			Cron:        e.cfg.Cron,
			Description: e.cfg.Description,
			NextRun:     s.cron.Entry(e.id).Next,
		})
	}
	return jobs
}
