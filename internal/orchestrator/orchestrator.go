// Package orchestrator runs extraction jobs: single-URL requests and bulk
// fan-out over tracked forecasters' channels. Jobs are RUNNING until every
// unit has been attempted; per-unit failures land in the results summary
// without failing the job.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/events"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/metrics"
)

// JobStore persists extraction jobs.
type JobStore interface {
	Create(ctx context.Context, job *domain.ExtractionJob) error
	Get(ctx context.Context, id string) (*domain.ExtractionJob, error)

	// Finish transitions a job to a terminal status. Implementations
	// enforce domain.ValidateJobTransition.
	Finish(ctx context.Context, job *domain.ExtractionJob) error
}

// Directory reads forecaster and channel configuration.
type Directory interface {
	GetForecaster(ctx context.Context, id string) (*domain.Forecaster, error)
	ListForecasters(ctx context.Context) ([]domain.Forecaster, error)

	// ListEnabledChannels returns the forecaster's enabled channels,
	// optionally restricted to the given source types.
	ListEnabledChannels(ctx context.Context, forecasterID string, sources []domain.ChannelType) ([]domain.Channel, error)
}

// Config holds orchestrator settings.
type Config struct {
	// Workers bounds concurrent units within one bulk job.
	Workers int
	// CollectWindow is how far back bulk collection looks.
	CollectWindow time.Duration
}

// Orchestrator owns the extraction job lifecycle.
type Orchestrator struct {
	jobs     JobStore
	dir      Directory
	pipeline *Pipeline
	events   *events.Publisher
	metrics  *metrics.Metrics
	cfg      Config
	log      logger.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	running sync.WaitGroup
}

// New creates an orchestrator.
func New(jobs JobStore, dir Directory, pipeline *Pipeline, pub *events.Publisher, m *metrics.Metrics, cfg Config, log logger.Logger) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.CollectWindow <= 0 {
		cfg.CollectWindow = 7 * 24 * time.Hour
	}
	return &Orchestrator{
		jobs:     jobs,
		dir:      dir,
		pipeline: pipeline,
		events:   pub,
		metrics:  m,
		cfg:      cfg,
		log:      log,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// unit is one (forecaster, channel) pair of a bulk job.
type unit struct {
	forecaster domain.Forecaster
	channel    domain.Channel
}

// TriggerSingle starts a job extracting from one source URL on behalf of a
// forecaster. The returned job is RUNNING; processing continues in the
// background.
func (o *Orchestrator) TriggerSingle(ctx context.Context, sourceType domain.ChannelType, url, forecasterID string) (*domain.ExtractionJob, error) {
	if !sourceType.IsValid() {
		return nil, fmt.Errorf("%w: unknown source type %q", domain.ErrOrchestration, sourceType)
	}
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", domain.ErrOrchestration)
	}

	// The forecaster is optional for single requests; without one the
	// prediction carries source provenance only.
	var forecaster domain.Forecaster
	if forecasterID != "" {
		f, err := o.dir.GetForecaster(ctx, forecasterID)
		if err != nil {
			return nil, fmt.Errorf("forecaster %s: %w", forecasterID, err)
		}
		forecaster = *f
	}

	job := &domain.ExtractionJob{
		ID:        uuid.NewString(),
		Type:      domain.JobSingle,
		Status:    domain.JobRunning,
		Sources:   []domain.ChannelType{sourceType},
		CreatedAt: time.Now().UTC(),
	}
	if forecaster.ID != "" {
		job.ForecasterIDs = []string{forecaster.ID}
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	// The goroutine keeps writing to job; callers get a detached copy of
	// the accepted state.
	accepted := *job

	runCtx := o.register(job.ID)
	o.running.Add(1)
	go func() {
		defer o.running.Done()
		defer o.unregister(job.ID)

		result := o.pipeline.ProcessURL(runCtx, forecaster, sourceType, url)
		job.Summary.Add(result)
		o.finish(job, runCtx.Err() != nil)
	}()

	return &accepted, nil
}

// TriggerBulk starts a job over the given forecasters and source types.
// Empty forecasterIDs means every tracked forecaster; empty sources means
// every channel type. Unit enumeration happens inside the job so a
// directory fault marks the job FAILED rather than losing it.
func (o *Orchestrator) TriggerBulk(ctx context.Context, forecasterIDs []string, sources []domain.ChannelType) (*domain.ExtractionJob, error) {
	for _, s := range sources {
		if !s.IsValid() {
			return nil, fmt.Errorf("%w: unknown source type %q", domain.ErrOrchestration, s)
		}
	}

	job := &domain.ExtractionJob{
		ID:            uuid.NewString(),
		Type:          domain.JobBulk,
		Status:        domain.JobRunning,
		ForecasterIDs: forecasterIDs,
		Sources:       sources,
		CreatedAt:     time.Now().UTC(),
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	accepted := *job

	runCtx := o.register(job.ID)
	o.running.Add(1)
	go func() {
		defer o.running.Done()
		defer o.unregister(job.ID)
		o.runBulk(runCtx, job, forecasterIDs, sources)
	}()

	return &accepted, nil
}

func (o *Orchestrator) runBulk(ctx context.Context, job *domain.ExtractionJob, forecasterIDs []string, sources []domain.ChannelType) {
	units, err := o.enumerateUnits(ctx, forecasterIDs, sources)
	if err != nil {
		job.Error = err.Error()
		o.finishAs(job, domain.JobFailed)
		return
	}

	o.log.Info("bulk job started",
		logger.String("job_id", job.ID),
		logger.Int("units", len(units)),
		logger.Int("workers", o.cfg.Workers),
	)

	since := time.Now().UTC().Add(-o.cfg.CollectWindow)

	unitCh := make(chan unit)
	resultCh := make(chan domain.UnitResult)

	var workers sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			for u := range unitCh {
				if ctx.Err() != nil {
					resultCh <- domain.UnitResult{
						ForecasterID: u.forecaster.ID,
						ChannelID:    u.channel.ID,
						Source:       u.channel.Type,
						Status:       domain.UnitCancelled,
					}
					continue
				}
				resultCh <- o.pipeline.ProcessChannel(ctx, u.forecaster, u.channel, since)
			}
		}()
	}

	go func() {
		defer close(unitCh)
		for _, u := range units {
			unitCh <- u
		}
	}()

	go func() {
		workers.Wait()
		close(resultCh)
	}()

	for result := range resultCh {
		job.Summary.Add(result)
	}

	o.finish(job, ctx.Err() != nil)
}

// enumerateUnits expands the request into (forecaster, channel) pairs.
func (o *Orchestrator) enumerateUnits(ctx context.Context, forecasterIDs []string, sources []domain.ChannelType) ([]unit, error) {
	var forecasters []domain.Forecaster
	if len(forecasterIDs) == 0 {
		all, err := o.dir.ListForecasters(ctx)
		if err != nil {
			return nil, fmt.Errorf("list forecasters: %w", err)
		}
		forecasters = all
	} else {
		for _, id := range forecasterIDs {
			f, err := o.dir.GetForecaster(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("forecaster %s: %w", id, err)
			}
			forecasters = append(forecasters, *f)
		}
	}

	var units []unit
	for _, f := range forecasters {
		channels, err := o.dir.ListEnabledChannels(ctx, f.ID, sources)
		if err != nil {
			return nil, fmt.Errorf("channels for %s: %w", f.ID, err)
		}
		for _, ch := range channels {
			units = append(units, unit{forecaster: f, channel: ch})
		}
	}
	return units, nil
}

// finish closes a job as COMPLETED, or CANCELLED when its context was
// cancelled mid-run.
func (o *Orchestrator) finish(job *domain.ExtractionJob, cancelled bool) {
	status := domain.JobCompleted
	if cancelled {
		status = domain.JobCancelled
	}
	o.finishAs(job, status)
}

func (o *Orchestrator) finishAs(job *domain.ExtractionJob, status domain.JobStatus) {
	job.Status = status
	now := time.Now().UTC()
	job.CompletedAt = &now

	// The run context may be cancelled; finishing must not be.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.jobs.Finish(ctx, job); err != nil {
		o.log.Error("job finish failed",
			logger.String("job_id", job.ID),
			logger.String("status", string(status)),
			logger.Error(err),
		)
		return
	}

	o.metrics.JobFinished(string(status))
	o.events.PublishJobAsync(events.JobEvent{
		JobID:       job.ID,
		Type:        string(job.Type),
		Status:      string(status),
		Predictions: job.Summary.Predictions,
		FailedUnits: job.Summary.Failed,
	})

	o.log.Info("job finished",
		logger.String("job_id", job.ID),
		logger.String("status", string(status)),
		logger.Int("units", job.Summary.TotalUnits),
		logger.Int("failed", job.Summary.Failed),
		logger.Int("predictions", job.Summary.Predictions),
	)
}

// Status returns the job's current state.
func (o *Orchestrator) Status(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	return o.jobs.Get(ctx, id)
}

// Cancel requests cancellation of a job. Cancelling an already-terminal job
// is accepted and changes nothing; the returned job reflects current state.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	job, err := o.jobs.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.IsTerminal() {
		return job, nil
	}

	o.mu.Lock()
	cancel, ok := o.cancels[id]
	o.mu.Unlock()
	if ok {
		cancel()
		o.log.Info("job cancellation requested", logger.String("job_id", id))
	}
	return job, nil
}

// Wait blocks until all background jobs have finished. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.running.Wait()
}

func (o *Orchestrator) register(jobID string) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	o.mu.Lock()
	o.cancels[jobID] = cancel
	o.mu.Unlock()
	return ctx
}

func (o *Orchestrator) unregister(jobID string) {
	o.mu.Lock()
	if cancel, ok := o.cancels[jobID]; ok {
		cancel()
		delete(o.cancels, jobID)
	}
	o.mu.Unlock()
}
