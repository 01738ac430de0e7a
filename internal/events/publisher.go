// Package events publishes pipeline lifecycle events to Redis streams so
// downstream consumers (notifications, audit) can react without polling.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

const (
	// StreamJobs carries extraction job status transitions.
	StreamJobs = "pipeline:jobs"
	// StreamOutcomes carries prediction grading events.
	StreamOutcomes = "pipeline:outcomes"

	maxStreamLen   = 10000
	publishTimeout = 5 * time.Second
)

// JobEvent is one job status transition.
type JobEvent struct {
	JobID       string    `json:"job_id"`
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Predictions int       `json:"predictions"`
	FailedUnits int       `json:"failed_units"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// OutcomeEvent is one prediction grading.
type OutcomeEvent struct {
	PredictionID string    `json:"prediction_id"`
	AssetSymbol  string    `json:"asset_symbol"`
	Outcome      string    `json:"outcome"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher writes events to Redis streams. A nil *Publisher is a valid
// no-op, so event publishing stays optional in tests and local runs.
type Publisher struct {
	client *redis.Client
	log    logger.Logger
}

// NewPublisher creates a stream publisher over the given Redis client.
func NewPublisher(client *redis.Client, log logger.Logger) *Publisher {
	return &Publisher{client: client, log: log}
}

// PublishJob records a job transition on the jobs stream.
func (p *Publisher) PublishJob(ctx context.Context, ev JobEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return p.publish(ctx, StreamJobs, ev)
}

// PublishOutcome records a grading on the outcomes stream.
func (p *Publisher) PublishOutcome(ctx context.Context, ev OutcomeEvent) error {
	if p == nil || p.client == nil {
		return nil
	}
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	return p.publish(ctx, StreamOutcomes, ev)
}

// PublishJobAsync publishes without blocking the caller; failures are
// logged, never surfaced.
func (p *Publisher) PublishJobAsync(ev JobEvent) {
	if p == nil || p.client == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.PublishJob(ctx, ev); err != nil {
			p.log.Warn("job event publish failed",
				logger.String("job_id", ev.JobID),
				logger.Error(err),
			)
		}
	}()
}

func (p *Publisher) publish(ctx context.Context, stream string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxStreamLen,
		Approx: true,
		Values: map[string]any{"payload": string(data)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", stream, err)
	}
	return nil
}
