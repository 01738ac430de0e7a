package outcome

import (
	"context"
	"fmt"
	"time"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/events"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/metrics"
)

// PendingStore is the persistence surface the validator needs. Only PENDING
// predictions are ever listed or updated; the store enforces the guard on
// writes so a concurrent sweep cannot flip a terminal outcome.
type PendingStore interface {
	// ListPendingDue returns PENDING predictions whose target date has
	// passed, plus target-less ones older than noTargetHorizon.
	ListPendingDue(ctx context.Context, asOf time.Time, noTargetHorizon time.Duration) ([]domain.Prediction, error)

	// SetOutcomeIfPending records a terminal outcome, refusing the write if
	// the prediction already left PENDING.
	SetOutcomeIfPending(ctx context.Context, id string, outcome domain.Outcome) error
}

// Validator periodically grades due predictions.
type Validator struct {
	store     PendingStore
	market    MarketDataSource
	tolerance float64
	// horizon is how long a target-less prediction waits before it is
	// graded on direction alone.
	horizon time.Duration
	events  *events.Publisher
	metrics *metrics.Metrics
	log     logger.Logger
}

// ValidatorConfig holds sweep settings.
type ValidatorConfig struct {
	Tolerance       float64
	NoTargetHorizon time.Duration
}

// NewValidator creates an outcome validator. pub and m may be nil.
func NewValidator(store PendingStore, market MarketDataSource, cfg ValidatorConfig, pub *events.Publisher, m *metrics.Metrics, log logger.Logger) *Validator {
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 0.05
	}
	if cfg.NoTargetHorizon <= 0 {
		cfg.NoTargetHorizon = 30 * 24 * time.Hour
	}
	return &Validator{
		store:     store,
		market:    market,
		tolerance: cfg.Tolerance,
		horizon:   cfg.NoTargetHorizon,
		events:    pub,
		metrics:   m,
		log:       log,
	}
}

// Sweep grades every due prediction once. Failures on individual
// predictions are logged and skipped; they stay PENDING for the next sweep.
func (v *Validator) Sweep(ctx context.Context) error {
	now := time.Now().UTC()

	due, err := v.store.ListPendingDue(ctx, now, v.horizon)
	if err != nil {
		return fmt.Errorf("list due predictions: %w", err)
	}
	if len(due) == 0 {
		return nil
	}

	v.log.Info("outcome sweep started", logger.Int("due", len(due)))

	graded := 0
	for _, p := range due {
		if err := ctx.Err(); err != nil {
			return err
		}

		outcome, err := v.grade(ctx, p, now)
		if err != nil {
			v.log.Warn("grading failed, prediction stays pending",
				logger.String("prediction_id", p.ID),
				logger.String("asset", p.AssetSymbol),
				logger.Error(err),
			)
			continue
		}
		if !outcome.IsTerminal() {
			continue
		}

		if err := v.store.SetOutcomeIfPending(ctx, p.ID, outcome); err != nil {
			v.log.Warn("outcome write failed",
				logger.String("prediction_id", p.ID),
				logger.Error(err),
			)
			continue
		}
		graded++

		v.metrics.OutcomeGraded(string(outcome))
		if err := v.events.PublishOutcome(ctx, events.OutcomeEvent{
			PredictionID: p.ID,
			AssetSymbol:  p.AssetSymbol,
			Outcome:      string(outcome),
		}); err != nil {
			v.log.Warn("outcome event publish failed",
				logger.String("prediction_id", p.ID),
				logger.Error(err),
			)
		}
	}

	v.log.Info("outcome sweep finished",
		logger.Int("due", len(due)),
		logger.Int("graded", graded),
	)
	return nil
}

// Run sweeps on the given interval until ctx is cancelled. An immediate
// first sweep runs on start.
func (v *Validator) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	if err := v.Sweep(ctx); err != nil && ctx.Err() == nil {
		v.log.Error("outcome sweep failed", logger.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := v.Sweep(ctx); err != nil && ctx.Err() == nil {
				v.log.Error("outcome sweep failed", logger.Error(err))
			}
		}
	}
}

func (v *Validator) grade(ctx context.Context, p domain.Prediction, now time.Time) (domain.Outcome, error) {
	end := now
	if p.TargetDate != nil && p.TargetDate.Before(now) {
		end = *p.TargetDate
	}

	snap, err := v.market.Window(ctx, p.AssetSymbol, p.CreatedAt, end)
	if err != nil {
		return domain.OutcomePending, fmt.Errorf("price window for %s: %w", p.AssetSymbol, err)
	}

	return Evaluate(p, snap, now, v.tolerance), nil
}
