package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/dedupe"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/metrics"
)

// ContentCollector is the collection stage boundary.
type ContentCollector interface {
	Collect(ctx context.Context, ch domain.Channel, forecasterName string, since time.Time) ([]domain.ContentItem, error)
	Resolve(ctx context.Context, sourceType domain.ChannelType, url string) (domain.ContentItem, error)
}

// DocumentNormalizer is the transcription/normalization stage boundary.
type DocumentNormalizer interface {
	Normalize(ctx context.Context, item domain.ContentItem) (domain.NormalizedDocument, error)
}

// Extractor is the LLM extraction stage boundary.
type Extractor interface {
	Extract(ctx context.Context, doc domain.NormalizedDocument, publishedAt time.Time) ([]domain.PredictionCandidate, error)
}

// PredictionWriter persists extracted predictions.
type PredictionWriter interface {
	Insert(ctx context.Context, p *domain.Prediction) error
}

// PriceSource captures a baseline price at prediction creation time.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

// Pipeline runs one (forecaster, channel) unit end to end: collect,
// deduplicate, normalize, extract, persist. Item failures are counted and
// skipped; only a collection failure fails the unit.
type Pipeline struct {
	collector  ContentCollector
	normalizer DocumentNormalizer
	extractor  Extractor
	writer     PredictionWriter
	prices     PriceSource
	deduper    dedupe.Deduper
	metrics    *metrics.Metrics
	log        logger.Logger
}

// NewPipeline wires the pipeline stages together. prices may be nil, in
// which case predictions are stored without a baseline.
func NewPipeline(
	collector ContentCollector,
	normalizer DocumentNormalizer,
	extractor Extractor,
	writer PredictionWriter,
	prices PriceSource,
	deduper dedupe.Deduper,
	m *metrics.Metrics,
	log logger.Logger,
) *Pipeline {
	return &Pipeline{
		collector:  collector,
		normalizer: normalizer,
		extractor:  extractor,
		writer:     writer,
		prices:     prices,
		deduper:    deduper,
		metrics:    m,
		log:        log,
	}
}

// ProcessChannel processes one channel for one forecaster. Cancellation is
// cooperative: the in-flight item finishes, remaining items are left for a
// later run and the unit reports cancelled.
func (p *Pipeline) ProcessChannel(ctx context.Context, f domain.Forecaster, ch domain.Channel, since time.Time) domain.UnitResult {
	result := domain.UnitResult{
		ForecasterID: f.ID,
		ChannelID:    ch.ID,
		Source:       ch.Type,
		Status:       domain.UnitSucceeded,
	}

	items, err := p.collector.Collect(ctx, ch, f.Name, since)
	if err != nil {
		result.Status = domain.UnitFailed
		if ctx.Err() != nil {
			result.Status = domain.UnitCancelled
		} else {
			result.Error = err.Error()
		}
		p.metrics.UnitProcessed(string(result.Status))
		return result
	}
	result.ItemsCollected = len(items)
	p.metrics.ItemsCollected(ch.Type.SourceKey(), len(items))

	for _, item := range items {
		if ctx.Err() != nil {
			result.Status = domain.UnitCancelled
			break
		}

		n, err := p.processItem(ctx, f, item, false)
		if err != nil {
			result.ItemsSkipped++
			p.log.Warn("item skipped",
				logger.String("channel_id", ch.ID),
				logger.String("external_id", item.ExternalID),
				logger.Error(err),
			)
			continue
		}
		result.Predictions += n
	}

	p.metrics.PredictionsExtracted(ch.Type.SourceKey(), result.Predictions)
	p.metrics.UnitProcessed(string(result.Status))
	return result
}

// ProcessURL processes a single content item by URL. Single requests bypass
// deduplication so a re-run re-extracts.
func (p *Pipeline) ProcessURL(ctx context.Context, f domain.Forecaster, sourceType domain.ChannelType, url string) domain.UnitResult {
	result := domain.UnitResult{
		ForecasterID: f.ID,
		Source:       sourceType,
		Status:       domain.UnitSucceeded,
	}

	item, err := p.collector.Resolve(ctx, sourceType, url)
	if err != nil {
		result.Status = domain.UnitFailed
		result.Error = err.Error()
		p.metrics.UnitProcessed(string(result.Status))
		return result
	}
	result.ItemsCollected = 1
	p.metrics.ItemsCollected(sourceType.SourceKey(), 1)

	n, err := p.processItem(ctx, f, item, true)
	if err != nil {
		result.Status = domain.UnitFailed
		result.Error = err.Error()
		p.metrics.UnitProcessed(string(result.Status))
		return result
	}
	result.Predictions = n

	p.metrics.PredictionsExtracted(sourceType.SourceKey(), n)
	p.metrics.UnitProcessed(string(result.Status))
	return result
}

// errDuplicate marks an already-processed item.
type errDuplicate struct{}

func (errDuplicate) Error() string { return "item already processed" }

func (p *Pipeline) processItem(ctx context.Context, f domain.Forecaster, item domain.ContentItem, force bool) (int, error) {
	key := item.IdempotencyKey()

	if !force {
		seen, err := p.deduper.Seen(ctx, key)
		if err != nil {
			return 0, err
		}
		if seen {
			p.metrics.ItemSkipped("duplicate")
			return 0, errDuplicate{}
		}
	}

	doc, err := p.normalizer.Normalize(ctx, item)
	if err != nil {
		p.metrics.ItemSkipped("normalize")
		return 0, err
	}

	candidates, err := p.extractor.Extract(ctx, doc, item.PublishedAt)
	if err != nil {
		p.metrics.ItemSkipped("extract")
		return 0, err
	}

	stored := 0
	for _, c := range candidates {
		pred := p.buildPrediction(ctx, f, item, c)
		if err := p.writer.Insert(ctx, &pred); err != nil {
			p.log.Error("prediction insert failed",
				logger.String("forecaster_id", f.ID),
				logger.String("asset", pred.AssetSymbol),
				logger.Error(err),
			)
			continue
		}
		stored++
	}

	if err := p.deduper.Mark(ctx, key); err != nil {
		p.log.Warn("dedupe mark failed", logger.String("key", key), logger.Error(err))
	}
	return stored, nil
}

func (p *Pipeline) buildPrediction(ctx context.Context, f domain.Forecaster, item domain.ContentItem, c domain.PredictionCandidate) domain.Prediction {
	pred := domain.Prediction{
		ID:             uuid.NewString(),
		ForecasterID:   f.ID,
		AssetSymbol:    c.AssetSymbol,
		AssetType:      domain.AssetType(c.AssetType),
		PredictionText: c.PredictionText,
		Direction:      domain.Direction(c.Direction),
		Confidence:     c.Confidence,
		TargetPrice:    c.TargetPrice,
		TargetDate:     c.TargetDate,
		CreatedAt:      time.Now().UTC(),
		Outcome:        domain.OutcomePending,
		Source: domain.SourceMetadata{
			Type: item.ChannelType.SourceKey(),
			URL:  item.SourceURL,
		},
	}

	// Baseline capture is best effort; grading falls back to the window
	// open when it is absent.
	if p.prices != nil && pred.AssetSymbol != "" {
		if price, err := p.prices.Price(ctx, pred.AssetSymbol); err == nil && price > 0 {
			pred.BaselinePrice = &price
		} else if err != nil {
			p.log.Debug("baseline price unavailable",
				logger.String("asset", pred.AssetSymbol),
				logger.Error(err),
			)
		}
	}

	return pred
}
