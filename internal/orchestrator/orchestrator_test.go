package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/dedupe"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

type fakeCollector struct {
	collectFunc func(ctx context.Context, ch domain.Channel, forecasterName string, since time.Time) ([]domain.ContentItem, error)
	resolveFunc func(ctx context.Context, sourceType domain.ChannelType, url string) (domain.ContentItem, error)
}

func (f *fakeCollector) Collect(ctx context.Context, ch domain.Channel, name string, since time.Time) ([]domain.ContentItem, error) {
	return f.collectFunc(ctx, ch, name, since)
}

func (f *fakeCollector) Resolve(ctx context.Context, sourceType domain.ChannelType, url string) (domain.ContentItem, error) {
	return f.resolveFunc(ctx, sourceType, url)
}

type fakeNormalizer struct{}

func (fakeNormalizer) Normalize(_ context.Context, item domain.ContentItem) (domain.NormalizedDocument, error) {
	return domain.NormalizedDocument{Text: item.Text}, nil
}

type fakeExtractor struct {
	perDoc int
}

func (f *fakeExtractor) Extract(context.Context, domain.NormalizedDocument, time.Time) ([]domain.PredictionCandidate, error) {
	out := make([]domain.PredictionCandidate, f.perDoc)
	for i := range out {
		out[i] = domain.PredictionCandidate{
			AssetSymbol:    "BTC",
			AssetType:      string(domain.AssetCrypto),
			Direction:      string(domain.DirectionBullish),
			Confidence:     0.8,
			PredictionText: "BTC up.",
		}
	}
	return out, nil
}

type fakeWriter struct {
	mu    sync.Mutex
	preds []domain.Prediction
}

func (f *fakeWriter) Insert(_ context.Context, p *domain.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preds = append(f.preds, *p)
	return nil
}

func (f *fakeWriter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.preds)
}

type fakeDirectory struct {
	forecasters []domain.Forecaster
	channels    map[string][]domain.Channel
}

func (f *fakeDirectory) GetForecaster(_ context.Context, id string) (*domain.Forecaster, error) {
	for _, fc := range f.forecasters {
		if fc.ID == id {
			return &fc, nil
		}
	}
	return nil, fmt.Errorf("forecaster %s: not found", id)
}

func (f *fakeDirectory) ListForecasters(context.Context) ([]domain.Forecaster, error) {
	return f.forecasters, nil
}

func (f *fakeDirectory) ListEnabledChannels(_ context.Context, forecasterID string, _ []domain.ChannelType) ([]domain.Channel, error) {
	return f.channels[forecasterID], nil
}

func newTestOrchestrator(t *testing.T, coll ContentCollector, dir Directory, workers int) (*Orchestrator, *MemoryJobStore, *fakeWriter) {
	t.Helper()
	writer := &fakeWriter{}
	pipeline := NewPipeline(coll, fakeNormalizer{}, &fakeExtractor{perDoc: 1}, writer, nil, dedupe.NewMemory(), nil, logger.NewNop())
	store := NewMemoryJobStore()
	orch := New(store, dir, pipeline, nil, nil, Config{Workers: workers, CollectWindow: time.Hour}, logger.NewNop())
	return orch, store, writer
}

func directoryOf(n int) *fakeDirectory {
	dir := &fakeDirectory{channels: make(map[string][]domain.Channel)}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("f-%d", i)
		dir.forecasters = append(dir.forecasters, domain.Forecaster{ID: id, Name: "Forecaster " + id})
		dir.channels[id] = []domain.Channel{{
			ID:           fmt.Sprintf("ch-%d", i),
			ForecasterID: id,
			Type:         domain.ChannelYouTube,
			ExternalID:   "UC" + id,
			IsPrimary:    true,
			Enabled:      true,
		}}
	}
	return dir
}

func waitTerminal(t *testing.T, store *MemoryJobStore, id string) *domain.ExtractionJob {
	t.Helper()
	var job *domain.ExtractionJob
	require.Eventually(t, func() bool {
		var err error
		job, err = store.Get(context.Background(), id)
		return err == nil && job.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	return job
}

func postItem(chID, extID string) domain.ContentItem {
	return domain.ContentItem{
		ExternalID:  extID,
		ChannelID:   chID,
		ChannelType: domain.ChannelYouTube,
		Kind:        domain.MediaPost,
		Text:        "BTC to the moon",
		PublishedAt: time.Now(),
	}
}

func TestBulkPartialFailureCompletes(t *testing.T) {
	// 5 forecasters; collection fails for two of them. The job must end
	// COMPLETED with 3 succeeded / 2 failed, not FAILED.
	coll := &fakeCollector{
		collectFunc: func(_ context.Context, ch domain.Channel, _ string, _ time.Time) ([]domain.ContentItem, error) {
			if ch.ID == "ch-2" || ch.ID == "ch-4" {
				return nil, errors.New("quota exceeded")
			}
			return []domain.ContentItem{postItem(ch.ID, "v1")}, nil
		},
	}
	orch, store, writer := newTestOrchestrator(t, coll, directoryOf(5), 2)

	job, err := orch.TriggerBulk(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.JobRunning, job.Status)

	done := waitTerminal(t, store, job.ID)
	assert.Equal(t, domain.JobCompleted, done.Status)
	assert.Equal(t, 5, done.Summary.TotalUnits)
	assert.Equal(t, 3, done.Summary.Succeeded)
	assert.Equal(t, 2, done.Summary.Failed)
	assert.Equal(t, 3, done.Summary.Predictions)
	assert.Equal(t, 3, writer.count())
}

func TestBulkCancellationMidway(t *testing.T) {
	started := make(chan struct{})
	coll := &fakeCollector{
		collectFunc: func(ctx context.Context, ch domain.Channel, _ string, _ time.Time) ([]domain.ContentItem, error) {
			if ch.ID == "ch-2" {
				close(started)
				<-ctx.Done()
				return nil, ctx.Err()
			}
			return []domain.ContentItem{postItem(ch.ID, "v1")}, nil
		},
	}
	orch, store, writer := newTestOrchestrator(t, coll, directoryOf(3), 1)

	job, err := orch.TriggerBulk(context.Background(), nil, nil)
	require.NoError(t, err)

	<-started
	_, err = orch.Cancel(context.Background(), job.ID)
	require.NoError(t, err)

	done := waitTerminal(t, store, job.ID)
	assert.Equal(t, domain.JobCancelled, done.Status)

	// Predictions from the unit that completed before cancellation stay.
	assert.Equal(t, 1, writer.count())
	assert.Equal(t, 1, done.Summary.Succeeded)
	assert.Equal(t, 3, done.Summary.TotalUnits)
	// The interrupted unit and the never-started one both read cancelled.
	assert.Equal(t, 2, done.Summary.Cancelled)
}

func TestTriggerReturnsDetachedJob(t *testing.T) {
	// HTTP handlers serialize the returned job immediately while the run
	// mutates its own instance in the background. The caller's copy must
	// stay frozen at the accepted state.
	coll := &fakeCollector{
		collectFunc: func(_ context.Context, ch domain.Channel, _ string, _ time.Time) ([]domain.ContentItem, error) {
			return []domain.ContentItem{postItem(ch.ID, "v1")}, nil
		},
		resolveFunc: func(_ context.Context, _ domain.ChannelType, url string) (domain.ContentItem, error) {
			return domain.ContentItem{ExternalID: "123", Kind: domain.MediaPost, Text: "BTC 150k", SourceURL: url}, nil
		},
	}
	orch, store, _ := newTestOrchestrator(t, coll, directoryOf(2), 2)

	bulk, err := orch.TriggerBulk(context.Background(), nil, nil)
	require.NoError(t, err)
	before, err := json.Marshal(bulk)
	require.NoError(t, err)

	single, err := orch.TriggerSingle(context.Background(), domain.ChannelTwitter, "https://x.com/f/status/123", "f-1")
	require.NoError(t, err)

	waitTerminal(t, store, bulk.ID)
	waitTerminal(t, store, single.ID)

	after, err := json.Marshal(bulk)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
	assert.Equal(t, domain.JobRunning, bulk.Status)
	assert.Zero(t, bulk.Summary.TotalUnits)
	assert.Equal(t, domain.JobRunning, single.Status)
	assert.Zero(t, single.Summary.TotalUnits)
}

func TestCancelIsIdempotent(t *testing.T) {
	coll := &fakeCollector{
		collectFunc: func(_ context.Context, ch domain.Channel, _ string, _ time.Time) ([]domain.ContentItem, error) {
			return []domain.ContentItem{postItem(ch.ID, "v1")}, nil
		},
	}
	orch, store, _ := newTestOrchestrator(t, coll, directoryOf(1), 1)

	job, err := orch.TriggerBulk(context.Background(), nil, nil)
	require.NoError(t, err)
	waitTerminal(t, store, job.ID)

	// Cancelling a finished job is accepted and changes nothing.
	got, err := orch.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)

	got, err = orch.Cancel(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)
}

func TestTriggerSingle(t *testing.T) {
	coll := &fakeCollector{
		resolveFunc: func(_ context.Context, _ domain.ChannelType, url string) (domain.ContentItem, error) {
			return domain.ContentItem{
				ExternalID:  "123",
				ChannelType: domain.ChannelTwitter,
				Kind:        domain.MediaPost,
				Text:        "BTC 150k",
				SourceURL:   url,
			}, nil
		},
	}
	orch, store, writer := newTestOrchestrator(t, coll, directoryOf(1), 1)

	job, err := orch.TriggerSingle(context.Background(), domain.ChannelTwitter, "https://x.com/f/status/123", "f-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobSingle, job.Type)

	done := waitTerminal(t, store, job.ID)
	assert.Equal(t, domain.JobCompleted, done.Status)
	assert.Equal(t, 1, done.Summary.Succeeded)
	require.Equal(t, 1, writer.count())

	writer.mu.Lock()
	pred := writer.preds[0]
	writer.mu.Unlock()
	assert.Equal(t, "f-1", pred.ForecasterID)
	assert.Equal(t, "twitter", pred.Source.Type)
	assert.Equal(t, "https://x.com/f/status/123", pred.Source.URL)
	assert.Equal(t, domain.OutcomePending, pred.Outcome)
}

func TestTriggerSingleWithoutForecaster(t *testing.T) {
	coll := &fakeCollector{
		resolveFunc: func(_ context.Context, _ domain.ChannelType, url string) (domain.ContentItem, error) {
			return domain.ContentItem{
				ExternalID:  "123",
				ChannelType: domain.ChannelTwitter,
				Kind:        domain.MediaPost,
				Text:        "BTC 150k",
				SourceURL:   url,
			}, nil
		},
	}
	orch, store, writer := newTestOrchestrator(t, coll, directoryOf(1), 1)

	job, err := orch.TriggerSingle(context.Background(), domain.ChannelTwitter, "https://x.com/f/status/123", "")
	require.NoError(t, err)
	assert.Empty(t, job.ForecasterIDs)

	done := waitTerminal(t, store, job.ID)
	assert.Equal(t, domain.JobCompleted, done.Status)
	require.Equal(t, 1, writer.count())

	writer.mu.Lock()
	defer writer.mu.Unlock()
	assert.Empty(t, writer.preds[0].ForecasterID)
}

func TestTriggerSingleValidation(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &fakeCollector{}, directoryOf(1), 1)

	_, err := orch.TriggerSingle(context.Background(), "TIKTOK", "https://example.com", "f-1")
	assert.True(t, errors.Is(err, domain.ErrOrchestration))

	_, err = orch.TriggerSingle(context.Background(), domain.ChannelTwitter, "", "f-1")
	assert.True(t, errors.Is(err, domain.ErrOrchestration))

	_, err = orch.TriggerSingle(context.Background(), domain.ChannelTwitter, "https://example.com", "f-unknown")
	assert.Error(t, err)
}

func TestStatusUnknownJob(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &fakeCollector{}, directoryOf(1), 1)

	_, err := orch.Status(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
}

func TestDuplicateItemsSkippedOnSecondRun(t *testing.T) {
	coll := &fakeCollector{
		collectFunc: func(_ context.Context, ch domain.Channel, _ string, _ time.Time) ([]domain.ContentItem, error) {
			return []domain.ContentItem{postItem(ch.ID, "v1")}, nil
		},
	}
	orch, store, writer := newTestOrchestrator(t, coll, directoryOf(1), 1)

	first, err := orch.TriggerBulk(context.Background(), nil, nil)
	require.NoError(t, err)
	waitTerminal(t, store, first.ID)

	second, err := orch.TriggerBulk(context.Background(), nil, nil)
	require.NoError(t, err)
	done := waitTerminal(t, store, second.ID)

	// Same upstream content, so the rerun stores nothing new.
	assert.Equal(t, 1, writer.count())
	assert.Equal(t, 1, done.Summary.Units[0].ItemsSkipped)
	assert.Equal(t, 0, done.Summary.Predictions)
}

func TestMemoryJobStoreTerminalImmutable(t *testing.T) {
	store := NewMemoryJobStore()
	job := &domain.ExtractionJob{ID: "j-1", Type: domain.JobBulk, Status: domain.JobRunning}
	require.NoError(t, store.Create(context.Background(), job))

	job.Status = domain.JobCompleted
	require.NoError(t, store.Finish(context.Background(), job))

	job.Status = domain.JobCancelled
	assert.Error(t, store.Finish(context.Background(), job))

	got, err := store.Get(context.Background(), "j-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, got.Status)
}
