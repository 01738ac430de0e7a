package outcome

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/logger"
)

type fakeStore struct {
	due      []domain.Prediction
	listErr  error
	outcomes map[string]domain.Outcome
	setErr   error
}

func (f *fakeStore) ListPendingDue(context.Context, time.Time, time.Duration) ([]domain.Prediction, error) {
	return f.due, f.listErr
}

func (f *fakeStore) SetOutcomeIfPending(_ context.Context, id string, outcome domain.Outcome) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.outcomes == nil {
		f.outcomes = make(map[string]domain.Outcome)
	}
	f.outcomes[id] = outcome
	return nil
}

type fakeMarket struct {
	snapshots map[string]Snapshot
	err       error
}

func (f *fakeMarket) Window(_ context.Context, symbol string, _, _ time.Time) (Snapshot, error) {
	if f.err != nil {
		return Snapshot{}, f.err
	}
	return f.snapshots[symbol], nil
}

func (f *fakeMarket) Price(context.Context, string) (float64, error) {
	return 0, errors.New("not used")
}

func duePrediction(id, symbol string, direction domain.Direction, baseline, target float64) domain.Prediction {
	past := time.Now().UTC().Add(-24 * time.Hour)
	return domain.Prediction{
		ID:            id,
		AssetSymbol:   symbol,
		Direction:     direction,
		BaselinePrice: &baseline,
		TargetPrice:   &target,
		TargetDate:    &past,
		CreatedAt:     past.Add(-30 * 24 * time.Hour),
		Outcome:       domain.OutcomePending,
	}
}

func TestSweepGradesDuePredictions(t *testing.T) {
	store := &fakeStore{due: []domain.Prediction{
		duePrediction("p-1", "BTC", domain.DirectionBullish, 65000, 75000),
		duePrediction("p-2", "ETH", domain.DirectionBullish, 3000, 5000),
	}}
	market := &fakeMarket{snapshots: map[string]Snapshot{
		"BTC": {Open: 65000, High: 76000, Low: 60000, Close: 74000},
		"ETH": {Open: 3000, High: 3400, Low: 2900, Close: 3300},
	}}

	v := NewValidator(store, market, ValidatorConfig{Tolerance: 0.05}, nil, nil, logger.NewNop())
	require.NoError(t, v.Sweep(context.Background()))

	assert.Equal(t, domain.OutcomeCorrect, store.outcomes["p-1"])
	assert.Equal(t, domain.OutcomePartiallyCorrect, store.outcomes["p-2"])
}

func TestSweepSkipsOnMarketFailure(t *testing.T) {
	store := &fakeStore{due: []domain.Prediction{
		duePrediction("p-1", "BTC", domain.DirectionBullish, 65000, 75000),
	}}
	market := &fakeMarket{err: errors.New("provider down")}

	v := NewValidator(store, market, ValidatorConfig{}, nil, nil, logger.NewNop())
	require.NoError(t, v.Sweep(context.Background()))

	// Stays pending for the next sweep.
	assert.Empty(t, store.outcomes)
}

func TestSweepListFailure(t *testing.T) {
	store := &fakeStore{listErr: errors.New("db down")}
	v := NewValidator(store, &fakeMarket{}, ValidatorConfig{}, nil, nil, logger.NewNop())

	assert.Error(t, v.Sweep(context.Background()))
}

func TestSweepWriteFailureDoesNotAbort(t *testing.T) {
	store := &fakeStore{
		due: []domain.Prediction{
			duePrediction("p-1", "BTC", domain.DirectionBullish, 65000, 75000),
		},
		setErr: errors.New("concurrent update"),
	}
	market := &fakeMarket{snapshots: map[string]Snapshot{
		"BTC": {Open: 65000, High: 76000, Close: 74000},
	}}

	v := NewValidator(store, market, ValidatorConfig{}, nil, nil, logger.NewNop())
	assert.NoError(t, v.Sweep(context.Background()))
}

func TestSweepEmpty(t *testing.T) {
	v := NewValidator(&fakeStore{}, &fakeMarket{}, ValidatorConfig{}, nil, nil, logger.NewNop())
	assert.NoError(t, v.Sweep(context.Background()))
}
