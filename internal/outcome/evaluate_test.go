package outcome

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

var (
	now      = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	pastDate = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
)

func ptr(v float64) *float64 { return &v }

func pred(direction domain.Direction, baseline, target *float64, targetDate *time.Time) domain.Prediction {
	return domain.Prediction{
		ID:            "p-1",
		Direction:     direction,
		BaselinePrice: baseline,
		TargetPrice:   target,
		TargetDate:    targetDate,
		Outcome:       domain.OutcomePending,
	}
}

func TestEvaluateFutureTargetStaysPending(t *testing.T) {
	future := now.Add(30 * 24 * time.Hour)
	p := pred(domain.DirectionBullish, ptr(65000), ptr(150000), &future)

	got := Evaluate(p, Snapshot{Close: 70000}, now, 0.05)
	assert.Equal(t, domain.OutcomePending, got)
}

func TestEvaluateTerminalNeverChanges(t *testing.T) {
	p := pred(domain.DirectionBullish, ptr(65000), ptr(150000), &pastDate)
	p.Outcome = domain.OutcomeIncorrect

	got := Evaluate(p, Snapshot{High: 200000, Close: 200000}, now, 0.05)
	assert.Equal(t, domain.OutcomeIncorrect, got)
}

func TestEvaluateBullishTargetReached(t *testing.T) {
	// Target 75k, window high touched 76k.
	p := pred(domain.DirectionBullish, ptr(65000), ptr(75000), &pastDate)

	got := Evaluate(p, Snapshot{Open: 65000, High: 76000, Low: 60000, Close: 74000}, now, 0.05)
	assert.Equal(t, domain.OutcomeCorrect, got)
}

func TestEvaluateBullishShortOfTarget(t *testing.T) {
	// Same call, but price only reached 70k: direction held, magnitude
	// didn't.
	p := pred(domain.DirectionBullish, ptr(65000), ptr(75000), &pastDate)

	got := Evaluate(p, Snapshot{Open: 65000, High: 70000, Low: 60000, Close: 70000}, now, 0.05)
	assert.Equal(t, domain.OutcomePartiallyCorrect, got)
}

func TestEvaluateBullishMissedTargetFlat(t *testing.T) {
	// Closed inside the 5% band around baseline: still partially correct,
	// never incorrect.
	p := pred(domain.DirectionBullish, ptr(65000), ptr(150000), &pastDate)

	got := Evaluate(p, Snapshot{Open: 65000, High: 66000, Low: 63000, Close: 66000}, now, 0.05)
	assert.Equal(t, domain.OutcomePartiallyCorrect, got)
}

func TestEvaluateBullishTargetMovedAgainst(t *testing.T) {
	p := pred(domain.DirectionBullish, ptr(65000), ptr(150000), &pastDate)

	got := Evaluate(p, Snapshot{Open: 65000, High: 66000, Low: 50000, Close: 52000}, now, 0.05)
	assert.Equal(t, domain.OutcomeIncorrect, got)
}

func TestEvaluateBearishTargetReached(t *testing.T) {
	p := pred(domain.DirectionBearish, ptr(65000), ptr(50000), &pastDate)

	got := Evaluate(p, Snapshot{Open: 65000, High: 66000, Low: 49000, Close: 55000}, now, 0.05)
	assert.Equal(t, domain.OutcomeCorrect, got)
}

func TestEvaluateDirectionOnlyBullish(t *testing.T) {
	p := pred(domain.DirectionBullish, ptr(100), nil, &pastDate)

	assert.Equal(t, domain.OutcomeCorrect, Evaluate(p, Snapshot{Close: 110}, now, 0.05))
	assert.Equal(t, domain.OutcomeIncorrect, Evaluate(p, Snapshot{Close: 90}, now, 0.05))
	assert.Equal(t, domain.OutcomePartiallyCorrect, Evaluate(p, Snapshot{Close: 102}, now, 0.05))
}

func TestEvaluateDirectionOnlyBearish(t *testing.T) {
	p := pred(domain.DirectionBearish, ptr(100), nil, &pastDate)

	assert.Equal(t, domain.OutcomeCorrect, Evaluate(p, Snapshot{Close: 90}, now, 0.05))
	assert.Equal(t, domain.OutcomeIncorrect, Evaluate(p, Snapshot{Close: 110}, now, 0.05))
	assert.Equal(t, domain.OutcomePartiallyCorrect, Evaluate(p, Snapshot{Close: 98}, now, 0.05))
}

func TestEvaluateNeutral(t *testing.T) {
	p := pred(domain.DirectionNeutral, ptr(100), nil, &pastDate)

	assert.Equal(t, domain.OutcomeCorrect, Evaluate(p, Snapshot{Close: 103}, now, 0.05))
	assert.Equal(t, domain.OutcomeIncorrect, Evaluate(p, Snapshot{Close: 120}, now, 0.05))
	assert.Equal(t, domain.OutcomeIncorrect, Evaluate(p, Snapshot{Close: 80}, now, 0.05))
}

func TestEvaluateMissingBaselineFallsBackToWindowOpen(t *testing.T) {
	p := pred(domain.DirectionBullish, nil, nil, &pastDate)

	got := Evaluate(p, Snapshot{Open: 100, Close: 120}, now, 0.05)
	assert.Equal(t, domain.OutcomeCorrect, got)
}

func TestEvaluateNoPriceDataStaysPending(t *testing.T) {
	p := pred(domain.DirectionBullish, nil, nil, &pastDate)

	got := Evaluate(p, Snapshot{}, now, 0.05)
	assert.Equal(t, domain.OutcomePending, got)
}
