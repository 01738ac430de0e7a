// Package outcome grades predictions against observed market data. Grading
// is one-directional: a prediction leaves PENDING exactly once and terminal
// outcomes are never revisited.
package outcome

import (
	"time"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

// Evaluate grades one prediction against the observed price window.
// tolerance is the symmetric fraction of the baseline price inside which a
// move against the call still counts as PARTIALLY_CORRECT rather than
// INCORRECT.
//
// Predictions whose target date is still in the future stay PENDING.
// NEUTRAL calls grade on whether price stayed inside the tolerance band.
func Evaluate(p domain.Prediction, snap Snapshot, now time.Time, tolerance float64) domain.Outcome {
	if p.Outcome.IsTerminal() {
		return p.Outcome
	}
	if p.TargetDate != nil && p.TargetDate.After(now) {
		return domain.OutcomePending
	}
	if p.TargetDate == nil {
		// No explicit horizon: grade on direction only once a window is
		// available.
		return gradeDirection(p, snap, tolerance)
	}

	if p.TargetPrice != nil {
		return gradeTarget(p, snap, tolerance)
	}
	return gradeDirection(p, snap, tolerance)
}

// gradeTarget grades a prediction that named a price level. Reaching or
// crossing the target in the predicted direction is CORRECT; a move against
// the call beyond the tolerance band is INCORRECT; a move the right way
// that fell short of the target is PARTIALLY_CORRECT.
func gradeTarget(p domain.Prediction, snap Snapshot, tolerance float64) domain.Outcome {
	target := *p.TargetPrice

	switch p.Direction {
	case domain.DirectionBullish:
		if snap.High >= target {
			return domain.OutcomeCorrect
		}
	case domain.DirectionBearish:
		if snap.Low <= target {
			return domain.OutcomeCorrect
		}
	default:
		// A NEUTRAL call with a price level grades like a date-less one.
		return gradeDirection(p, snap, tolerance)
	}

	baseline := effectiveBaseline(p, snap)
	if baseline <= 0 {
		return domain.OutcomePending
	}

	band := baseline * tolerance
	delta := snap.Close - baseline

	if (p.Direction == domain.DirectionBullish && delta < -band) ||
		(p.Direction == domain.DirectionBearish && delta > band) {
		return domain.OutcomeIncorrect
	}
	return domain.OutcomePartiallyCorrect
}

// gradeDirection grades on where the close landed relative to the baseline.
// Moves beyond the tolerance band decide CORRECT or INCORRECT; moves inside
// it soften to PARTIALLY_CORRECT for directional calls and confirm NEUTRAL
// ones.
func gradeDirection(p domain.Prediction, snap Snapshot, tolerance float64) domain.Outcome {
	baseline := effectiveBaseline(p, snap)
	if baseline <= 0 {
		return domain.OutcomePending
	}

	band := baseline * tolerance
	delta := snap.Close - baseline

	switch p.Direction {
	case domain.DirectionBullish:
		switch {
		case delta > band:
			return domain.OutcomeCorrect
		case delta < -band:
			return domain.OutcomeIncorrect
		default:
			return domain.OutcomePartiallyCorrect
		}
	case domain.DirectionBearish:
		switch {
		case delta < -band:
			return domain.OutcomeCorrect
		case delta > band:
			return domain.OutcomeIncorrect
		default:
			return domain.OutcomePartiallyCorrect
		}
	default: // NEUTRAL
		if delta >= -band && delta <= band {
			return domain.OutcomeCorrect
		}
		return domain.OutcomeIncorrect
	}
}

// effectiveBaseline prefers the captured baseline, falling back to the
// window open.
func effectiveBaseline(p domain.Prediction, snap Snapshot) float64 {
	if p.BaselinePrice != nil && *p.BaselinePrice > 0 {
		return *p.BaselinePrice
	}
	return snap.Open
}
