package domain

import (
	"fmt"
	"time"
)

// JobType distinguishes how a job was requested.
type JobType string

const (
	// JobSingle extracts from one source URL.
	JobSingle JobType = "single"
	// JobBulk fans out over forecaster/channel pairs.
	JobBulk JobType = "bulk"
)

// JobStatus is an extraction job's lifecycle state.
type JobStatus string

const (
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// IsTerminal reports whether s permits no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// ValidateJobTransition checks a status transition. The state machine is
// one-directional: RUNNING may move to any terminal state, terminal states
// are immutable.
func ValidateJobTransition(from, to JobStatus) error {
	if from == JobRunning && to.IsTerminal() {
		return nil
	}
	return fmt.Errorf("invalid job transition from %s to %s", from, to)
}

// UnitStatus is the outcome of a single (forecaster, channel) unit of work.
type UnitStatus string

const (
	UnitSucceeded UnitStatus = "succeeded"
	UnitFailed    UnitStatus = "failed"
	UnitCancelled UnitStatus = "cancelled"
)

// UnitResult summarises one processed (forecaster, channel) pair.
type UnitResult struct {
	ForecasterID   string      `json:"forecaster_id"`
	ChannelID      string      `json:"channel_id"`
	Source         ChannelType `json:"source"`
	Status         UnitStatus  `json:"status"`
	ItemsCollected int         `json:"items_collected"`
	ItemsSkipped   int         `json:"items_skipped"`
	Predictions    int         `json:"predictions"`
	Error          string      `json:"error,omitempty"`
}

// ResultsSummary aggregates unit results for a job. A job COMPLETES once
// every unit has been attempted; the summary is how partial failure is
// reported.
type ResultsSummary struct {
	TotalUnits  int          `json:"total_units"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Cancelled   int          `json:"cancelled"`
	Predictions int          `json:"predictions"`
	Units       []UnitResult `json:"units,omitempty"`
}

// Add folds one unit result into the summary.
func (s *ResultsSummary) Add(u UnitResult) {
	s.TotalUnits++
	switch u.Status {
	case UnitSucceeded:
		s.Succeeded++
	case UnitFailed:
		s.Failed++
	case UnitCancelled:
		s.Cancelled++
	}
	s.Predictions += u.Predictions
	s.Units = append(s.Units, u)
}

// ExtractionJob tracks one requested extraction run.
type ExtractionJob struct {
	ID            string         `json:"id"`
	Type          JobType        `json:"type"`
	Status        JobStatus      `json:"status"`
	ForecasterIDs []string       `json:"forecaster_ids,omitempty"`
	Sources       []ChannelType  `json:"sources,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Error         string         `json:"error,omitempty"`
	Summary       ResultsSummary `json:"results_summary"`
}
