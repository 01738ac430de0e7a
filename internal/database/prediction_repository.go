package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

// PredictionRepository persists extracted predictions and their outcomes.
type PredictionRepository struct {
	db *sqlx.DB
}

// NewPredictionRepository creates a prediction repository.
func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// PredictionFilter narrows List results. Zero values mean "any".
type PredictionFilter struct {
	ForecasterID string
	AssetSymbol  string
	Direction    domain.Direction
	Outcome      domain.Outcome
	Limit        int
	Offset       int
}

type predictionRow struct {
	ID             string          `db:"id"`
	ForecasterID   sql.NullString  `db:"forecaster_id"`
	AssetSymbol    string          `db:"asset_symbol"`
	AssetType      string          `db:"asset_type"`
	PredictionText string          `db:"prediction_text"`
	Direction      string          `db:"direction"`
	Confidence     float64         `db:"confidence"`
	BaselinePrice  sql.NullFloat64 `db:"baseline_price"`
	TargetPrice    sql.NullFloat64 `db:"target_price"`
	TargetDate     sql.NullTime    `db:"target_date"`
	CreatedAt      time.Time       `db:"created_at"`
	Outcome        string          `db:"outcome"`
	SourceType     string          `db:"source_type"`
	SourceURL      string          `db:"source_url"`
}

func (r predictionRow) toDomain() domain.Prediction {
	p := domain.Prediction{
		ID:             r.ID,
		ForecasterID:   r.ForecasterID.String,
		AssetSymbol:    r.AssetSymbol,
		AssetType:      domain.AssetType(r.AssetType),
		PredictionText: r.PredictionText,
		Direction:      domain.Direction(r.Direction),
		Confidence:     r.Confidence,
		CreatedAt:      r.CreatedAt,
		Outcome:        domain.Outcome(r.Outcome),
		Source: domain.SourceMetadata{
			Type: r.SourceType,
			URL:  r.SourceURL,
		},
	}
	if r.BaselinePrice.Valid {
		v := r.BaselinePrice.Float64
		p.BaselinePrice = &v
	}
	if r.TargetPrice.Valid {
		v := r.TargetPrice.Float64
		p.TargetPrice = &v
	}
	if r.TargetDate.Valid {
		t := r.TargetDate.Time
		p.TargetDate = &t
	}
	return p
}

const predictionColumns = `id, forecaster_id, asset_symbol, asset_type, prediction_text,
	direction, confidence, baseline_price, target_price, target_date,
	created_at, outcome, source_type, source_url`

// Insert stores one extracted prediction with its provenance.
func (r *PredictionRepository) Insert(ctx context.Context, p *domain.Prediction) error {
	const query = `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	// Forecaster-less single extractions store NULL, not an empty string
	// the UUID column would reject.
	_, err := r.db.ExecContext(ctx, query,
		p.ID, nullString(p.ForecasterID), p.AssetSymbol, string(p.AssetType), p.PredictionText,
		string(p.Direction), p.Confidence, p.BaselinePrice, p.TargetPrice, p.TargetDate,
		p.CreatedAt, string(p.Outcome), p.Source.Type, p.Source.URL,
	)
	if err != nil {
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

// Get returns one prediction by ID.
func (r *PredictionRepository) Get(ctx context.Context, id string) (*domain.Prediction, error) {
	const query = `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	var row predictionRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrPredictionNotFound, id)
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}

	p := row.toDomain()
	return &p, nil
}

// List returns predictions matching the filter, newest first.
func (r *PredictionRepository) List(ctx context.Context, filter PredictionFilter) ([]domain.Prediction, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, cond+"$"+strconv.Itoa(len(args)))
	}

	if filter.ForecasterID != "" {
		add("forecaster_id = ", filter.ForecasterID)
	}
	if filter.AssetSymbol != "" {
		add("asset_symbol = ", strings.ToUpper(filter.AssetSymbol))
	}
	if filter.Direction != "" {
		add("direction = ", string(filter.Direction))
	}
	if filter.Outcome != "" {
		add("outcome = ", string(filter.Outcome))
	}

	query := `SELECT ` + predictionColumns + ` FROM predictions`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	query += " LIMIT $" + strconv.Itoa(len(args))
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += " OFFSET $" + strconv.Itoa(len(args))
	}

	var rows []predictionRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}

	predictions := make([]domain.Prediction, 0, len(rows))
	for _, row := range rows {
		predictions = append(predictions, row.toDomain())
	}
	return predictions, nil
}

// ListPendingDue returns PENDING predictions ready for grading: target date
// passed, or target-less and older than noTargetHorizon.
func (r *PredictionRepository) ListPendingDue(ctx context.Context, asOf time.Time, noTargetHorizon time.Duration) ([]domain.Prediction, error) {
	const query = `
		SELECT ` + predictionColumns + `
		FROM predictions
		WHERE outcome = 'PENDING'
		  AND ((target_date IS NOT NULL AND target_date <= $1)
		    OR (target_date IS NULL AND created_at <= $2))
		ORDER BY created_at`

	cutoff := asOf.Add(-noTargetHorizon)

	var rows []predictionRow
	if err := r.db.SelectContext(ctx, &rows, query, asOf, cutoff); err != nil {
		return nil, fmt.Errorf("list due predictions: %w", err)
	}

	predictions := make([]domain.Prediction, 0, len(rows))
	for _, row := range rows {
		predictions = append(predictions, row.toDomain())
	}
	return predictions, nil
}

// SetOutcomeIfPending records a terminal outcome for the automated
// validator. The guard keeps terminal outcomes immutable under concurrent
// sweeps.
func (r *PredictionRepository) SetOutcomeIfPending(ctx context.Context, id string, outcome domain.Outcome) error {
	if !outcome.IsTerminal() {
		return fmt.Errorf("outcome %s is not terminal", outcome)
	}

	const query = `
		UPDATE predictions
		SET outcome = $1
		WHERE id = $2 AND outcome = 'PENDING'`

	res, err := r.db.ExecContext(ctx, query, string(outcome), id)
	if err != nil {
		return fmt.Errorf("set outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("prediction %s is not pending", id)
	}
	return nil
}

// OverrideOutcome sets any valid outcome regardless of current state. Admin
// review path only; the automated validator never calls this.
func (r *PredictionRepository) OverrideOutcome(ctx context.Context, id string, outcome domain.Outcome) error {
	switch outcome {
	case domain.OutcomePending, domain.OutcomeCorrect, domain.OutcomeIncorrect, domain.OutcomePartiallyCorrect:
	default:
		return fmt.Errorf("unknown outcome %q", outcome)
	}

	const query = `UPDATE predictions SET outcome = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, string(outcome), id)
	if err != nil {
		return fmt.Errorf("override outcome: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrPredictionNotFound, id)
	}
	return nil
}
