package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestPredictionInsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionRepository(db)

	target := 150000.0
	p := &domain.Prediction{
		ID:             "p-1",
		ForecasterID:   "f-1",
		AssetSymbol:    "BTC",
		AssetType:      domain.AssetCrypto,
		PredictionText: "Bitcoin reaches 150k.",
		Direction:      domain.DirectionBullish,
		Confidence:     0.85,
		TargetPrice:    &target,
		CreatedAt:      time.Now().UTC(),
		Outcome:        domain.OutcomePending,
		Source:         domain.SourceMetadata{Type: "youtube", URL: "https://youtube.com/watch?v=abc"},
	}

	mock.ExpectExec(`INSERT INTO predictions`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPredictionInsertWithoutForecaster(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionRepository(db)

	p := &domain.Prediction{
		ID:             "p-2",
		AssetSymbol:    "BTC",
		AssetType:      domain.AssetCrypto,
		PredictionText: "BTC 150k.",
		Direction:      domain.DirectionBullish,
		Confidence:     0.7,
		CreatedAt:      time.Now().UTC(),
		Outcome:        domain.OutcomePending,
		Source:         domain.SourceMetadata{Type: "twitter", URL: "https://x.com/f/status/123"},
	}

	// No forecaster attached: the forecaster_id parameter must arrive as
	// NULL, never as an empty string the UUID column rejects.
	mock.ExpectExec(`INSERT INTO predictions`).
		WithArgs("p-2", nil, "BTC", "CRYPTO", "BTC 150k.",
			"BULLISH", 0.7, nil, nil, nil,
			sqlmock.AnyArg(), "PENDING", "twitter", "https://x.com/f/status/123").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Insert(context.Background(), p))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOutcomeIfPendingGuard(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionRepository(db)

	// Row already terminal: the guarded update matches nothing.
	mock.ExpectExec(`UPDATE predictions`).
		WithArgs("CORRECT", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetOutcomeIfPending(context.Background(), "p-1", domain.OutcomeCorrect)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not pending")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetOutcomeIfPendingRejectsNonTerminal(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewPredictionRepository(db)

	err := repo.SetOutcomeIfPending(context.Background(), "p-1", domain.OutcomePending)
	assert.Error(t, err)
}

func TestOverrideOutcome(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionRepository(db)

	mock.ExpectExec(`UPDATE predictions`).
		WithArgs("PENDING", "p-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Admin may reopen a terminal prediction.
	require.NoError(t, repo.OverrideOutcome(context.Background(), "p-1", domain.OutcomePending))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOverrideOutcomeUnknownValue(t *testing.T) {
	db, _ := newMockDB(t)
	repo := NewPredictionRepository(db)

	err := repo.OverrideOutcome(context.Background(), "p-1", "MAYBE")
	assert.Error(t, err)
}

func TestOverrideOutcomeNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionRepository(db)

	mock.ExpectExec(`UPDATE predictions`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.OverrideOutcome(context.Background(), "missing", domain.OutcomeCorrect)
	assert.ErrorIs(t, err, domain.ErrPredictionNotFound)
}

func predictionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "forecaster_id", "asset_symbol", "asset_type", "prediction_text",
		"direction", "confidence", "baseline_price", "target_price", "target_date",
		"created_at", "outcome", "source_type", "source_url",
	})
}

func TestListPendingDue(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionRepository(db)

	due := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM predictions`).
		WillReturnRows(predictionRows().AddRow(
			"p-1", "f-1", "BTC", "CRYPTO", "Bitcoin reaches 150k.",
			"BULLISH", 0.85, 65000.0, 150000.0, due,
			due.AddDate(0, -2, 0), "PENDING", "youtube", "https://youtube.com/watch?v=abc",
		))

	got, err := repo.ListPendingDue(context.Background(), time.Now(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, got, 1)

	p := got[0]
	assert.Equal(t, "BTC", p.AssetSymbol)
	assert.Equal(t, domain.OutcomePending, p.Outcome)
	require.NotNil(t, p.BaselinePrice)
	assert.Equal(t, 65000.0, *p.BaselinePrice)
	require.NotNil(t, p.TargetDate)
	assert.Equal(t, "youtube", p.Source.Type)
}

func TestListAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPredictionRepository(db)

	mock.ExpectQuery(`FROM predictions WHERE forecaster_id = \$1 AND asset_symbol = \$2 AND outcome = \$3`).
		WithArgs("f-1", "BTC", "PENDING", 50).
		WillReturnRows(predictionRows())

	_, err := repo.List(context.Background(), PredictionFilter{
		ForecasterID: "f-1",
		AssetSymbol:  "btc",
		Outcome:      domain.OutcomePending,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
