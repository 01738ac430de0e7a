package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

// ForecasterRepository reads and writes tracked forecasters.
type ForecasterRepository struct {
	db *sqlx.DB
}

// NewForecasterRepository creates a forecaster repository.
func NewForecasterRepository(db *sqlx.DB) *ForecasterRepository {
	return &ForecasterRepository{db: db}
}

// forecasterRow carries the pq.Array mapping for expertise tags.
type forecasterRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	Slug          string         `db:"slug"`
	Verified      bool           `db:"verified"`
	ExpertiseTags pq.StringArray `db:"expertise_tags"`
	CreatedAt     sql.NullTime   `db:"created_at"`
}

func (r forecasterRow) toDomain() domain.Forecaster {
	f := domain.Forecaster{
		ID:            r.ID,
		Name:          r.Name,
		Slug:          r.Slug,
		Verified:      r.Verified,
		ExpertiseTags: r.ExpertiseTags,
	}
	if r.CreatedAt.Valid {
		f.CreatedAt = r.CreatedAt.Time
	}
	return f
}

// GetForecaster returns one forecaster by ID.
func (r *ForecasterRepository) GetForecaster(ctx context.Context, id string) (*domain.Forecaster, error) {
	const query = `
		SELECT id, name, slug, verified, expertise_tags, created_at
		FROM forecasters
		WHERE id = $1`

	var row forecasterRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("forecaster %s: not found", id)
		}
		return nil, fmt.Errorf("get forecaster: %w", err)
	}

	f := row.toDomain()
	return &f, nil
}

// ListForecasters returns all tracked forecasters.
func (r *ForecasterRepository) ListForecasters(ctx context.Context) ([]domain.Forecaster, error) {
	const query = `
		SELECT id, name, slug, verified, expertise_tags, created_at
		FROM forecasters
		ORDER BY created_at`

	var rows []forecasterRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list forecasters: %w", err)
	}

	forecasters := make([]domain.Forecaster, 0, len(rows))
	for _, row := range rows {
		forecasters = append(forecasters, row.toDomain())
	}
	return forecasters, nil
}

// Insert stores a new forecaster.
func (r *ForecasterRepository) Insert(ctx context.Context, f *domain.Forecaster) error {
	const query = `
		INSERT INTO forecasters (id, name, slug, verified, expertise_tags, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.ExecContext(ctx, query,
		f.ID, f.Name, f.Slug, f.Verified, pq.Array(f.ExpertiseTags), f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert forecaster: %w", err)
	}
	return nil
}
