package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
	"github.com/Eslamsamyx/forecasters-pipeline/internal/registry"
)

// ChannelRepository reads and writes per-forecaster channel configuration.
type ChannelRepository struct {
	db *sqlx.DB
}

// NewChannelRepository creates a channel repository.
func NewChannelRepository(db *sqlx.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

type channelRow struct {
	ID           string         `db:"id"`
	ForecasterID string         `db:"forecaster_id"`
	Type         string         `db:"type"`
	ExternalID   string         `db:"external_id"`
	IsPrimary    bool           `db:"is_primary"`
	Enabled      bool           `db:"enabled"`
	Keywords     pq.StringArray `db:"keywords"`
	CreatedAt    sql.NullTime   `db:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at"`
}

func (r channelRow) toDomain() domain.Channel {
	return domain.Channel{
		ID:           r.ID,
		ForecasterID: r.ForecasterID,
		Type:         domain.ChannelType(r.Type),
		ExternalID:   r.ExternalID,
		IsPrimary:    r.IsPrimary,
		Enabled:      r.Enabled,
		Keywords:     r.Keywords,
		CreatedAt:    r.CreatedAt.Time,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

const channelColumns = `id, forecaster_id, type, external_id, is_primary, enabled, keywords, created_at, updated_at`

// ListEnabledChannels returns the forecaster's enabled channels, restricted
// to the given source types when non-empty.
func (r *ChannelRepository) ListEnabledChannels(ctx context.Context, forecasterID string, sources []domain.ChannelType) ([]domain.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE forecaster_id = $1 AND enabled = true`
	args := []any{forecasterID}

	if len(sources) > 0 {
		types := make([]string, len(sources))
		for i, s := range sources {
			types[i] = string(s)
		}
		query += ` AND type = ANY($2)`
		args = append(args, pq.Array(types))
	}
	query += ` ORDER BY created_at`

	var rows []channelRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	channels := make([]domain.Channel, 0, len(rows))
	for _, row := range rows {
		channels = append(channels, row.toDomain())
	}
	return channels, nil
}

// ListByForecaster returns every channel for a forecaster, enabled or not.
func (r *ChannelRepository) ListByForecaster(ctx context.Context, forecasterID string) ([]domain.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels
		WHERE forecaster_id = $1
		ORDER BY created_at`

	var rows []channelRow
	if err := r.db.SelectContext(ctx, &rows, query, forecasterID); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	channels := make([]domain.Channel, 0, len(rows))
	for _, row := range rows {
		channels = append(channels, row.toDomain())
	}
	return channels, nil
}

// Save validates and upserts one channel configuration. Validation runs
// against the forecaster's existing channels, so a second enabled primary
// on the same platform is rejected before it reaches the table.
func (r *ChannelRepository) Save(ctx context.Context, ch domain.Channel, forecasterName string) error {
	siblings, err := r.ListByForecaster(ctx, ch.ForecasterID)
	if err != nil {
		return err
	}
	if err := registry.ValidateChannelConfig(ch, forecasterName, siblings); err != nil {
		return err
	}

	const query = `
		INSERT INTO channels (id, forecaster_id, type, external_id, is_primary, enabled, keywords, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE SET
			external_id = EXCLUDED.external_id,
			is_primary  = EXCLUDED.is_primary,
			enabled     = EXCLUDED.enabled,
			keywords    = EXCLUDED.keywords,
			updated_at  = NOW()`

	_, err = r.db.ExecContext(ctx, query,
		ch.ID, ch.ForecasterID, string(ch.Type), ch.ExternalID,
		ch.IsPrimary, ch.Enabled, pq.Array(ch.Keywords),
	)
	if err != nil {
		return fmt.Errorf("save channel: %w", err)
	}
	return nil
}
