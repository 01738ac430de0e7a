package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Eslamsamyx/forecasters-pipeline/internal/domain"
)

// JobRepository persists extraction jobs. Results summaries are stored as
// JSONB since they are read back whole, never queried by field.
type JobRepository struct {
	db *sqlx.DB
}

// NewJobRepository creates a job repository.
func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

type jobRow struct {
	ID            string          `db:"id"`
	Type          string          `db:"type"`
	Status        string          `db:"status"`
	ForecasterIDs pq.StringArray  `db:"forecaster_ids"`
	Sources       pq.StringArray  `db:"sources"`
	CreatedAt     time.Time       `db:"created_at"`
	CompletedAt   sql.NullTime    `db:"completed_at"`
	Error         sql.NullString  `db:"error"`
	Summary       json.RawMessage `db:"summary"`
}

func (r jobRow) toDomain() (*domain.ExtractionJob, error) {
	job := &domain.ExtractionJob{
		ID:            r.ID,
		Type:          domain.JobType(r.Type),
		Status:        domain.JobStatus(r.Status),
		ForecasterIDs: r.ForecasterIDs,
		CreatedAt:     r.CreatedAt,
	}
	for _, s := range r.Sources {
		job.Sources = append(job.Sources, domain.ChannelType(s))
	}
	if r.CompletedAt.Valid {
		t := r.CompletedAt.Time
		job.CompletedAt = &t
	}
	if r.Error.Valid {
		job.Error = r.Error.String
	}
	if len(r.Summary) > 0 {
		if err := json.Unmarshal(r.Summary, &job.Summary); err != nil {
			return nil, fmt.Errorf("decode job summary: %w", err)
		}
	}
	return job, nil
}

const jobColumns = `id, type, status, forecaster_ids, sources, created_at, completed_at, error, summary`

// Create implements orchestrator.JobStore.
func (r *JobRepository) Create(ctx context.Context, job *domain.ExtractionJob) error {
	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return fmt.Errorf("encode job summary: %w", err)
	}

	sources := make([]string, len(job.Sources))
	for i, s := range job.Sources {
		sources[i] = string(s)
	}

	const query = `
		INSERT INTO extraction_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.db.ExecContext(ctx, query,
		job.ID, string(job.Type), string(job.Status),
		pq.Array(job.ForecasterIDs), pq.Array(sources),
		job.CreatedAt, job.CompletedAt, nullString(job.Error), summary,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// Get implements orchestrator.JobStore.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.ExtractionJob, error) {
	const query = `SELECT ` + jobColumns + ` FROM extraction_jobs WHERE id = $1`

	var row jobRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrJobNotFound, id)
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return row.toDomain()
}

// Finish implements orchestrator.JobStore. The transition is validated
// against the stored status inside one statement so concurrent finishers
// cannot overwrite a terminal state.
func (r *JobRepository) Finish(ctx context.Context, job *domain.ExtractionJob) error {
	current, err := r.Get(ctx, job.ID)
	if err != nil {
		return err
	}
	if err := domain.ValidateJobTransition(current.Status, job.Status); err != nil {
		return err
	}

	summary, err := json.Marshal(job.Summary)
	if err != nil {
		return fmt.Errorf("encode job summary: %w", err)
	}

	const query = `
		UPDATE extraction_jobs
		SET status = $1, completed_at = $2, error = $3, summary = $4
		WHERE id = $5 AND status = 'RUNNING'`

	res, err := r.db.ExecContext(ctx, query,
		string(job.Status), job.CompletedAt, nullString(job.Error), summary, job.ID,
	)
	if err != nil {
		return fmt.Errorf("finish job: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %s is not running", job.ID)
	}
	return nil
}

// ListRecent returns the newest jobs, for the job listing endpoint.
func (r *JobRepository) ListRecent(ctx context.Context, limit int) ([]domain.ExtractionJob, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	const query = `
		SELECT ` + jobColumns + `
		FROM extraction_jobs
		ORDER BY created_at DESC
		LIMIT $1`

	var rows []jobRow
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}

	jobs := make([]domain.ExtractionJob, 0, len(rows))
	for _, row := range rows {
		job, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
