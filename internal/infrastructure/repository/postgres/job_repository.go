package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
)

const jobColumns = `id, filename, mime_type, storage_path, size_bytes, page_count, status, brief, error_message, created_at, updated_at`

type JobRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *JobRepository) Create(ctx context.Context, job *domain.Job) error {
	var pageCount sql.NullInt64
	if job.PageCount != nil {
		pageCount = sql.NullInt64{Int64: int64(*job.PageCount), Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO jobs (id, filename, mime_type, storage_path, size_bytes, page_count, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, job.ID, job.Filename, job.MimeType, job.StoragePath, job.SizeBytes, pageCount, string(job.Status), job.CreatedAt, job.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("get job by id: %w", err)
	}
	return job, nil
}

// ClaimNextPending moves the oldest pending job to processing. Rows locked by
// another claimer are skipped, so concurrent workers never share a job.
// It returns (nil, nil) when nothing is pending.
func (r *JobRepository) ClaimNextPending(ctx context.Context) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE jobs
SET status = 'processing', updated_at = $1
WHERE id = (
	SELECT id FROM jobs
	WHERE status = 'pending'
	ORDER BY created_at, id
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING `+jobColumns, r.now())
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim next pending job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) ClaimByID(ctx context.Context, id string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE jobs
SET status = 'processing', updated_at = $2
WHERE id = $1 AND status = 'pending'
RETURNING `+jobColumns, id, r.now())
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionRejected(ctx, "claim job", id)
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) MarkDone(ctx context.Context, id, brief string) (*domain.Job, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE jobs
SET status = 'done', brief = $2, error_message = NULL, updated_at = $3
WHERE id = $1 AND status = 'processing'
RETURNING `+jobColumns, id, brief, r.now())
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionRejected(ctx, "mark job done", id)
		}
		return nil, fmt.Errorf("mark job done: %w", err)
	}
	return job, nil
}

func (r *JobRepository) MarkFailed(ctx context.Context, id, errMessage string) (*domain.Job, error) {
	if errMessage == "" {
		errMessage = "unknown error"
	}
	row := r.db.QueryRowContext(ctx, `
UPDATE jobs
SET status = 'failed', error_message = $2, brief = NULL, updated_at = $3
WHERE id = $1 AND status = 'processing'
RETURNING `+jobColumns, id, errMessage, r.now())
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.transitionRejected(ctx, "mark job failed", id)
		}
		return nil, fmt.Errorf("mark job failed: %w", err)
	}
	return job, nil
}

// transitionRejected tells a missing job apart from one in the wrong state.
func (r *JobRepository) transitionRejected(ctx context.Context, operation, id string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return domain.WrapError(domain.ErrConflict, operation, fmt.Errorf("job %s is %s", id, current.Status))
}

type jobScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row jobScanner) (*domain.Job, error) {
	var (
		job       domain.Job
		status    string
		pageCount sql.NullInt64
		brief     sql.NullString
		errMsg    sql.NullString
	)
	err := row.Scan(
		&job.ID,
		&job.Filename,
		&job.MimeType,
		&job.StoragePath,
		&job.SizeBytes,
		&pageCount,
		&status,
		&brief,
		&errMsg,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if pageCount.Valid {
		pages := int(pageCount.Int64)
		job.PageCount = &pages
	}
	job.Brief = brief.String
	job.Error = errMsg.String
	return &job, nil
}
