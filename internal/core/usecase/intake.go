package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/core/ports"
)

type IntakeUseCase struct {
	repo   ports.JobRepository
	blobs  ports.BlobStore
	events ports.JobEvents
	pages  ports.PageCounter
	worker ports.JobWorker
}

// NewIntakeUseCase builds the upload flow. events, pages and worker are
// optional: without events the worker discovers jobs by polling, without
// worker the synchronous mode is unavailable.
func NewIntakeUseCase(
	repo ports.JobRepository,
	blobs ports.BlobStore,
	events ports.JobEvents,
	pages ports.PageCounter,
	worker ports.JobWorker,
) *IntakeUseCase {
	return &IntakeUseCase{
		repo:   repo,
		blobs:  blobs,
		events: events,
		pages:  pages,
		worker: worker,
	}
}

func (uc *IntakeUseCase) Upload(ctx context.Context, upload domain.Upload) (*domain.Job, error) {
	job, err := uc.createJob(ctx, upload)
	if err != nil {
		return nil, err
	}

	if uc.events != nil {
		if err := uc.events.PublishJobCreated(ctx, job.ID); err != nil {
			slog.Warn("job_event_publish_failed", "job_id", job.ID, "error", err)
		}
	}
	return job, nil
}

// UploadAndProcess stores the document and runs the worker pipeline on the
// new job before returning. No job-created event is published, so the
// request owns the claim. When processing fails the job is still returned
// so callers can report its id.
func (uc *IntakeUseCase) UploadAndProcess(ctx context.Context, upload domain.Upload) (*domain.Job, error) {
	if uc.worker == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("synchronous mode is not enabled"))
	}
	created, err := uc.createJob(ctx, upload)
	if err != nil {
		return nil, err
	}

	job, err := uc.worker.ProcessByID(ctx, created.ID)
	if err == nil {
		return job, nil
	}
	if job == nil {
		job = created
		if current, getErr := uc.repo.GetByID(ctx, created.ID); getErr == nil {
			job = current
		}
	}
	return job, err
}

func (uc *IntakeUseCase) createJob(ctx context.Context, upload domain.Upload) (*domain.Job, error) {
	if strings.TrimSpace(upload.Filename) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("filename is required"))
	}
	if len(upload.Data) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("file is empty"))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(upload.Filename))
	now := time.Now().UTC()

	storagePath, err := uc.blobs.Put(ctx, storageKey, upload.Data)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStorage, "save to blob storage", err)
	}

	job := &domain.Job{
		ID:          id,
		Filename:    upload.Filename,
		MimeType:    upload.MimeType,
		StoragePath: storagePath,
		SizeBytes:   int64(len(upload.Data)),
		PageCount:   uc.countPages(upload),
		Status:      domain.JobStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	// The blob is not removed when the insert fails.
	if err := uc.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job metadata: %w", err)
	}

	attrs := []any{"job_id", job.ID, "filename", job.Filename, "size_bytes", job.SizeBytes}
	if url, ok := uc.blobs.PublicURL(storagePath); ok {
		attrs = append(attrs, "document_url", url)
	}
	slog.Info("job_created", attrs...)
	return job, nil
}

func (uc *IntakeUseCase) countPages(upload domain.Upload) *int {
	if uc.pages == nil || fileExtension(upload.Filename) != "pdf" {
		return nil
	}
	count, err := uc.pages.PageCount(upload.Data)
	if err != nil {
		slog.Warn("pdf_page_count_failed", "filename", upload.Filename, "error", err)
		return nil
	}
	return &count
}

func fileExtension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func sanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
