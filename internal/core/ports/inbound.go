package ports

import (
	"context"

	"github.com/kirillkom/brief-service/internal/core/domain"
)

// JobIntake is the inbound contract for document upload.
type JobIntake interface {
	Upload(ctx context.Context, upload domain.Upload) (*domain.Job, error)
	UploadAndProcess(ctx context.Context, upload domain.Upload) (*domain.Job, error)
}

// JobWorker is the inbound contract for claiming and processing pending jobs.
// ProcessNext returns a nil job when nothing is pending.
type JobWorker interface {
	ProcessNext(ctx context.Context) (*domain.Job, error)
	ProcessByID(ctx context.Context, jobID string) (*domain.Job, error)
}

// JobReader is the inbound read model for job state.
type JobReader interface {
	GetByID(ctx context.Context, id string) (*domain.Job, error)
}

// BriefChatter answers questions grounded on a generated brief.
type BriefChatter interface {
	Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatAnswer, error)
}
