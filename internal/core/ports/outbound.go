package ports

import (
	"context"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
)

// JobRepository persists job records. Every mutation is a conditional status
// transition; the claim methods succeed for at most one caller per job.
type JobRepository interface {
	Create(ctx context.Context, job *domain.Job) error
	GetByID(ctx context.Context, id string) (*domain.Job, error)
	ClaimNextPending(ctx context.Context) (*domain.Job, error)
	ClaimByID(ctx context.Context, id string) (*domain.Job, error)
	MarkDone(ctx context.Context, id, brief string) (*domain.Job, error)
	MarkFailed(ctx context.Context, id, errMessage string) (*domain.Job, error)
}

// BlobStore stores raw uploaded documents.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	PublicURL(key string) (string, bool)
}

// JobEvents publishes/consumes job-created notifications.
type JobEvents interface {
	PublishJobCreated(ctx context.Context, jobID string) error
	SubscribeJobCreated(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from document bytes, dispatching on the
// lower-case file extension without the dot.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, ext string) (string, error)
}

// PageCounter reports the number of pages in a PDF document.
type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// CompletionService calls the summarization model.
type CompletionService interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// WorkerObserver receives job processing measurements.
type WorkerObserver interface {
	JobStarted(queueLag time.Duration)
	JobFinished(status domain.JobStatus, duration time.Duration)
	TokensUsed(model string, promptTokens, completionTokens int)
}
