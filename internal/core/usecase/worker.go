package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/core/ports"
)

// BriefOptions bounds the summarization call made for each job.
type BriefOptions struct {
	MaxInputChars int
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

const finalizeTimeout = 10 * time.Second

type WorkerUseCase struct {
	repo      ports.JobRepository
	blobs     ports.BlobStore
	extractor ports.TextExtractor
	completer ports.CompletionService
	observer  ports.WorkerObserver
	opts      BriefOptions
}

func NewWorkerUseCase(
	repo ports.JobRepository,
	blobs ports.BlobStore,
	extractor ports.TextExtractor,
	completer ports.CompletionService,
	observer ports.WorkerObserver,
	opts BriefOptions,
) *WorkerUseCase {
	return &WorkerUseCase{
		repo:      repo,
		blobs:     blobs,
		extractor: extractor,
		completer: completer,
		observer:  observer,
		opts:      opts,
	}
}

// ProcessNext claims the oldest pending job and runs it to a terminal state.
// It returns (nil, nil) when no job is pending.
func (uc *WorkerUseCase) ProcessNext(ctx context.Context) (*domain.Job, error) {
	job, err := uc.repo.ClaimNextPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim pending job: %w", err)
	}
	if job == nil {
		return nil, nil
	}
	return uc.run(ctx, job)
}

// ProcessByID claims a specific job, which must still be pending.
func (uc *WorkerUseCase) ProcessByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "process job", errors.New("job id is required"))
	}
	job, err := uc.repo.ClaimByID(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("claim job %s: %w", jobID, err)
	}
	return uc.run(ctx, job)
}

func (uc *WorkerUseCase) run(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	start := time.Now()
	if uc.observer != nil {
		uc.observer.JobStarted(start.Sub(job.CreatedAt))
	}
	slog.Info("job_claimed", "job_id", job.ID, "filename", job.Filename)

	brief, err := uc.processPipeline(ctx, job)
	if err != nil {
		failed, failErr := uc.markFailed(ctx, job, err)
		uc.finish(job.ID, domain.JobStatusFailed, start)
		if failErr != nil {
			return job, fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return failed, err
	}

	finalizeCtx, cancel := detached(ctx)
	defer cancel()
	done, err := uc.repo.MarkDone(finalizeCtx, job.ID, brief)
	if err != nil {
		uc.finish(job.ID, domain.JobStatusFailed, start)
		return job, fmt.Errorf("set status=done: %w", err)
	}
	uc.finish(job.ID, domain.JobStatusDone, start)
	return done, nil
}

func (uc *WorkerUseCase) processPipeline(ctx context.Context, job *domain.Job) (string, error) {
	data, err := uc.download(ctx, job)
	if err != nil {
		return "", err
	}

	text, err := uc.extractText(ctx, job, data)
	if err != nil {
		return "", err
	}

	return uc.summarize(ctx, text)
}

func (uc *WorkerUseCase) download(ctx context.Context, job *domain.Job) ([]byte, error) {
	data, err := uc.blobs.Get(ctx, job.StoragePath)
	if err != nil {
		if domain.IsKind(err, domain.ErrStorage) {
			return nil, fmt.Errorf("download blob: %w", err)
		}
		return nil, domain.WrapError(domain.ErrStorage, "download blob", err)
	}
	return data, nil
}

func (uc *WorkerUseCase) extractText(ctx context.Context, job *domain.Job, data []byte) (string, error) {
	text, err := uc.extractor.Extract(ctx, data, fileExtension(job.Filename))
	if err != nil {
		if domain.IsKind(err, domain.ErrExtraction) {
			return "", fmt.Errorf("extract text: %w", err)
		}
		return "", domain.WrapError(domain.ErrExtraction, "extract text", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.WrapError(domain.ErrExtraction, "extract text", fmt.Errorf("no readable text in %s", job.Filename))
	}
	return text, nil
}

func (uc *WorkerUseCase) summarize(ctx context.Context, text string) (string, error) {
	callCtx := ctx
	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	completion, err := uc.completer.Complete(callCtx, domain.CompletionRequest{
		System:      briefSystemPrompt,
		Prompt:      buildBriefPrompt(truncateRunes(text, uc.opts.MaxInputChars)),
		MaxTokens:   uc.opts.MaxTokens,
		Temperature: uc.opts.Temperature,
		Operation:   domain.CompletionBrief,
	})
	if err != nil {
		return "", upstreamError("summarize document", err)
	}
	if uc.observer != nil {
		uc.observer.TokensUsed(completion.Model, completion.PromptTokens, completion.CompletionTokens)
	}

	brief := strings.TrimSpace(completion.Text)
	if brief == "" {
		return "", domain.WrapError(domain.ErrUpstream, "summarize document", errors.New("model returned an empty brief"))
	}
	return brief, nil
}

func (uc *WorkerUseCase) markFailed(ctx context.Context, job *domain.Job, processErr error) (*domain.Job, error) {
	finalizeCtx, cancel := detached(ctx)
	defer cancel()

	slog.Warn("job_failed", "job_id", job.ID, "error", processErr)
	failed, err := uc.repo.MarkFailed(finalizeCtx, job.ID, processErr.Error())
	if err != nil {
		return nil, err
	}
	return failed, nil
}

func (uc *WorkerUseCase) finish(jobID string, status domain.JobStatus, start time.Time) {
	duration := time.Since(start)
	if uc.observer != nil {
		uc.observer.JobFinished(status, duration)
	}
	slog.Info("job_finished", "job_id", jobID, "status", string(status), "duration_ms", duration.Milliseconds())
}

// detached keeps request values but survives cancellation of ctx, so the
// terminal status is recorded even when the caller's deadline has passed.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
}

func upstreamError(operation string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.WrapError(domain.ErrUpstream, operation, fmt.Errorf("summarization timed out: %w", err))
	}
	if domain.IsKind(err, domain.ErrUpstream) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return domain.WrapError(domain.ErrUpstream, operation, err)
}
