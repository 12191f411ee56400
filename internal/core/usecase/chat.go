package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/core/ports"
)

type ChatOptions struct {
	MaxBriefChars int
	MaxTokens     int
	Temperature   float64
	Timeout       time.Duration
}

type ChatUseCase struct {
	jobs      ports.JobReader
	completer ports.CompletionService
	opts      ChatOptions
}

// NewChatUseCase builds the question answering flow. jobs may be nil, in
// which case only inline briefs are accepted.
func NewChatUseCase(jobs ports.JobReader, completer ports.CompletionService, opts ChatOptions) *ChatUseCase {
	return &ChatUseCase{
		jobs:      jobs,
		completer: completer,
		opts:      opts,
	}
}

func (uc *ChatUseCase) Ask(ctx context.Context, req domain.ChatRequest) (*domain.ChatAnswer, error) {
	question := strings.TrimSpace(req.UserMessage)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("userMessage is required"))
	}

	brief, err := uc.resolveBrief(ctx, req)
	if err != nil {
		return nil, err
	}

	callCtx := ctx
	if uc.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, uc.opts.Timeout)
		defer cancel()
	}

	completion, err := uc.completer.Complete(callCtx, domain.CompletionRequest{
		System:      chatSystemPrompt,
		Prompt:      buildChatPrompt(truncateRunes(brief, uc.opts.MaxBriefChars), question),
		MaxTokens:   uc.opts.MaxTokens,
		Temperature: uc.opts.Temperature,
		Operation:   domain.CompletionChat,
	})
	if err != nil {
		return nil, upstreamError("answer question", err)
	}

	answer := strings.TrimSpace(completion.Text)
	if answer == "" {
		return nil, domain.WrapError(domain.ErrUpstream, "answer question", errors.New("model returned an empty answer"))
	}
	return &domain.ChatAnswer{
		Answer:           answer,
		Model:            completion.Model,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
	}, nil
}

func (uc *ChatUseCase) resolveBrief(ctx context.Context, req domain.ChatRequest) (string, error) {
	if brief := strings.TrimSpace(req.Brief); brief != "" {
		return brief, nil
	}

	briefID := strings.TrimSpace(req.BriefID)
	if briefID == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("brief or briefId is required"))
	}
	if uc.jobs == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "chat", errors.New("briefId lookup is not enabled"))
	}

	job, err := uc.jobs.GetByID(ctx, briefID)
	if err != nil {
		return "", fmt.Errorf("load brief %s: %w", briefID, err)
	}
	if job.Status != domain.JobStatusDone || strings.TrimSpace(job.Brief) == "" {
		return "", domain.WrapError(domain.ErrConflict, "chat", fmt.Errorf("job %s is %s, brief not available", briefID, job.Status))
	}
	return job.Brief, nil
}
