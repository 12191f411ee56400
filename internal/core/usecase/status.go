package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/core/ports"
)

type StatusUseCase struct {
	repo ports.JobRepository
}

func NewStatusUseCase(repo ports.JobRepository) *StatusUseCase {
	return &StatusUseCase{repo: repo}
}

func (uc *StatusUseCase) GetByID(ctx context.Context, id string) (*domain.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get job", errors.New("jobId is required"))
	}
	return uc.repo.GetByID(ctx, id)
}
