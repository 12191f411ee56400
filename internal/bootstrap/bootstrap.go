package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/brief-service/internal/config"
	"github.com/kirillkom/brief-service/internal/core/ports"
	"github.com/kirillkom/brief-service/internal/core/usecase"
	"github.com/kirillkom/brief-service/internal/infrastructure/extractor"
	"github.com/kirillkom/brief-service/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/brief-service/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/brief-service/internal/infrastructure/llm/openai"
	"github.com/kirillkom/brief-service/internal/infrastructure/queue/nats"
	"github.com/kirillkom/brief-service/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/brief-service/internal/infrastructure/resilience"
	"github.com/kirillkom/brief-service/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/brief-service/internal/observability/metrics"
)

// Options identify the process being wired. Registry receives worker and
// breaker collectors; a fresh one is created when nil.
type Options struct {
	Service  string
	Registry *prometheus.Registry
}

type App struct {
	Config   config.Config
	Registry *prometheus.Registry

	// Events is nil when NATS_URL is empty.
	Events ports.JobEvents
	Intake *usecase.IntakeUseCase
	Worker *usecase.WorkerUseCase
	Jobs   *usecase.StatusUseCase
	Chat   *usecase.ChatUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	registry := opts.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	service := opts.Service
	if service == "" {
		service = "brief"
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewJobRepository(db)

	blobs, err := localfs.New(cfg.StoragePath, cfg.StorageBucket, cfg.StoragePublicBaseURL)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init blob storage: %w", err)
	}

	breakerMetrics := metrics.NewBreakerMetrics(service, registry)
	completer, err := newCompleter(cfg, resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.LLMRetryMaxAttempts,
		BreakerEnabled:   cfg.LLMBreakerEnabled,
		OnStateChange:    breakerMetrics.OnStateChange,
	}))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var (
		events ports.JobEvents
		queue  *nats.Queue
	)
	if cfg.NATSURL != "" {
		publishExecutor := resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts: 3,
			BreakerEnabled:   true,
			OnStateChange:    breakerMetrics.OnStateChange,
		})
		queue, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			Name:               "brief-" + service,
			ResilienceExecutor: publishExecutor,
		})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init job events: %w", err)
		}
		events = queue
	}

	worker := usecase.NewWorkerUseCase(
		repo,
		blobs,
		extractor.NewDispatcher(),
		completer,
		metrics.NewWorkerMetrics(service, registry),
		usecase.BriefOptions{
			MaxInputChars: cfg.TextTruncateChars,
			MaxTokens:     cfg.LLMMaxTokens,
			Temperature:   cfg.LLMTemperature,
			Timeout:       cfg.LLMTimeout,
		},
	)
	jobs := usecase.NewStatusUseCase(repo)
	chat := usecase.NewChatUseCase(jobs, completer, usecase.ChatOptions{
		MaxBriefChars: cfg.ChatMaxBriefChars,
		MaxTokens:     cfg.LLMChatMaxTokens,
		Temperature:   cfg.LLMTemperature,
		Timeout:       cfg.LLMTimeout,
	})

	return &App{
		Config:   cfg,
		Registry: registry,
		Events:   events,
		Intake:   usecase.NewIntakeUseCase(repo, blobs, events, pdftext.NewPageCounter(), worker),
		Worker:   worker,
		Jobs:     jobs,
		Chat:     chat,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func newCompleter(cfg config.Config, executor *resilience.Executor) (ports.CompletionService, error) {
	switch cfg.LLMProvider {
	case "openai":
		return openai.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout, executor), nil
	case "ollama":
		return ollama.New(cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, executor), nil
	default:
		return nil, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
