package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/infrastructure/resilience"
)

const (
	publishOperation = "publish job created"
	// publishBreaker keys retries and the circuit breaker for job notifications.
	publishBreaker = "nats.publish_job_created"
)

// Connection states a later publish can recover from.
var transientPublishErrors = []error{
	nats.ErrNoServers,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
}

func isTransientPublishError(err error) bool {
	for _, target := range transientPublishErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// classifyPublishError lets a cancelled upload pass without tripping the
// breaker. Bad subjects and oversized payloads fail on every attempt.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err), isTransientPublishError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{RecordFailure: true}
	}
}

// publishError names the job whose notification was lost. Broker outages
// are marked temporary; the job itself is still picked up by polling.
func publishError(jobID string, err error) error {
	if err == nil {
		return nil
	}
	withJob := fmt.Errorf("job %s: %w", jobID, err)
	if domain.IsKind(err, domain.ErrTemporary) {
		return fmt.Errorf("%s: %w", publishOperation, withJob)
	}
	if class := classifyPublishError(err); class.Retryable {
		return domain.WrapError(domain.ErrTemporary, publishOperation, withJob)
	}
	return fmt.Errorf("%s: %w", publishOperation, withJob)
}
