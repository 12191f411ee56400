package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/infrastructure/llm/llmhttp"
	"github.com/kirillkom/brief-service/internal/infrastructure/resilience"
	"github.com/sony/gobreaker/v2"
)

func TestCompleteSendsBearerAndParams(t *testing.T) {
	var (
		auth     string
		captured completionRequest
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"role":"assistant","content":"Holding: affirmed"},"finish_reason":"stop"}],"usage":{"prompt_tokens":30,"completion_tokens":6}}`))
	}))
	defer server.Close()

	client := New(server.URL+"/v1/", "sk-test", "gpt-4o-mini", time.Second, nil)
	got, err := client.Complete(context.Background(), domain.CompletionRequest{
		System:      "sys",
		Prompt:      "prompt",
		MaxTokens:   512,
		Temperature: 0.2,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if auth != "Bearer sk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if captured.Model != "gpt-4o-mini" || captured.MaxTokens != 512 || captured.Temperature != 0.2 {
		t.Fatalf("unexpected request %+v", captured)
	}
	if got.Text != "Holding: affirmed" || got.PromptTokens != 30 || got.CompletionTokens != 6 {
		t.Fatalf("unexpected completion %+v", got)
	}
}

func TestCompleteClientErrorIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"context_length_exceeded"}}`))
	}))
	defer server.Close()

	client := New(server.URL, "", "m", time.Second, nil)
	_, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "x"})
	var statusErr *llmhttp.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected HTTPStatusError 400, got %v", err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary: %v", err)
	}
	if !strings.Contains(err.Error(), "context_length_exceeded") {
		t.Fatalf("expected body in error, got %v", err)
	}
}

func TestCompleteNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := New(server.URL, "", "m", time.Second, nil).Complete(context.Background(), domain.CompletionRequest{Prompt: "x"})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestCompleteCircuitOpenIsTemporary(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     1,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})
	client := New(server.URL, "", "m", time.Second, executor)

	_, _ = client.Complete(context.Background(), domain.CompletionRequest{Prompt: "x"})
	_, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "x"})
	if !resilience.IsCircuitOpen(err) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary circuit open error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected open breaker to skip the upstream call, got %d calls", calls)
	}
}

func TestCompleteKeepsBreakersPerOperation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if len(req.Messages) > 0 && req.Messages[len(req.Messages)-1].Content == "summarize" {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"model":"m","choices":[{"message":{"role":"assistant","content":"answer"}}]}`))
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:        1,
		BreakerEnabled:          true,
		BreakerMinRequests:      1,
		BreakerFailureRatio:     1,
		BreakerOpenTimeout:      time.Minute,
		BreakerHalfOpenMaxCalls: 1,
	})
	client := New(server.URL, "", "m", time.Second, executor)

	brief := domain.CompletionRequest{Prompt: "summarize", Operation: domain.CompletionBrief}
	_, _ = client.Complete(context.Background(), brief)
	if _, err := client.Complete(context.Background(), brief); !resilience.IsCircuitOpen(err) {
		t.Fatalf("expected brief breaker to open, got %v", err)
	}

	got, err := client.Complete(context.Background(), domain.CompletionRequest{Prompt: "question", Operation: domain.CompletionChat})
	if err != nil {
		t.Fatalf("chat must not share the brief breaker: %v", err)
	}
	if got.Text != "answer" {
		t.Fatalf("unexpected answer %q", got.Text)
	}
	if state := executor.State("openai.brief"); state != gobreaker.StateOpen {
		t.Fatalf("expected openai.brief open, got %s", state)
	}
	if state := executor.State("openai.chat"); state != gobreaker.StateClosed {
		t.Fatalf("expected openai.chat closed, got %s", state)
	}
}
