package bootstrap

import (
	"testing"
	"time"

	"github.com/kirillkom/brief-service/internal/config"
	"github.com/kirillkom/brief-service/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/brief-service/internal/infrastructure/llm/openai"
	"github.com/kirillkom/brief-service/internal/infrastructure/resilience"
)

func TestNewCompleterSelectsProvider(t *testing.T) {
	executor := resilience.NewExecutor(resilience.DefaultConfig())
	base := config.Config{LLMBaseURL: "http://localhost:1", LLMModel: "m", LLMTimeout: time.Second}

	base.LLMProvider = "openai"
	completer, err := newCompleter(base, executor)
	if err != nil {
		t.Fatalf("newCompleter(openai) error = %v", err)
	}
	if _, ok := completer.(*openai.Client); !ok {
		t.Fatalf("expected openai client, got %T", completer)
	}

	base.LLMProvider = "ollama"
	completer, err = newCompleter(base, executor)
	if err != nil {
		t.Fatalf("newCompleter(ollama) error = %v", err)
	}
	if _, ok := completer.(*ollama.Client); !ok {
		t.Fatalf("expected ollama client, got %T", completer)
	}

	base.LLMProvider = "anthropic"
	if _, err := newCompleter(base, executor); err == nil {
		t.Fatalf("expected error for unsupported provider")
	}
}
