package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/infrastructure/llm/llmhttp"
	"github.com/kirillkom/brief-service/internal/infrastructure/resilience"
)

// Client calls the Ollama /api/chat endpoint without streaming.
type Client struct {
	http  *llmhttp.Client
	model string
}

func New(baseURL, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	return &Client{
		http:  llmhttp.New("ollama", baseURL, timeout, executor),
		model: model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	// Token counts as reported by the server.
	PromptEvalCount int `json:"prompt_eval_count"`
	EvalCount       int `json:"eval_count"`
}

func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	payload := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
	}

	operation := "chat"
	if req.Operation != "" {
		operation = req.Operation
	}

	var resp chatResponse
	if err := c.http.PostJSON(ctx, "/api/chat", payload, &resp, operation); err != nil {
		return domain.Completion{}, err
	}
	if resp.Message.Content == "" {
		return domain.Completion{}, fmt.Errorf("ollama %s returned no content", operation)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.Completion{
		Text:             resp.Message.Content,
		Model:            model,
		PromptTokens:     resp.PromptEvalCount,
		CompletionTokens: resp.EvalCount,
	}, nil
}
