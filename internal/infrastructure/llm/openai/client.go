package openai

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/brief-service/internal/core/domain"
	"github.com/kirillkom/brief-service/internal/infrastructure/llm/llmhttp"
	"github.com/kirillkom/brief-service/internal/infrastructure/resilience"
)

// Client calls an OpenAI compatible chat/completions endpoint. baseURL
// includes the version prefix, e.g. https://api.openai.com/v1.
type Client struct {
	http  *llmhttp.Client
	model string
}

func New(baseURL, apiKey, model string, timeout time.Duration, executor *resilience.Executor) *Client {
	client := llmhttp.New("openai", baseURL, timeout, executor)
	if apiKey != "" {
		client.SetHeader("Authorization", "Bearer "+apiKey)
	}
	return &Client{http: client, model: model}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type completionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (c *Client) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	messages := make([]message, 0, 2)
	if req.System != "" {
		messages = append(messages, message{Role: "system", Content: req.System})
	}
	messages = append(messages, message{Role: "user", Content: req.Prompt})

	operation := "chat completions"
	if req.Operation != "" {
		operation = req.Operation
	}

	var resp completionResponse
	err := c.http.PostJSON(ctx, "/chat/completions", completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, &resp, operation)
	if err != nil {
		return domain.Completion{}, err
	}
	if len(resp.Choices) == 0 {
		return domain.Completion{}, fmt.Errorf("openai %s returned no choices", operation)
	}

	model := resp.Model
	if model == "" {
		model = c.model
	}
	return domain.Completion{
		Text:             resp.Choices[0].Message.Content,
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}
