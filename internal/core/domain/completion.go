package domain

// Completion operations. Providers key retries and circuit breakers by
// operation so brief generation and chat fail independently.
const (
	CompletionBrief = "brief"
	CompletionChat  = "chat"
)

type CompletionRequest struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	Operation   string
}

type Completion struct {
	Text             string `json:"text"`
	Model            string `json:"model"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

// ChatRequest asks a question about a brief given inline or by job id.
type ChatRequest struct {
	Brief       string `json:"brief,omitempty"`
	BriefID     string `json:"briefId,omitempty"`
	UserMessage string `json:"userMessage"`
}

type ChatAnswer struct {
	Answer           string `json:"answer"`
	Model            string `json:"-"`
	PromptTokens     int    `json:"-"`
	CompletionTokens int    `json:"-"`
}
