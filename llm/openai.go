package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const (
	// ProviderOpenAI is the provider name reported in errors from OpenAIClient.
	ProviderOpenAI = "openai"

	// DefaultModel is used when OpenAIOptions.Model is empty.
	DefaultModel = "gpt-4o-mini"
)

// OpenAIOptions configures an OpenAI-compatible chat completions client.
type OpenAIOptions struct {
	// APIKey is the bearer credential sent with every request.
	APIKey string

	// BaseURL overrides the API base (e.g. "https://gateway.internal/v1").
	// Empty selects the public OpenAI endpoint.
	BaseURL string

	// Model is the chat model to request. Default: DefaultModel.
	Model string

	// HTTPClient overrides the transport. Timeouts should be driven by the
	// request context rather than the client.
	HTTPClient *http.Client
}

// OpenAIClient implements Client on top of github.com/sashabaranov/go-openai.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a client for an OpenAI-compatible endpoint.
func NewOpenAIClient(opts OpenAIOptions) *OpenAIClient {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = opts.BaseURL
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Model returns the model requested by the client.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, NewError(ProviderOpenAI, "complete", ErrCodeInvalidInput, "invalid request").WithCause(err)
	}

	resp, err := c.client.CreateChatCompletion(ctx, c.toChatRequest(req))
	if err != nil {
		return nil, classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, NewError(ProviderOpenAI, "complete", ErrCodeParseError, "response has no choices").
			WithCause(ErrMalformedResponse)
	}

	choice := resp.Choices[0]
	return &CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}

func (c *OpenAIClient) toChatRequest(req *CompletionRequest) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role.String(),
			Content: m.Content,
		})
	}

	out := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
		Stop:     req.Stop,
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
	}
	if req.MaxTokens > 0 {
		out.MaxTokens = req.MaxTokens
	}
	return out
}

// classifyOpenAIError maps go-openai errors onto backend error codes.
func classifyOpenAIError(err error) *Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusError(apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return statusError(reqErr.HTTPStatusCode, err)
	}

	return Classify(ProviderOpenAI, "complete", err)
}

func statusError(status int, cause error) *Error {
	e := NewError(ProviderOpenAI, "complete", ErrCodeBackendError, fmt.Sprintf("backend returned HTTP %d", status)).
		WithStatus(status).
		WithCause(cause)
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		e.Class = ErrorClassTransient
	}
	return e
}
