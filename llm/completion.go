package llm

import (
	"context"
	"fmt"
	"strings"
)

// Role is the author of a message. Values match the chat completions wire format.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) String() string {
	return string(r)
}

// IsValid reports whether r is one of the defined roles.
func (r Role) IsValid() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// Message is one turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system instruction message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Client is a chat completion backend.
type Client interface {
	// Complete sends the request and returns the generated response.
	// Implementations must honour ctx cancellation and deadlines.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	Messages []Message

	// Temperature ranges over [0, 2]. Nil leaves the backend default.
	Temperature *float64

	// MaxTokens caps the generated output. Zero means no cap.
	MaxTokens int

	// Stop ends generation at the first matching sequence.
	Stop []string
}

// RequestOption customizes a CompletionRequest.
type RequestOption func(*CompletionRequest)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) RequestOption {
	return func(r *CompletionRequest) {
		r.Temperature = &t
	}
}

// WithMaxTokens caps the generated output.
func WithMaxTokens(n int) RequestOption {
	return func(r *CompletionRequest) {
		r.MaxTokens = n
	}
}

// WithStop sets stop sequences.
func WithStop(sequences ...string) RequestOption {
	return func(r *CompletionRequest) {
		r.Stop = sequences
	}
}

// NewRequest builds a request for messages.
func NewRequest(messages []Message, opts ...RequestOption) *CompletionRequest {
	req := &CompletionRequest{Messages: messages}
	for _, opt := range opts {
		opt(req)
	}
	return req
}

// Validate rejects requests no backend would accept.
func (r *CompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return fmt.Errorf("completion request has no messages")
	}
	for i, m := range r.Messages {
		if !m.Role.IsValid() {
			return fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("message %d: empty content", i)
		}
	}
	if r.Temperature != nil && (*r.Temperature < 0 || *r.Temperature > 2) {
		return fmt.Errorf("temperature %v out of range [0, 2]", *r.Temperature)
	}
	if r.MaxTokens < 0 {
		return fmt.Errorf("max tokens must not be negative, got %d", r.MaxTokens)
	}
	return nil
}

// CompletionResponse is the first choice returned by the backend.
type CompletionResponse struct {
	Content string

	// Model is the model that answered, as reported by the backend.
	Model string

	// FinishReason is "stop", "length", "content_filter" or a backend value.
	FinishReason string

	Usage TokenUsage
}

// HasContent reports whether the response carries any non-blank text.
// It is safe to call on a nil response.
func (r *CompletionResponse) HasContent() bool {
	return r != nil && strings.TrimSpace(r.Content) != ""
}

// Truncated reports whether generation stopped at the token cap.
func (r *CompletionResponse) Truncated() bool {
	return r.FinishReason == "length"
}

// TokenUsage counts the tokens consumed by one or more calls.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the sum of u and other.
func (u TokenUsage) Add(other TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + other.InputTokens,
		OutputTokens: u.OutputTokens + other.OutputTokens,
		TotalTokens:  u.TotalTokens + other.TotalTokens,
	}
}
