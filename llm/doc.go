// Package llm provides a small, provider-agnostic abstraction over chat
// completion backends, used to generate remediation suggestions.
//
// # Message Types
//
// A conversation is a list of Message values with a Role:
//
//	msgs := []llm.Message{
//	    llm.System("You are a senior application security engineer."),
//	    llm.User(prompt),
//	}
//
// # Completion Requests
//
// CompletionRequest is configured with functional options:
//
//	req := llm.NewRequest(msgs,
//	    llm.WithTemperature(0.2),
//	    llm.WithMaxTokens(800),
//	)
//
// # Clients
//
// Client is the capability remediation depends on. OpenAIClient talks to any
// OpenAI-compatible chat completions endpoint:
//
//	client := llm.NewOpenAIClient(llm.OpenAIOptions{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4o-mini",
//	})
//	resp, err := client.Complete(ctx, req)
//
// Failures are reported as *Error values carrying a code and class, see
// Classify.
//
// # Token Tracking
//
// TokenTracker accumulates usage. UsageTracker keeps per-model call counts
// and totals and is safe for concurrent use.
package llm
