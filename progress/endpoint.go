package progress

import "context"

// Endpoint is one connected subscriber.
//
// Implementations must be comparable (pointer types are) because the registry
// uses identity to tell a stale endpoint from the current one.
type Endpoint interface {
	// Send delivers one text message.
	Send(message string) error

	// Close disconnects the subscriber. Close must be idempotent.
	Close() error
}

// Notifier publishes progress messages for a channel. It reports whether the
// message was handed off; a false return is never an error for the caller.
type Notifier interface {
	Notify(ctx context.Context, channelID, message string) bool
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, channelID, message string) bool

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, channelID, message string) bool {
	return f(ctx, channelID, message)
}

// Discard is a Notifier that drops every message.
var Discard Notifier = NotifierFunc(func(context.Context, string, string) bool { return false })
