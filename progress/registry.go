package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// ConnectedPrefix prefixes the acknowledgement sent when a channel opens.
const ConnectedPrefix = "connected:"

// Registry tracks the current endpoint of each progress channel.
type Registry struct {
	mu     sync.Mutex
	slots  map[string]*slot
	logger *slog.Logger
}

// slot holds one channel. refs counts goroutines holding or waiting for mu;
// the slot is reclaimed once it is unreferenced and has no endpoint.
type slot struct {
	mu   sync.Mutex
	refs int
	ep   Endpoint
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used for delivery failures.
func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		slots:  make(map[string]*slot),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// lock returns the locked slot for id. When create is false and the channel
// is unknown it returns nil.
func (r *Registry) lock(id string, create bool) *slot {
	r.mu.Lock()
	s, ok := r.slots[id]
	if !ok {
		if !create {
			r.mu.Unlock()
			return nil
		}
		s = &slot{}
		r.slots[id] = s
	}
	s.refs++
	r.mu.Unlock()

	s.mu.Lock()
	return s
}

func (r *Registry) unlock(id string, s *slot) {
	s.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	s.refs--
	if s.refs == 0 && s.ep == nil {
		delete(r.slots, id)
	}
}

// Open registers ep as the endpoint for channelID, closing any endpoint it
// replaces, and sends the "connected:<channelID>" acknowledgement. If the
// acknowledgement cannot be sent the registration is rolled back, ep is
// closed, and the error is returned.
func (r *Registry) Open(channelID string, ep Endpoint) error {
	if ep == nil {
		return fmt.Errorf("open channel %s: nil endpoint", channelID)
	}

	s := r.lock(channelID, true)
	defer r.unlock(channelID, s)

	if old := s.ep; old != nil && old != ep {
		_ = old.Close()
	}
	s.ep = ep

	if err := ep.Send(ConnectedPrefix + channelID); err != nil {
		s.ep = nil
		_ = ep.Close()
		return fmt.Errorf("acknowledge channel %s: %w", channelID, err)
	}
	return nil
}

// Push sends message to the current endpoint of channelID. It returns false
// when the channel has no endpoint or the send failed; in the latter case the
// endpoint is closed and deregistered.
func (r *Registry) Push(channelID, message string) bool {
	s := r.lock(channelID, false)
	if s == nil {
		return false
	}
	defer r.unlock(channelID, s)

	if s.ep == nil {
		return false
	}

	if err := s.ep.Send(message); err != nil {
		r.logger.Debug("progress push failed, dropping endpoint",
			"channel", channelID,
			"error", err,
		)
		_ = s.ep.Close()
		s.ep = nil
		return false
	}
	return true
}

// Notify implements Notifier by pushing to the local endpoint.
func (r *Registry) Notify(_ context.Context, channelID, message string) bool {
	return r.Push(channelID, message)
}

// Close deregisters and closes the endpoint of channelID, if any.
func (r *Registry) Close(channelID string) {
	s := r.lock(channelID, false)
	if s == nil {
		return
	}
	defer r.unlock(channelID, s)

	if s.ep != nil {
		_ = s.ep.Close()
		s.ep = nil
	}
}

// Release deregisters and closes ep only if it is still the current endpoint
// of channelID. Transports call it on disconnect so that a stale connection
// cannot remove a newer registration.
func (r *Registry) Release(channelID string, ep Endpoint) {
	s := r.lock(channelID, false)
	if s == nil {
		return
	}
	defer r.unlock(channelID, s)

	if s.ep != nil && s.ep == ep {
		_ = s.ep.Close()
		s.ep = nil
	}
}

// Connected reports whether channelID currently has an endpoint.
func (r *Registry) Connected(channelID string) bool {
	s := r.lock(channelID, false)
	if s == nil {
		return false
	}
	defer r.unlock(channelID, s)
	return s.ep != nil
}

// Len returns the number of channels currently tracked.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
