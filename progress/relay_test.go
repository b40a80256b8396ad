package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRelay(t *testing.T) (*Relay, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	relay, err := NewRelay(RelayOptions{URL: fmt.Sprintf("redis://%s", mr.Addr())})
	require.NoError(t, err)
	t.Cleanup(func() { _ = relay.Close() })

	return relay, mr
}

func TestNewRelay(t *testing.T) {
	t.Run("invalid URL", func(t *testing.T) {
		_, err := NewRelay(RelayOptions{URL: "invalid://url"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse Redis URL")
	})

	t.Run("connection failure", func(t *testing.T) {
		_, err := NewRelay(RelayOptions{
			URL:            "redis://localhost:99999",
			ConnectTimeout: 100 * time.Millisecond,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect to Redis")
	})

	t.Run("ping", func(t *testing.T) {
		relay, _ := setupRelay(t)
		assert.NoError(t, relay.Ping(context.Background()))
	})
}

func TestRelay_ForwardDeliversToLocalEndpoint(t *testing.T) {
	relay, _ := setupRelay(t)
	registry := NewRegistry()

	ep := &fakeEndpoint{}
	require.NoError(t, registry.Open("job-9", ep))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- relay.Forward(ctx, registry, ready) }()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscription")
	}

	assert.True(t, relay.Notify(ctx, "job-9", "scanned a.py"))
	assert.True(t, relay.Notify(ctx, "other", "dropped"))

	assert.Eventually(t, func() bool {
		msgs := ep.messages()
		return len(msgs) == 2 && msgs[1] == "scanned a.py"
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Forward did not stop on cancellation")
	}
}

func TestRelay_PublishFailure(t *testing.T) {
	relay, mr := setupRelay(t)
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.False(t, relay.Notify(ctx, "job", "m"))
	assert.Error(t, relay.Publish(ctx, "job", "m"))
}
