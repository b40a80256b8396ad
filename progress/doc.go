// Package progress delivers best-effort scan progress messages to
// subscribers.
//
// A Registry maps channel IDs to at most one live Endpoint. Every operation on
// a channel is serialized by that channel's lock, so a push can never reach an
// endpoint that has already been replaced or closed, and concurrent opens for
// the same ID never lose a registration. Delivery is best effort: a failed
// send deregisters the endpoint and the message is dropped.
//
// Handler exposes the registry over WebSocket at GET /ws/scan/{channel}.
// Relay fans messages out through Redis pub/sub so that any replica can
// deliver to a subscriber connected to another one.
package progress
