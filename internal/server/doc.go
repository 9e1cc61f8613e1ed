// Package server exposes the WebSocket network surface.
//
// It accepts upgrades on a single configurable path, wraps each accepted
// connection in a write-serialized frame socket with ping/pong keepalive,
// and hands it to a session. There are no other endpoints.
package server
