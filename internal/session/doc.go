// Package session implements the per-connection message pipeline.
//
// Every connection runs two cooperating tasks: an inbound loop that is
// the sole mutator of room state on behalf of its client, and a broadcast
// forwarder that copies matching bus events to the socket. Private
// replies (keystroke feedback, name conflicts) bypass the bus and are
// written to the socket directly; the socket implementation serializes
// writes from both tasks.
package session
