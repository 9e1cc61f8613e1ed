// Package bus implements the process-wide broadcast event bus.
//
// Every connection session subscribes once at session start and filters
// events by room name. Capacity is bounded per subscriber: a subscriber
// that falls behind loses the overflowing events and observes a lag count
// instead of blocking publishers. Lag is a warning, not a failure —
// reconnect replay is the recovery path.
package bus
