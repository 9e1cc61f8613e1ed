// Package game implements the authoritative room state machine.
//
// A room moves through four phases: Lobby (waiting for quorum), Counting
// (countdown task running), Racing (start timestamp set), Finished (every
// player done). All mutations happen under the registry's per-process
// exclusive section, so each room observes a total order of state changes.
package game
