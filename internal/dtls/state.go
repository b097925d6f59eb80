// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

// State indicates the handshake progress of a Session.
type State int

const (
	// StateUnknown is the enum's zero-value.
	StateUnknown State = iota

	// StateNew indicates that the handshake has not started yet.
	StateNew

	// StateConnecting indicates that the handshake is in progress.
	StateConnecting

	// StateConnected indicates that the handshake completed and keying
	// material can be exported.
	StateConnected

	// StateClosed indicates that the session was shut down locally.
	StateClosed

	// StateFailed indicates that the handshake or the session failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool {
	return s == StateClosed || s == StateFailed
}

// canTransition encodes New -> Connecting -> Connected. Failed and Closed
// are reachable from Connecting and Connected only; a session closed before
// Start stays New.
func (s State) canTransition(next State) bool {
	if s == next || s.terminal() {
		return false
	}

	switch next {
	case StateConnecting:
		return s == StateNew
	case StateConnected:
		return s == StateConnecting
	case StateClosed, StateFailed:
		return s == StateConnecting || s == StateConnected
	default:
		return false
	}
}
