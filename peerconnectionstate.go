// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import "github.com/pion/embedded-webrtc/internal/dtls"

// PeerConnectionState indicates the state of the PeerConnection.
type PeerConnectionState int

const (
	// PeerConnectionStateUnknown is the enum's zero-value.
	PeerConnectionStateUnknown PeerConnectionState = iota

	// PeerConnectionStateNew indicates that the DTLS session has not started.
	PeerConnectionStateNew

	// PeerConnectionStateConnecting indicates that the DTLS handshake is in
	// progress.
	PeerConnectionStateConnecting

	// PeerConnectionStateConnected indicates that the DTLS handshake
	// completed and SRTP keys are installed.
	PeerConnectionStateConnected

	// PeerConnectionStateFailed indicates that the DTLS handshake failed or
	// the remote certificate did not match its fingerprint.
	PeerConnectionStateFailed

	// PeerConnectionStateClosed indicates the peer connection is closed
	// and no longer accepting requests.
	PeerConnectionStateClosed
)

// This is done this way because of a linter.
const (
	peerConnectionStateNewStr        = "new"
	peerConnectionStateConnectingStr = "connecting"
	peerConnectionStateConnectedStr  = "connected"
	peerConnectionStateFailedStr     = "failed"
	peerConnectionStateClosedStr     = "closed"
)

func newPeerConnectionState(raw string) PeerConnectionState {
	switch raw {
	case peerConnectionStateNewStr:
		return PeerConnectionStateNew
	case peerConnectionStateConnectingStr:
		return PeerConnectionStateConnecting
	case peerConnectionStateConnectedStr:
		return PeerConnectionStateConnected
	case peerConnectionStateFailedStr:
		return PeerConnectionStateFailed
	case peerConnectionStateClosedStr:
		return PeerConnectionStateClosed
	default:
		return PeerConnectionStateUnknown
	}
}

func (t PeerConnectionState) String() string {
	switch t {
	case PeerConnectionStateNew:
		return peerConnectionStateNewStr
	case PeerConnectionStateConnecting:
		return peerConnectionStateConnectingStr
	case PeerConnectionStateConnected:
		return peerConnectionStateConnectedStr
	case PeerConnectionStateFailed:
		return peerConnectionStateFailedStr
	case PeerConnectionStateClosed:
		return peerConnectionStateClosedStr
	default:
		return ErrUnknownType.Error()
	}
}

// peerConnectionStateFromDTLS maps the DTLS session state. Connected is not
// mapped: the peer connection is connected only once SRTP is keyed.
func peerConnectionStateFromDTLS(state dtls.State) PeerConnectionState {
	switch state {
	case dtls.StateNew:
		return PeerConnectionStateNew
	case dtls.StateConnecting:
		return PeerConnectionStateConnecting
	case dtls.StateFailed:
		return PeerConnectionStateFailed
	case dtls.StateClosed:
		return PeerConnectionStateClosed
	default:
		return PeerConnectionStateUnknown
	}
}
