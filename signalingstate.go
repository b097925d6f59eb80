// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"fmt"

	"github.com/pion/embedded-webrtc/pkg/rtcerr"
)

type stateChangeOp int

const (
	stateChangeOpSetLocal stateChangeOp = iota + 1
	stateChangeOpSetRemote
)

func (op stateChangeOp) String() string {
	switch op {
	case stateChangeOpSetLocal:
		return "SetLocal"
	case stateChangeOpSetRemote:
		return "SetRemote"
	default:
		return "Unknown State Change Operation"
	}
}

// SignalingState indicates the signaling state of the offer/answer process.
type SignalingState int

const (
	// SignalingStateUnknown is the enum's zero-value.
	SignalingStateUnknown SignalingState = iota

	// SignalingStateStable indicates there is no offer/answer exchange in
	// progress. This is also the initial state, in which case the local and
	// remote descriptions are nil.
	SignalingStateStable

	// SignalingStateHaveLocalOffer indicates that a local description, of
	// type "offer", has been successfully applied.
	SignalingStateHaveLocalOffer

	// SignalingStateHaveRemoteOffer indicates that a remote description, of
	// type "offer", has been successfully applied.
	SignalingStateHaveRemoteOffer

	// SignalingStateClosed indicates The PeerConnection has been closed.
	SignalingStateClosed
)

// This is done this way because of a linter.
const (
	signalingStateStableStr          = "stable"
	signalingStateHaveLocalOfferStr  = "have-local-offer"
	signalingStateHaveRemoteOfferStr = "have-remote-offer"
	signalingStateClosedStr          = "closed"
)

func newSignalingState(raw string) SignalingState {
	switch raw {
	case signalingStateStableStr:
		return SignalingStateStable
	case signalingStateHaveLocalOfferStr:
		return SignalingStateHaveLocalOffer
	case signalingStateHaveRemoteOfferStr:
		return SignalingStateHaveRemoteOffer
	case signalingStateClosedStr:
		return SignalingStateClosed
	default:
		return SignalingStateUnknown
	}
}

func (t SignalingState) String() string {
	switch t {
	case SignalingStateStable:
		return signalingStateStableStr
	case SignalingStateHaveLocalOffer:
		return signalingStateHaveLocalOfferStr
	case SignalingStateHaveRemoteOffer:
		return signalingStateHaveRemoteOfferStr
	case SignalingStateClosed:
		return signalingStateClosedStr
	default:
		return ErrUnknownType.Error()
	}
}

// checkNextSignalingState validates one offer/answer step. Applying the same
// kind of description again in a have-*-offer state is accepted so an offer
// can be replaced before the answer arrives.
func checkNextSignalingState(cur SignalingState, op stateChangeOp, sdpType SDPType) (SignalingState, error) {
	switch cur {
	case SignalingStateStable:
		if sdpType == SDPTypeOffer {
			// stable->SetLocal(offer)->have-local-offer
			if op == stateChangeOpSetLocal {
				return SignalingStateHaveLocalOffer, nil
			}

			// stable->SetRemote(offer)->have-remote-offer
			return SignalingStateHaveRemoteOffer, nil
		}
	case SignalingStateHaveLocalOffer:
		switch {
		// have-local-offer->SetRemote(answer)->stable
		case op == stateChangeOpSetRemote && sdpType == SDPTypeAnswer:
			return SignalingStateStable, nil
		case op == stateChangeOpSetLocal && sdpType == SDPTypeOffer:
			return cur, nil
		}
	case SignalingStateHaveRemoteOffer:
		switch {
		// have-remote-offer->SetLocal(answer)->stable
		case op == stateChangeOpSetLocal && sdpType == SDPTypeAnswer:
			return SignalingStateStable, nil
		case op == stateChangeOpSetRemote && sdpType == SDPTypeOffer:
			return cur, nil
		}
	default:
	}

	return cur, &rtcerr.InvalidStateError{
		Err: fmt.Errorf("%w: %s->%s(%s)", ErrIncorrectSignalingState, cur, op, sdpType),
	}
}
