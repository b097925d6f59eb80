// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"encoding/json"
	"strings"
)

// SDPType describes the type of an SessionDescription.
type SDPType int

const (
	// SDPTypeUnknown is the enum's zero-value.
	SDPTypeUnknown SDPType = iota

	// SDPTypeOffer indicates that a description MUST be treated as an SDP offer.
	SDPTypeOffer

	// SDPTypeAnswer indicates that a description MUST be treated as an SDP
	// final answer, and the offer-answer exchange MUST be considered complete.
	SDPTypeAnswer
)

// This is done this way because of a linter.
const (
	sdpTypeOfferStr  = "offer"
	sdpTypeAnswerStr = "answer"
)

// NewSDPType creates an SDPType from a string.
func NewSDPType(raw string) SDPType {
	switch raw {
	case sdpTypeOfferStr:
		return SDPTypeOffer
	case sdpTypeAnswerStr:
		return SDPTypeAnswer
	default:
		return SDPTypeUnknown
	}
}

func (t SDPType) String() string {
	switch t {
	case SDPTypeOffer:
		return sdpTypeOfferStr
	case SDPTypeAnswer:
		return sdpTypeAnswerStr
	default:
		return ErrUnknownType.Error()
	}
}

// MarshalJSON enables JSON marshaling of a SDPType.
func (t SDPType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON enables JSON unmarshaling of a SDPType.
func (t *SDPType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch strings.ToLower(s) {
	default:
		return ErrUnknownType
	case sdpTypeOfferStr:
		*t = SDPTypeOffer
	case sdpTypeAnswerStr:
		*t = SDPTypeAnswer
	}

	return nil
}
