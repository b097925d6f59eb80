// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"strings"
)

// RTPCodecType determines the type of a codec.
type RTPCodecType int

const (
	// RTPCodecTypeUnknown is the enum's zero-value.
	RTPCodecTypeUnknown RTPCodecType = iota

	// RTPCodecTypeAudio indicates this is an audio codec.
	RTPCodecTypeAudio

	// RTPCodecTypeVideo indicates this is a video codec.
	RTPCodecTypeVideo
)

const (
	rtpCodecTypeAudioStr = "audio"
	rtpCodecTypeVideoStr = "video"
)

func (t RTPCodecType) String() string {
	switch t {
	case RTPCodecTypeAudio:
		return rtpCodecTypeAudioStr
	case RTPCodecTypeVideo:
		return rtpCodecTypeVideoStr
	default:
		return ErrUnknownType.Error()
	}
}

// NewRTPCodecType creates a RTPCodecType from a string.
func NewRTPCodecType(r string) RTPCodecType {
	switch {
	case strings.EqualFold(r, rtpCodecTypeAudioStr):
		return RTPCodecTypeAudio
	case strings.EqualFold(r, rtpCodecTypeVideoStr):
		return RTPCodecTypeVideo
	default:
		return RTPCodecTypeUnknown
	}
}
