// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

// Codec identifies a media codec a transceiver can send.
type Codec int

const (
	// CodecUnknown is the enum's zero-value.
	CodecUnknown Codec = iota

	// CodecH264 is H264 constrained baseline (profile-level-id 42e01f) with
	// level-asymmetry-allowed and packetization-mode 1.
	CodecH264

	// CodecOpus is Opus at 48kHz stereo.
	CodecOpus

	// CodecVP8 is VP8.
	CodecVP8

	// CodecMulaw is G.711 mu-law (PCMU).
	CodecMulaw

	// CodecAlaw is G.711 A-law (PCMA).
	CodecAlaw
)

// Default payload types used when offering.
const (
	DefaultPayloadTypeMulaw = 0
	DefaultPayloadTypeAlaw  = 8
	DefaultPayloadTypeVP8   = 96
	DefaultPayloadTypeOpus  = 111
	DefaultPayloadTypeH264  = 125
)

// Tokens looked up in remote descriptions. The payload type always precedes them.
const (
	h264Marker   = "H264/90000"
	opusMarker   = "opus/48000"
	vp8Marker    = "VP8/90000"
	mulawMarker  = "PCMU/8000"
	alawMarker   = "PCMA/8000"
	rtxMarker    = "rtx/90000"
	rtxAptMarker = "apt="

	defaultPayloadTypeMulawStr = "0"
	defaultPayloadTypeAlawStr  = "8"
)

// rtpmap encodings written into local descriptions.
const (
	h264Rtpmap  = "H264/90000"
	opusRtpmap  = "opus/48000/2"
	vp8Rtpmap   = "VP8/90000"
	mulawRtpmap = "PCMU/8000"
	alawRtpmap  = "PCMA/8000"
	rtxRtpmap   = "rtx/90000"

	defaultH264Fmtp = "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f"
	defaultOpusFmtp = "minptime=10;useinbandfec=1"
)

func (c Codec) String() string {
	switch c {
	case CodecH264:
		return "H264"
	case CodecOpus:
		return "opus"
	case CodecVP8:
		return "VP8"
	case CodecMulaw:
		return "PCMU"
	case CodecAlaw:
		return "PCMA"
	default:
		return ErrUnknownType.Error()
	}
}

// Kind returns whether the codec carries audio or video.
func (c Codec) Kind() RTPCodecType {
	switch c {
	case CodecH264, CodecVP8:
		return RTPCodecTypeVideo
	case CodecOpus, CodecMulaw, CodecAlaw:
		return RTPCodecTypeAudio
	default:
		return RTPCodecTypeUnknown
	}
}

// supportsRTX reports whether an RTX companion is negotiated for the codec.
func (c Codec) supportsRTX() bool {
	return c.Kind() == RTPCodecTypeVideo
}

// payloadTable maps a codec to its negotiated payload type. The RTX table
// uses the same shape, keyed by the primary codec the RTX stream repairs.
type payloadTable map[Codec]uint8

func (t payloadTable) get(c Codec) (uint8, bool) {
	pt, ok := t[c]

	return pt, ok
}
