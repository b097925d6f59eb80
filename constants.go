// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import "time"

const (
	// MaxSessionDescriptionSDPLen is the largest SDP body accepted from a
	// session description envelope.
	MaxSessionDescriptionSDPLen = 25000

	// MaxSDPMediaCount bounds the media sections of a local description.
	MaxSDPMediaCount = 5

	// MaxSDPAttributeCount bounds the attributes of one media section.
	MaxSDPAttributeCount = 256

	// MaxICECandidateInitCandidateLen bounds the candidate string of an ICE candidate envelope.
	MaxICECandidateInitCandidateLen = 256

	// maxJSONTokenCount bounds the members of a signaling JSON envelope.
	maxJSONTokenCount = 100

	// Rolling buffer budget: retention window times the highest expected bitrate,
	// in MTU sized packets.
	defaultRollingBufferDuration = 3 * time.Second
	highestExpectedBitRate       = 10 * 1024 * 1024
	defaultMTUSize               = 1200

	defaultSeqNumBufferSize     = 1000
	defaultValidIndexBufferSize = 1000

	// receiveMTU is the largest packet read from the transport.
	receiveMTU = 1460

	sdpSessionVersion    = 2
	sdpLocalAddress      = "127.0.0.1"
	sdpPlaceholderRTCP   = "9 IN IP4 0.0.0.0"
	sdpMediaPort         = 9
	sdpMediaProtocol     = "UDP/TLS/RTP/SAVPF"
	sdpApplicationProto  = "UDP/DTLS/SCTP"
	sdpApplicationFormat = "webrtc-datachannel"
	sdpSCTPPort          = "5000"
	sdpMsidSemantic      = " WMS *"
	sdpBundleValue       = "BUNDLE"

	mediaSectionApplication = "application"

	dtlsRoleActpass = "actpass"
	dtlsRoleActive  = "active"

	cnameLength = 16
	iceUfragLen = 4
	icePwdLen   = 24
)

func defaultRollingBufferCapacity() int {
	return int(defaultRollingBufferDuration/time.Second) * highestExpectedBitRate / 8 / defaultMTUSize
}
