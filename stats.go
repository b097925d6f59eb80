// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

// OutboundRTPStreamStats contains statistics for an outbound RTP stream.
type OutboundRTPStreamStats struct {
	// SSRC is the 32-bit unsigned integer value used to identify the source of the stream of RTP packets.
	SSRC uint32 `json:"ssrc"`

	// Kind is either "audio" or "video".
	Kind string `json:"kind"`

	// PacketsSent is the total number of RTP packets sent for this SSRC,
	// retransmissions excluded.
	PacketsSent uint64 `json:"packetsSent"`

	// BytesSent is the total number of payload bytes sent for this SSRC,
	// retransmissions excluded.
	BytesSent uint64 `json:"bytesSent"`

	// NACKCount counts the NACK packets received by this sender.
	NACKCount uint32 `json:"nackCount"`

	// RetransmittedPacketsSent is the total number of packets that were retransmitted.
	RetransmittedPacketsSent uint64 `json:"retransmittedPacketsSent"`

	// RetransmittedBytesSent is the total number of payload bytes retransmitted,
	// RTP header and padding excluded.
	RetransmittedBytesSent uint64 `json:"retransmittedBytesSent"`
}

// InboundRTPStreamStats contains statistics for an inbound RTP stream.
type InboundRTPStreamStats struct {
	// SSRC is the 32-bit unsigned integer value the remote announced for this stream.
	SSRC uint32 `json:"ssrc"`

	// Kind is either "audio" or "video".
	Kind string `json:"kind"`
}

// StatsReport collects the per transceiver statistics of a PeerConnection, in
// transceiver order.
type StatsReport struct {
	Outbound []OutboundRTPStreamStats `json:"outbound"`
	Inbound  []InboundRTPStreamStats  `json:"inbound"`
}
