// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pion/embedded-webrtc/internal/util"
)

// MediaStreamTrack describes the local media a transceiver sends.
type MediaStreamTrack struct {
	Kind     RTPCodecType
	Codec    Codec
	StreamID string
	TrackID  string
}

// RTPTransceiverInit dictionary is used when calling the AddTransceiver() method.
type RTPTransceiverInit struct {
	Direction RTPTransceiverDirection
}

// rtpSender is the per track sending state. Payload types are written during
// negotiation and read-only once packets flow.
type rtpSender struct {
	ssrc           uint32
	rtxSSRC        uint32
	payloadType    uint8
	rtxPayloadType uint8

	// Advanced by the retransmitter only; callers serialize NACK handling per sender.
	rtxSequenceNumber uint16

	packetBuffer  *RollingBuffer
	retransmitter *Retransmitter
}

// RTPTransceiver represents a combination of an RTPSender and an RTPReceiver
// that share a common mid.
type RTPTransceiver struct {
	direction RTPTransceiverDirection
	track     MediaStreamTrack
	sender    rtpSender

	// SSRC announced by the remote for this transceiver's media kind. Zero until
	// the remote description is applied.
	jitterBufferSSRC uint32

	statsLock     sync.Mutex
	outboundStats OutboundRTPStreamStats
	inboundStats  InboundRTPStreamStats
}

func newRTPTransceiver(track MediaStreamTrack, direction RTPTransceiverDirection) (*RTPTransceiver, error) {
	if track.Codec.Kind() == RTPCodecTypeUnknown {
		return nil, errInvalidTransceiverTrack
	}
	if track.Kind == RTPCodecTypeUnknown {
		track.Kind = track.Codec.Kind()
	}
	if track.StreamID == "" {
		track.StreamID = uuid.NewString()
	}
	if track.TrackID == "" {
		track.TrackID = uuid.NewString()
	}

	t := &RTPTransceiver{
		direction: direction,
		track:     track,
		sender: rtpSender{
			ssrc:              util.RandUint32(),
			rtxSSRC:           util.RandUint32(),
			rtxSequenceNumber: uint16(util.RandUint32()),
		},
	}
	t.outboundStats.SSRC = t.sender.ssrc
	t.outboundStats.Kind = track.Kind.String()

	return t, nil
}

// Direction returns the RTPTransceiver's current direction.
func (t *RTPTransceiver) Direction() RTPTransceiverDirection {
	return t.direction
}

// Track returns the local track sent by the transceiver.
func (t *RTPTransceiver) Track() MediaStreamTrack {
	return t.track
}

// Kind returns RTPTransceiver's kind.
func (t *RTPTransceiver) Kind() RTPCodecType {
	return t.track.Kind
}

// SSRC returns the SSRC of the primary outbound stream.
func (t *RTPTransceiver) SSRC() uint32 {
	return t.sender.ssrc
}

// RTXSSRC returns the SSRC used for retransmissions when RTX is negotiated.
func (t *RTPTransceiver) RTXSSRC() uint32 {
	return t.sender.rtxSSRC
}

// PayloadType returns the negotiated payload type, zero before negotiation.
func (t *RTPTransceiver) PayloadType() uint8 {
	return t.sender.payloadType
}

// RTXPayloadType returns the negotiated RTX payload type. It equals
// PayloadType when RTX was not negotiated.
func (t *RTPTransceiver) RTXPayloadType() uint8 {
	return t.sender.rtxPayloadType
}

// JitterBufferSSRC returns the remote SSRC bound to this transceiver.
func (t *RTPTransceiver) JitterBufferSSRC() uint32 {
	return t.jitterBufferSSRC
}

// OutboundStats returns a snapshot of the outbound statistics.
func (t *RTPTransceiver) OutboundStats() OutboundRTPStreamStats {
	t.statsLock.Lock()
	defer t.statsLock.Unlock()

	return t.outboundStats
}

// InboundStats returns a snapshot of the inbound statistics.
func (t *RTPTransceiver) InboundStats() InboundRTPStreamStats {
	t.statsLock.Lock()
	defer t.statsLock.Unlock()

	return t.inboundStats
}

func (t *RTPTransceiver) hasSSRC(ssrc uint32) bool {
	return t.sender.ssrc == ssrc || t.sender.rtxSSRC == ssrc
}

func (t *RTPTransceiver) addSent(payloadBytes int) {
	t.statsLock.Lock()
	t.outboundStats.PacketsSent++
	t.outboundStats.BytesSent += uint64(payloadBytes)
	t.statsLock.Unlock()
}

// findTransceiverBySSRC returns the first transceiver sending ssrc as its
// primary or RTX stream.
func findTransceiverBySSRC(transceivers []*RTPTransceiver, ssrc uint32) (*RTPTransceiver, error) {
	for _, t := range transceivers {
		if t.hasSSRC(ssrc) {
			return t, nil
		}
	}

	return nil, ErrTransceiverNotFound
}
