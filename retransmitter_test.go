// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/pion/logging"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPacketWriter struct {
	packets [][]byte
	err     error
}

func (w *recordingPacketWriter) writeRTPPacket(raw []byte) error {
	w.packets = append(w.packets, append([]byte(nil), raw...))

	return w.err
}

func newArmedTransceiver(t *testing.T, codec Codec, pt, rtxPt uint8, bufferCapacity int) *RTPTransceiver {
	t.Helper()

	tr, err := newRTPTransceiver(MediaStreamTrack{Codec: codec}, RTPTransceiverDirectionSendrecv)
	require.NoError(t, err)

	tr.sender.payloadType = pt
	tr.sender.rtxPayloadType = rtxPt
	tr.sender.packetBuffer, err = NewRollingBuffer(bufferCapacity)
	require.NoError(t, err)
	tr.sender.retransmitter = NewRetransmitter(defaultSeqNumBufferSize, defaultValidIndexBufferSize)

	return tr
}

func testLogger() logging.LeveledLogger {
	return logging.NewDefaultLoggerFactory().NewLogger("retransmitter")
}

func TestResendPacketOnNackRTX(t *testing.T) {
	tr := newArmedTransceiver(t, CodecVP8, 96, 97, 4)
	tr.sender.rtxSequenceNumber = 500

	for _, seq := range []uint16{100, 101, 102, 103, 104, 105} {
		require.NoError(t, tr.sender.packetBuffer.Add(marshalTestPacket(t, tr.SSRC(), 96, seq, []byte{0xA, 0xB, 0xC})))
	}

	w := &recordingPacketWriter{}
	nack := &rtcp.TransportLayerNack{
		SenderSSRC: 1234,
		MediaSSRC:  tr.SSRC(),
		Nacks:      []rtcp.NackPair{{PacketID: 100, LostPackets: 0b10001}},
	}
	require.NoError(t, resendPacketOnNack(nack, []*RTPTransceiver{tr}, w, testLogger()))

	// 100 and 101 aged out of the four packet window
	require.Len(t, w.packets, 1)

	rtx := &rtp.Packet{}
	require.NoError(t, rtx.Unmarshal(w.packets[0]))
	assert.Equal(t, uint8(97), rtx.PayloadType)
	assert.Equal(t, tr.RTXSSRC(), rtx.SSRC)
	assert.Equal(t, uint16(500), rtx.SequenceNumber)
	assert.Equal(t, uint16(105), binary.BigEndian.Uint16(rtx.Payload))
	assert.Equal(t, []byte{0xA, 0xB, 0xC}, rtx.Payload[2:])
	assert.Equal(t, uint16(501), tr.sender.rtxSequenceNumber)

	stats := tr.OutboundStats()
	assert.Equal(t, uint32(1), stats.NACKCount)
	assert.Equal(t, uint64(1), stats.RetransmittedPacketsSent)
	assert.Equal(t, uint64(3), stats.RetransmittedBytesSent)

	// the packet went back into the buffer and can be NACKed again
	assert.Len(t, tr.sender.packetBuffer.ValidIndexes([]uint16{105}, make([]uint64, 0, 1)), 1)
}

func TestResendPacketOnNackSkipsMissing(t *testing.T) {
	tr := newArmedTransceiver(t, CodecVP8, 96, 97, 64)

	for _, seq := range []uint16{100, 102, 103, 104, 105} {
		require.NoError(t, tr.sender.packetBuffer.Add(marshalTestPacket(t, tr.SSRC(), 96, seq, []byte{1, 2})))
	}
	w := &recordingPacketWriter{}
	nack := &rtcp.TransportLayerNack{
		MediaSSRC: tr.SSRC(),
		Nacks:     rtcp.NackPairsFromSequenceNumbers([]uint16{100, 101, 105}),
	}
	require.NoError(t, resendPacketOnNack(nack, []*RTPTransceiver{tr}, w, testLogger()))

	require.Len(t, w.packets, 2)
	for i, expected := range []uint16{100, 105} {
		rtx := &rtp.Packet{}
		require.NoError(t, rtx.Unmarshal(w.packets[i]))
		assert.Equal(t, uint8(97), rtx.PayloadType)
		assert.Equal(t, expected, binary.BigEndian.Uint16(rtx.Payload))
	}
	assert.Equal(t, uint64(2), tr.OutboundStats().RetransmittedPacketsSent)
	assert.Equal(t, 5, tr.sender.packetBuffer.Len())
}

func TestResendPacketOnNackNoRTX(t *testing.T) {
	tr := newArmedTransceiver(t, CodecOpus, 111, 111, 64)

	raw := marshalTestPacket(t, tr.SSRC(), 111, 7, []byte{9, 9, 9, 9})
	require.NoError(t, tr.sender.packetBuffer.Add(raw))

	w := &recordingPacketWriter{}
	nack := &rtcp.TransportLayerNack{
		MediaSSRC: tr.SSRC(),
		Nacks:     []rtcp.NackPair{{PacketID: 7}},
	}
	require.NoError(t, resendPacketOnNack(nack, []*RTPTransceiver{tr}, w, testLogger()))

	require.Len(t, w.packets, 1)
	assert.Equal(t, raw, w.packets[0])
	assert.Equal(t, uint64(4), tr.OutboundStats().RetransmittedBytesSent)
}

func TestResendPacketOnNackSenderSSRCFallback(t *testing.T) {
	tr := newArmedTransceiver(t, CodecOpus, 111, 111, 64)
	require.NoError(t, tr.sender.packetBuffer.Add(marshalTestPacket(t, tr.SSRC(), 111, 1, []byte{1})))

	w := &recordingPacketWriter{}
	nack := &rtcp.TransportLayerNack{
		SenderSSRC: tr.SSRC(),
		MediaSSRC:  tr.SSRC() + 1,
		Nacks:      []rtcp.NackPair{{PacketID: 1}},
	}
	require.NoError(t, resendPacketOnNack(nack, []*RTPTransceiver{tr}, w, testLogger()))
	assert.Len(t, w.packets, 1)

	nack.SenderSSRC = tr.SSRC() + 2
	assert.ErrorIs(t, resendPacketOnNack(nack, []*RTPTransceiver{tr}, w, testLogger()), ErrRtcpInputSsrcInvalid)
	assert.Equal(t, uint32(1), tr.OutboundStats().NACKCount)
}

func TestResendPacketOnNackCountsOncePerCall(t *testing.T) {
	tr := newArmedTransceiver(t, CodecVP8, 96, 97, 64)
	for seq := uint16(0); seq < 10; seq++ {
		require.NoError(t, tr.sender.packetBuffer.Add(marshalTestPacket(t, tr.SSRC(), 96, seq, []byte{1})))
	}

	rtxStart := tr.sender.rtxSequenceNumber
	w := &recordingPacketWriter{err: errors.New("write failed")}
	nack := &rtcp.TransportLayerNack{
		MediaSSRC: tr.SSRC(),
		Nacks:     []rtcp.NackPair{{PacketID: 0, LostPackets: 0xFF}},
	}
	require.NoError(t, resendPacketOnNack(nack, []*RTPTransceiver{tr}, w, testLogger()))

	// every attempt failed but the packets stay retained
	assert.Len(t, w.packets, 9)
	assert.Equal(t, rtxStart+9, tr.sender.rtxSequenceNumber)
	assert.Equal(t, 10, tr.sender.packetBuffer.Len())

	stats := tr.OutboundStats()
	assert.Equal(t, uint32(1), stats.NACKCount)
	assert.Equal(t, uint64(0), stats.RetransmittedPacketsSent)
}

func TestResendPacketOnNackErrors(t *testing.T) {
	tr, err := newRTPTransceiver(MediaStreamTrack{Codec: CodecVP8}, RTPTransceiverDirectionSendrecv)
	require.NoError(t, err)

	nack := &rtcp.TransportLayerNack{MediaSSRC: tr.SSRC(), Nacks: []rtcp.NackPair{{PacketID: 1}}}
	assert.ErrorIs(t, resendPacketOnNack(nack, []*RTPTransceiver{tr}, &recordingPacketWriter{}, testLogger()), ErrRetransmitterNotCreated)
	assert.Equal(t, uint32(1), tr.OutboundStats().NACKCount)

	armed := newArmedTransceiver(t, CodecVP8, 96, 97, 64)
	armed.sender.retransmitter = NewRetransmitter(4, 4)
	nack = &rtcp.TransportLayerNack{MediaSSRC: armed.SSRC(), Nacks: []rtcp.NackPair{{PacketID: 1, LostPackets: 0xF}}}
	assert.ErrorIs(t, resendPacketOnNack(nack, []*RTPTransceiver{armed}, &recordingPacketWriter{}, testLogger()), ErrNackListTooLarge)
}
