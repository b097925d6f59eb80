// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"encoding/binary"
	"errors"

	"github.com/pion/logging"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
)

// rtpPacketWriter sends an outbound RTP packet to the remote peer.
type rtpPacketWriter interface {
	writeRTPPacket(raw []byte) error
}

// Retransmitter holds the scratch space used to answer NACKs for one sender.
// The slices are sized once and reused; it is not safe for concurrent use.
type Retransmitter struct {
	sequenceNumbers []uint16
	validIndexes    []uint64
}

// NewRetransmitter creates a Retransmitter able to handle NACKs naming up to
// seqNumCapacity sequence numbers, of which up to indexCapacity are resent.
func NewRetransmitter(seqNumCapacity, indexCapacity int) *Retransmitter {
	return &Retransmitter{
		sequenceNumbers: make([]uint16, 0, seqNumCapacity),
		validIndexes:    make([]uint64, 0, indexCapacity),
	}
}

// fillSequenceNumbers expands the NACK pairs into the scratch list.
func (r *Retransmitter) fillSequenceNumbers(pairs []rtcp.NackPair) error {
	total := 0
	for _, p := range pairs {
		total++
		for b := p.LostPackets; b != 0; b &= b - 1 {
			total++
		}
	}
	if total > cap(r.sequenceNumbers) {
		return ErrNackListTooLarge
	}

	r.sequenceNumbers = r.sequenceNumbers[:0]
	for _, p := range pairs {
		r.sequenceNumbers = append(r.sequenceNumbers, p.PacketID)
		for i := uint16(0); i < 16; i++ {
			if p.LostPackets&(1<<i) != 0 {
				r.sequenceNumbers = append(r.sequenceNumbers, p.PacketID+i+1)
			}
		}
	}

	return nil
}

// buildRTXPacket wraps pkt into an RTX packet as defined by RFC 4588: the
// original sequence number is prepended to the payload.
func buildRTXPacket(pkt *bufferedPacket, sequenceNumber uint16, payloadType uint8, ssrc uint32) ([]byte, error) {
	if len(pkt.raw) < pkt.headerLen {
		return nil, errRTXPacketTooShort
	}

	payload := pkt.raw[pkt.headerLen:]
	if pkt.header.Padding && len(payload) > 0 {
		padding := int(payload[len(payload)-1])
		if padding > len(payload) {
			return nil, errRTXPacketTooShort
		}
		payload = payload[:len(payload)-padding]
	}

	rtx := rtp.Packet{
		Header:  pkt.header.Clone(),
		Payload: make([]byte, 2+len(payload)),
	}
	rtx.Header.Padding = false
	rtx.Header.SequenceNumber = sequenceNumber
	rtx.Header.PayloadType = payloadType
	rtx.Header.SSRC = ssrc
	binary.BigEndian.PutUint16(rtx.Payload, pkt.header.SequenceNumber)
	copy(rtx.Payload[2:], payload)

	return rtx.Marshal()
}

// resendPacketOnNack answers one NACK by replaying the packets it names from
// the sender's rolling buffer. Packets are rewritten as RTX when an RTX payload
// type was negotiated. Every extracted packet is put back or dropped before
// returning, and the sender's outbound stats are updated once.
func resendPacketOnNack(
	nack *rtcp.TransportLayerNack,
	transceivers []*RTPTransceiver,
	writer rtpPacketWriter,
	log logging.LeveledLogger,
) error {
	t, err := findTransceiverBySSRC(transceivers, nack.MediaSSRC)
	if errors.Is(err, ErrTransceiverNotFound) {
		if t, err = findTransceiverBySSRC(transceivers, nack.SenderSSRC); err != nil {
			log.Warnf("Received NACK for unknown ssrcs: sender %d media %d", nack.SenderSSRC, nack.MediaSSRC)

			return ErrRtcpInputSsrcInvalid
		}
	}

	var (
		nackCount         uint32 = 1
		retransmitted     uint64
		retransmittedSize uint64
	)
	defer func() {
		t.statsLock.Lock()
		t.outboundStats.NACKCount += nackCount
		t.outboundStats.RetransmittedPacketsSent += retransmitted
		t.outboundStats.RetransmittedBytesSent += retransmittedSize
		t.statsLock.Unlock()
	}()

	sender := &t.sender
	if sender.retransmitter == nil || sender.packetBuffer == nil {
		log.Errorf("Retransmitter not created for sender ssrc %d", sender.ssrc)

		return ErrRetransmitterNotCreated
	}

	r := sender.retransmitter
	if err = r.fillSequenceNumbers(nack.Nacks); err != nil {
		return err
	}
	r.validIndexes = sender.packetBuffer.ValidIndexes(r.sequenceNumbers, r.validIndexes)

	for _, index := range r.validIndexes {
		pkt := sender.packetBuffer.Extract(index)
		if pkt == nil {
			continue
		}

		var sendErr error
		if sender.payloadType == sender.rtxPayloadType {
			sendErr = writer.writeRTPPacket(pkt.raw)
		} else {
			var rtx []byte
			rtx, sendErr = buildRTXPacket(pkt, sender.rtxSequenceNumber, sender.rtxPayloadType, sender.rtxSSRC)
			sender.rtxSequenceNumber++
			if sendErr == nil {
				sendErr = writer.writeRTPPacket(rtx)
			}
		}

		if sendErr == nil {
			retransmitted++
			retransmittedSize += uint64(pkt.payloadLen())
			log.Tracef("Resent packet ssrc %d seq %d", pkt.header.SSRC, pkt.header.SequenceNumber)
		} else {
			log.Tracef("Resending packet ssrc %d seq %d failed: %v", pkt.header.SSRC, pkt.header.SequenceNumber, sendErr)
		}

		if err = sender.packetBuffer.Insert(index, pkt); err != nil {
			if !errors.Is(err, ErrRollingBufferNotInRange) {
				return err
			}
			log.Tracef("Dropping aged out packet seq %d", pkt.header.SequenceNumber)
		}
	}

	return nil
}
