// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"sync"

	"github.com/pion/rtp"
)

const uint16SizeHalf = 1 << 15

// bufferedPacket is an RTP packet retained for retransmission. raw holds the
// plaintext packet as it was handed to WriteRTP.
type bufferedPacket struct {
	raw       []byte
	header    rtp.Header
	headerLen int
	index     uint64
}

// payloadLen is everything after the header, padding included.
func (p *bufferedPacket) payloadLen() int {
	return len(p.raw) - p.headerLen
}

// RollingBuffer retains recently sent RTP packets keyed by their extended
// sequence number. Only the last capacity indexes are kept; older slots are
// recycled as new packets arrive.
type RollingBuffer struct {
	mu      sync.Mutex
	packets []*bufferedPacket

	// head is the oldest retained index, tail one past the newest.
	head, tail uint64
	started    bool
}

// NewRollingBuffer creates a RollingBuffer holding up to capacity packets.
func NewRollingBuffer(capacity int) (*RollingBuffer, error) {
	if capacity <= 0 {
		return nil, ErrInvalidRollingBufferCapacity
	}

	return &RollingBuffer{packets: make([]*bufferedPacket, capacity)}, nil
}

// Capacity returns the number of slots of the buffer.
func (b *RollingBuffer) Capacity() int {
	return len(b.packets)
}

func (b *RollingBuffer) slot(index uint64) uint64 {
	return index % uint64(len(b.packets))
}

// Add stores a copy of raw. Sequence number gaps leave empty slots behind;
// a late packet is stored only while its index is still retained.
func (b *RollingBuffer) Add(raw []byte) error {
	pkt := &bufferedPacket{raw: append([]byte(nil), raw...)}
	n, err := pkt.header.Unmarshal(pkt.raw)
	if err != nil {
		return err
	}
	pkt.headerLen = n
	seq := pkt.header.SequenceNumber

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		b.started = true
		b.head = uint64(seq)
		b.tail = uint64(seq)
	}

	last := b.tail - 1
	diff := seq - uint16(last)
	switch {
	case b.tail == b.head:
		pkt.index = b.tail
	case diff == 0:
		pkt.index = last
	case diff < uint16SizeHalf:
		pkt.index = last + uint64(diff)
	default:
		back := uint64(uint16(last) - seq)
		if back > last || last-back < b.head {
			return ErrRollingBufferNotInRange
		}
		pkt.index = last - back
	}

	if pkt.index >= b.tail {
		b.advance(pkt.index + 1)
	}
	b.packets[b.slot(pkt.index)] = pkt

	return nil
}

// advance moves the tail to newTail, clearing every slot it passes over.
func (b *RollingBuffer) advance(newTail uint64) {
	capacity := uint64(len(b.packets))
	from := b.tail
	if newTail-from > capacity {
		from = newTail - capacity
	}
	for i := from; i < newTail; i++ {
		b.packets[b.slot(i)] = nil
	}

	b.tail = newTail
	if b.tail-b.head > capacity {
		b.head = b.tail - capacity
	}
}

// ValidIndexes resolves sequence numbers to the indexes of packets still held
// by the buffer, appending them to out[:0]. Unknown sequence numbers are
// skipped. out is never grown past its capacity.
func (b *RollingBuffer) ValidIndexes(seqs []uint16, out []uint64) []uint64 {
	out = out[:0]

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tail == b.head {
		return out
	}

	last := b.tail - 1
	for _, seq := range seqs {
		if len(out) == cap(out) {
			break
		}

		back := uint16(last) - seq
		if back >= uint16SizeHalf || uint64(back) > last-b.head {
			continue
		}
		index := last - uint64(back)
		if b.packets[b.slot(index)] == nil {
			continue
		}
		out = append(out, index)
	}

	return out
}

// Extract withdraws the packet at index. It returns nil when the slot is empty
// or no longer retained.
func (b *RollingBuffer) Extract(index uint64) *bufferedPacket {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < b.head || index >= b.tail {
		return nil
	}

	pkt := b.packets[b.slot(index)]
	if pkt == nil || pkt.index != index {
		return nil
	}
	b.packets[b.slot(index)] = nil

	return pkt
}

// Insert puts a previously extracted packet back at index.
func (b *RollingBuffer) Insert(index uint64, pkt *bufferedPacket) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if index < b.head || index >= b.tail {
		return ErrRollingBufferNotInRange
	}

	pkt.index = index
	b.packets[b.slot(index)] = pkt

	return nil
}

// Len returns the number of packets currently held.
func (b *RollingBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, p := range b.packets {
		if p != nil {
			n++
		}
	}

	return n
}
