// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"testing"

	"github.com/pion/rtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalTestPacket(t *testing.T, ssrc uint32, pt uint8, seq uint16, payload []byte) []byte {
	t.Helper()

	raw, err := (&rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    pt,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 3000,
			SSRC:           ssrc,
		},
		Payload: payload,
	}).Marshal()
	require.NoError(t, err)

	return raw
}

func TestNewRollingBuffer(t *testing.T) {
	_, err := NewRollingBuffer(0)
	assert.ErrorIs(t, err, ErrInvalidRollingBufferCapacity)

	b, err := NewRollingBuffer(defaultRollingBufferCapacity())
	require.NoError(t, err)
	assert.Equal(t, 3276, b.Capacity())
}

func TestRollingBuffer(t *testing.T) {
	for _, start := range []uint16{0, 1, 511, 32767, 32768, 65530, 65535} {
		b, err := NewRollingBuffer(8)
		require.NoError(t, err)

		add := func(nums ...uint16) {
			for _, n := range nums {
				require.NoError(t, b.Add(marshalTestPacket(t, 1, 96, start+n, []byte{byte(n)})))
			}
		}
		seqs := func(nums ...uint16) []uint16 {
			out := make([]uint16, 0, len(nums))
			for _, n := range nums {
				out = append(out, start+n)
			}

			return out
		}
		assertValid := func(expected int, nums ...uint16) {
			t.Helper()
			out := b.ValidIndexes(seqs(nums...), make([]uint64, 0, 16))
			assert.Len(t, out, expected, "start %d", start)
		}

		add(0, 1, 2, 3, 4, 5, 6, 7)
		assertValid(8, 0, 1, 2, 3, 4, 5, 6, 7)

		add(8)
		assertValid(1, 8)
		assertValid(0, 0)

		add(10)
		assertValid(1, 10)
		assertValid(0, 1, 2, 9)

		// late packet still inside the window
		add(9)
		assertValid(1, 9)

		add(22)
		assertValid(1, 22)
		assertValid(0, 10, 14, 21)
		assert.Equal(t, 1, b.Len())
	}
}

func TestRollingBufferExtractInsert(t *testing.T) {
	b, err := NewRollingBuffer(4)
	require.NoError(t, err)

	for seq := uint16(10); seq < 14; seq++ {
		require.NoError(t, b.Add(marshalTestPacket(t, 1, 96, seq, []byte{1, 2, 3})))
	}

	indexes := b.ValidIndexes([]uint16{11}, make([]uint64, 0, 1))
	require.Len(t, indexes, 1)

	pkt := b.Extract(indexes[0])
	require.NotNil(t, pkt)
	assert.Equal(t, uint16(11), pkt.header.SequenceNumber)
	assert.Equal(t, 3, pkt.payloadLen())

	// withdrawn packets are no longer resolvable
	assert.Nil(t, b.Extract(indexes[0]))
	assert.Empty(t, b.ValidIndexes([]uint16{11}, make([]uint64, 0, 1)))

	require.NoError(t, b.Insert(indexes[0], pkt))
	assert.Len(t, b.ValidIndexes([]uint16{11}, make([]uint64, 0, 1)), 1)

	pkt = b.Extract(indexes[0])
	require.NotNil(t, pkt)
	for seq := uint16(14); seq < 18; seq++ {
		require.NoError(t, b.Add(marshalTestPacket(t, 1, 96, seq, []byte{1})))
	}
	assert.ErrorIs(t, b.Insert(indexes[0], pkt), ErrRollingBufferNotInRange)
}

func TestRollingBufferValidIndexesCapacity(t *testing.T) {
	b, err := NewRollingBuffer(16)
	require.NoError(t, err)

	for seq := uint16(0); seq < 16; seq++ {
		require.NoError(t, b.Add(marshalTestPacket(t, 1, 96, seq, nil)))
	}

	out := b.ValidIndexes([]uint16{1, 2, 3, 4, 5}, make([]uint64, 0, 3))
	assert.Equal(t, []uint64{1, 2, 3}, out)
}

func TestRollingBufferRejectsGarbage(t *testing.T) {
	b, err := NewRollingBuffer(4)
	require.NoError(t, err)

	assert.Error(t, b.Add([]byte{0x80}))
	assert.Equal(t, 0, b.Len())
}

func TestRollingBufferPayloadLenCountsPadding(t *testing.T) {
	b, err := NewRollingBuffer(4)
	require.NoError(t, err)

	// padding bit set, three payload bytes followed by five bytes of padding
	raw := []byte{
		0xa0, 96, 0x00, 0x07, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x01,
		1, 2, 3,
		0, 0, 0, 0, 5,
	}
	require.NoError(t, b.Add(raw))

	pkt := b.Extract(7)
	require.NotNil(t, pkt)
	assert.Equal(t, 12, pkt.headerLen)
	assert.Equal(t, 8, pkt.payloadLen())
}
