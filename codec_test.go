// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodec_String(t *testing.T) {
	testCases := []struct {
		codec          Codec
		expectedString string
	}{
		{CodecUnknown, ErrUnknownType.Error()},
		{CodecH264, "H264"},
		{CodecOpus, "opus"},
		{CodecVP8, "VP8"},
		{CodecMulaw, "PCMU"},
		{CodecAlaw, "PCMA"},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedString,
			testCase.codec.String(),
			"testCase: %d %v", i, testCase,
		)
	}
}

func TestCodec_Kind(t *testing.T) {
	testCases := []struct {
		codec        Codec
		expectedKind RTPCodecType
		rtx          bool
	}{
		{CodecUnknown, RTPCodecTypeUnknown, false},
		{CodecH264, RTPCodecTypeVideo, true},
		{CodecVP8, RTPCodecTypeVideo, true},
		{CodecOpus, RTPCodecTypeAudio, false},
		{CodecMulaw, RTPCodecTypeAudio, false},
		{CodecAlaw, RTPCodecTypeAudio, false},
	}

	for i, testCase := range testCases {
		assert.Equal(t, testCase.expectedKind, testCase.codec.Kind(), "testCase: %d %v", i, testCase)
		assert.Equal(t, testCase.rtx, testCase.codec.supportsRTX(), "testCase: %d %v", i, testCase)
	}
}

func TestPayloadTable(t *testing.T) {
	table := payloadTable{CodecOpus: DefaultPayloadTypeOpus}

	pt, ok := table.get(CodecOpus)
	assert.True(t, ok)
	assert.Equal(t, uint8(DefaultPayloadTypeOpus), pt)

	_, ok = table.get(CodecH264)
	assert.False(t, ok)
}

func TestNewRTPCodecType(t *testing.T) {
	testCases := []struct {
		typeString   string
		expectedType RTPCodecType
	}{
		{"Unknown", RTPCodecTypeUnknown},
		{"audio", RTPCodecTypeAudio},
		{"Video", RTPCodecTypeVideo},
	}

	for i, testCase := range testCases {
		assert.Equal(t,
			testCase.expectedType,
			NewRTPCodecType(testCase.typeString),
			"testCase: %d %v", i, testCase,
		)
	}
}

func TestRTPCodecType_String(t *testing.T) {
	assert.Equal(t, ErrUnknownType.Error(), RTPCodecTypeUnknown.String())
	assert.Equal(t, "audio", RTPCodecTypeAudio.String())
	assert.Equal(t, "video", RTPCodecTypeVideo.String())
}
