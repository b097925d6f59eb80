// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestICECandidateInit_Serialization(t *testing.T) {
	tt := []struct {
		candidate  ICECandidateInit
		serialized string
	}{
		{ICECandidateInit{
			Candidate:        "candidate:abc123",
			SDPMid:           refString("0"),
			SDPMLineIndex:    refUint16(0),
			UsernameFragment: refString("def"),
		}, `{"candidate":"candidate:abc123","sdpMid":"0","sdpMLineIndex":0,"usernameFragment":"def"}`},
		{ICECandidateInit{
			Candidate: "candidate:abc123",
		}, `{"candidate":"candidate:abc123","sdpMid":null,"sdpMLineIndex":null,"usernameFragment":null}`},
	}

	for i, tc := range tt {
		b, err := json.Marshal(tc.candidate)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, tc.serialized, string(b))

		actual, err := DeserializeICECandidateInit(b)
		require.NoError(t, err, "case %d", i)
		assert.Equal(t, tc.candidate, actual, "should match")
	}
}

func TestDeserializeICECandidateInit(t *testing.T) {
	candidateInit, err := DeserializeICECandidateInit([]byte(
		`{"candidate":"candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host","sdpMid":"0","foo":{"bar":[1,2]}}`,
	))
	require.NoError(t, err)
	assert.Equal(t, "candidate:1 1 udp 2122260223 10.0.0.1 54321 typ host", candidateInit.Candidate)
	assert.Equal(t, "0", *candidateInit.SDPMid)
	assert.Nil(t, candidateInit.SDPMLineIndex)

	for _, tc := range []struct {
		input string
		err   error
	}{
		{`["candidate"]`, ErrICECandidateInitMalformed},
		{`{"candidate":`, ErrICECandidateInitMalformed},
		{`null`, ErrICECandidateInitMalformed},
		{`{"candidate":5}`, ErrICECandidateInitMalformed},
		{`{"sdpMid":"0"}`, ErrICECandidateInitMissingCandidate},
		{`{"candidate":""}`, ErrICECandidateInitMissingCandidate},
		{`{"candidate":"` + strings.Repeat("a", MaxICECandidateInitCandidateLen+1) + `"}`, ErrICECandidateInitMalformed},
	} {
		_, err := DeserializeICECandidateInit([]byte(tc.input))
		assert.ErrorIs(t, err, tc.err, tc.input)
	}
}

func refString(s string) *string {
	return &s
}

func refUint16(i uint16) *uint16 {
	return &i
}
