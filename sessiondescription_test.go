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

const minimalSDP = "v=0\r\no=- 4215775240449105457 2 IN IP4 127.0.0.1\r\ns=-\r\nt=0 0\r\n"

func TestSessionDescriptionSerializeInit(t *testing.T) {
	sd := SessionDescription{Type: SDPTypeOffer, SDP: "v=0\r\ns=-\r\n"}

	n, err := sd.SerializeInit(nil)
	require.NoError(t, err)

	buf := make([]byte, n)
	written, err := sd.SerializeInit(buf)
	require.NoError(t, err)
	assert.Equal(t, n, written)
	assert.Equal(t, `{"type":"offer","sdp":"v=0\r\ns=-\r\n"}`, string(buf))

	_, err = sd.SerializeInit(make([]byte, n-1))
	assert.ErrorIs(t, err, ErrBufferTooSmall)

	// the envelope is valid JSON carrying the original text
	var decoded struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	require.NoError(t, json.Unmarshal(buf, &decoded))
	assert.Equal(t, "offer", decoded.Type)
	assert.Equal(t, sd.SDP, decoded.SDP)

	_, err = SessionDescription{SDP: minimalSDP}.SerializeInit(nil)
	assert.ErrorIs(t, err, ErrSDPInitInvalidType)
}

func TestSessionDescriptionInitRoundTrip(t *testing.T) {
	for _, raw := range []string{
		minimalSDP,
		"v=0\no=- 1 2 IN IP4 127.0.0.1\ns=-\nt=0 0\n",
		"v=0\ro=- 1 2 IN IP4 127.0.0.1\r\ns=-\nt=0 0\r",
		"v=0\r\na=msid-semantic: WMS \"quoted\\stream\"\r\n",
		"v=0\r\ns=-",
	} {
		for _, typ := range []SDPType{SDPTypeOffer, SDPTypeAnswer} {
			sd := SessionDescription{Type: typ, SDP: raw}

			b, err := sd.MarshalInit()
			require.NoError(t, err)

			actual, err := DeserializeSessionDescriptionInit(b)
			require.NoError(t, err)
			assert.Equal(t, typ, actual.Type)
			assert.Equal(t, sdpLineBreakNormalizer.Replace(raw), actual.SDP)
			assert.NotContains(t, strings.ReplaceAll(actual.SDP, "\r\n", ""), "\n")
		}
	}
}

func TestDeserializeSessionDescriptionInit(t *testing.T) {
	sd, err := DeserializeSessionDescriptionInit([]byte(`{"sdp":"v=0\r\ns=-\r\n","extra":{"a":[1,2,3]},"type":"answer"}`))
	require.NoError(t, err)
	assert.Equal(t, SDPTypeAnswer, sd.Type)
	assert.Equal(t, "v=0\r\ns=-\r\n", sd.SDP)

	sd, err = DeserializeSessionDescriptionInit([]byte(`{"type":"offer","sdp":"v=0\ns=-\n"}`))
	require.NoError(t, err)
	assert.Equal(t, "v=0\r\ns=-\r\n", sd.SDP)

	tooManyMembers := &strings.Builder{}
	tooManyMembers.WriteString(`{"type":"offer","sdp":"v=0"`)
	for i := 0; i < maxJSONTokenCount; i++ {
		tooManyMembers.WriteString(`,"k":1`)
	}
	tooManyMembers.WriteString("}")

	for _, tc := range []struct {
		input string
		err   error
	}{
		{`"offer"`, ErrSDPInitNotObject},
		{`{"type":"offer","sdp":"v=0"`, ErrSDPInitNotObject},
		{`{"type":"rollback","sdp":"v=0"}`, ErrSDPInitInvalidType},
		{`{"type":1,"sdp":"v=0"}`, ErrSDPInitInvalidType},
		{`{"type":"offer"}`, ErrSDPInitMissingSDP},
		{`{"sdp":"v=0"}`, ErrSDPInitMissingType},
		{`{"type":"offer","sdp":"` + strings.Repeat("a", MaxSessionDescriptionSDPLen+1) + `"}`, ErrSDPInitMaxSDPLenExceeded},
		{tooManyMembers.String(), ErrSDPInitTooManyTokens},
	} {
		_, err := DeserializeSessionDescriptionInit([]byte(tc.input))
		assert.ErrorIs(t, err, tc.err, tc.input)
	}
}

func TestSessionDescriptionUnmarshal(t *testing.T) {
	desc := SessionDescription{Type: SDPTypeOffer, SDP: minimalSDP}
	parsed, err := desc.Unmarshal()
	require.NoError(t, err)
	assert.Equal(t, "-", string(parsed.SessionName))

	desc.SDP = "garbage"
	_, err = desc.Unmarshal()
	assert.ErrorIs(t, err, ErrSDPUnmarshalling)
}
