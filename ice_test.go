// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/pion/sdp/v3"
	"github.com/pion/stun/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHostAgent(t *testing.T) *HostAgent {
	t.Helper()

	agent, err := NewHostAgent(HostAgentConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = agent.Close() })

	return agent
}

func TestHostAgentPopulateCandidates(t *testing.T) {
	agent := newTestHostAgent(t)

	media := &sdp.MediaDescription{}
	n, err := agent.PopulateCandidates(media)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, media.Attributes, 1)
	assert.True(t, media.Attributes[0].IsICECandidate())

	port := strconv.Itoa(agent.LocalAddr().(*net.UDPAddr).Port)
	assert.Contains(t, media.Attributes[0].Value, " udp ")
	assert.Contains(t, media.Attributes[0].Value, "127.0.0.1 "+port+" typ host")

	ufrag, pwd := agent.LocalCredentials()
	assert.Len(t, ufrag, iceUfragLen)
	assert.Len(t, pwd, icePwdLen)
}

func TestHostAgentRemoteCandidates(t *testing.T) {
	agent := newTestHostAgent(t)

	assert.ErrorIs(t, agent.SetRemoteCredentials("", "pwd"), ErrRemoteICECredentialsMissing)
	require.NoError(t, agent.SetRemoteCredentials("ufrg", "pwd"))
	ufrag, pwd := agent.RemoteCredentials()
	assert.Equal(t, "ufrg", ufrag)
	assert.Equal(t, "pwd", pwd)

	assert.Error(t, agent.AddRemoteCandidate("not a candidate"))
	assert.ErrorIs(t, agent.AddRemoteCandidate("candidate:1 1 tcp 2130706431 10.0.0.1 9 typ host tcptype active"), errICECandidateNotUDP)
	assert.Nil(t, agent.Selected())
	assert.ErrorIs(t, agent.Send([]byte{1}), errICENoSelectedAddress)

	require.NoError(t, agent.AddRemoteCandidate("candidate:1 1 udp 2130706431 abc.local 4000 typ host"))
	assert.Nil(t, agent.Selected())

	require.NoError(t, agent.AddRemoteCandidate("candidate:2 1 udp 2130706431 10.0.0.2 5000 typ host"))
	require.NoError(t, agent.AddRemoteCandidate("candidate:3 1 udp 2130706431 10.0.0.3 6000 typ host"))
	assert.Equal(t, "10.0.0.2:5000", agent.Selected().String())
	assert.Len(t, agent.RemoteCandidates(), 3)
}

func TestHostAgentSendReceive(t *testing.T) {
	a, b := newTestHostAgent(t), newTestHostAgent(t)

	received := make(chan []byte, 1)
	a.OnPacket(func(packet []byte, from net.Addr) {
		assert.Equal(t, b.LocalAddr().String(), from.String())
		received <- packet
	})

	media := &sdp.MediaDescription{}
	_, err := a.PopulateCandidates(media)
	require.NoError(t, err)
	require.NoError(t, b.AddRemoteCandidate(media.Attributes[0].Value))

	require.NoError(t, b.Send([]byte{22, 1, 2}))
	select {
	case packet := <-received:
		assert.Equal(t, []byte{22, 1, 2}, packet)
	case <-time.After(5 * time.Second):
		assert.Fail(t, "packet not delivered")
	}
}

func TestHostAgentAnswersConnectivityCheck(t *testing.T) {
	agent := newTestHostAgent(t)
	ufrag, pwd := agent.LocalCredentials()

	client, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer func() { _ = client.Close() }()

	request, err := stun.Build(stun.TransactionID, stun.BindingRequest,
		stun.NewUsername(ufrag+":remote"),
		stun.NewShortTermIntegrity(pwd),
		stun.Fingerprint,
	)
	require.NoError(t, err)

	_, err = client.WriteTo(request.Raw, agent.LocalAddr())
	require.NoError(t, err)

	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, receiveMTU)
	n, _, err := client.ReadFrom(buf)
	require.NoError(t, err)

	response := &stun.Message{Raw: buf[:n]}
	require.NoError(t, response.Decode())
	assert.Equal(t, stun.BindingSuccess, response.Type)
	assert.Equal(t, request.TransactionID, response.TransactionID)
	require.NoError(t, stun.NewShortTermIntegrity(pwd).Check(response))

	var mapped stun.XORMappedAddress
	require.NoError(t, mapped.GetFrom(response))
	assert.Equal(t, client.LocalAddr().(*net.UDPAddr).Port, mapped.Port)

	assert.Equal(t, client.LocalAddr().String(), agent.Selected().String())
}

func TestHostAgentRejectsInvalidCheck(t *testing.T) {
	agent := newTestHostAgent(t)
	ufrag, pwd := agent.LocalCredentials()
	from := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 9}

	wrongUser, err := stun.Build(stun.TransactionID, stun.BindingRequest,
		stun.NewUsername(ufrag+"x:remote"),
		stun.NewShortTermIntegrity(pwd),
		stun.Fingerprint,
	)
	require.NoError(t, err)
	assert.ErrorIs(t, agent.HandleSTUN(wrongUser.Raw, from), errSTUNUsernameMismatch)

	wrongPwd, err := stun.Build(stun.TransactionID, stun.BindingRequest,
		stun.NewUsername(ufrag+":remote"),
		stun.NewShortTermIntegrity("wrong"),
		stun.Fingerprint,
	)
	require.NoError(t, err)
	assert.Error(t, agent.HandleSTUN(wrongPwd.Raw, from))
	assert.Nil(t, agent.Selected())

	indication, err := stun.Build(stun.TransactionID, stun.NewType(stun.MethodBinding, stun.ClassIndication))
	require.NoError(t, err)
	assert.NoError(t, agent.HandleSTUN(indication.Raw, from))

	assert.Error(t, agent.HandleSTUN([]byte{0, 1}, from))
}

func TestHostAgentClose(t *testing.T) {
	agent, err := NewHostAgent(HostAgentConfig{})
	require.NoError(t, err)

	assert.NoError(t, agent.Close())
	assert.NoError(t, agent.Close())
	assert.ErrorIs(t, agent.Send([]byte{1}), errICEAgentClosed)
}
