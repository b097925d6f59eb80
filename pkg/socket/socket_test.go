// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package socket

import (
	"crypto/tls"
	"errors"
	"io"
	"net"
	"os"
	"testing"
	"time"

	"github.com/pion/dtls/v3/pkg/crypto/selfsign"
	"github.com/pion/transport/v4/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUDP(t *testing.T) *Connection {
	t.Helper()

	conn, err := NewConnection(Config{Protocol: ProtocolUDP, LocalAddress: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func TestUDPSendRead(t *testing.T) {
	a, b := newUDP(t), newUDP(t)
	assert.Equal(t, ProtocolUDP, a.Protocol())
	assert.True(t, a.IsConnected())
	assert.Nil(t, a.RemoteAddr())

	require.NoError(t, a.Send([]byte("hello"), b.LocalAddr()))

	require.NoError(t, b.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 64)
	n, src, err := b.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf[:n]))
	assert.Equal(t, a.LocalAddr().String(), src.String())
}

func TestSendArguments(t *testing.T) {
	conn := newUDP(t)

	assert.ErrorIs(t, conn.Send(nil, conn.LocalAddr()), ErrEmptyBuffer)
	assert.ErrorIs(t, conn.Send([]byte{1}, nil), ErrDestinationRequired)
	assert.ErrorIs(t, conn.InitSecureConnection(false), ErrSecureConnectionUnsupported)

	_, err := NewConnection(Config{Protocol: ProtocolTCP})
	assert.ErrorIs(t, err, ErrPeerAddressRequired)

	_, err = NewConnection(Config{})
	assert.ErrorIs(t, err, errors.ErrUnsupported)
}

func TestSendRetriesOnlyCountErrors(t *testing.T) {
	conn := newUDP(t)

	var calls int
	conn.write = func(b []byte, _ net.Addr) (int, error) {
		calls++
		switch calls {
		case 1:
			return 2, nil
		case 2:
			return 0, os.ErrDeadlineExceeded
		default:
			return len(b), nil
		}
	}
	require.NoError(t, conn.Send([]byte("abcdef"), conn.LocalAddr()))
	assert.Equal(t, 3, calls)
	assert.False(t, conn.IsClosed())

	calls = 0
	conn.write = func([]byte, net.Addr) (int, error) {
		calls++

		return 0, os.ErrDeadlineExceeded
	}
	assert.ErrorIs(t, conn.Send([]byte("abcdef"), conn.LocalAddr()), ErrSendFailed)
	assert.Equal(t, MaxSocketWriteRetry, calls)
	assert.False(t, conn.IsClosed())
}

func TestSendFatalErrorClosesSocket(t *testing.T) {
	conn := newUDP(t)

	errBroken := errors.New("broken pipe")
	var calls int
	conn.write = func([]byte, net.Addr) (int, error) {
		calls++

		return 1, errBroken
	}

	err := conn.Send([]byte("abc"), conn.LocalAddr())
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.ErrorIs(t, err, errBroken)
	assert.Equal(t, 1, calls)
	assert.True(t, conn.IsClosed())

	assert.ErrorIs(t, conn.Send([]byte("abc"), conn.LocalAddr()), ErrConnectionClosed)
	_, _, err = conn.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrConnectionClosed)
}

func TestCloseIdempotent(t *testing.T) {
	conn := newUDP(t)

	assert.NoError(t, conn.Close())
	assert.NoError(t, conn.Close())
	assert.True(t, conn.IsClosed())
	assert.NoError(t, conn.Free())
}

func TestFreeWaitsForInFlightSend(t *testing.T) {
	conn, err := NewConnection(Config{
		Protocol:        ProtocolUDP,
		LocalAddress:    "127.0.0.1:0",
		ShutdownTimeout: 200 * time.Millisecond,
	})
	require.NoError(t, err)

	conn.inUse.Store(true)
	start := time.Now()
	assert.NoError(t, conn.Free())
	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.True(t, conn.IsClosed())

	conn.inUse.Store(false)
	assert.NoError(t, conn.Free())
}

func TestTCPWithTLS(t *testing.T) {
	lim := test.TimeOut(time.Second * 20)
	defer lim.Stop()

	report := test.CheckRoutines(t)
	defer report()

	certificate, err := selfsign.GenerateSelfSigned()
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	received := make(chan string, 1)
	serverErr := make(chan error, 1)
	go func() {
		raw, acceptErr := listener.Accept()
		if acceptErr != nil {
			serverErr <- acceptErr

			return
		}
		server := tls.Server(raw, &tls.Config{Certificates: []tls.Certificate{certificate}, MinVersion: tls.VersionTLS12})
		defer func() { _ = server.Close() }()

		buf := make([]byte, 5)
		if _, readErr := io.ReadFull(server, buf); readErr != nil {
			serverErr <- readErr

			return
		}
		received <- string(buf)

		_, writeErr := server.Write([]byte("world"))
		serverErr <- writeErr
	}()

	conn, err := NewConnection(Config{
		Protocol:    ProtocolTCP,
		PeerAddress: listener.Addr().String(),
		TLSConfig:   &tls.Config{InsecureSkipVerify: true, MinVersion: tls.VersionTLS12}, //nolint:gosec
	})
	require.NoError(t, err)
	assert.True(t, conn.IsConnected())
	assert.Equal(t, listener.Addr().String(), conn.RemoteAddr().String())

	require.NoError(t, conn.InitSecureConnection(false))
	assert.ErrorIs(t, conn.InitSecureConnection(false), ErrAlreadySecure)

	require.NoError(t, conn.Send([]byte("hello"), nil))
	assert.Equal(t, "hello", <-received)
	require.NoError(t, <-serverErr)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	buf := make([]byte, 5)
	n, _, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	assert.NoError(t, conn.Close())
	assert.False(t, conn.IsConnected())
}
