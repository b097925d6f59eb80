// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package dtls

import (
	"net"
	"time"

	"github.com/pion/transport/v4/packetio"
)

type sessionAddr struct{}

func (sessionAddr) Network() string { return "dtls-session" }
func (sessionAddr) String() string  { return "dtls-session" }

// packetConn is the net.PacketConn the DTLS engine runs over. Reads come from
// the ciphertext queued by Session.Read, writes go to the outbound handler.
type packetConn struct {
	session *Session
	buffer  *packetio.Buffer
}

func (c *packetConn) ReadFrom(p []byte) (int, net.Addr, error) {
	n, err := c.buffer.Read(p)

	return n, sessionAddr{}, err
}

func (c *packetConn) WriteTo(p []byte, _ net.Addr) (int, error) {
	handler := c.session.outboundPacketHandler()
	if handler == nil {
		return 0, ErrOutboundHandlerNotSet
	}
	handler(append([]byte(nil), p...))

	return len(p), nil
}

func (c *packetConn) Close() error {
	return c.buffer.Close()
}

func (c *packetConn) LocalAddr() net.Addr {
	return sessionAddr{}
}

func (c *packetConn) SetDeadline(t time.Time) error {
	return c.buffer.SetReadDeadline(t)
}

func (c *packetConn) SetReadDeadline(t time.Time) error {
	return c.buffer.SetReadDeadline(t)
}

func (c *packetConn) SetWriteDeadline(time.Time) error {
	return nil
}
