// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package socket implements the UDP and TCP connections media and signaling
// traffic is carried on, with optional TLS over TCP.
package socket

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/logging"
	"golang.org/x/net/ipv4"
)

const (
	// MaxSocketWriteRetry bounds the failed write attempts of one Send.
	MaxSocketWriteRetry = 3

	// DefaultWriteRetryTimeout is how long a blocked write waits for the
	// socket to become writable before counting a failed attempt.
	DefaultWriteRetryTimeout = 500 * time.Millisecond

	// DefaultShutdownTimeout bounds the wait of Free for an in-flight send.
	DefaultShutdownTimeout = time.Second

	shutdownCheckInterval = 50 * time.Millisecond
)

var (
	// ErrConnectionClosed indicates an operation on a closed connection.
	ErrConnectionClosed = errors.New("socket: connection closed")

	// ErrSendFailed indicates that only part of the buffer could be written.
	ErrSendFailed = errors.New("socket: failed to send all data")

	// ErrPeerAddressRequired indicates a TCP connection without a peer.
	ErrPeerAddressRequired = errors.New("socket: TCP connection requires a peer address")

	// ErrDestinationRequired indicates a UDP send without a destination.
	ErrDestinationRequired = errors.New("socket: UDP send requires a destination")

	// ErrSecureConnectionUnsupported indicates TLS requested over UDP.
	ErrSecureConnectionUnsupported = errors.New("socket: TLS requires a TCP connection")

	// ErrAlreadySecure indicates InitSecureConnection called twice.
	ErrAlreadySecure = errors.New("socket: connection already secured")

	// ErrEmptyBuffer indicates a send of zero bytes.
	ErrEmptyBuffer = errors.New("socket: empty buffer")
)

// Protocol selects the transport of a Connection.
type Protocol int

const (
	// ProtocolUDP is a datagram socket with explicit destinations.
	ProtocolUDP Protocol = iota + 1

	// ProtocolTCP is a stream socket connected to a single peer.
	ProtocolTCP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolUDP:
		return "udp"
	case ProtocolTCP:
		return "tcp"
	default:
		return "unknown"
	}
}

// Config configures a Connection.
type Config struct {
	Protocol Protocol

	// LocalAddress to bind, "127.0.0.1:0" style. Empty binds any port.
	LocalAddress string

	// PeerAddress is required for TCP and dialed on creation.
	PeerAddress string

	// TLSConfig is used by InitSecureConnection. When nil a client config
	// verifying the peer against PeerAddress's host is used.
	TLSConfig *tls.Config

	WriteRetryTimeout time.Duration
	ShutdownTimeout   time.Duration

	LoggerFactory logging.LoggerFactory
}

type writeFunc func(b []byte, dest net.Addr) (int, error)

// Connection is one socket. Send, Read and Close may be called from
// different goroutines.
type Connection struct {
	protocol Protocol
	log      logging.LeveledLogger
	config   Config

	udpConn *net.UDPConn
	ipv4    *ipv4.PacketConn
	tcpConn net.Conn

	secureLock sync.RWMutex
	tlsConn    *tls.Conn

	write writeFunc

	closed atomic.Bool
	inUse  atomic.Bool
}

// NewConnection creates the socket. A UDP socket is bound, a TCP socket is
// dialed to the peer.
func NewConnection(config Config) (*Connection, error) {
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if config.WriteRetryTimeout == 0 {
		config.WriteRetryTimeout = DefaultWriteRetryTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = DefaultShutdownTimeout
	}

	c := &Connection{
		protocol: config.Protocol,
		log:      config.LoggerFactory.NewLogger("socket"),
		config:   config,
	}

	switch config.Protocol {
	case ProtocolUDP:
		local, err := net.ResolveUDPAddr("udp4", config.LocalAddress)
		if err != nil {
			return nil, err
		}
		conn, err := net.ListenUDP("udp4", local)
		if err != nil {
			return nil, err
		}
		c.udpConn = conn
		c.ipv4 = ipv4.NewPacketConn(conn)
		c.write = c.writeUDP
	case ProtocolTCP:
		if config.PeerAddress == "" {
			return nil, ErrPeerAddressRequired
		}
		dialer := &net.Dialer{}
		if config.LocalAddress != "" {
			local, err := net.ResolveTCPAddr("tcp", config.LocalAddress)
			if err != nil {
				return nil, err
			}
			dialer.LocalAddr = local
		}
		conn, err := dialer.Dial("tcp", config.PeerAddress)
		if err != nil {
			return nil, err
		}
		c.tcpConn = conn
		c.write = c.writeTCP
	default:
		return nil, fmt.Errorf("%w: %d", errors.ErrUnsupported, config.Protocol)
	}

	return c, nil
}

// Protocol returns the transport of the connection.
func (c *Connection) Protocol() Protocol {
	return c.protocol
}

// LocalAddr returns the bound address.
func (c *Connection) LocalAddr() net.Addr {
	if c.udpConn != nil {
		return c.udpConn.LocalAddr()
	}

	return c.tcpConn.LocalAddr()
}

// RemoteAddr returns the TCP peer, nil for UDP.
func (c *Connection) RemoteAddr() net.Addr {
	if c.tcpConn != nil {
		return c.tcpConn.RemoteAddr()
	}

	return nil
}

// InitSecureConnection runs a TLS handshake over the TCP connection. Later
// reads and writes are encrypted.
func (c *Connection) InitSecureConnection(isServer bool) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}
	if c.protocol != ProtocolTCP {
		return ErrSecureConnectionUnsupported
	}

	c.secureLock.Lock()
	defer c.secureLock.Unlock()

	if c.tlsConn != nil {
		return ErrAlreadySecure
	}

	config := c.config.TLSConfig
	if config == nil {
		host, _, err := net.SplitHostPort(c.config.PeerAddress)
		if err != nil {
			return err
		}
		config = &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}
	}

	var conn *tls.Conn
	if isServer {
		conn = tls.Server(c.tcpConn, config)
	} else {
		conn = tls.Client(c.tcpConn, config)
	}
	if err := conn.Handshake(); err != nil {
		return err
	}
	c.tlsConn = conn

	return nil
}

func (c *Connection) secureConn() *tls.Conn {
	c.secureLock.RLock()
	defer c.secureLock.RUnlock()

	return c.tlsConn
}

func (c *Connection) writeUDP(b []byte, dest net.Addr) (int, error) {
	if err := c.udpConn.SetWriteDeadline(time.Now().Add(c.config.WriteRetryTimeout)); err != nil {
		return 0, err
	}

	return c.ipv4.WriteTo(b, nil, dest)
}

func (c *Connection) writeTCP(b []byte, _ net.Addr) (int, error) {
	if err := c.tcpConn.SetWriteDeadline(time.Now().Add(c.config.WriteRetryTimeout)); err != nil {
		return 0, err
	}
	if conn := c.secureConn(); conn != nil {
		return conn.Write(b)
	}

	return c.tcpConn.Write(b)
}

func isRetryable(err error) bool {
	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

// Send writes buf, to dest for UDP. Timed out writes are retried up to
// MaxSocketWriteRetry failed attempts; any other error closes the
// connection. Partial writes continue from where they stopped.
func (c *Connection) Send(buf []byte, dest net.Addr) error {
	if len(buf) == 0 {
		return ErrEmptyBuffer
	}
	if c.protocol == ProtocolUDP && dest == nil {
		return ErrDestinationRequired
	}

	c.inUse.Store(true)
	defer c.inUse.Store(false)

	if c.IsClosed() {
		return ErrConnectionClosed
	}

	var (
		written  int
		attempts int
		fatalErr error
	)
	for attempts < MaxSocketWriteRetry && written < len(buf) {
		n, err := c.write(buf[written:], dest)
		written += n
		if err == nil {
			continue
		}

		if !isRetryable(err) {
			c.log.Errorf("Send to %v failed: %v", dest, err)
			fatalErr = err

			break
		}

		// an attempt is counted only on error
		attempts++
		if attempts > 1 {
			c.log.Debugf("Send retry: %d/%d", attempts, MaxSocketWriteRetry)
		}
	}

	if fatalErr != nil {
		c.log.Error("Failed to send data, closing the socket")
		_ = c.Close()
	}

	if written < len(buf) {
		err := fmt.Errorf("%w: sent %d of %d bytes after %d retries", ErrSendFailed, written, len(buf), attempts)
		if fatalErr != nil {
			return fmt.Errorf("%w: %w", err, fatalErr)
		}

		return err
	}

	return nil
}

// Read reads one datagram, or the next bytes of the stream, into buf.
func (c *Connection) Read(buf []byte) (int, net.Addr, error) {
	if c.IsClosed() {
		return 0, nil, ErrConnectionClosed
	}

	if c.ipv4 != nil {
		n, _, src, err := c.ipv4.ReadFrom(buf)

		return n, src, err
	}

	var (
		n   int
		err error
	)
	if conn := c.secureConn(); conn != nil {
		n, err = conn.Read(buf)
	} else {
		n, err = c.tcpConn.Read(buf)
	}

	return n, c.tcpConn.RemoteAddr(), err
}

// SetReadDeadline sets the deadline for pending and future Reads.
func (c *Connection) SetReadDeadline(t time.Time) error {
	if c.udpConn != nil {
		return c.udpConn.SetReadDeadline(t)
	}

	return c.tcpConn.SetReadDeadline(t)
}

// IsClosed reports whether Close was called.
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// IsConnected reports whether the socket can reach its peer. UDP sockets are
// always connected.
func (c *Connection) IsConnected() bool {
	if c.protocol == ProtocolUDP {
		return true
	}

	return !c.IsClosed() && c.tcpConn != nil
}

// Close closes the socket, sending a TLS close_notify first when secured.
// Closing an already closed connection is a no-op.
func (c *Connection) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	if conn := c.secureConn(); conn != nil {
		return conn.Close()
	}
	if c.udpConn != nil {
		return c.udpConn.Close()
	}

	return c.tcpConn.Close()
}

// Free marks the connection closed, waits up to the shutdown timeout for an
// in-flight Send and then releases the socket. An expired wait is logged and
// does not prevent the release.
func (c *Connection) Free() error {
	deadline := time.Now().Add(c.config.ShutdownTimeout)
	closing := c.closed.CompareAndSwap(false, true)

	for c.inUse.Load() && time.Now().Before(deadline) {
		time.Sleep(shutdownCheckInterval)
	}
	if c.inUse.Load() {
		c.log.Warnf("Shutting down socket connection timed out after %v", c.config.ShutdownTimeout)
	}

	if !closing {
		return nil
	}

	if conn := c.secureConn(); conn != nil {
		return conn.Close()
	}
	if c.udpConn != nil {
		return c.udpConn.Close()
	}

	return c.tcpConn.Close()
}
