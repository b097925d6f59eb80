// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"errors"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pion/embedded-webrtc/internal/util"
	"github.com/pion/embedded-webrtc/pkg/socket"
	"github.com/pion/ice/v4"
	"github.com/pion/logging"
	"github.com/pion/sdp/v3"
	"github.com/pion/stun/v3"
)

var (
	errICENoSelectedAddress = errors.New("ice: no remote address selected")
	errICEAgentClosed       = errors.New("ice: agent closed")
	errICECandidateNotUDP   = errors.New("ice: only UDP candidates are supported")
)

// ICEAgent is the connectivity collaborator of a PeerConnection. It owns the
// network path: it advertises local candidates, answers connectivity checks
// and carries every DTLS, SRTP and SRTCP packet.
type ICEAgent interface {
	// LocalCredentials returns the ufrag and pwd placed in local descriptions.
	LocalCredentials() (ufrag, pwd string)

	// PopulateCandidates adds the local candidate attributes to a media
	// section and returns how many were written.
	PopulateCandidates(m *sdp.MediaDescription) (int, error)

	SetRemoteCredentials(ufrag, pwd string) error
	AddRemoteCandidate(candidate string) error

	// OnPacket sets the handler receiving every inbound packet.
	OnPacket(f func(packet []byte, from net.Addr))

	// HandleSTUN processes a STUN message received from the remote.
	HandleSTUN(packet []byte, from net.Addr) error

	// Send writes packet on the selected path.
	Send(packet []byte) error

	Close() error
}

// HostAgentConfig configures a HostAgent.
type HostAgentConfig struct {
	// Address is the local IPv4 address bound and advertised. Defaults to
	// 127.0.0.1.
	Address string

	// Port to bind. Zero picks an ephemeral port.
	Port int

	WriteRetryTimeout time.Duration
	ShutdownTimeout   time.Duration

	LoggerFactory logging.LoggerFactory
}

// HostAgent is a minimal ICE lite agent: one UDP host candidate, inbound
// connectivity checks are answered and the path is taken from the latest
// valid check, or the first remote candidate until then.
type HostAgent struct {
	log       logging.LeveledLogger
	conn      *socket.Connection
	candidate *ice.CandidateHost

	localUfrag string
	localPwd   string

	mu               sync.RWMutex
	remoteUfrag      string
	remotePwd        string
	remoteCandidates []ice.Candidate
	selected         net.Addr
	onPacket         func([]byte, net.Addr)
	closed           bool

	readLoopDone chan struct{}
}

// NewHostAgent binds the UDP socket and starts reading from it.
func NewHostAgent(config HostAgentConfig) (*HostAgent, error) {
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if config.Address == "" {
		config.Address = sdpLocalAddress
	}

	localUfrag, err := util.CryptoRandICEChar(iceUfragLen)
	if err != nil {
		return nil, err
	}
	localPwd, err := util.CryptoRandICEChar(icePwdLen)
	if err != nil {
		return nil, err
	}

	conn, err := socket.NewConnection(socket.Config{
		Protocol:          socket.ProtocolUDP,
		LocalAddress:      net.JoinHostPort(config.Address, strconv.Itoa(config.Port)),
		WriteRetryTimeout: config.WriteRetryTimeout,
		ShutdownTimeout:   config.ShutdownTimeout,
		LoggerFactory:     config.LoggerFactory,
	})
	if err != nil {
		return nil, err
	}

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		_ = conn.Close()

		return nil, errICECandidateNotUDP
	}

	candidate, err := ice.NewCandidateHost(&ice.CandidateHostConfig{
		Network:   "udp",
		Address:   local.IP.String(),
		Port:      local.Port,
		Component: ice.ComponentRTP,
	})
	if err != nil {
		_ = conn.Close()

		return nil, err
	}

	a := &HostAgent{
		log:          config.LoggerFactory.NewLogger("ice"),
		conn:         conn,
		candidate:    candidate,
		localUfrag:   localUfrag,
		localPwd:     localPwd,
		readLoopDone: make(chan struct{}),
	}
	go a.readLoop()

	return a, nil
}

// LocalAddr returns the address of the host candidate.
func (a *HostAgent) LocalAddr() net.Addr {
	return a.conn.LocalAddr()
}

// LocalCredentials returns the local ufrag and pwd.
func (a *HostAgent) LocalCredentials() (string, string) {
	return a.localUfrag, a.localPwd
}

// PopulateCandidates writes the host candidate.
func (a *HostAgent) PopulateCandidates(m *sdp.MediaDescription) (int, error) {
	m.WithCandidate(a.candidate.Marshal())

	return 1, nil
}

// SetRemoteCredentials stores the credentials of the remote description.
func (a *HostAgent) SetRemoteCredentials(ufrag, pwd string) error {
	if ufrag == "" || pwd == "" {
		return ErrRemoteICECredentialsMissing
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.remoteUfrag, a.remotePwd = ufrag, pwd

	return nil
}

// RemoteCredentials returns the credentials set by SetRemoteCredentials.
func (a *HostAgent) RemoteCredentials() (string, string) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.remoteUfrag, a.remotePwd
}

// AddRemoteCandidate parses and stores a remote candidate line. The first
// usable candidate becomes the path until a connectivity check selects one.
func (a *HostAgent) AddRemoteCandidate(raw string) error {
	candidate, err := ice.UnmarshalCandidate(raw)
	if err != nil {
		return err
	}
	if !candidate.NetworkType().IsUDP() {
		return errICECandidateNotUDP
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.remoteCandidates = append(a.remoteCandidates, candidate)
	if a.selected == nil {
		ip := net.ParseIP(candidate.Address())
		if ip == nil {
			a.log.Debugf("Skipping unresolved remote candidate %s", candidate.Address())

			return nil
		}
		a.selected = &net.UDPAddr{IP: ip, Port: candidate.Port()}
	}

	return nil
}

// RemoteCandidates returns the remote candidates added so far.
func (a *HostAgent) RemoteCandidates() []ice.Candidate {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return append([]ice.Candidate(nil), a.remoteCandidates...)
}

// OnPacket sets the handler receiving inbound packets.
func (a *HostAgent) OnPacket(f func(packet []byte, from net.Addr)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.onPacket = f
}

// HandleSTUN answers a binding request and selects its source as the path.
// Binding responses and indications are ignored.
func (a *HostAgent) HandleSTUN(packet []byte, from net.Addr) error {
	msg, err := decodeSTUN(packet)
	if err != nil {
		return err
	}
	if msg.Type.Class != stun.ClassRequest {
		return nil
	}

	if err = checkBindingRequest(msg, a.localUfrag, a.localPwd); err != nil {
		a.log.Warnf("Discarding connectivity check from %s: %v", from, err)

		return err
	}

	response, err := buildBindingSuccess(msg, from, a.localPwd)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if a.selected == nil || a.selected.String() != from.String() {
		a.log.Infof("Selected remote address %s", from)
	}
	a.selected = from
	a.mu.Unlock()

	return a.conn.Send(response, from)
}

// Selected returns the current remote address, nil until known.
func (a *HostAgent) Selected() net.Addr {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.selected
}

// Send writes packet to the selected remote address.
func (a *HostAgent) Send(packet []byte) error {
	a.mu.RLock()
	dest, closed := a.selected, a.closed
	a.mu.RUnlock()

	if closed {
		return errICEAgentClosed
	}
	if dest == nil {
		return errICENoSelectedAddress
	}

	return a.conn.Send(packet, dest)
}

func (a *HostAgent) readLoop() {
	defer close(a.readLoopDone)

	buf := make([]byte, receiveMTU)
	for {
		n, from, err := a.conn.Read(buf)
		if err != nil {
			if a.conn.IsClosed() || errors.Is(err, net.ErrClosed) {
				return
			}
			a.log.Warnf("Failed to read from socket: %v", err)

			continue
		}

		a.mu.RLock()
		handler := a.onPacket
		a.mu.RUnlock()

		packet := append([]byte(nil), buf[:n]...)
		if handler != nil {
			handler(packet, from)
		} else if err = a.HandleSTUN(packet, from); err != nil {
			a.log.Tracef("Dropping packet from %s: %v", from, err)
		}
	}
}

// Close releases the socket and waits for the read loop to exit.
func (a *HostAgent) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()

		return nil
	}
	a.closed = true
	a.mu.Unlock()

	err := a.conn.Free()
	<-a.readLoopDone

	return err
}
