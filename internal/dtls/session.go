// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package dtls drives a DTLS handshake over packets handed in by the caller
// and exports the SRTP keying material once it completes.
package dtls

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/pion/dtls/v3/pkg/crypto/fingerprint"
	"github.com/pion/dtls/v3/pkg/crypto/selfsign"
	"github.com/pion/embedded-webrtc/internal/util"
	"github.com/pion/embedded-webrtc/pkg/rtcerr"
	"github.com/pion/logging"
	"github.com/pion/srtp/v3"
	"github.com/pion/transport/v4/packetio"
)

const (
	// DefaultStartupDelay is the delay between Start and the first flight.
	DefaultStartupDelay = 100 * time.Millisecond

	// DefaultFlightInterval is the retransmission interval of handshake flights.
	DefaultFlightInterval = time.Second

	keyingMaterialLabel = "EXTRACTOR-dtls_srtp"
	receiveMTU          = 8192
	inboundBufferSize   = 1000 * 1000
	closeTimeout        = time.Second
)

var (
	// ErrInvalidCertificateBits indicates a certificate without its private key.
	ErrInvalidCertificateBits = errors.New("dtls: certificate has no private key")

	// ErrHandlerAlreadySet indicates a second registration of a session handler.
	ErrHandlerAlreadySet = errors.New("dtls: handler already set")

	// ErrOutboundHandlerNotSet indicates Start without a way to emit packets.
	ErrOutboundHandlerNotSet = errors.New("dtls: outbound packet handler not set")

	// ErrSessionNotStarted indicates an operation before Start.
	ErrSessionNotStarted = errors.New("dtls: session not started")

	// ErrSessionAlreadyStarted indicates Start called twice.
	ErrSessionAlreadyStarted = errors.New("dtls: session already started")

	// ErrSessionClosed indicates an operation on a closed or failed session.
	ErrSessionClosed = errors.New("dtls: session closed")

	// ErrNotConnected indicates an operation that requires a completed handshake.
	ErrNotConnected = errors.New("dtls: handshake not completed")

	// ErrNoSRTPProfile indicates that no SRTP protection profile was negotiated.
	ErrNoSRTPProfile = errors.New("dtls: no SRTP protection profile negotiated")

	// ErrNoRemoteCertificate indicates a remote that presented no certificate.
	ErrNoRemoteCertificate = errors.New("dtls: remote did not provide a certificate")

	// ErrFingerprintMismatch indicates a remote certificate that does not
	// match the fingerprint announced over signaling.
	ErrFingerprintMismatch = errors.New("dtls: remote certificate does not match fingerprint")
)

// Config configures a Session.
type Config struct {
	// Certificates are the local identities. A self signed certificate is
	// generated when empty.
	Certificates []tls.Certificate

	// SRTPProtectionProfiles offered or accepted through use_srtp.
	SRTPProtectionProfiles []dtls.SRTPProtectionProfile

	FlightInterval time.Duration
	StartupDelay   time.Duration

	LoggerFactory logging.LoggerFactory
}

// KeyingMaterial is the exported SRTP master key material, split into the
// client and server write halves. Each half is the master key followed by
// the master salt.
type KeyingMaterial struct {
	ClientWriteKey []byte
	ServerWriteKey []byte
	Profile        srtp.ProtectionProfile
}

// WriteKeyAndSalt returns the master key and salt this side encrypts with.
func (k KeyingMaterial) WriteKeyAndSalt(isClient bool) ([]byte, []byte, error) {
	keyLen, err := k.Profile.KeyLen()
	if err != nil {
		return nil, nil, err
	}

	material := k.ServerWriteKey
	if isClient {
		material = k.ClientWriteKey
	}
	if len(material) < keyLen {
		return nil, nil, ErrNoSRTPProfile
	}

	return material[:keyLen], material[keyLen:], nil
}

// Session is one DTLS association. Inbound ciphertext is passed to Read and
// outbound records are emitted through the outbound packet handler.
// Handlers may be registered from any goroutine; Start, Read and Send must
// not be called concurrently.
type Session struct {
	log         logging.LeveledLogger
	config      Config
	certificate tls.Certificate

	handlerLock       sync.Mutex
	onOutboundPacket  func([]byte)
	onStateChange     func(State)
	onApplicationData func([]byte)

	stateLock      sync.Mutex
	state          State
	handshakeStart time.Time
	conn           *dtls.Conn
	startTimer     *time.Timer
	cancel         context.CancelFunc
	isClient       bool
	released       bool

	transport     *packetConn
	handshakeDone chan struct{}
	closeOnce     sync.Once
}

// NewSession validates the certificates of config and creates a session in
// StateNew.
func NewSession(config Config) (*Session, error) {
	for _, c := range config.Certificates {
		if len(c.Certificate) == 0 || c.PrivateKey == nil {
			return nil, &rtcerr.SecurityError{Err: ErrInvalidCertificateBits}
		}
	}

	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	if config.FlightInterval == 0 {
		config.FlightInterval = DefaultFlightInterval
	}
	if config.StartupDelay == 0 {
		config.StartupDelay = DefaultStartupDelay
	}
	if len(config.SRTPProtectionProfiles) == 0 {
		config.SRTPProtectionProfiles = []dtls.SRTPProtectionProfile{
			dtls.SRTP_AEAD_AES_128_GCM,
			dtls.SRTP_AES128_CM_HMAC_SHA1_80,
		}
	}

	s := &Session{
		log:           config.LoggerFactory.NewLogger("dtls"),
		config:        config,
		state:         StateNew,
		handshakeDone: make(chan struct{}),
	}

	if len(config.Certificates) > 0 {
		s.certificate = config.Certificates[0]
	} else {
		certificate, err := selfsign.GenerateSelfSigned()
		if err != nil {
			return nil, err
		}
		s.certificate = certificate
	}

	buffer := packetio.NewBuffer()
	buffer.SetLimitSize(inboundBufferSize)
	s.transport = &packetConn{session: s, buffer: buffer}

	return s, nil
}

// OnOutboundPacket sets the handler receiving every record the session
// emits. It can be set only once.
func (s *Session) OnOutboundPacket(f func(packet []byte)) error {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	if s.onOutboundPacket != nil {
		return ErrHandlerAlreadySet
	}
	s.onOutboundPacket = f

	return nil
}

// OnStateChange sets the handler notified once per state transition. It can
// be set only once.
func (s *Session) OnStateChange(f func(State)) error {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	if s.onStateChange != nil {
		return ErrHandlerAlreadySet
	}
	s.onStateChange = f

	return nil
}

// OnApplicationData sets the handler receiving decrypted application data.
// It can be set only once.
func (s *Session) OnApplicationData(f func(data []byte)) error {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	if s.onApplicationData != nil {
		return ErrHandlerAlreadySet
	}
	s.onApplicationData = f

	return nil
}

func (s *Session) outboundPacketHandler() func([]byte) {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	return s.onOutboundPacket
}

func (s *Session) stateChangeHandler() func(State) {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	return s.onStateChange
}

func (s *Session) applicationDataHandler() func([]byte) {
	s.handlerLock.Lock()
	defer s.handlerLock.Unlock()

	return s.onApplicationData
}

// State returns the current state of the session.
func (s *Session) State() State {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()

	return s.state
}

// setState applies a transition and notifies the state change handler. It
// reports whether the transition happened.
func (s *Session) setState(next State) bool {
	s.stateLock.Lock()
	if !s.state.canTransition(next) {
		s.stateLock.Unlock()

		return false
	}
	if s.state == StateConnecting && next == StateConnected {
		s.log.Debugf("DTLS init completed. Time taken %d ms", time.Since(s.handshakeStart).Milliseconds())
	}
	s.state = next
	s.stateLock.Unlock()

	if handler := s.stateChangeHandler(); handler != nil {
		handler(next)
	}

	return true
}

// Start begins the handshake as server or client. The first flight is sent
// after the configured startup delay.
func (s *Session) Start(isServer bool) error {
	if s.outboundPacketHandler() == nil {
		return ErrOutboundHandlerNotSet
	}

	s.stateLock.Lock()
	switch {
	case s.released || s.state.terminal():
		s.stateLock.Unlock()

		return ErrSessionClosed
	case s.state != StateNew:
		s.stateLock.Unlock()

		return ErrSessionAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.isClient = !isServer
	s.handshakeStart = time.Now()
	s.startTimer = time.AfterFunc(s.config.StartupDelay, func() {
		s.handshake(ctx, isServer)
	})
	s.stateLock.Unlock()

	s.setState(StateConnecting)

	return nil
}

// IsClient reports whether the session was started in the client role.
func (s *Session) IsClient() bool {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()

	return s.isClient
}

func (s *Session) handshake(ctx context.Context, isServer bool) {
	defer close(s.handshakeDone)

	config := &dtls.Config{
		Certificates:           []tls.Certificate{s.certificate},
		SRTPProtectionProfiles: s.config.SRTPProtectionProfiles,
		ClientAuth:             dtls.RequireAnyClientCert,
		InsecureSkipVerify:     true,
		FlightInterval:         s.config.FlightInterval,
		LoggerFactory:          s.config.LoggerFactory,
	}

	var (
		conn *dtls.Conn
		err  error
	)
	if isServer {
		conn, err = dtls.Server(s.transport, sessionAddr{}, config)
	} else {
		conn, err = dtls.Client(s.transport, sessionAddr{}, config)
	}
	if err == nil {
		err = conn.HandshakeContext(ctx)
	}
	if err != nil {
		if conn != nil {
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return
		}
		s.log.Errorf("DTLS handshake failed: %v", err)
		s.setState(StateFailed)

		return
	}

	s.stateLock.Lock()
	s.conn = conn
	s.stateLock.Unlock()

	if !s.setState(StateConnected) {
		_ = conn.Close()

		return
	}

	s.readLoop(conn)
}

func (s *Session) readLoop(conn *dtls.Conn) {
	buf := make([]byte, receiveMTU)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				s.log.Debug("DTLS session closed by remote")
				s.setState(StateClosed)
			case s.State().terminal():
			default:
				s.log.Errorf("DTLS read failed: %v", err)
				s.setState(StateFailed)
			}

			return
		}

		if handler := s.applicationDataHandler(); handler != nil {
			handler(append([]byte(nil), buf[:n]...))
		}
	}
}

// Read feeds inbound ciphertext to the session. Decrypted application data
// is delivered to the application data handler.
func (s *Session) Read(data []byte) error {
	s.stateLock.Lock()
	state, released := s.state, s.released
	s.stateLock.Unlock()

	switch {
	case released || state.terminal():
		return ErrSessionClosed
	case state == StateNew:
		return ErrSessionNotStarted
	}

	if _, err := s.transport.buffer.Write(data); err != nil {
		return fmt.Errorf("%w: %v", ErrSessionClosed, err)
	}

	return nil
}

// Send encrypts data as application data. The record is emitted through the
// outbound packet handler.
func (s *Session) Send(data []byte) error {
	conn, err := s.connectedConn()
	if err != nil {
		return err
	}

	_, err = conn.Write(data)

	return err
}

func (s *Session) connectedConn() (*dtls.Conn, error) {
	s.stateLock.Lock()
	defer s.stateLock.Unlock()

	switch {
	case s.state.terminal():
		return nil, ErrSessionClosed
	case s.state != StateConnected || s.conn == nil:
		return nil, ErrNotConnected
	}

	return s.conn, nil
}

// KeyingMaterial exports the SRTP master keys and salts of the negotiated
// protection profile.
func (s *Session) KeyingMaterial() (KeyingMaterial, error) {
	conn, err := s.connectedConn()
	if err != nil {
		return KeyingMaterial{}, err
	}

	selected, ok := conn.SelectedSRTPProtectionProfile()
	if !ok {
		return KeyingMaterial{}, ErrNoSRTPProfile
	}
	profile := srtp.ProtectionProfile(selected)

	keyLen, err := profile.KeyLen()
	if err != nil {
		return KeyingMaterial{}, err
	}
	saltLen, err := profile.SaltLen()
	if err != nil {
		return KeyingMaterial{}, err
	}

	state, ok := conn.ConnectionState()
	if !ok {
		return KeyingMaterial{}, ErrNotConnected
	}
	material, err := state.ExportKeyingMaterial(keyingMaterialLabel, nil, 2*(keyLen+saltLen))
	if err != nil {
		return KeyingMaterial{}, err
	}

	// client key | server key | client salt | server salt
	clientKey := material[:keyLen]
	serverKey := material[keyLen : 2*keyLen]
	clientSalt := material[2*keyLen : 2*keyLen+saltLen]
	serverSalt := material[2*keyLen+saltLen:]

	return KeyingMaterial{
		ClientWriteKey: append(append(make([]byte, 0, keyLen+saltLen), clientKey...), clientSalt...),
		ServerWriteKey: append(append(make([]byte, 0, keyLen+saltLen), serverKey...), serverSalt...),
		Profile:        profile,
	}, nil
}

// Fingerprint returns the SHA-256 fingerprint of the local certificate.
func (s *Session) Fingerprint() (string, error) {
	certificate, err := x509.ParseCertificate(s.certificate.Certificate[0])
	if err != nil {
		return "", err
	}

	return fingerprint.Fingerprint(certificate, crypto.SHA256)
}

// VerifyRemoteFingerprint checks the certificate the remote presented
// during the handshake against a fingerprint received over signaling. Any
// failure of the check itself is returned as an rtcerr.SecurityError and a
// mismatch also fails the session.
func (s *Session) VerifyRemoteFingerprint(algorithm, value string) error {
	conn, err := s.connectedConn()
	if err != nil {
		return err
	}

	state, ok := conn.ConnectionState()
	if !ok || len(state.PeerCertificates) == 0 {
		return &rtcerr.SecurityError{Err: ErrNoRemoteCertificate}
	}

	hash, err := fingerprint.HashFromString(algorithm)
	if err != nil {
		return &rtcerr.SecurityError{Err: err}
	}
	remoteCert, err := x509.ParseCertificate(state.PeerCertificates[0])
	if err != nil {
		return &rtcerr.SecurityError{Err: err}
	}
	actual, err := fingerprint.Fingerprint(remoteCert, hash)
	if err != nil {
		return &rtcerr.SecurityError{Err: err}
	}

	if !strings.EqualFold(actual, value) {
		s.log.Errorf("Remote fingerprint %s does not match certificate %s", value, actual)
		s.setState(StateFailed)
		_ = s.shutdown()

		return &rtcerr.SecurityError{Err: ErrFingerprintMismatch}
	}

	return nil
}

// Close sends a close_notify when connected and releases the session. It is
// safe to call more than once and waits a bounded time for the handshake to
// wind down.
func (s *Session) Close() error {
	s.setState(StateClosed)

	return s.shutdown()
}

func (s *Session) shutdown() error {
	var err error
	s.closeOnce.Do(func() {
		s.stateLock.Lock()
		conn, cancel, timer := s.conn, s.cancel, s.startTimer
		s.released = true
		s.stateLock.Unlock()

		if timer != nil && timer.Stop() {
			close(s.handshakeDone)
		} else if timer == nil {
			close(s.handshakeDone)
		}
		if cancel != nil {
			cancel()
		}

		var errs []error
		if conn != nil {
			if closeErr := conn.Close(); closeErr != nil {
				errs = append(errs, closeErr)
			}
		}
		if closeErr := s.transport.Close(); closeErr != nil {
			errs = append(errs, closeErr)
		}

		select {
		case <-s.handshakeDone:
		case <-time.After(closeTimeout):
			s.log.Warn("Timed out waiting for the DTLS handshake to stop")
		}

		err = util.FlattenErrs(errs)
	})

	return err
}
