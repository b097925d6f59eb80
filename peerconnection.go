// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package webrtc implements a compact WebRTC peer connection: SDP offer/answer
// negotiation, a DTLS-SRTP secured transport and RTP retransmission driven by
// RTCP NACK feedback.
package webrtc

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pion/embedded-webrtc/internal/dtls"
	"github.com/pion/embedded-webrtc/internal/mux"
	"github.com/pion/embedded-webrtc/internal/util"
	"github.com/pion/embedded-webrtc/pkg/rtcerr"
	"github.com/pion/logging"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"
	"github.com/pion/srtp/v3"
)

var (
	// ErrSRTPNotKeyed indicates media written before the DTLS handshake
	// produced SRTP keys.
	ErrSRTPNotKeyed = errors.New("srtp session is not keyed yet")

	errTransceiverNotOwned = errors.New("transceiver does not belong to this peer connection")
)

// PeerConnection represents a WebRTC connection that establishes a
// peer-to-peer communications with another PeerConnection instance in a
// browser, or to another endpoint implementing the required protocols.
type PeerConnection struct {
	mu sync.RWMutex

	configuration Configuration
	certificate   Certificate
	fingerprint   string

	currentLocalDescription  *SessionDescription
	currentRemoteDescription *SessionDescription
	remoteSDP                *sdp.SessionDescription
	signalingState           SignalingState
	connectionState          PeerConnectionState

	isClosed     bool
	dtlsStarted  bool
	isDTLSServer bool

	remoteFingerprint     string
	remoteFingerprintHash string

	rtpTransceivers []*RTPTransceiver
	codecs          payloadTable
	rtxCodecs       payloadTable
	cname           string
	sessionID       uint64

	iceAgent    ICEAgent
	ownsAgent   bool
	dtlsSession *dtls.Session
	mux         *mux.Mux

	// Outbound and inbound SRTP contexts are not safe for concurrent use.
	srtpLock     sync.Mutex
	srtpOutbound *srtp.Context
	srtpInbound  *srtp.Context

	// NACKs of one sender are answered one at a time.
	nackLock sync.Mutex

	handlerLock                    sync.RWMutex
	onConnectionStateChangeHandler func(PeerConnectionState)
	onRTPHandler                   func(*rtp.Packet)

	transportCloseOnce sync.Once
	transportCloseErr  error

	// A reference to the associated API state used by this connection
	api *API
	log logging.LeveledLogger
}

// NewPeerConnection creates a PeerConnection with the default settings.
// See API.NewPeerConnection for details.
func NewPeerConnection(configuration Configuration) (*PeerConnection, error) {
	return NewAPI().NewPeerConnection(configuration)
}

// NewPeerConnection creates a new PeerConnection with the provided configuration against the received API object.
func (api *API) NewPeerConnection(configuration Configuration) (*PeerConnection, error) {
	loggerFactory := api.settingEngine.getLoggerFactory()

	pc := &PeerConnection{
		configuration:   configuration,
		signalingState:  SignalingStateStable,
		connectionState: PeerConnectionStateNew,
		codecs:          payloadTable{},
		rtxCodecs:       payloadTable{},
		cname:           util.MathRandAlphaNumeric(cnameLength),
		sessionID:       util.RandUint64(),
		api:             api,
		log:             loggerFactory.NewLogger("pc"),
	}

	if err := pc.initCertificate(); err != nil {
		return nil, err
	}

	session, err := dtls.NewSession(dtls.Config{
		Certificates:           []tls.Certificate{pc.certificate.toTLS()},
		SRTPProtectionProfiles: api.settingEngine.srtpProtectionProfiles,
		FlightInterval:         api.settingEngine.timeout.DTLSRetransmissionInterval,
		StartupDelay:           api.settingEngine.timeout.DTLSStartupDelay,
		LoggerFactory:          loggerFactory,
	})
	if err != nil {
		return nil, &rtcerr.InvalidAccessError{Err: err}
	}
	pc.dtlsSession = session

	if configuration.ICEAgent != nil {
		pc.iceAgent = configuration.ICEAgent
	} else {
		agent, agentErr := NewHostAgent(api.settingEngine.hostAgentConfig())
		if agentErr != nil {
			_ = session.Close()

			return nil, &rtcerr.UnknownError{Err: agentErr}
		}
		pc.iceAgent = agent
		pc.ownsAgent = true
	}

	if err = pc.wireTransports(loggerFactory); err != nil {
		_ = pc.closeTransports()

		return nil, err
	}

	return pc, nil
}

func (pc *PeerConnection) initCertificate() error {
	if len(pc.configuration.Certificates) == 0 {
		certificate, err := generateDefaultCertificate()
		if err != nil {
			return err
		}
		pc.certificate = *certificate
	} else {
		pc.certificate = pc.configuration.Certificates[0]
		if pc.certificate.Expires().Before(time.Now()) {
			return &rtcerr.InvalidAccessError{Err: ErrCertificateExpired}
		}
	}

	fingerprints, err := pc.certificate.GetFingerprints()
	if err != nil {
		return &rtcerr.InvalidAccessError{Err: err}
	}
	pc.fingerprint = fingerprints[0].Value

	return nil
}

func (pc *PeerConnection) wireTransports(loggerFactory logging.LoggerFactory) error {
	pc.mux = mux.NewMux(loggerFactory)
	pc.mux.NewEndpoint(mux.MatchDTLS, pc.dtlsSession.Read)
	pc.mux.NewEndpoint(mux.MatchSRTCP, pc.handleSRTCP)
	pc.mux.NewEndpoint(mux.MatchSRTP, pc.handleSRTP)

	if err := pc.dtlsSession.OnOutboundPacket(func(packet []byte) {
		if err := pc.iceAgent.Send(packet); err != nil {
			pc.log.Debugf("Failed to send DTLS packet: %v", err)
		}
	}); err != nil {
		return err
	}
	if err := pc.dtlsSession.OnStateChange(pc.onDTLSStateChange); err != nil {
		return err
	}
	if err := pc.dtlsSession.OnApplicationData(func(data []byte) {
		pc.log.Debugf("Dropping %d bytes of DTLS application data", len(data))
	}); err != nil {
		return err
	}

	pc.iceAgent.OnPacket(func(packet []byte, from net.Addr) {
		if err := pc.HandleInbound(packet, from); err != nil {
			pc.log.Tracef("Failed to handle inbound packet from %s: %v", from, err)
		}
	})

	return nil
}

// OnConnectionStateChange sets an event handler which is called
// when the PeerConnectionState has changed.
func (pc *PeerConnection) OnConnectionStateChange(f func(PeerConnectionState)) {
	pc.handlerLock.Lock()
	defer pc.handlerLock.Unlock()
	pc.onConnectionStateChangeHandler = f
}

// OnRTP sets an event handler which is called with every decrypted inbound
// RTP packet.
func (pc *PeerConnection) OnRTP(f func(*rtp.Packet)) {
	pc.handlerLock.Lock()
	defer pc.handlerLock.Unlock()
	pc.onRTPHandler = f
}

// setConnectionState moves to state. Closed is final and Failed can only be
// left for Closed.
func (pc *PeerConnection) setConnectionState(state PeerConnectionState) {
	pc.mu.Lock()
	cur := pc.connectionState
	if cur == state || cur == PeerConnectionStateClosed ||
		(cur == PeerConnectionStateFailed && state != PeerConnectionStateClosed) {
		pc.mu.Unlock()

		return
	}
	pc.connectionState = state
	pc.mu.Unlock()

	pc.log.Infof("peer connection state changed: %s", state)

	pc.handlerLock.RLock()
	handler := pc.onConnectionStateChangeHandler
	pc.handlerLock.RUnlock()
	if handler != nil {
		handler(state)
	}
}

// ConnectionState returns the current PeerConnectionState.
func (pc *PeerConnection) ConnectionState() PeerConnectionState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	return pc.connectionState
}

// SignalingState returns the current SignalingState.
func (pc *PeerConnection) SignalingState() SignalingState {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	return pc.signalingState
}

// LocalDescription returns the last applied local description, or nil.
func (pc *PeerConnection) LocalDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	return pc.currentLocalDescription
}

// RemoteDescription returns the last applied remote description, or nil.
func (pc *PeerConnection) RemoteDescription() *SessionDescription {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	return pc.currentRemoteDescription
}

// GetTransceivers returns the RTPTransceivers in media section order.
func (pc *PeerConnection) GetTransceivers() []*RTPTransceiver {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	return append([]*RTPTransceiver(nil), pc.rtpTransceivers...)
}

// AddTransceiver creates a transceiver sending track. The direction
// defaults to sendrecv.
func (pc *PeerConnection) AddTransceiver(track MediaStreamTrack, init ...RTPTransceiverInit) (*RTPTransceiver, error) {
	direction := RTPTransceiverDirectionSendrecv
	if len(init) == 1 {
		direction = init[0].Direction
	}

	t, err := newRTPTransceiver(track, direction)
	if err != nil {
		return nil, &rtcerr.InvalidAccessError{Err: err}
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.isClosed {
		return nil, &rtcerr.InvalidStateError{Err: ErrConnectionClosed}
	}
	pc.rtpTransceivers = append(pc.rtpTransceivers, t)

	return t, nil
}

func (pc *PeerConnection) descriptionParams(isOffer bool) *localDescriptionParams {
	ufrag, pwd := pc.iceAgent.LocalCredentials()

	return &localDescriptionParams{
		isOffer:      isOffer,
		transceivers: pc.rtpTransceivers,
		codecs:       pc.codecs,
		rtxCodecs:    pc.rtxCodecs,
		candidates:   pc.iceAgent,
		iceUfrag:     ufrag,
		icePwd:       pwd,
		cname:        pc.cname,
		fingerprint:  pc.fingerprint,
		sessionID:    pc.sessionID,
		sctpEnabled:  pc.api.settingEngine.sctpEnabled,
		log:          pc.log,
	}
}

// CreateOffer starts the PeerConnection and generates the localDescription.
func (pc *PeerConnection) CreateOffer() (SessionDescription, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.isClosed {
		return SessionDescription{}, &rtcerr.InvalidStateError{Err: ErrConnectionClosed}
	}

	setPayloadTypesForOffer(pc.codecs)

	description, err := populateSessionDescription(pc.descriptionParams(true), nil)
	if err != nil {
		return SessionDescription{}, err
	}

	raw, err := description.Marshal()
	if err != nil {
		return SessionDescription{}, err
	}

	return SessionDescription{
		Type:   SDPTypeOffer,
		SDP:    string(raw),
		parsed: description,
	}, nil
}

// CreateAnswer starts the PeerConnection and generates the localDescription.
// The local media sections follow the order and kinds of the remote offer.
func (pc *PeerConnection) CreateAnswer() (SessionDescription, error) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	switch {
	case pc.isClosed:
		return SessionDescription{}, &rtcerr.InvalidStateError{Err: ErrConnectionClosed}
	case pc.remoteSDP == nil:
		return SessionDescription{}, &rtcerr.InvalidStateError{Err: ErrNoRemoteDescription}
	case pc.signalingState != SignalingStateHaveRemoteOffer:
		return SessionDescription{}, &rtcerr.InvalidStateError{Err: ErrIncorrectSignalingState}
	}

	description, err := populateSessionDescription(pc.descriptionParams(false), pc.remoteSDP)
	if err != nil {
		return SessionDescription{}, err
	}

	raw, err := description.Marshal()
	if err != nil {
		return SessionDescription{}, err
	}

	return SessionDescription{
		Type:   SDPTypeAnswer,
		SDP:    string(raw),
		parsed: description,
	}, nil
}

// negotiatedTransceivers returns the transceivers that take part in the
// exchange. When answering, a kind the remote did not offer is left out.
func (pc *PeerConnection) negotiatedTransceivers(isOffer bool) []*RTPTransceiver {
	if isOffer || pc.remoteSDP == nil {
		return pc.rtpTransceivers
	}

	transceivers := make([]*RTPTransceiver, 0, len(pc.rtpTransceivers))
	for _, t := range pc.rtpTransceivers {
		if isPresentInRemote(t, pc.remoteSDP, pc.log) {
			transceivers = append(transceivers, t)
		}
	}

	return transceivers
}

// SetLocalDescription sets the SessionDescription of the local peer. Payload
// types are committed to the transceivers and the DTLS session starts once
// both descriptions are known.
func (pc *PeerConnection) SetLocalDescription(desc SessionDescription) error {
	if err := pc.setLocalDescription(desc); err != nil {
		return err
	}

	return pc.startDTLSIfReady()
}

func (pc *PeerConnection) setLocalDescription(desc SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.isClosed {
		return &rtcerr.InvalidStateError{Err: ErrConnectionClosed}
	}

	next, err := checkNextSignalingState(pc.signalingState, stateChangeOpSetLocal, desc.Type)
	if err != nil {
		return err
	}

	if desc.parsed == nil {
		if _, err = desc.Unmarshal(); err != nil {
			return &rtcerr.SyntaxError{Err: err}
		}
	}

	isOffer := desc.Type == SDPTypeOffer
	if isOffer {
		setPayloadTypesForOffer(pc.codecs)
	}
	if err = setTransceiverPayloadTypes(
		pc.codecs, pc.rtxCodecs, pc.negotiatedTransceivers(isOffer), pc.api.settingEngine.getSenderBufferSizes(),
	); err != nil {
		return &rtcerr.OperationError{Err: err}
	}

	pc.currentLocalDescription = &desc
	pc.signalingState = next

	return nil
}

// SetRemoteDescription sets the SessionDescription of the remote peer. An
// offer supplies the payload types used when answering; either type binds
// the remote SSRCs and hands the ICE and DTLS details to the transports.
func (pc *PeerConnection) SetRemoteDescription(desc SessionDescription) error {
	if err := pc.setRemoteDescription(desc); err != nil {
		return err
	}

	return pc.startDTLSIfReady()
}

func (pc *PeerConnection) setRemoteDescription(desc SessionDescription) error {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	if pc.isClosed {
		return &rtcerr.InvalidStateError{Err: ErrConnectionClosed}
	}

	next, err := checkNextSignalingState(pc.signalingState, stateChangeOpSetRemote, desc.Type)
	if err != nil {
		return err
	}

	remote, err := desc.Unmarshal()
	if err != nil {
		return &rtcerr.SyntaxError{Err: err}
	}

	if desc.Type == SDPTypeOffer {
		supported := map[Codec]bool{}
		for _, t := range pc.rtpTransceivers {
			supported[t.track.Codec] = true
		}
		if err = setPayloadTypesFromOffer(pc.codecs, pc.rtxCodecs, supported, remote); err != nil {
			return &rtcerr.SyntaxError{Err: err}
		}
	}

	if err = setReceiversSsrc(remote, pc.rtpTransceivers); err != nil {
		return &rtcerr.SyntaxError{Err: err}
	}

	remoteUfrag, remotePwd, candidates, err := extractICEDetails(remote)
	if err != nil {
		return &rtcerr.InvalidAccessError{Err: err}
	}
	fingerprint, fingerprintHash, err := extractFingerprint(remote)
	if err != nil {
		return &rtcerr.InvalidAccessError{Err: err}
	}

	if err = pc.iceAgent.SetRemoteCredentials(remoteUfrag, remotePwd); err != nil {
		return &rtcerr.InvalidAccessError{Err: err}
	}
	for _, candidate := range candidates {
		if err = pc.iceAgent.AddRemoteCandidate(candidate); err != nil {
			pc.log.Warnf("Failed to add remote candidate %q: %v", candidate, err)
		}
	}

	pc.remoteFingerprint, pc.remoteFingerprintHash = fingerprint, fingerprintHash
	pc.isDTLSServer = localDTLSRole(dtlsRoleFromRemoteSDP(remote), desc.Type == SDPTypeAnswer) == DTLSRoleServer
	pc.remoteSDP = remote
	pc.currentRemoteDescription = &desc
	pc.signalingState = next

	return nil
}

// startDTLSIfReady starts the DTLS session once both descriptions are
// applied. pc.mu must not be held: the session reports Connecting from
// within Start.
func (pc *PeerConnection) startDTLSIfReady() error {
	pc.mu.Lock()
	if pc.isClosed || pc.dtlsStarted || pc.currentLocalDescription == nil || pc.currentRemoteDescription == nil {
		pc.mu.Unlock()

		return nil
	}
	pc.dtlsStarted = true
	isServer := pc.isDTLSServer
	pc.mu.Unlock()

	if err := pc.dtlsSession.Start(isServer); err != nil {
		return &rtcerr.OperationError{Err: err}
	}

	return nil
}

// AddICECandidate accepts an ICE candidate string and adds it
// to the existing set of candidates.
func (pc *PeerConnection) AddICECandidate(candidate ICECandidateInit) error {
	pc.mu.RLock()
	closed, hasRemote := pc.isClosed, pc.currentRemoteDescription != nil
	pc.mu.RUnlock()

	switch {
	case closed:
		return &rtcerr.InvalidStateError{Err: ErrConnectionClosed}
	case !hasRemote:
		return &rtcerr.InvalidStateError{Err: ErrNoRemoteDescription}
	case candidate.Candidate == "":
		// end-of-candidates
		return nil
	}

	if err := pc.iceAgent.AddRemoteCandidate(candidate.Candidate); err != nil {
		return &rtcerr.OperationError{Err: err}
	}

	return nil
}

func (pc *PeerConnection) onDTLSStateChange(state dtls.State) {
	pc.log.Debugf("DTLS state changed: %s", state)

	switch state {
	case dtls.StateConnected:
		// Runs outside the handshake goroutine: a failed verification
		// waits for that goroutine to wind down.
		go pc.onDTLSConnected()
	case dtls.StateFailed:
		pc.setConnectionState(PeerConnectionStateFailed)
		go func() {
			if err := pc.closeTransports(); err != nil {
				pc.log.Warnf("Failed to release transports: %v", err)
			}
		}()
	case dtls.StateClosed:
	default:
		pc.setConnectionState(peerConnectionStateFromDTLS(state))
	}
}

// onDTLSConnected checks the remote certificate and installs the SRTP keys.
func (pc *PeerConnection) onDTLSConnected() {
	pc.mu.RLock()
	algorithm, value := pc.remoteFingerprintHash, pc.remoteFingerprint
	pc.mu.RUnlock()

	if !pc.api.settingEngine.disableCertificateFingerprintVerification {
		if err := pc.dtlsSession.VerifyRemoteFingerprint(algorithm, value); err != nil {
			if !rtcerr.IsFatal(err) {
				// the session left Connected on its own and has reported it
				pc.log.Debugf("Skipped fingerprint verification: %v", err)

				return
			}
			pc.log.Errorf("%v: %v", ErrFingerprintMismatch, err)
			pc.setConnectionState(PeerConnectionStateFailed)
			_ = pc.closeTransports()

			return
		}
	}

	if err := pc.startSRTP(); err != nil {
		pc.log.Errorf("Failed to start SRTP: %v", err)
		pc.setConnectionState(PeerConnectionStateFailed)
		_ = pc.closeTransports()

		return
	}

	pc.setConnectionState(PeerConnectionStateConnected)
}

func (pc *PeerConnection) startSRTP() error {
	material, err := pc.dtlsSession.KeyingMaterial()
	if err != nil {
		return err
	}

	isClient := pc.dtlsSession.IsClient()
	localKey, localSalt, err := material.WriteKeyAndSalt(isClient)
	if err != nil {
		return err
	}
	remoteKey, remoteSalt, err := material.WriteKeyAndSalt(!isClient)
	if err != nil {
		return err
	}

	outbound, err := srtp.CreateContext(localKey, localSalt, material.Profile)
	if err != nil {
		return err
	}
	inbound, err := srtp.CreateContext(remoteKey, remoteSalt, material.Profile)
	if err != nil {
		return err
	}

	pc.srtpLock.Lock()
	pc.srtpOutbound, pc.srtpInbound = outbound, inbound
	pc.srtpLock.Unlock()

	return nil
}

// HandleInbound routes a packet received from the remote: STUN goes to the
// ICE agent, DTLS records to the DTLS session and SRTCP to the NACK
// handling. The ICE agent calls it for every packet it reads.
func (pc *PeerConnection) HandleInbound(packet []byte, from net.Addr) error {
	if mux.MatchSTUN(packet) {
		return pc.iceAgent.HandleSTUN(packet, from)
	}

	return pc.mux.Dispatch(packet)
}

func (pc *PeerConnection) handleSRTCP(packet []byte) error {
	pc.srtpLock.Lock()
	if pc.srtpInbound == nil {
		pc.srtpLock.Unlock()

		return ErrSRTPNotKeyed
	}
	decrypted, err := pc.srtpInbound.DecryptRTCP(nil, packet, nil)
	pc.srtpLock.Unlock()
	if err != nil {
		return err
	}

	packets, err := rtcp.Unmarshal(decrypted)
	if err != nil {
		return err
	}

	return pc.handleRTCP(packets)
}

// handleRTCP answers the NACKs in a compound RTCP packet. Feedback naming an
// unknown SSRC does not stop the remaining packets from being handled.
func (pc *PeerConnection) handleRTCP(packets []rtcp.Packet) error {
	transceivers := pc.GetTransceivers()

	var errs []error
	for _, p := range packets {
		nack, ok := p.(*rtcp.TransportLayerNack)
		if !ok {
			continue
		}

		pc.nackLock.Lock()
		err := resendPacketOnNack(nack, transceivers, pc, pc.log)
		pc.nackLock.Unlock()
		if err != nil {
			errs = append(errs, err)
		}
	}

	return util.FlattenErrs(errs)
}

func (pc *PeerConnection) handleSRTP(packet []byte) error {
	pc.srtpLock.Lock()
	if pc.srtpInbound == nil {
		pc.srtpLock.Unlock()

		return ErrSRTPNotKeyed
	}
	header := &rtp.Header{}
	decrypted, err := pc.srtpInbound.DecryptRTP(nil, packet, header)
	pc.srtpLock.Unlock()
	if err != nil {
		return err
	}

	pc.handlerLock.RLock()
	handler := pc.onRTPHandler
	pc.handlerLock.RUnlock()
	if handler == nil {
		return nil
	}

	pkt := &rtp.Packet{}
	if err = pkt.Unmarshal(decrypted); err != nil {
		return err
	}
	handler(pkt)

	return nil
}

// writeRTPPacket encrypts a marshaled RTP packet and sends it to the remote.
func (pc *PeerConnection) writeRTPPacket(raw []byte) error {
	pc.srtpLock.Lock()
	if pc.srtpOutbound == nil {
		pc.srtpLock.Unlock()

		return ErrSRTPNotKeyed
	}
	encrypted, err := pc.srtpOutbound.EncryptRTP(nil, raw, nil)
	pc.srtpLock.Unlock()
	if err != nil {
		return err
	}

	return pc.iceAgent.Send(encrypted)
}

// WriteRTP sends packet on transceiver. The SSRC and payload type are set
// from the negotiated sender and a copy is retained to answer NACKs.
func (pc *PeerConnection) WriteRTP(transceiver *RTPTransceiver, packet *rtp.Packet) error {
	if pc.ConnectionState() == PeerConnectionStateClosed {
		return &rtcerr.InvalidStateError{Err: ErrConnectionClosed}
	}
	if !pc.hasTransceiver(transceiver) {
		return &rtcerr.InvalidAccessError{Err: errTransceiverNotOwned}
	}
	if !transceiver.direction.canSend() {
		return &rtcerr.InvalidStateError{Err: ErrNotSendingTransceiver}
	}

	sender := &transceiver.sender
	if sender.packetBuffer == nil {
		return &rtcerr.InvalidStateError{Err: ErrRetransmitterNotCreated}
	}

	packet.Header.SSRC = sender.ssrc
	packet.Header.PayloadType = sender.payloadType
	raw, err := packet.Marshal()
	if err != nil {
		return err
	}

	if err = pc.writeRTPPacket(raw); err != nil {
		return err
	}
	if err = sender.packetBuffer.Add(raw); err != nil {
		pc.log.Warnf("Failed to retain packet seq %d: %v", packet.SequenceNumber, err)
	}
	transceiver.addSent(len(packet.Payload))

	return nil
}

// WriteRTCP sends a user provided RTCP packet to the connected peer.
func (pc *PeerConnection) WriteRTCP(packets []rtcp.Packet) error {
	raw, err := rtcp.Marshal(packets)
	if err != nil {
		return err
	}

	pc.srtpLock.Lock()
	if pc.srtpOutbound == nil {
		pc.srtpLock.Unlock()

		return ErrSRTPNotKeyed
	}
	encrypted, err := pc.srtpOutbound.EncryptRTCP(nil, raw, nil)
	pc.srtpLock.Unlock()
	if err != nil {
		return err
	}

	return pc.iceAgent.Send(encrypted)
}

func (pc *PeerConnection) hasTransceiver(transceiver *RTPTransceiver) bool {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	for _, t := range pc.rtpTransceivers {
		if t == transceiver {
			return true
		}
	}

	return false
}

// GetStats return data providing statistics about the overall connection.
func (pc *PeerConnection) GetStats() StatsReport {
	transceivers := pc.GetTransceivers()

	report := StatsReport{
		Outbound: make([]OutboundRTPStreamStats, 0, len(transceivers)),
		Inbound:  make([]InboundRTPStreamStats, 0, len(transceivers)),
	}
	for _, t := range transceivers {
		report.Outbound = append(report.Outbound, t.OutboundStats())
		report.Inbound = append(report.Inbound, t.InboundStats())
	}

	return report
}

func (pc *PeerConnection) closeTransports() error {
	pc.transportCloseOnce.Do(func() {
		closeErrs := []error{}
		if pc.dtlsSession != nil {
			closeErrs = append(closeErrs, pc.dtlsSession.Close())
		}
		if pc.iceAgent != nil {
			if pc.ownsAgent {
				closeErrs = append(closeErrs, pc.iceAgent.Close())
			} else {
				pc.iceAgent.OnPacket(nil)
			}
		}
		pc.transportCloseErr = util.FlattenErrs(closeErrs)
	})

	return pc.transportCloseErr
}

// Close ends the PeerConnection. It is safe to call more than once.
func (pc *PeerConnection) Close() error {
	pc.mu.Lock()
	if pc.isClosed {
		pc.mu.Unlock()

		return nil
	}
	pc.isClosed = true
	pc.signalingState = SignalingStateClosed
	pc.mu.Unlock()

	err := pc.closeTransports()
	pc.setConnectionState(PeerConnectionStateClosed)

	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}

	return nil
}
