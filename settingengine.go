// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"errors"
	"time"

	"github.com/pion/dtls/v3"
	"github.com/pion/embedded-webrtc/pkg/rtcerr"
	"github.com/pion/logging"
)

var errInvalidBufferSize = errors.New("retransmission buffer sizes must be positive")

// SettingEngine allows influencing behavior in ways that are not
// supported by the WebRTC API. This allows us to support additional
// use-cases without deviating from the WebRTC API elsewhere.
type SettingEngine struct {
	timeout struct {
		DTLSRetransmissionInterval time.Duration
		DTLSStartupDelay           time.Duration
		SocketWriteRetry           time.Duration
		SocketShutdown             time.Duration
	}
	retransmission struct {
		RollingBufferSize  int
		SequenceNumberSize int
		ValidIndexSize     int
	}
	host struct {
		Address string
		Port    int
	}
	srtpProtectionProfiles                    []dtls.SRTPProtectionProfile
	sctpEnabled                               bool
	disableCertificateFingerprintVerification bool
	LoggerFactory                             logging.LoggerFactory
}

// SetDTLSRetransmissionInterval sets the retranmission interval for DTLS
// handshake flights.
func (e *SettingEngine) SetDTLSRetransmissionInterval(interval time.Duration) {
	e.timeout.DTLSRetransmissionInterval = interval
}

// SetDTLSStartupDelay sets the delay between starting the DTLS session and
// the first flight, giving ICE time to select a path.
func (e *SettingEngine) SetDTLSStartupDelay(delay time.Duration) {
	e.timeout.DTLSStartupDelay = delay
}

// SetSRTPProtectionProfiles allows the user to override the default SRTP
// Protection Profiles. The default srtp protection profiles are provided by
// the internal/dtls package.
func (e *SettingEngine) SetSRTPProtectionProfiles(profiles ...dtls.SRTPProtectionProfile) {
	e.srtpProtectionProfiles = profiles
}

// SetRetransmissionBufferSizes sizes the per sender retransmission state:
// the number of packets retained for NACKs, the sequence numbers one NACK
// may name and the packets one NACK may resend.
func (e *SettingEngine) SetRetransmissionBufferSizes(rollingBuffer, sequenceNumbers, validIndexes int) error {
	if rollingBuffer <= 0 || sequenceNumbers <= 0 || validIndexes <= 0 {
		return &rtcerr.RangeError{Err: errInvalidBufferSize}
	}

	e.retransmission.RollingBufferSize = rollingBuffer
	e.retransmission.SequenceNumberSize = sequenceNumbers
	e.retransmission.ValidIndexSize = validIndexes

	return nil
}

// SetSocketTimeouts sets how long a blocked socket write waits before it is
// retried and how long closing waits for an in-flight send.
func (e *SettingEngine) SetSocketTimeouts(writeRetry, shutdown time.Duration) {
	e.timeout.SocketWriteRetry = writeRetry
	e.timeout.SocketShutdown = shutdown
}

// SetHostCandidate sets the address and port the default ICE agent binds and
// advertises.
func (e *SettingEngine) SetHostCandidate(address string, port int) {
	e.host.Address = address
	e.host.Port = port
}

// EnableSCTP adds the data channel section to local descriptions.
func (e *SettingEngine) EnableSCTP(isEnabled bool) {
	e.sctpEnabled = isEnabled
}

// DisableCertificateFingerprintVerification disables fingerprint verification after DTLS Handshake has finished
func (e *SettingEngine) DisableCertificateFingerprintVerification(isDisabled bool) {
	e.disableCertificateFingerprintVerification = isDisabled
}

func (e *SettingEngine) getLoggerFactory() logging.LoggerFactory {
	if e.LoggerFactory == nil {
		return logging.NewDefaultLoggerFactory()
	}

	return e.LoggerFactory
}

func (e *SettingEngine) getSenderBufferSizes() senderBufferSizes {
	sizes := senderBufferSizes{
		rollingBuffer:   e.retransmission.RollingBufferSize,
		sequenceNumbers: e.retransmission.SequenceNumberSize,
		validIndexes:    e.retransmission.ValidIndexSize,
	}
	if sizes.rollingBuffer == 0 {
		sizes.rollingBuffer = defaultRollingBufferCapacity()
	}
	if sizes.sequenceNumbers == 0 {
		sizes.sequenceNumbers = defaultSeqNumBufferSize
	}
	if sizes.validIndexes == 0 {
		sizes.validIndexes = defaultValidIndexBufferSize
	}

	return sizes
}

func (e *SettingEngine) hostAgentConfig() HostAgentConfig {
	return HostAgentConfig{
		Address:           e.host.Address,
		Port:              e.host.Port,
		WriteRetryTimeout: e.timeout.SocketWriteRetry,
		ShutdownTimeout:   e.timeout.SocketShutdown,
		LoggerFactory:     e.getLoggerFactory(),
	}
}
