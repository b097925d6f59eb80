// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"errors"
)

var (
	// ErrUnknownType indicates an error with Unknown info.
	ErrUnknownType = errors.New("unknown")

	// ErrConnectionClosed indicates an operation executed after connection
	// has already been closed.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrBufferTooSmall indicates the caller supplied output buffer cannot hold the result.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrSDPInitNotObject indicates a session description envelope that is not a JSON object.
	ErrSDPInitNotObject = errors.New("session description init is not a JSON object")

	// ErrSDPInitInvalidType indicates a session description envelope whose type is neither offer nor answer.
	ErrSDPInitInvalidType = errors.New("session description init has an invalid type")

	// ErrSDPInitMissingSDP indicates a session description envelope without an sdp field.
	ErrSDPInitMissingSDP = errors.New("session description init is missing the sdp field")

	// ErrSDPInitMissingType indicates a session description envelope without a type field.
	ErrSDPInitMissingType = errors.New("session description init is missing the type field")

	// ErrSDPInitMaxSDPLenExceeded indicates an sdp field longer than MaxSessionDescriptionSDPLen.
	ErrSDPInitMaxSDPLenExceeded = errors.New("session description init exceeds the maximum sdp length")

	// ErrSDPInitTooManyTokens indicates a session description envelope with more JSON members than allowed.
	ErrSDPInitTooManyTokens = errors.New("session description init has too many JSON tokens")

	// ErrICECandidateInitMalformed indicates an ICE candidate envelope that is not a JSON object.
	ErrICECandidateInitMalformed = errors.New("ice candidate init is malformed")

	// ErrICECandidateInitMissingCandidate indicates an ICE candidate envelope without a candidate field.
	ErrICECandidateInitMissingCandidate = errors.New("ice candidate init is missing the candidate field")

	// ErrSDPUnmarshalling indicates that the SDP could not be parsed.
	ErrSDPUnmarshalling = errors.New("failed to unmarshal SDP")

	// ErrSDPMaxMediaCount indicates a description that would exceed MaxSDPMediaCount sections.
	ErrSDPMaxMediaCount = errors.New("maximum number of media sections exceeded")

	// ErrSDPMaxAttributeCount indicates a media section that would exceed MaxSDPAttributeCount attributes.
	ErrSDPMaxAttributeCount = errors.New("maximum number of media attributes exceeded")

	// ErrCodecNotSupported indicates the remote does not support a codec a
	// transceiver wants to send.
	ErrCodecNotSupported = errors.New("codec is not supported by remote")

	// ErrRtcpInputSsrcInvalid indicates a NACK naming SSRCs no transceiver sends.
	ErrRtcpInputSsrcInvalid = errors.New("rtcp input references an unknown ssrc")

	// ErrRetransmitterNotCreated indicates a transceiver that was never armed for retransmission.
	ErrRetransmitterNotCreated = errors.New("sender retransmitter was not created")

	// ErrNackListTooLarge indicates a NACK naming more sequence numbers than
	// the retransmitter scratch capacity.
	ErrNackListTooLarge = errors.New("nack list exceeds retransmitter capacity")

	// ErrRollingBufferNotInRange indicates an index outside the retained window.
	ErrRollingBufferNotInRange = errors.New("rolling buffer index not in range")

	// ErrInvalidRollingBufferCapacity indicates a rolling buffer created without room.
	ErrInvalidRollingBufferCapacity = errors.New("rolling buffer capacity must be positive")

	// ErrNoRemoteDescription indicates that an operation was rejected because
	// the remote description is not set.
	ErrNoRemoteDescription = errors.New("remote description is not set")

	// ErrIncorrectSignalingState indicates that the signaling state of PeerConnection is not correct.
	ErrIncorrectSignalingState = errors.New("operation can not be run in current signaling state")

	// ErrTransceiverNotFound indicates a lookup by SSRC that matched nothing.
	ErrTransceiverNotFound = errors.New("no transceiver with the given ssrc")

	// ErrNotSendingTransceiver indicates writing on a transceiver that cannot send.
	ErrNotSendingTransceiver = errors.New("transceiver direction does not allow sending")

	// ErrRemoteFingerprintMissing indicates a remote description without a DTLS fingerprint.
	ErrRemoteFingerprintMissing = errors.New("remote description has no fingerprint")

	// ErrRemoteICECredentialsMissing indicates a remote description without ice-ufrag/ice-pwd.
	ErrRemoteICECredentialsMissing = errors.New("remote description has no ICE credentials")

	// ErrPrivateKeyType indicates that a particular private key encryption chosen
	// to generate a certificate is not supported.
	ErrPrivateKeyType = errors.New("private key type not supported")

	// ErrCertificateExpired indicates that an x509 certificate has expired.
	ErrCertificateExpired = errors.New("x509Cert expired")

	// ErrFingerprintMismatch indicates a remote certificate that does not match
	// the fingerprint of the remote description.
	ErrFingerprintMismatch = errors.New("remote certificate does not match the announced fingerprint")

	errRTXPacketTooShort       = errors.New("packet too short to build an RTX packet")
	errCertificateInvalidKey   = errors.New("certificate private key is nil")
	errInvalidTransceiverTrack = errors.New("transceiver track has an invalid codec")
	errPayloadTypeNotANumber   = errors.New("payload type is not a number")

	errSDPConflictingFingerprints = errors.New("remote description has conflicting fingerprints")
	errSDPInvalidFingerprint      = errors.New("remote description has an invalid fingerprint")
)
