// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

// Configuration defines a set of parameters to configure how the
// peer-to-peer communication via PeerConnection is established.
type Configuration struct {
	// Certificates describes a set of certificates that the PeerConnection
	// uses to authenticate. Only the first one is used by the DTLS session.
	// If this value is absent, then a default ECDSA certificate is generated
	// for each PeerConnection instance.
	Certificates []Certificate

	// ICEAgent carries the packets of the PeerConnection. When nil a
	// HostAgent is created from the SettingEngine and closed with the
	// PeerConnection; a supplied agent is owned by the caller.
	ICEAgent ICEAgent
}
