// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"github.com/pion/sdp/v3"
)

// DTLSRole indicates the role of the DTLS transport.
type DTLSRole byte

const (
	// DTLSRoleUnknown is the enum's zero-value.
	DTLSRoleUnknown DTLSRole = iota

	// DTLSRoleAuto defines the DTLS role is determined by the offer/answer
	// exchange: an actpass offerer waits for the answer to choose.
	DTLSRoleAuto

	// DTLSRoleClient defines the DTLS client role.
	DTLSRoleClient

	// DTLSRoleServer defines the DTLS server role.
	DTLSRoleServer
)

func (r DTLSRole) String() string {
	switch r {
	case DTLSRoleAuto:
		return "auto"
	case DTLSRoleClient:
		return "client"
	case DTLSRoleServer:
		return "server"
	default:
		return ErrUnknownType.Error()
	}
}

// dtlsRoleFromRemoteSDP returns the role the remote declared with its setup
// attribute. The decision is made from the first role we parse; if none is
// found DTLSRoleAuto is returned.
func dtlsRoleFromRemoteSDP(sessionDescription *sdp.SessionDescription) DTLSRole {
	if sessionDescription == nil {
		return DTLSRoleAuto
	}

	switch extractDTLSRole(sessionDescription) {
	case dtlsRoleActive:
		return DTLSRoleClient
	case "passive":
		return DTLSRoleServer
	default:
		return DTLSRoleAuto
	}
}

// localDTLSRole picks our role against the remote's. An answerer always
// answers active and so acts as the client.
func localDTLSRole(remote DTLSRole, isOfferer bool) DTLSRole {
	switch {
	case remote == DTLSRoleClient:
		return DTLSRoleServer
	case remote == DTLSRoleServer:
		return DTLSRoleClient
	case isOfferer:
		return DTLSRoleServer
	default:
		return DTLSRoleClient
	}
}
