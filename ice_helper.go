// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/pion/stun/v3"
)

var (
	errSTUNNotBindingRequest = errors.New("stun message is not a binding request")
	errSTUNUsernameMismatch  = errors.New("stun username does not match the local ufrag")
	errSTUNUnsupportedAddr   = errors.New("stun source is not a UDP address")
)

// decodeSTUN parses a STUN message without retaining buf.
func decodeSTUN(buf []byte) (*stun.Message, error) {
	msg := &stun.Message{Raw: append([]byte(nil), buf...)}
	if err := msg.Decode(); err != nil {
		return nil, err
	}

	return msg, nil
}

// checkBindingRequest validates an inbound connectivity check addressed to
// the local credentials. The USERNAME is "<local ufrag>:<remote ufrag>".
func checkBindingRequest(msg *stun.Message, localUfrag, localPwd string) error {
	if msg.Type != stun.BindingRequest {
		return errSTUNNotBindingRequest
	}

	var username stun.Username
	if err := username.GetFrom(msg); err != nil {
		return err
	}
	if !strings.HasPrefix(username.String(), localUfrag+":") {
		return fmt.Errorf("%w: %s", errSTUNUsernameMismatch, username)
	}

	if err := stun.NewShortTermIntegrity(localPwd).Check(msg); err != nil {
		return err
	}

	return stun.Fingerprint.Check(msg)
}

// buildBindingSuccess answers request with the address the request came
// from, signed with the local password.
func buildBindingSuccess(request *stun.Message, from net.Addr, localPwd string) ([]byte, error) {
	udpAddr, ok := from.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", errSTUNUnsupportedAddr, from)
	}

	out, err := stun.Build(request, stun.BindingSuccess,
		&stun.XORMappedAddress{
			IP:   udpAddr.IP,
			Port: udpAddr.Port,
		},
		stun.NewShortTermIntegrity(localPwd),
		stun.Fingerprint,
	)
	if err != nil {
		return nil, err
	}

	return out.Raw, nil
}
