// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package signaling

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
)

// Headers the websocket dialer writes itself.
var dialerOwnedHeaders = map[string]bool{
	"upgrade":                  true,
	"connection":               true,
	"sec-websocket-key":        true,
	"sec-websocket-version":    true,
	"sec-websocket-extensions": true,
}

// DialConfig configures DialWebSocket.
type DialConfig struct {
	// Dialer defaults to a copy of websocket.DefaultDialer with the
	// connection timeout of the request as handshake timeout.
	Dialer *websocket.Dialer

	LoggerFactory logging.LoggerFactory
}

// DialWebSocket opens the signaling channel described by info. The request
// is signed with query parameters when info carries a Signer. The returned
// result reflects the upgrade response, ServiceCallResultUnknown when none
// was received.
func DialWebSocket(ctx context.Context, info *RequestInfo, config DialConfig) (*websocket.Conn, ServiceCallResult, error) {
	if config.LoggerFactory == nil {
		config.LoggerFactory = logging.NewDefaultLoggerFactory()
	}
	log := config.LoggerFactory.NewLogger("signaling")

	if !hasPrefixFold(info.URL, wssSchemePrefix) {
		return nil, ServiceCallResultUnknown, ErrWebSocketRequiresSecureURL
	}

	if info.Signer != nil {
		if err := info.Signer.Sign(info, true); err != nil {
			return nil, ServiceCallResultUnknown, err
		}
	}

	dialer := config.Dialer
	if dialer == nil {
		d := *websocket.DefaultDialer
		if info.Timeouts.Connection > 0 {
			d.HandshakeTimeout = info.Timeouts.Connection
		}
		dialer = &d
	}

	if info.Timeouts.Completion > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, info.Timeouts.Completion)
		defer cancel()
	}

	header := http.Header{}
	for _, h := range info.Headers() {
		if dialerOwnedHeaders[strings.ToLower(h.Name)] {
			continue
		}
		header.Add(h.Name, h.Value)
	}

	conn, resp, err := dialer.DialContext(ctx, info.URL, header)
	result := ServiceCallResultUnknown
	if resp != nil {
		result = ServiceCallResultFromHTTPStatus(resp.StatusCode)
		if resp.StatusCode == http.StatusSwitchingProtocols {
			result = ServiceCallResultOK
		}
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}
	if err != nil {
		log.Warnf("Failed to dial %s: %v", info.URL, err)

		return nil, result, err
	}

	log.Debugf("Connected signaling channel %s", info.URL)

	return conn, result, nil
}
