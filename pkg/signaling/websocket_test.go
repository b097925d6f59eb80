// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package signaling

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type querySigner struct{}

func (querySigner) Sign(info *RequestInfo, queryParam bool) error {
	if queryParam {
		info.URL += "?X-Amz-Signature=test"
	}

	return nil
}

func newEchoServer(t *testing.T) (*httptest.Server, <-chan *http.Request) {
	t.Helper()

	requests := make(chan *http.Request, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/forbidden" {
			w.WriteHeader(http.StatusForbidden)

			return
		}

		requests <- r
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		for {
			messageType, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err = conn.WriteMessage(messageType, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(server.Close)

	return server, requests
}

func testDialConfig(server *httptest.Server) DialConfig {
	transport, _ := server.Client().Transport.(*http.Transport)

	return DialConfig{
		Dialer: &websocket.Dialer{
			TLSClientConfig:  transport.TLSClientConfig.Clone(),
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

func TestDialWebSocket(t *testing.T) {
	server, requests := newEchoServer(t)
	url := "wss" + strings.TrimPrefix(server.URL, "https")

	info, err := NewRequestInfo(url, "", "us-west-2", "agent/1.0", Timeouts{Completion: 5 * time.Second}, nil)
	require.NoError(t, err)
	require.NoError(t, info.SetHeader("X-Custom", "value"))
	require.NoError(t, info.SetHeader("Connection", "ignored"))
	info.Signer = querySigner{}

	conn, result, err := DialWebSocket(context.Background(), info, testDialConfig(server))
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	assert.Equal(t, ServiceCallResultOK, result)

	r := <-requests
	assert.Equal(t, "agent/1.0", r.Header.Get("User-Agent"))
	assert.Equal(t, "value", r.Header.Get("X-Custom"))
	assert.Equal(t, "test", r.URL.Query().Get("X-Amz-Signature"))

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"SDP_OFFER"}`)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, `{"action":"SDP_OFFER"}`, string(msg))
}

func TestDialWebSocketErrors(t *testing.T) {
	server, _ := newEchoServer(t)

	info, err := NewRequestInfo("https://example.com", "", "us-west-2", "agent", Timeouts{}, nil)
	require.NoError(t, err)
	_, _, err = DialWebSocket(context.Background(), info, DialConfig{})
	assert.ErrorIs(t, err, ErrWebSocketRequiresSecureURL)

	url := "wss" + strings.TrimPrefix(server.URL, "https") + "/forbidden"
	info, err = NewRequestInfo(url, "", "us-west-2", "agent", Timeouts{}, nil)
	require.NoError(t, err)

	_, result, err := DialWebSocket(context.Background(), info, testDialConfig(server))
	assert.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, ServiceCallResultForbidden, result)
}
