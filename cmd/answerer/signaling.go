// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gorilla/websocket"
	webrtc "github.com/pion/embedded-webrtc"
	zaplogger "github.com/pion/embedded-webrtc/pkg/logger/zap"
	"github.com/pion/embedded-webrtc/pkg/signaling"
	"go.uber.org/zap"
)

var errNoCACertificates = errors.New("answerer: no certificates in signaling ca file")

// signalingChannel exchanges the offer and answer envelopes over a websocket.
type signalingChannel struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func dialSignaling(ctx context.Context, cfg signalingConfig, logger *zap.Logger) (*signalingChannel, error) {
	info, err := signaling.NewRequestInfo(cfg.URL, "", cfg.Region, cfg.UserAgent,
		signaling.Timeouts{Connection: cfg.Timeout, Completion: cfg.Timeout}, nil)
	if err != nil {
		return nil, err
	}

	dialConfig := signaling.DialConfig{LoggerFactory: zaplogger.NewFactory(logger)}
	if cfg.CAFile != "" {
		pemBytes, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBytes) {
			return nil, errNoCACertificates
		}
		dialConfig.Dialer = &websocket.Dialer{
			TLSClientConfig:  &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
			HandshakeTimeout: cfg.Timeout,
		}
	}

	conn, result, err := signaling.DialWebSocket(ctx, info, dialConfig)
	if err != nil {
		return nil, fmt.Errorf("dial signaling channel (result %d): %w", result, err)
	}

	return &signalingChannel{conn: conn, timeout: cfg.Timeout}, nil
}

func (c *signalingChannel) readOffer() (webrtc.SessionDescription, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return webrtc.SessionDescription{}, err
	}

	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	return webrtc.DeserializeSessionDescriptionInit(msg)
}

func (c *signalingChannel) writeAnswer(envelope []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return err
	}

	return c.conn.WriteMessage(websocket.TextMessage, envelope)
}

func (c *signalingChannel) Close() error {
	return c.conn.Close()
}
