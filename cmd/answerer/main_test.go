// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	webrtc "github.com/pion/embedded-webrtc"
	"github.com/pion/embedded-webrtc/pkg/filelog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(nil)
	require.NoError(t, err)

	assert.Equal(t, "-", cfg.Offer)
	assert.Equal(t, []string{"video", "audio"}, cfg.Tracks)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, sinkStderr, cfg.Log.Sink)
	assert.Equal(t, uint64(5), cfg.Log.MaxFiles)
	assert.Equal(t, "127.0.0.1", cfg.Host.Address)
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	t.Setenv("WEBRTC_LOG__LEVEL", "debug")
	t.Setenv("WEBRTC_HOST__PORT", "5000")
	t.Setenv("WEBRTC_WAIT", "2s")

	cfg, err := loadConfig([]string{"--tracks", "audio", "--log.level", "warn"})
	require.NoError(t, err)

	assert.Equal(t, []string{"audio"}, cfg.Tracks)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 5000, cfg.Host.Port)
	assert.Equal(t, 2*time.Second, cfg.Wait)
}

func TestLoadConfigValidation(t *testing.T) {
	for name, args := range map[string][]string{
		"unknown track":     {"--tracks", "data"},
		"unknown level":     {"--log.level", "loud"},
		"file without dir":  {"--log.sink", "file"},
		"too many files":    {"--log.max_files", "20000"},
		"host not ipv4":     {"--host.address", "::1"},
		"port out of range": {"--host.port", "70000"},
		"unknown flag":      {"--nope"},
		"plain signaling":   {"--signaling.url", "https://example.com", "--signaling.region", "us-west-2"},
		"no region":         {"--signaling.url", "wss://example.com"},
		"missing ca file":   {"--signaling.ca_file", "/nonexistent/ca.pem"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := loadConfig(args)
			assert.Error(t, err)
		})
	}
}

func newOffer(t *testing.T) []byte {
	t.Helper()

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pc.Close() })

	_, err = pc.AddTransceiver(webrtc.MediaStreamTrack{Codec: webrtc.CodecH264})
	require.NoError(t, err)
	_, err = pc.AddTransceiver(webrtc.MediaStreamTrack{Codec: webrtc.CodecOpus})
	require.NoError(t, err)

	offer, err := pc.CreateOffer()
	require.NoError(t, err)
	envelope, err := offer.MarshalInit()
	require.NoError(t, err)

	return envelope
}

func TestRunAnswersOffer(t *testing.T) {
	dir := t.TempDir()
	offerPath := filepath.Join(dir, "offer.json")
	require.NoError(t, os.WriteFile(offerPath, newOffer(t), 0o600))

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	require.NoError(t, run([]string{
		"--offer", offerPath,
		"--tracks", "video",
		"--log.sink", "file",
		"--log.file_dir", dir,
		"--log.level", "debug",
	}, strings.NewReader(""), stdout, stderr))

	answer, err := webrtc.DeserializeSessionDescriptionInit(bytes.TrimSpace(stdout.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	assert.Contains(t, answer.SDP, "H264/90000")
	assert.NotContains(t, answer.SDP, "opus/48000")
	assert.Contains(t, answer.SDP, "a=setup:active")

	logged, err := os.ReadFile(filepath.Join(dir, filelog.LogFileName+".0"))
	require.NoError(t, err)
	assert.NotEmpty(t, logged)
}

func TestRunReadsStdin(t *testing.T) {
	stdout := &bytes.Buffer{}
	require.NoError(t, run([]string{"--tracks", "audio"}, bytes.NewReader(newOffer(t)), stdout, &bytes.Buffer{}))
	assert.Contains(t, stdout.String(), `"type":"answer"`)

	err := run(nil, strings.NewReader(`{"type":"offer"}`), &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, webrtc.ErrSDPInitMissingSDP)
}

// newSignalingServer pushes offer to the first websocket client and hands
// back what the client replies. The server certificate is written to a PEM
// file for --signaling.ca_file.
func newSignalingServer(t *testing.T, offer []byte) (string, string, <-chan []byte, <-chan *http.Request) {
	t.Helper()

	answers := make(chan []byte, 1)
	requests := make(chan *http.Request, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests <- r
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		if err = conn.WriteMessage(websocket.TextMessage, offer); err != nil {
			return
		}
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		answers <- msg
	}))
	t.Cleanup(server.Close)

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caFile,
		pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: server.Certificate().Raw}), 0o600))

	return "wss" + strings.TrimPrefix(server.URL, "https"), caFile, answers, requests
}

func TestRunOverSignalingChannel(t *testing.T) {
	url, caFile, answers, requests := newSignalingServer(t, newOffer(t))

	stdout := &bytes.Buffer{}
	require.NoError(t, run([]string{
		"--tracks", "video",
		"--signaling.url", url,
		"--signaling.region", "us-west-2",
		"--signaling.user_agent", "answerer-test/1.0",
		"--signaling.timeout", "5s",
		"--signaling.ca_file", caFile,
	}, strings.NewReader(""), stdout, &bytes.Buffer{}))

	r := <-requests
	assert.Equal(t, "answerer-test/1.0", r.Header.Get("User-Agent"))

	var sent []byte
	select {
	case sent = <-answers:
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no answer on the signaling channel")
	}

	answer, err := webrtc.DeserializeSessionDescriptionInit(sent)
	require.NoError(t, err)
	assert.Equal(t, webrtc.SDPTypeAnswer, answer.Type)
	assert.Contains(t, answer.SDP, "H264/90000")
	assert.Equal(t, string(sent), strings.TrimSpace(stdout.String()))
}

func TestRunSignalingChannelUntrusted(t *testing.T) {
	url, _, _, _ := newSignalingServer(t, newOffer(t))

	err := run([]string{
		"--signaling.url", url,
		"--signaling.region", "us-west-2",
		"--signaling.timeout", "2s",
	}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.Error(t, err)

	caFile := filepath.Join(t.TempDir(), "empty.pem")
	require.NoError(t, os.WriteFile(caFile, []byte("not a certificate"), 0o600))
	err = run([]string{
		"--signaling.url", url,
		"--signaling.region", "us-west-2",
		"--signaling.ca_file", caFile,
	}, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, errNoCACertificates)
}
