// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// answerer reads an offer envelope, answers it with the configured tracks and
// prints the answer envelope. With --signaling.url the offer is received
// over a websocket signaling channel and the answer sent back on it.
//
//	answerer --offer offer.json --tracks video --wait 30s
//	answerer --signaling.url wss://signal.example.com/ --signaling.region us-west-2
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	webrtc "github.com/pion/embedded-webrtc"
	zaplogger "github.com/pion/embedded-webrtc/pkg/logger/zap"
	"go.uber.org/zap"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	cfg, err := loadConfig(args)
	if err != nil {
		return err
	}

	logger, sink, err := newLogger(cfg.Log, stderr)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
		if closeErr := sink.Close(); err == nil {
			err = closeErr
		}
	}()

	var channel *signalingChannel
	if cfg.Signaling.URL != "" {
		if channel, err = dialSignaling(context.Background(), cfg.Signaling, logger); err != nil {
			return err
		}
		defer func() { _ = channel.Close() }()
	}

	var offer webrtc.SessionDescription
	if channel != nil {
		offer, err = channel.readOffer()
	} else {
		offer, err = readOffer(cfg.Offer, stdin)
	}
	if err != nil {
		return err
	}

	pc, err := newPeerConnection(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := pc.Close(); closeErr != nil {
			logger.Warn("failed to close peer connection", zap.Error(closeErr))
		}
	}()

	answer, err := answerOffer(pc, cfg.Tracks, offer)
	if err != nil {
		return err
	}

	envelope, err := answer.MarshalInit()
	if err != nil {
		return err
	}
	if channel != nil {
		if err = channel.writeAnswer(envelope); err != nil {
			return err
		}
		logger.Info("sent answer over signaling channel", zap.String("url", cfg.Signaling.URL))
	}
	if _, err = fmt.Fprintln(stdout, string(envelope)); err != nil {
		return err
	}

	if cfg.Wait <= 0 {
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx, cancelWait := context.WithTimeout(ctx, cfg.Wait)
	defer cancelWait()

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		logger.Info("connection state changed", zap.Stringer("state", state))
		if state == webrtc.PeerConnectionStateFailed {
			cancel()
		}
	})
	<-ctx.Done()

	return nil
}

func readOffer(path string, stdin io.Reader) (webrtc.SessionDescription, error) {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(stdin)
	} else {
		raw, err = os.ReadFile(path) //nolint:gosec
	}
	if err != nil {
		return webrtc.SessionDescription{}, err
	}

	return webrtc.DeserializeSessionDescriptionInit(raw)
}

func newPeerConnection(cfg *config, logger *zap.Logger) (*webrtc.PeerConnection, error) {
	s := webrtc.SettingEngine{LoggerFactory: zaplogger.NewFactory(logger)}
	s.SetHostCandidate(cfg.Host.Address, cfg.Host.Port)

	return webrtc.NewAPI(webrtc.WithSettingEngine(s)).NewPeerConnection(webrtc.Configuration{})
}

func answerOffer(pc *webrtc.PeerConnection, tracks []string, offer webrtc.SessionDescription) (webrtc.SessionDescription, error) {
	for _, track := range tracks {
		codec := webrtc.CodecOpus
		if track == "video" {
			codec = webrtc.CodecH264
		}
		if _, err := pc.AddTransceiver(webrtc.MediaStreamTrack{Codec: codec}); err != nil {
			return webrtc.SessionDescription{}, err
		}
	}

	if err := pc.SetRemoteDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}

	answer, err := pc.CreateAnswer()
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err = pc.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}

	return answer, nil
}
