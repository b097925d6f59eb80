// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package mux demultiplexes packets received on a single transport (RFC7983)
package mux

import (
	"errors"
	"sync"

	"github.com/pion/logging"
)

// ErrNoEndpoint indicates a packet no endpoint accepts.
var ErrNoEndpoint = errors.New("mux: no endpoint for packet")

// Handler consumes one packet routed to an Endpoint.
type Handler func(packet []byte) error

// Endpoint is one destination of the Mux.
type Endpoint struct {
	match   MatchFunc
	handler Handler
}

// Mux routes every packet to the first endpoint, in registration order,
// whose MatchFunc accepts it. Dispatch runs the handler on the caller's
// goroutine.
type Mux struct {
	lock      sync.RWMutex
	endpoints []*Endpoint
	log       logging.LeveledLogger
}

// NewMux creates a new Mux.
func NewMux(loggerFactory logging.LoggerFactory) *Mux {
	if loggerFactory == nil {
		loggerFactory = logging.NewDefaultLoggerFactory()
	}

	return &Mux{log: loggerFactory.NewLogger("mux")}
}

// NewEndpoint registers handler for the packets matchFunc accepts.
func (m *Mux) NewEndpoint(matchFunc MatchFunc, handler Handler) *Endpoint {
	e := &Endpoint{match: matchFunc, handler: handler}

	m.lock.Lock()
	m.endpoints = append(m.endpoints, e)
	m.lock.Unlock()

	return e
}

// RemoveEndpoint removes an endpoint from the Mux.
func (m *Mux) RemoveEndpoint(e *Endpoint) {
	m.lock.Lock()
	defer m.lock.Unlock()

	for i, endpoint := range m.endpoints {
		if endpoint == e {
			m.endpoints = append(m.endpoints[:i], m.endpoints[i+1:]...)

			return
		}
	}
}

// Dispatch hands buf to the matching endpoint and returns its error.
func (m *Mux) Dispatch(buf []byte) error {
	if len(buf) == 0 {
		m.log.Warnf("Warning: mux: unable to dispatch zero length packet")

		return nil
	}

	var endpoint *Endpoint

	m.lock.RLock()
	for _, e := range m.endpoints {
		if e.match(buf) {
			endpoint = e

			break
		}
	}
	m.lock.RUnlock()

	if endpoint == nil {
		m.log.Warnf("Warning: mux: no endpoint for packet starting with %d", buf[0])

		return ErrNoEndpoint
	}

	return endpoint.handler(buf)
}
