// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pion/sdp/v3"
)

// SessionDescription is used to expose local and remote session descriptions.
type SessionDescription struct {
	Type SDPType `json:"type"`
	SDP  string  `json:"sdp"`

	// This will never be initialized by callers, internal use only
	parsed *sdp.SessionDescription
}

// Unmarshal is a helper to deserialize the sdp.
func (sd *SessionDescription) Unmarshal() (*sdp.SessionDescription, error) {
	sd.parsed = &sdp.SessionDescription{}
	err := sd.parsed.UnmarshalString(sd.SDP)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSDPUnmarshalling, err)
	}

	return sd.parsed, nil
}

const (
	sdpInitHead      = `{"type":"`
	sdpInitMiddle    = `","sdp":"`
	sdpInitTail      = `"}`
	sdpInitLineBreak = `\r\n`
)

// SerializeInit renders the description into the signaling JSON envelope.
// Every line break of SDP is written as the escaped CRLF pair. With a nil buf
// only the required length is returned; otherwise buf must be at least that
// long or ErrBufferTooSmall is returned and buf is left untouched.
func (sd SessionDescription) SerializeInit(buf []byte) (int, error) {
	if sd.Type != SDPTypeOffer && sd.Type != SDPTypeAnswer {
		return 0, ErrSDPInitInvalidType
	}

	out := make([]byte, 0, len(sdpInitHead)+len(sdpInitMiddle)+len(sdpInitTail)+len(sd.SDP)+64)
	out = append(out, sdpInitHead...)
	out = append(out, sd.Type.String()...)
	out = append(out, sdpInitMiddle...)
	out = appendEscapedSDP(out, sd.SDP)
	out = append(out, sdpInitTail...)

	if buf == nil {
		return len(out), nil
	}
	if len(buf) < len(out) {
		return 0, ErrBufferTooSmall
	}

	return copy(buf, out), nil
}

// MarshalInit is SerializeInit into a freshly allocated slice.
func (sd SessionDescription) MarshalInit() ([]byte, error) {
	n, err := sd.SerializeInit(nil)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err = sd.SerializeInit(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// appendEscapedSDP writes raw as JSON string content. CR, LF and CRLF all
// become one escaped CRLF pair.
func appendEscapedSDP(out []byte, raw string) []byte {
	const hex = "0123456789abcdef"

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\r':
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			out = append(out, sdpInitLineBreak...)
		case c == '\n':
			out = append(out, sdpInitLineBreak...)
		case c == '"' || c == '\\':
			out = append(out, '\\', c)
		case c < 0x20:
			out = append(out, '\\', 'u', '0', '0', hex[c>>4], hex[c&0xF])
		default:
			out = append(out, c)
		}
	}

	return out
}

var sdpLineBreakNormalizer = strings.NewReplacer("\r\n", "\r\n", "\r", "\r\n", "\n", "\r\n")

// DeserializeSessionDescriptionInit parses the signaling JSON envelope. Line
// breaks of the sdp member are rebuilt as CRLF. Members other than type and
// sdp are ignored.
func DeserializeSessionDescriptionInit(data []byte) (SessionDescription, error) {
	var (
		sd             SessionDescription
		hasType, hasSD bool
		tokens         int
	)

	dec := json.NewDecoder(bytes.NewReader(data))
	next := func() (json.Token, error) {
		tokens++
		if tokens > maxJSONTokenCount {
			return nil, ErrSDPInitTooManyTokens
		}

		return dec.Token()
	}

	if tok, err := next(); err != nil || tok != json.Delim('{') {
		return sd, ErrSDPInitNotObject
	}

	for dec.More() {
		tok, err := next()
		if err != nil {
			return sd, wrapSDPInitErr(err)
		}
		key, _ := tok.(string)

		switch key {
		case "type":
			value, err := nextString(next, ErrSDPInitInvalidType)
			if err != nil {
				return sd, err
			}
			if sd.Type = NewSDPType(value); sd.Type == SDPTypeUnknown {
				return sd, ErrSDPInitInvalidType
			}
			hasType = true
		case "sdp":
			value, err := nextString(next, ErrSDPInitMissingSDP)
			if err != nil {
				return sd, err
			}
			value = sdpLineBreakNormalizer.Replace(value)
			if len(value) > MaxSessionDescriptionSDPLen {
				return sd, ErrSDPInitMaxSDPLenExceeded
			}
			sd.SDP = value
			hasSD = true
		default:
			if err := skipJSONValue(next); err != nil {
				return sd, err
			}
		}
	}

	if _, err := next(); err != nil {
		return sd, wrapSDPInitErr(err)
	}

	switch {
	case !hasSD:
		return sd, ErrSDPInitMissingSDP
	case !hasType:
		return sd, ErrSDPInitMissingType
	}

	return sd, nil
}

func wrapSDPInitErr(err error) error {
	if errors.Is(err, ErrSDPInitTooManyTokens) {
		return err
	}
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	return fmt.Errorf("%w: %w", ErrSDPInitNotObject, err)
}

func nextString(next func() (json.Token, error), notString error) (string, error) {
	tok, err := next()
	if err != nil {
		return "", wrapSDPInitErr(err)
	}
	s, ok := tok.(string)
	if !ok {
		return "", notString
	}

	return s, nil
}

// skipJSONValue consumes one value, descending into arrays and objects.
func skipJSONValue(next func() (json.Token, error)) error {
	depth := 0
	for {
		tok, err := next()
		if err != nil {
			return wrapSDPInitErr(err)
		}

		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
		if depth == 0 {
			return nil
		}
	}
}
