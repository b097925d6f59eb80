// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package signaling models the HTTP requests a signaling client sends and
// parses the responses it receives.
package signaling

import (
	"bytes"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Header limits. Names and values must be strictly shorter than their limit.
const (
	MaxHeaderCount    = 50
	MaxHeaderNameLen  = 128
	MaxHeaderValueLen = 2048
)

// Verbs accepted by PackRequest.
const (
	VerbGET  = "GET"
	VerbPUT  = "PUT"
	VerbPOST = "POST"
)

const (
	httpsSchemePrefix = "https://"
	wssSchemePrefix   = "wss://"

	headerUserAgent = "user-agent"
	headerHost      = "host"
)

// Header is one request header.
type Header struct {
	Name  string
	Value string
}

// Credentials are the caller's long or short term signing credentials.
type Credentials struct {
	AccessKeyID  string
	SecretKey    string
	SessionToken string
	Expiration   time.Time
}

// Timeouts bound a single request.
type Timeouts struct {
	Connection time.Duration
	Completion time.Duration
}

// Signer adds authentication to a request before it is packed. When
// queryParam is set the signature travels in the URL, as websocket upgrades
// cannot carry an authorization header.
type Signer interface {
	Sign(info *RequestInfo, queryParam bool) error
}

// RequestInfo describes one signaling request. The header list is kept
// sorted by case-insensitive name; headers with the same name keep their
// insertion order.
type RequestInfo struct {
	URL         string
	Body        string
	Region      string
	Verb        string
	Timeouts    Timeouts
	Credentials *Credentials

	// CurrentTime is the creation time, CallAfter the earliest time the
	// request may be sent.
	CurrentTime time.Time
	CallAfter   time.Time

	// Signer is applied by PackRequest when set. Without it a host header
	// is added instead.
	Signer Signer

	headers []Header
}

// NewRequestInfo creates a POST request and adds the user-agent header.
func NewRequestInfo(
	rawURL, body, region, userAgent string,
	timeouts Timeouts,
	credentials *Credentials,
) (*RequestInfo, error) {
	if region == "" {
		return nil, ErrMissingRegion
	}
	if _, _, err := splitHostPath(rawURL); err != nil {
		return nil, err
	}

	now := time.Now()
	info := &RequestInfo{
		URL:         rawURL,
		Body:        body,
		Region:      region,
		Verb:        VerbPOST,
		Timeouts:    timeouts,
		Credentials: credentials,
		CurrentTime: now,
		CallAfter:   now,
	}
	if err := info.SetHeader(headerUserAgent, userAgent); err != nil {
		return nil, err
	}

	return info, nil
}

// SetHeader inserts a header at its sorted position.
func (r *RequestInfo) SetHeader(name, value string) error {
	switch {
	case len(r.headers) >= MaxHeaderCount:
		return ErrTooManyHeaders
	case name == "" || value == "":
		return ErrEmptyHeader
	case len(name) >= MaxHeaderNameLen:
		return fmt.Errorf("%w: %d bytes", ErrHeaderNameTooLong, len(name))
	case len(value) >= MaxHeaderValueLen:
		return fmt.Errorf("%w: %d bytes", ErrHeaderValueTooLong, len(value))
	}

	lower := strings.ToLower(name)
	i := sort.Search(len(r.headers), func(i int) bool {
		return strings.ToLower(r.headers[i].Name) > lower
	})

	r.headers = append(r.headers, Header{})
	copy(r.headers[i+1:], r.headers[i:])
	r.headers[i] = Header{Name: name, Value: value}

	return nil
}

// Header returns the value of the first header named name.
func (r *RequestInfo) Header(name string) (string, bool) {
	for _, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}

	return "", false
}

// Headers returns a copy of the sorted header list.
func (r *RequestInfo) Headers() []Header {
	return append([]Header(nil), r.headers...)
}

// RemoveHeader removes the first header named name. A missing header is not an error.
func (r *RequestInfo) RemoveHeader(name string) {
	for i, h := range r.headers {
		if strings.EqualFold(h.Name, name) {
			r.headers = append(r.headers[:i], r.headers[i+1:]...)

			return
		}
	}
}

// RemoveAllHeaders empties the header list.
func (r *RequestInfo) RemoveAllHeaders() {
	r.headers = r.headers[:0]
}

// RequiresSecureConnection reports whether rawURL uses https or wss.
func RequiresSecureConnection(rawURL string) bool {
	return hasPrefixFold(rawURL, httpsSchemePrefix) || hasPrefixFold(rawURL, wssSchemePrefix)
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// splitHostPath returns the authority of rawURL and the request target. A
// query directly after the host gets a leading slash.
func splitHostPath(rawURL string) (string, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrInvalidURL, err) //nolint:errorlint
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	return u.Host, u.RequestURI(), nil
}

// PackRequest renders the request as it goes on the wire. With wss set and
// a clientKey, the websocket upgrade headers follow the request headers.
func (r *RequestInfo) PackRequest(verb string, wss bool, clientKey string) ([]byte, error) {
	if r.Signer != nil {
		if err := r.Signer.Sign(r, wss); err != nil {
			return nil, err
		}
	}

	host, path, err := splitHostPath(r.URL)
	if err != nil {
		return nil, err
	}

	if r.Signer == nil {
		if _, ok := r.Header(headerHost); !ok {
			if err = r.SetHeader(headerHost, host); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s HTTP/1.1\r\n", verb, path)
	for _, h := range r.headers {
		fmt.Fprintf(&buf, "%s: %s\r\n", h.Name, h.Value)
	}

	if wss && clientKey != "" {
		buf.WriteString("Pragma: no-cache\r\n")
		buf.WriteString("Cache-Control: no-cache\r\n")
		buf.WriteString("upgrade: WebSocket\r\n")
		buf.WriteString("connection: Upgrade\r\n")
		fmt.Fprintf(&buf, "Sec-WebSocket-Key: %s\r\n", clientKey)
		buf.WriteString("Sec-WebSocket-Protocol: wss\r\n")
		buf.WriteString("Sec-WebSocket-Version: 13\r\n")
	}

	buf.WriteString("\r\n")
	if r.Body != "" {
		buf.WriteString(r.Body)
		buf.WriteString("\r\n\r\n")
	}

	return buf.Bytes(), nil
}
