// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package signaling

import (
	"bytes"
	"fmt"
	"strconv"
)

var (
	crlf         = []byte("\r\n")
	headerEnd    = []byte("\r\n\r\n")
	httpVersion1 = []byte("HTTP/1.")
)

// HeaderField is a response header the caller is interested in. Value is set
// by ParseResponse and aliases the parsed buffer.
type HeaderField struct {
	Name  string
	Value []byte
}

// ResponseContext is the result of parsing one response. Body and the
// header values alias the parsed buffer and are valid as long as it is.
type ResponseContext struct {
	StatusCode      int
	Body            []byte
	RequiredHeaders []HeaderField
}

// Result maps the status code to a ServiceCallResult.
func (c *ResponseContext) Result() ServiceCallResult {
	return ServiceCallResultFromHTTPStatus(c.StatusCode)
}

// HeaderValue returns the value captured for a required header.
func (c *ResponseContext) HeaderValue(name string) ([]byte, bool) {
	for _, h := range c.RequiredHeaders {
		if h.Name == name {
			return h.Value, h.Value != nil
		}
	}

	return nil, false
}

// ParseResponse parses an HTTP/1.x response held entirely in buf. Values of
// the headers listed in required are filled in place; names must match
// exactly. Other headers are skipped.
func ParseResponse(buf []byte, required []HeaderField) (*ResponseContext, error) {
	ctx := &ResponseContext{RequiredHeaders: required}

	head := bytes.Index(buf, headerEnd)
	if head < 0 {
		return nil, ErrIncompleteResponse
	}
	rest := buf[head+len(headerEnd):]

	lines := bytes.Split(buf[:head], crlf)
	status, err := parseStatusLine(lines[0])
	if err != nil {
		return nil, err
	}
	ctx.StatusCode = status

	contentLength := -1
	chunked := false
	for _, line := range lines[1:] {
		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return nil, fmt.Errorf("%w: header line %q", ErrMalformedResponse, line)
		}
		name := line[:colon]
		value := bytes.Trim(line[colon+1:], " \t")

		switch {
		case bytes.EqualFold(name, []byte("Content-Length")):
			if contentLength, err = strconv.Atoi(string(value)); err != nil || contentLength < 0 {
				return nil, fmt.Errorf("%w: content-length %q", ErrMalformedResponse, value)
			}
		case bytes.EqualFold(name, []byte("Transfer-Encoding")):
			chunked = bytes.EqualFold(value, []byte("chunked"))
		}

		for i := range required {
			if len(required[i].Name) == len(name) && required[i].Name == string(name) {
				required[i].Value = value
			}
		}
	}

	switch {
	case status < 200 || status == 204 || status == 304:
	case chunked:
		ctx.Body, err = lastChunk(rest)
	case contentLength >= 0:
		if len(rest) < contentLength {
			return nil, fmt.Errorf("%w: body %d of %d bytes", ErrIncompleteResponse, len(rest), contentLength)
		}
		ctx.Body = rest[:contentLength]
	case len(rest) > 0:
		ctx.Body = rest
	}
	if err != nil {
		return nil, err
	}

	return ctx, nil
}

func parseStatusLine(line []byte) (int, error) {
	// HTTP/1.1 200 OK
	if !bytes.HasPrefix(line, httpVersion1) || len(line) < len("HTTP/1.x 200") || line[len("HTTP/1.x")] != ' ' {
		return 0, fmt.Errorf("%w: status line %q", ErrMalformedResponse, line)
	}

	code := line[len("HTTP/1.x "):]
	if len(code) > 3 {
		if code[3] != ' ' {
			return 0, fmt.Errorf("%w: status line %q", ErrMalformedResponse, line)
		}
		code = code[:3]
	}

	status, err := strconv.Atoi(string(code))
	if err != nil || status < 100 || status > 999 {
		return 0, fmt.Errorf("%w: status code %q", ErrMalformedResponse, code)
	}

	return status, nil
}

// lastChunk walks a chunked body and returns the data of its last non-empty
// chunk.
func lastChunk(buf []byte) ([]byte, error) {
	var body []byte
	for {
		end := bytes.Index(buf, crlf)
		if end < 0 {
			return nil, ErrIncompleteResponse
		}

		sizeField := buf[:end]
		if ext := bytes.IndexByte(sizeField, ';'); ext >= 0 {
			sizeField = sizeField[:ext]
		}
		size, err := strconv.ParseUint(string(bytes.TrimSpace(sizeField)), 16, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk size %q", ErrMalformedResponse, sizeField)
		}
		if size == 0 {
			return body, nil
		}

		buf = buf[end+len(crlf):]
		if uint64(len(buf)) < size+uint64(len(crlf)) {
			return nil, ErrIncompleteResponse
		}
		body = buf[:size]
		buf = buf[size+uint64(len(crlf)):]
	}
}
