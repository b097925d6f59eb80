// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package signaling

import "errors"

var (
	// ErrEmptyHeader indicates a header name or value of zero length.
	ErrEmptyHeader = errors.New("signaling: header name and value must not be empty")

	// ErrHeaderNameTooLong indicates a header name of MaxHeaderNameLen bytes or more.
	ErrHeaderNameTooLong = errors.New("signaling: header name too long")

	// ErrHeaderValueTooLong indicates a header value of MaxHeaderValueLen bytes or more.
	ErrHeaderValueTooLong = errors.New("signaling: header value too long")

	// ErrTooManyHeaders indicates a request already carrying MaxHeaderCount headers.
	ErrTooManyHeaders = errors.New("signaling: too many request headers")

	// ErrInvalidURL indicates a request URL without a scheme or host.
	ErrInvalidURL = errors.New("signaling: invalid request url")

	// ErrMissingRegion indicates a request created without a region.
	ErrMissingRegion = errors.New("signaling: region is required")

	// ErrMalformedResponse indicates a buffer that is not an HTTP/1.x response.
	ErrMalformedResponse = errors.New("signaling: malformed http response")

	// ErrIncompleteResponse indicates a response whose headers or body are
	// cut short by the end of the buffer.
	ErrIncompleteResponse = errors.New("signaling: incomplete http response")

	// ErrWebSocketRequiresSecureURL indicates a websocket dial to a non wss url.
	ErrWebSocketRequiresSecureURL = errors.New("signaling: websocket url must use wss")
)
