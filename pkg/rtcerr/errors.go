// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package rtcerr implements the error wrappers defined throughout the
// WebRTC 1.0 specifications, plus a classification helper used by the
// peer connection to decide whether an error ends the session.
package rtcerr

import (
	"errors"
	"fmt"
)

// UnknownError indicates the operation failed for an unknown transient reason.
type UnknownError struct {
	Err error
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("UnknownError: %v", e.Err)
}

func (e *UnknownError) Unwrap() error {
	return e.Err
}

// InvalidStateError indicates the object is in an invalid state.
type InvalidStateError struct {
	Err error
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("InvalidStateError: %v", e.Err)
}

func (e *InvalidStateError) Unwrap() error {
	return e.Err
}

// InvalidAccessError indicates the object does not support the operation or
// argument.
type InvalidAccessError struct {
	Err error
}

func (e *InvalidAccessError) Error() string {
	return fmt.Sprintf("InvalidAccessError: %v", e.Err)
}

func (e *InvalidAccessError) Unwrap() error {
	return e.Err
}

// SyntaxError indicates the string did not match the expected pattern.
type SyntaxError struct {
	Err error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("SyntaxError: %v", e.Err)
}

func (e *SyntaxError) Unwrap() error {
	return e.Err
}

// OperationError indicates the operation failed for an operation-specific
// reason.
type OperationError struct {
	Err error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("OperationError: %v", e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// RangeError indicates a value or a fixed capacity was exceeded.
type RangeError struct {
	Err error
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("RangeError: %v", e.Err)
}

func (e *RangeError) Unwrap() error {
	return e.Err
}

// NotSupportedError indicates that the operation is not supported.
type NotSupportedError struct {
	Err error
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("NotSupportedError: %v", e.Err)
}

func (e *NotSupportedError) Unwrap() error {
	return e.Err
}

// SecurityError indicates a certificate or fingerprint check failed.
// It is always fatal to the session that produced it.
type SecurityError struct {
	Err error
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("SecurityError: %v", e.Err)
}

func (e *SecurityError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err must tear down the owning session.
func IsFatal(err error) bool {
	var securityErr *SecurityError

	return errors.As(err, &securityErr)
}
