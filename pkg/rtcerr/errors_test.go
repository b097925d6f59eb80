// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package rtcerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errTest = errors.New("test")

func TestWrappersUnwrap(t *testing.T) {
	for _, err := range []error{
		&UnknownError{Err: errTest},
		&InvalidStateError{Err: errTest},
		&InvalidAccessError{Err: errTest},
		&SyntaxError{Err: errTest},
		&OperationError{Err: errTest},
		&RangeError{Err: errTest},
		&NotSupportedError{Err: errTest},
		&SecurityError{Err: errTest},
	} {
		assert.ErrorIs(t, err, errTest)
		assert.Contains(t, err.Error(), "test")
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(&SecurityError{Err: errTest}))
	assert.True(t, IsFatal(fmt.Errorf("dtls: %w", &SecurityError{Err: errTest})))
	assert.False(t, IsFatal(&OperationError{Err: errTest}))
	assert.False(t, IsFatal(nil))
}
