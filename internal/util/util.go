// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Package util provides auxiliary functions internally used in webrtc package
package util

import (
	"errors"
	"strings"

	"github.com/pion/randutil"
)

const (
	runesAlpha    = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	runesAlphaNum = runesAlpha + "0123456789"
	runesICEChar  = runesAlphaNum + "+/"
)

var errInvalidLength = errors.New("random sequence length must be positive")

//nolint:gochecknoglobals
var globalMathRandomGenerator = randutil.NewMathRandomGenerator()

// MathRandAlphaNumeric generates a mathematical random alphanumeric sequence of the requested length.
func MathRandAlphaNumeric(n int) string {
	return globalMathRandomGenerator.GenerateString(n, runesAlphaNum)
}

// CryptoRandICEChar generates a cryptographic random sequence drawn from the
// ice-char set of RFC 8839, used for ICE ufrag and pwd values.
func CryptoRandICEChar(n int) (string, error) {
	if n <= 0 {
		return "", errInvalidLength
	}

	return randutil.GenerateCryptoRandomString(n, runesICEChar)
}

// RandUint32 returns a non-zero mathematical random 32 bit value, suitable for SSRCs.
func RandUint32() uint32 {
	for {
		if v := globalMathRandomGenerator.Uint32(); v != 0 {
			return v
		}
	}
}

// RandUint64 returns a mathematical random 63 bit value, suitable for SDP session ids.
func RandUint64() uint64 {
	return globalMathRandomGenerator.Uint64() >> 1
}

// FlattenErrs flattens multiple errors into one
func FlattenErrs(errs []error) error {
	errs2 := []error{}
	for _, e := range errs {
		if e != nil {
			errs2 = append(errs2, e)
		}
	}
	if len(errs2) == 0 {
		return nil
	}

	return multiError(errs2)
}

type multiError []error

func (me multiError) Error() string {
	var errstrings []string

	for _, err := range me {
		if err != nil {
			errstrings = append(errstrings, err.Error())
		}
	}

	if len(errstrings) == 0 {
		return "multiError must contain multiple error but is empty"
	}

	return strings.Join(errstrings, "\n")
}

func (me multiError) Is(err error) bool {
	for _, e := range me {
		if errors.Is(e, err) {
			return true
		}
		var me2 multiError
		if errors.As(e, &me2) {
			if me2.Is(err) {
				return true
			}
		}
	}

	return false
}
