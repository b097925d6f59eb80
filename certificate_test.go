// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package webrtc

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"testing"
	"time"

	"github.com/pion/embedded-webrtc/pkg/rtcerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCertificateRSA(t *testing.T) {
	sk, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	certificate, err := GenerateCertificate(sk)
	require.NoError(t, err)
	assert.Equal(t, x509.SHA256WithRSA, certificate.x509Cert.SignatureAlgorithm)
	assert.True(t, certificate.Equals(*certificate))
}

func TestGenerateCertificateECDSA(t *testing.T) {
	certificate, err := generateDefaultCertificate()
	require.NoError(t, err)
	assert.Equal(t, x509.ECDSAWithSHA256, certificate.x509Cert.SignatureAlgorithm)
	assert.True(t, certificate.Expires().After(time.Now()))

	other, err := generateDefaultCertificate()
	require.NoError(t, err)
	assert.False(t, certificate.Equals(*other))

	tlsCert := certificate.toTLS()
	assert.Len(t, tlsCert.Certificate, 1)
	assert.NotNil(t, tlsCert.PrivateKey)
}

func TestGenerateCertificateUnsupportedKey(t *testing.T) {
	_, sk, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	_, err = GenerateCertificate(sk)
	var notSupported *rtcerr.NotSupportedError
	assert.ErrorAs(t, err, &notSupported)
	assert.ErrorIs(t, err, ErrPrivateKeyType)

	_, err = GenerateCertificate(nil)
	assert.ErrorIs(t, err, errCertificateInvalidKey)
}

func TestCertificateFingerprints(t *testing.T) {
	sk, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	certificate, err := GenerateCertificate(sk)
	require.NoError(t, err)

	fingerprints, err := certificate.GetFingerprints()
	require.NoError(t, err)
	require.Len(t, fingerprints, 1)
	assert.Equal(t, "sha-256", fingerprints[0].Algorithm)
	assert.Len(t, fingerprints[0].Value, 32*3-1)
}
