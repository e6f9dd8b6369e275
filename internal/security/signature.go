// Package security verifies the authenticity of inbound webhook
// deliveries before any other processing is allowed to see them.
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
)

// ErrMissingSecret is returned when no webhook secret has been
// configured for the installation the delivery claims to be from.
var ErrMissingSecret = errors.New("security: webhook secret not configured")

// ErrBadSignature is returned when the delivery's signature does not
// match the computed HMAC, or is malformed.
var ErrBadSignature = errors.New("security: signature verification failed")

// VerifyWebhookSignature checks the "X-Hub-Signature-256" header value
// against an HMAC-SHA256 of body keyed by secret, using a constant-time
// comparison so a timing side-channel can't be used to forge a
// signature byte by byte. This must run before any other handling of
// the delivery, including JSON decoding.
func VerifyWebhookSignature(secret []byte, signatureHeader string, body []byte) error {
	if len(secret) == 0 {
		return ErrMissingSecret
	}
	const prefix = "sha256="
	if !strings.HasPrefix(signatureHeader, prefix) {
		return ErrBadSignature
	}

	got, err := hex.DecodeString(strings.TrimPrefix(signatureHeader, prefix))
	if err != nil {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	want := mac.Sum(nil)

	if !hmac.Equal(got, want) {
		return ErrBadSignature
	}
	return nil
}
