package security_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/bkyoung/prreview/internal/security"
	"github.com/stretchr/testify/assert"
)

func sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature_Valid(t *testing.T) {
	secret := []byte("shh-its-a-secret")
	body := []byte(`{"action":"opened"}`)

	err := security.VerifyWebhookSignature(secret, sign(secret, body), body)
	assert.NoError(t, err)
}

func TestVerifyWebhookSignature_WrongSecret(t *testing.T) {
	body := []byte(`{"action":"opened"}`)
	sig := sign([]byte("correct-secret"), body)

	err := security.VerifyWebhookSignature([]byte("wrong-secret"), sig, body)
	assert.ErrorIs(t, err, security.ErrBadSignature)
}

func TestVerifyWebhookSignature_TamperedBody(t *testing.T) {
	secret := []byte("shh-its-a-secret")
	sig := sign(secret, []byte(`{"action":"opened"}`))

	err := security.VerifyWebhookSignature(secret, sig, []byte(`{"action":"closed"}`))
	assert.ErrorIs(t, err, security.ErrBadSignature)
}

func TestVerifyWebhookSignature_MissingPrefix(t *testing.T) {
	secret := []byte("shh-its-a-secret")
	body := []byte(`{}`)
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	rawHex := hex.EncodeToString(mac.Sum(nil))

	err := security.VerifyWebhookSignature(secret, rawHex, body)
	assert.ErrorIs(t, err, security.ErrBadSignature)
}

func TestVerifyWebhookSignature_MalformedHex(t *testing.T) {
	err := security.VerifyWebhookSignature([]byte("secret"), "sha256=not-hex!!", []byte("body"))
	assert.ErrorIs(t, err, security.ErrBadSignature)
}

func TestVerifyWebhookSignature_NoSecretConfigured(t *testing.T) {
	err := security.VerifyWebhookSignature(nil, "sha256=deadbeef", []byte("body"))
	assert.ErrorIs(t, err, security.ErrMissingSecret)
}
