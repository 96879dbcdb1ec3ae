package retell

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrMissingSignature = errors.New("missing webhook signature")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// SignatureHeader carries the provider signature over the exact raw body bytes.
const SignatureHeader = "X-Retell-Signature"

// VerifySignature checks the provider signature against the raw request body
// using the shared API key.
func VerifySignature(apiKey, signature string, body []byte) error {
	if signature == "" {
		return ErrMissingSignature
	}

	mac := hmac.New(sha256.New, []byte(apiKey))
	_, _ = mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature the provider would send for body. Used by tests
// and local tooling.
func Sign(apiKey string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
