package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DigestLength is the length of a hex-encoded HMAC-SHA256 digest.
const DigestLength = sha256.Size * 2

// Sign computes the lowercase hex HMAC-SHA256 of message under secret.
func Sign(message, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// CreateSignature signs payload at timestampMillis. It is the single entry
// point for producing outbound signatures and test fixtures, and the verifier
// uses it to recompute the expected digest.
func CreateSignature(timestampMillis int64, payload any, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	msg, err := BuildMessage(timestampMillis, payload)
	if err != nil {
		return "", err
	}
	return Sign(msg, secret)
}
