package fintech

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// Webhook signature headers sent by the providers
const (
	PaystackSignatureHeader    = "x-paystack-signature"
	FlutterwaveSignatureHeader = "verif-hash"
)

// hmacSHA512 returns the hex digest of body under secret
func hmacSHA512(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyPaystackSignature checks the x-paystack-signature header against the
// HMAC-SHA512 of the raw body under the account secret key.
func VerifyPaystackSignature(secretKey string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := hmacSHA512(secretKey, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyFlutterwaveSignature checks the verif-hash header against the
// HMAC-SHA512 of the raw body under the configured webhook secret.
func VerifyFlutterwaveSignature(webhookSecret string, body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := hmacSHA512(webhookSecret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
