package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// Header names carried by every outbound delivery.
const (
	HeaderTopic      = "X-Webhook-Topic"
	HeaderResource   = "X-Webhook-Resource"
	HeaderEvent      = "X-Webhook-Event"
	HeaderSignature  = "X-Webhook-Signature"
	HeaderID         = "X-Webhook-Id"
	HeaderDeliveryID = "X-Webhook-Delivery-Id"
)

// Sign returns the base64-encoded HMAC-SHA256 of payload keyed with secret.
// An empty secret means the delivery is unsigned and Sign returns "".
//
// payload must be the exact bytes placed on the wire.
func Sign(payload []byte, secret string) string {
	if secret == "" {
		return ""
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Verify reports whether candidate is the signature of payload under secret.
// The comparison is constant-time. An empty secret or an empty candidate
// never verifies.
func Verify(payload []byte, secret, candidate string) bool {
	if secret == "" || candidate == "" {
		return false
	}
	got, err := base64.StdEncoding.DecodeString(candidate)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), got)
}
