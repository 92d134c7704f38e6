package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign computes the hex-encoded HMAC-SHA256 signature the gateway is
// expected to attach to a callback: the MAC of "{orderRef}|{paymentRef}"
// keyed by the shared secret.
func Sign(secret []byte, orderRef, paymentRef string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(orderRef))
	mac.Write([]byte{'|'})
	mac.Write([]byte(paymentRef))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether provided matches the expected signature
// for the given references. The comparison is constant-time.
func VerifySignature(secret []byte, orderRef, paymentRef, provided string) bool {
	expected := Sign(secret, orderRef, paymentRef)
	return hmac.Equal([]byte(expected), []byte(provided))
}
