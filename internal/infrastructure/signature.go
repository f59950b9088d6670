package infrastructure

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// VerifySignature checks a Meta webhook signature header
// ("sha256=<hex>") against the HMAC-SHA256 of the raw body. The compare
// is constant-time. Policy on mismatch (reject vs. warn) belongs to the
// caller.
func VerifySignature(body []byte, header, secret string) bool {
	if secret == "" || header == "" {
		return false
	}
	expected := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(computed), []byte(strings.ToLower(expected))) == 1
}
