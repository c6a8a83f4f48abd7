// Package signature authenticates inbound webhook deliveries against the
// shared secret configured for the hook.
package signature

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Verify checks the signature header of a delivery against the HMAC-SHA1
// digest of the raw body keyed by secret. The header must have the form
// "sha1=<hex>". The comparison is constant-time and any malformed header
// fails closed.
//
// When no secret is configured verification is skipped and the delivery is
// accepted. That is a documented insecure default, matching hooks set up
// without a secret.
func Verify(secret, body []byte, header string) bool {
	if len(secret) == 0 {
		return true
	}

	algo, digest, found := strings.Cut(header, "=")
	if !found || algo != "sha1" {
		return false
	}

	mac := hmac.New(sha1.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(digest))
}
