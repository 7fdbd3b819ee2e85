package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier authenticates webhook deliveries by comparing an HMAC-SHA256
// digest of the raw request body against the caller-supplied token.
type Verifier struct {
	secret string
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: secret}
}

// Enabled reports whether a shared secret is configured. An unconfigured
// verifier rejects everything and readiness reports not-ready.
func (v *Verifier) Enabled() bool {
	return v.secret != ""
}

// Verify checks token against the digest of body. The body must be the raw
// bytes exactly as received; re-encoded JSON changes the byte sequence and
// invalidates the signature. Comparison is constant-time. Tokens are
// lowercased first since some senders emit uppercase hex.
func (v *Verifier) Verify(body []byte, token string) bool {
	if v.secret == "" || token == "" {
		return false
	}
	expected := Compute(v.secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(token)))
}

// Compute returns the hex-encoded HMAC-SHA256 digest of body under secret.
func Compute(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
