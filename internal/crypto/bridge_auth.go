// Package crypto provides request signing for the broker bridge and
// encrypted storage for broker credentials.
package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"time"
)

// BridgeAuth holds the shared-secret credentials for signed requests
// against the broker bridge sidecar.
type BridgeAuth struct {
	Key    string // bridge API key
	Secret string // shared HMAC secret
}

// Headers returns the HTTP headers for a signed bridge request. The
// signature is HMAC-SHA256(secret, timestamp+method+path+body) encoded as
// base64.
//
// Returned header keys:
//   - X-Bridge-Key
//   - X-Bridge-Timestamp
//   - X-Bridge-Signature
func (b *BridgeAuth) Headers(method, path, body string) map[string]string {
	return b.HeadersAt(method, path, body, time.Now().Unix())
}

// HeadersAt is like Headers but lets the caller supply the Unix timestamp
// (useful for deterministic testing).
func (b *BridgeAuth) HeadersAt(method, path, body string, unixTS int64) map[string]string {
	ts := strconv.FormatInt(unixTS, 10)

	message := ts + method + path + body
	sig := hmacSHA256Base64([]byte(b.Secret), message)

	return map[string]string{
		"X-Bridge-Key":       b.Key,
		"X-Bridge-Timestamp": ts,
		"X-Bridge-Signature": sig,
	}
}

// String returns a redacted representation suitable for logging.
func (b *BridgeAuth) String() string {
	redact := func(s string) string {
		if len(s) <= 4 {
			return "****"
		}
		return s[:4] + "****"
	}
	return fmt.Sprintf("BridgeAuth{key=%s, secret=%s}", redact(b.Key), redact(b.Secret))
}

// hmacSHA256Base64 computes HMAC-SHA256 of message using key and returns
// the result as a base64 standard-encoded string.
func hmacSHA256Base64(key []byte, message string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
