// Package checksum computes the content digests used as session versions.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag formats sum as a strong entity tag.
func ETag(sum string) string {
	if sum == "" {
		return ""
	}
	return `"` + sum + `"`
}

// FromIfMatch extracts the checksum from an If-Match header value. Weak tags
// and a bare "*" yield an empty string, which disables the check.
func FromIfMatch(header string) string {
	v := strings.TrimSpace(header)
	if v == "*" || strings.HasPrefix(v, "W/") {
		return ""
	}
	return strings.Trim(v, `"`)
}
