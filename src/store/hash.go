package store

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"

	"infinitecopy/src/formats"
)

var hashSeparator = []byte(";;")

// ContentHash digests every non-internal format of p as name, separator, payload, visiting
// formats in sorted order. It identifies the content for deduplication only.
func ContentHash(p formats.Payloads) string {
	h := sha256.New()
	for _, format := range p.Data() {
		h.Write([]byte(format))
		h.Write(hashSeparator)
		h.Write(p[format])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// isBlank reports whether no non-internal payload has content beyond whitespace.
func isBlank(p formats.Payloads) bool {
	for _, format := range p.Data() {
		if len(bytes.TrimSpace(p[format])) > 0 {
			return false
		}
	}
	return true
}
