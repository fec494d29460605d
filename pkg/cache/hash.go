package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Hash returns the hex SHA-256 of data, the form package indexes publish
// in their "digests" field.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RecordDigest returns the SHA-256 of data as a RECORD hash column:
// "sha256=" followed by unpadded URL-safe base64.
func RecordDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256=" + base64.RawURLEncoding.EncodeToString(sum[:])
}
