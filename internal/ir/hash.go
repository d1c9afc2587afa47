package ir

import (
	"crypto/sha256"
	"encoding/hex"
)

// DomainResource prefixes every resource signature. Bump the version suffix
// to invalidate all recorded signatures at once.
const DomainResource = "kiln/resource/v1"

// ResourceSignature is the content signature recorded for a resource:
// hex(SHA-256(DomainResource || 0x00 || content)).
//
// Only content is hashed, so moving a file away and back keeps its signature.
func ResourceSignature(content []byte) string {
	h := sha256.New()
	h.Write([]byte(DomainResource))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
