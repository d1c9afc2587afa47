// Package ir provides the foundational value types shared by every kiln package.
//
// This package contains identifiers and content signatures only. All other
// internal packages import ir; ir imports nothing internal. This keeps it the
// bottom layer with no circular dependencies.
//
// Key design constraints:
//   - Identifiers are always slash-separated, cleaned and NFC-normalised
//   - Identifiers order by plain string comparison
//   - Signatures are domain-separated SHA-256 hex digests
package ir
