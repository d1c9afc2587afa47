// Package store provides SQLite-backed durable storage shared between builds.
//
// The store holds three kinds of records:
//   - Signatures: the last recorded content signature of each resource,
//     used to decide whether a resource changed since the previous build
//   - Items: a (key, identifier) -> bytes cache compilers use to share
//     values, for example template sources
//   - Runs: one bookkeeping row per build, ordered by a logical seq
//
// Signatures are written in one transaction at the end of a successful build.
// A failed build leaves the previous signatures in place, so every change it
// saw is detected again next time. Runs are ordered by their seq column, not
// by wall-clock time.
//
// The database runs in WAL mode with synchronous=NORMAL and a 5s busy
// timeout. The schema version lives in PRAGMA user_version; a store stamped
// by a newer kiln is refused.
package store
