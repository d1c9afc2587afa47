// Package compiler defines the contract between the build engine and the
// units of work it schedules.
//
// A Compiler is bound to exactly one identifier when it is registered (a Job).
// Before anything runs, the engine asks every compiler for its declared
// dependencies; this query may read resources but must not have side effects.
//
// Running a compiler yields a Result, which is one of exactly two shapes:
//   - Done: a finished artifact, routed and written by the engine
//   - Expand: a new batch of jobs (the compiler is a metacompiler)
//
// The set of shapes is closed; the engine matches on them exhaustively.
package compiler
