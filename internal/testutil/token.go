package testutil

import (
	"fmt"
	"sync"
)

// RunTokens generates run tokens <prefix>-1, <prefix>-2, ...
//
// Traces of a scenario embed the run token, so numbered tokens keep golden
// files stable while every build still gets a distinct runs row.
type RunTokens struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewRunTokens creates a generator for prefix.
// If prefix is empty, tokens are "test-run-1", "test-run-2", ...
func NewRunTokens(prefix string) *RunTokens {
	if prefix == "" {
		prefix = "test-run"
	}
	return &RunTokens{prefix: prefix}
}

// Generate implements engine.RunTokenGenerator.
func (g *RunTokens) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Last returns the most recent token, or "" before the first Generate.
func (g *RunTokens) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.n == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
