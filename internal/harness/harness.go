package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/roach88/kiln/internal/build"
	"github.com/roach88/kiln/internal/config"
	"github.com/roach88/kiln/internal/engine"
	"github.com/roach88/kiln/internal/testutil"
)

// Harness runs the steps of one scenario against one project directory.
type Harness struct {
	dir     string
	content string
	cfg     *config.Config
	tokens  *testutil.RunTokens
	logger  *slog.Logger
}

// Option configures Run.
type Option func(*Harness)

// WithLogger routes build logs to l. By default they are discarded.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) { h.logger = l }
}

// Run executes a scenario in a fresh temporary project and returns the
// result. The directory is removed afterwards.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "kiln-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create project dir: %w", err)
	}
	defer os.RemoveAll(dir)
	return RunIn(ctx, s, dir, opts...)
}

// RunIn executes a scenario with dir as the project root.
//
// Each step applies its edits, builds, and checks the outcome. A failed
// build is a step outcome, not an error: later steps still run. The error
// return is for problems setting up the project itself.
func RunIn(ctx context.Context, s *Scenario, dir string, opts ...Option) (*Result, error) {
	h := &Harness{
		dir:     dir,
		content: filepath.Join(dir, "content"),
		tokens:  testutil.NewRunTokens(s.Name),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	if err := os.WriteFile(filepath.Join(dir, "site.cue"), []byte(s.Rules), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write rules: %w", err)
	}
	if err := os.MkdirAll(h.content, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create content dir: %w", err)
	}
	if err := h.writeFiles(s.Files); err != nil {
		return nil, err
	}

	cfg, err := config.Parse(nil, dir)
	if err != nil {
		return nil, err
	}
	h.cfg = cfg

	result := NewResult()
	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := h.apply(step); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}

		trace, buildErr := h.build(ctx, step.Name)
		result.Steps = append(result.Steps, trace)

		for _, failure := range CheckStep(cfg.OutputDir, step, trace, buildErr) {
			result.AddError(failure.Error())
		}
	}
	return result, nil
}

func (h *Harness) apply(step Step) error {
	if err := h.writeFiles(step.Write); err != nil {
		return err
	}
	for _, name := range step.Remove {
		if err := os.Remove(filepath.Join(h.content, filepath.FromSlash(name))); err != nil {
			return fmt.Errorf("failed to remove %s: %w", name, err)
		}
	}
	return nil
}

func (h *Harness) writeFiles(files map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(files)) {
		p := filepath.Join(h.content, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		if err := os.WriteFile(p, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
	}
	return nil
}

// build runs one build and captures its trace.
func (h *Harness) build(ctx context.Context, name string) (StepTrace, error) {
	rep, err := build.Run(ctx, h.cfg,
		build.WithLogger(h.logger),
		build.WithTokens(h.tokens),
	)

	trace := StepTrace{
		Name:     name,
		RunID:    h.tokens.Last(),
		Executed: []string{},
		Modified: []string{},
		Written:  map[string]string{},
	}
	if err != nil {
		trace.Error = ErrorCode(err)
		return trace, err
	}

	trace.Waves = rep.Waves
	for _, id := range rep.Executed() {
		trace.Executed = append(trace.Executed, string(id))
	}
	for _, id := range rep.Modified {
		trace.Modified = append(trace.Modified, string(id))
	}
	for id, p := range rep.Written() {
		trace.Written[string(id)] = p
	}
	return trace, nil
}

// ErrorCode classifies a build error: the runtime error code when there is
// one, "CANCELLED" for context cancellation, "BUILD" otherwise.
func ErrorCode(err error) string {
	if code, ok := engine.CodeOf(err); ok {
		return string(code)
	}
	if errors.Is(err, context.Canceled) {
		return "CANCELLED"
	}
	return "BUILD"
}
