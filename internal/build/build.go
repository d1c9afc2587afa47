// Package build runs the whole pipeline for a project: open the store, scan
// the content tree, load the rules, run the engine and record the outcome.
package build

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/kiln/internal/config"
	"github.com/roach88/kiln/internal/engine"
	"github.com/roach88/kiln/internal/output"
	"github.com/roach88/kiln/internal/provider"
	"github.com/roach88/kiln/internal/rules"
	"github.com/roach88/kiln/internal/store"
)

type options struct {
	logger *slog.Logger
	tokens engine.RunTokenGenerator
	writer output.Writer
}

// Option configures Run.
type Option func(*options)

// WithLogger sets the logger for the build and the engine.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokens overrides the run token generator.
func WithTokens(g engine.RunTokenGenerator) Option {
	return func(o *options) { o.tokens = g }
}

// WithWriter overrides the artifact writer.
func WithWriter(w output.Writer) Option {
	return func(o *options) { o.writer = w }
}

// Run builds the project described by cfg.
//
// The report is only returned on success. New resource signatures are
// committed only on success, so a failed build is retried in full by the
// next one.
func Run(ctx context.Context, cfg *config.Config, opts ...Option) (*engine.Report, error) {
	o := &options{
		logger: slog.Default(),
		tokens: engine.UUIDv7Generator{},
		writer: output.FSWriter{},
	}
	for _, opt := range opts {
		opt(o)
	}

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			o.logger.Error("error closing store", "error", err)
		}
	}()

	prov, err := provider.New(cfg.ContentDir, st,
		provider.WithIgnore(cfg.Ignore...),
		provider.WithExclude(cfg.OutputDir),
	)
	if err != nil {
		return nil, err
	}

	rs, err := rules.Load(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	jobs, routes := rs.Build(prov)
	o.logger.Debug("rules applied",
		"content_dir", prov.Root(),
		"rules", len(rs.Rules),
		"jobs", len(jobs),
		"routes", routes.Len(),
		"resources", len(prov.Identifiers()),
	)

	engOpts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithTokens(o.tokens),
		engine.WithMaxWaves(cfg.MaxWaves),
	}
	if cfg.HoistDependencies {
		engOpts = append(engOpts, engine.WithHoisting())
	}
	eng := engine.New(engine.Environment{
		Routes:    routes,
		Provider:  prov,
		Store:     st,
		Writer:    o.writer,
		OutputDir: cfg.OutputDir,
		GraphPath: cfg.Graph(),
	}, engOpts...)

	runID := eng.NewRunID()
	if _, err := st.BeginRun(ctx, runID); err != nil {
		return nil, err
	}

	rep, err := eng.Run(ctx, runID, jobs)
	if err == nil {
		o.logger.Debug("committing signatures", "run_id", runID, "changed", len(prov.Staged()))
		err = prov.Commit(ctx)
	}
	if err != nil {
		// Record the failure even when ctx was cancelled.
		if ferr := st.FinishRun(context.WithoutCancel(ctx), runID, store.RunStatusFailed, 0, 0); ferr != nil {
			o.logger.Error("error recording failed run", "run_id", runID, "error", ferr)
		}
		return nil, err
	}

	if err := st.FinishRun(ctx, runID, store.RunStatusSucceeded, rep.Waves, len(rep.Steps)); err != nil {
		return nil, err
	}
	return rep, nil
}
