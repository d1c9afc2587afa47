package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/kiln/internal/compiler"
	"github.com/roach88/kiln/internal/graph"
	"github.com/roach88/kiln/internal/ir"
	"github.com/roach88/kiln/internal/output"
	"github.com/roach88/kiln/internal/route"
	"github.com/roach88/kiln/internal/solver"
)

// Environment is the fixed set of collaborators a run works against.
type Environment struct {
	// Routes decides where artifacts are written. Nil routes nothing.
	Routes route.Policy

	// Provider serves resources and answers modification queries.
	Provider Provider

	// Store is the item cache handed to compilers.
	Store compiler.ItemStore

	// Writer materialises routed artifacts. Nil means output.FSWriter{}.
	Writer output.Writer

	// OutputDir is the root every route is resolved against.
	OutputDir string

	// GraphPath, when set, receives a DOT rendering of the accumulated
	// dependency graph after every wave.
	GraphPath string
}

// Step records one executed job.
type Step struct {
	Seq  int64         `json:"seq"`
	Wave int           `json:"wave"`
	ID   ir.Identifier `json:"id"`

	// Path is the route relative to the output root; empty when unrouted or
	// when the job expanded.
	Path string `json:"path,omitempty"`

	// Expanded is the size of the batch the job produced, if it expanded.
	Expanded int `json:"expanded,omitempty"`
}

// Report summarises a successful run.
type Report struct {
	RunID    string          `json:"run_id"`
	Waves    int             `json:"waves"`
	Steps    []Step          `json:"steps"`
	Modified []ir.Identifier `json:"modified"`

	// Graph is the accumulated dependency graph at the end of the run.
	Graph *graph.Graph[ir.Identifier] `json:"-"`
}

// Executed returns the executed identifiers in execution order.
func (r *Report) Executed() []ir.Identifier {
	out := make([]ir.Identifier, len(r.Steps))
	for i, s := range r.Steps {
		out[i] = s.ID
	}
	return out
}

// Written returns identifier -> route for every artifact that was written.
func (r *Report) Written() map[ir.Identifier]string {
	out := make(map[ir.Identifier]string)
	for _, s := range r.Steps {
		if s.Path != "" {
			out[s.ID] = s.Path
		}
	}
	return out
}

// Engine runs batches of compilers to a fixpoint.
//
// An Engine holds no per-run state; every call to Run starts from an empty
// RunState, so one Engine may serve several runs one after another.
type Engine struct {
	env    Environment
	logger *slog.Logger
	tokens RunTokenGenerator

	maxWaves int
	hoist    bool
}

// Option allows configuration of engine parameters.
type Option func(*Engine)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTokens sets the run token generator. Default: UUIDv7Generator.
func WithTokens(g RunTokenGenerator) Option {
	return func(e *Engine) {
		e.tokens = g
	}
}

// WithMaxWaves bounds the number of waves in one run. Values below 1 keep
// DefaultMaxWaves.
func WithMaxWaves(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxWaves = n
		}
	}
}

// WithHoisting makes expansion pull pending jobs of earlier waves that the
// new batch depends on ahead of it. A dependency loop across the two waves
// then fails the run with CYCLIC_DEPENDENCY. Off by default: the new batch
// runs in its own solved order ahead of everything still queued.
func WithHoisting() Option {
	return func(e *Engine) {
		e.hoist = true
	}
}

// New creates an Engine over env.
func New(env Environment, opts ...Option) *Engine {
	if env.Routes == nil {
		env.Routes = route.None{}
	}
	if env.Writer == nil {
		env.Writer = output.FSWriter{}
	}

	e := &Engine{
		env:      env,
		logger:   slog.Default(),
		tokens:   UUIDv7Generator{},
		maxWaves: DefaultMaxWaves,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewRunID generates a token for the next run.
func (e *Engine) NewRunID() string {
	return e.tokens.Generate()
}

// run is the per-call state of Engine.Run.
type run struct {
	*Engine
	log    *slog.Logger
	state  *RunState
	queue  *workQueue
	quota  *waveQuota
	clock  stepClock
	report *Report
}

// Run registers batch as the first wave and executes jobs until no work is
// left.
//
// The report is only returned when the run succeeds. Any failure aborts the
// run at the failing job and is returned as a *RuntimeError, except context
// cancellation which is returned as ctx.Err().
func (e *Engine) Run(ctx context.Context, runID string, batch []compiler.Job) (*Report, error) {
	r := &run{
		Engine: e,
		log:    e.logger.With("run_id", runID),
		state:  NewRunState(),
		queue:  newWorkQueue(),
		quota:  newWaveQuota(e.maxWaves),
		report: &Report{RunID: runID},
	}

	r.log.Info("build starting", "jobs", len(batch))

	items, err := r.registerWave(ctx, "", batch)
	if err != nil {
		return nil, err
	}
	r.queue.PushBack(items...)

	for {
		if err := ctx.Err(); err != nil {
			r.log.Warn("build cancelled", "pending", r.queue.IDs())
			return nil, err
		}
		it, ok := r.queue.Pop()
		if !ok {
			break
		}
		if err := r.executeOne(ctx, it); err != nil {
			return nil, err
		}
	}

	r.report.Modified = r.state.Modified.Sorted()
	r.report.Graph = r.state.Graph
	r.log.Info("build finished",
		"waves", r.report.Waves,
		"executed", len(r.report.Steps),
		"modified", len(r.report.Modified),
	)
	return r.report, nil
}

// registerWave folds batch into the run state and returns the obsolete part
// of the batch in execution order.
func (r *run) registerWave(ctx context.Context, parent ir.Identifier, batch []compiler.Job) ([]workItem, error) {
	if err := r.quota.Check(parent); err != nil {
		return nil, err
	}
	r.report.Waves++
	wave := r.report.Waves

	byID := make(map[ir.Identifier]compiler.Compiler, len(batch))
	decls := make([]graph.Adjacency[ir.Identifier], 0, len(batch))
	for _, job := range batch {
		if _, dup := byID[job.ID]; dup || r.state.Bound(job.ID) {
			return nil, &RuntimeError{
				Code:       ErrCodeDuplicateIdentifier,
				Message:    "identifier already has a compiler",
				Identifier: job.ID,
			}
		}
		if job.Compiler == nil {
			return nil, NewCompilerError(job.ID, errors.New("no compiler bound"))
		}
		byID[job.ID] = job.Compiler
		decls = append(decls, graph.Adjacency[ir.Identifier]{
			Node: job.ID,
			Deps: job.Compiler.Dependencies(r.env.Provider),
		})
	}

	batchGraph := graph.FromEdges(decls)
	full := graph.Merge(batchGraph, r.state.Graph)
	r.writeGraph(full)

	newModified, err := DetectModified(ctx, r.env.Provider, compiler.IDs(batch))
	if err != nil {
		return nil, err
	}
	allModified := r.state.Modified.Union(newModified)
	obsolete := ObsoleteSet(allModified, batchGraph, full)

	order, err := solver.Solve(batchGraph)
	if err != nil {
		return nil, NewCycleError(err)
	}

	r.state.Modified = allModified
	r.state.Graph = full
	for id := range byID {
		r.state.bound.Add(id)
	}

	var items []workItem
	for _, id := range order {
		if !obsolete.Has(id) {
			continue
		}
		c, ok := byID[id]
		if !ok {
			// Dependency target bound in another wave, or a plain resource.
			continue
		}
		items = append(items, workItem{job: compiler.Job{ID: id, Compiler: c}, wave: wave})
	}

	r.log.Debug("wave registered",
		"wave", wave,
		"jobs", len(batch),
		"modified", newModified.Len(),
		"obsolete", obsolete.Len(),
		"scheduled", len(items),
	)
	return items, nil
}

// writeGraph emits DOT diagnostics. Failures are logged, never fatal.
func (r *run) writeGraph(g *graph.Graph[ir.Identifier]) {
	if r.env.GraphPath == "" {
		return
	}
	if err := graph.WriteDOTFile(r.env.GraphPath, g); err != nil {
		r.log.Warn("dependency graph not written", "path", r.env.GraphPath, "error", err)
	}
}

// executeOne runs a single job and acts on its result.
func (r *run) executeOne(ctx context.Context, it workItem) error {
	id := it.job.ID
	seq := r.clock.Tick()
	r.log.Info("generating", "id", id, "wave", it.wave, "seq", seq)

	dest, routed := r.env.Routes.Route(id)
	cctx := &compiler.Context{
		ID:        id,
		Resources: r.env.Provider,
		Route:     dest,
		Routed:    routed,
		Store:     r.env.Store,
		Modified:  r.state.Modified.Has(id),
	}

	res, err := it.job.Compiler.Compile(ctx, cctx)
	if err != nil {
		return NewCompilerError(id, err)
	}

	step := Step{Seq: seq, Wave: it.wave, ID: id}
	switch res := res.(type) {
	case compiler.Done:
		if routed {
			if err := r.write(id, dest, res.Artifact); err != nil {
				return err
			}
			step.Path = dest
		} else {
			r.log.Debug("unrouted", "id", id)
		}
		r.report.Steps = append(r.report.Steps, step)
		return nil

	case compiler.Expand:
		step.Expanded = len(res.Batch)
		r.report.Steps = append(r.report.Steps, step)
		return r.expand(ctx, id, res.Batch)

	default:
		return NewCompilerError(id, fmt.Errorf("unexpected result %T", res))
	}
}

// write materialises a routed artifact under the output root.
func (r *run) write(id ir.Identifier, rel string, artifact []byte) error {
	path, err := output.Destination(r.env.OutputDir, rel)
	if err != nil {
		return &RuntimeError{
			Code:       ErrCodeRoutingFailure,
			Message:    "route is not under the output root",
			Identifier: id,
			Path:       rel,
			Err:        err,
		}
	}
	if err := r.env.Writer.Write(path, artifact); err != nil {
		return &RuntimeError{
			Code:       ErrCodeWriteFailure,
			Message:    "artifact not written",
			Identifier: id,
			Path:       path,
			Err:        err,
		}
	}
	r.log.Info("routed", "id", id, "path", path)
	return nil
}

// expand registers batch as a new wave and splices it to the front of the
// queue. With hoisting, pending jobs of earlier waves that the new jobs
// depend on move along with them and the combined set is reordered.
func (r *run) expand(ctx context.Context, parent ir.Identifier, batch []compiler.Job) error {
	r.log.Debug("expanding", "id", parent, "jobs", len(batch))

	items, err := r.registerWave(ctx, parent, batch)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	if !r.hoist {
		r.queue.PushFront(items...)
		r.log.Debug("wave queued", "id", parent, "queued", r.queue.Len())
		return nil
	}

	scheduled := graph.NewSet[ir.Identifier]()
	for _, it := range items {
		scheduled.Add(it.job.ID)
	}
	deps := r.state.Graph.Reachable(scheduled)

	hoisted := r.queue.Extract(func(it workItem) bool {
		return deps.Has(it.job.ID)
	})
	if len(hoisted) == 0 {
		r.queue.PushFront(items...)
		return nil
	}

	r.log.Debug("hoisting pending jobs", "id", parent, "jobs", len(hoisted))
	ordered, err := r.reorder(append(hoisted, items...))
	if err != nil {
		return err
	}
	r.queue.PushFront(ordered...)
	return nil
}

// reorder sorts items by the dependencies between them, following paths
// through the accumulated graph that leave and re-enter the set.
func (r *run) reorder(items []workItem) ([]workItem, error) {
	byID := make(map[ir.Identifier]workItem, len(items))
	members := graph.NewSet[ir.Identifier]()
	for _, it := range items {
		byID[it.job.ID] = it
		members.Add(it.job.ID)
	}

	decls := make([]graph.Adjacency[ir.Identifier], 0, len(items))
	for _, it := range items {
		reach := r.state.Graph.Reachable(graph.NewSet(it.job.ID))
		var on []ir.Identifier
		for _, m := range reach.Intersect(members).Sorted() {
			if m != it.job.ID {
				on = append(on, m)
			}
		}
		decls = append(decls, graph.Adjacency[ir.Identifier]{Node: it.job.ID, Deps: on})
	}

	order, err := solver.Solve(graph.FromEdges(decls))
	if err != nil {
		return nil, NewCycleError(err)
	}
	out := make([]workItem, len(order))
	for i, id := range order {
		out[i] = byID[id]
	}
	return out, nil
}
