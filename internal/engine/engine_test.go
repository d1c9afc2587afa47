package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kiln/internal/compiler"
	"github.com/roach88/kiln/internal/ir"
	"github.com/roach88/kiln/internal/route"
	"github.com/roach88/kiln/internal/solver"
	"github.com/roach88/kiln/internal/testutil"
)

const outDir = "/out"

type fixture struct {
	res    *testutil.Resources
	writer *testutil.RecordingWriter
	items  *testutil.Items
	routes *route.Table
	logs   *bytes.Buffer
	env    Environment
	opts   []Option
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	f := &fixture{
		res:    testutil.NewResources(files),
		writer: &testutil.RecordingWriter{},
		items:  testutil.NewItems(),
		routes: &route.Table{},
		logs:   &bytes.Buffer{},
	}
	f.env = Environment{
		Routes:    f.routes,
		Provider:  f.res,
		Store:     f.items,
		Writer:    f.writer,
		OutputDir: outDir,
	}
	return f
}

// build runs one build the way build.Run does: fresh provider answers,
// signatures committed only on success.
func (f *fixture) build(t *testing.T, batch ...compiler.Job) (*Report, error) {
	t.Helper()
	return f.buildCtx(context.Background(), t, batch...)
}

func (f *fixture) buildCtx(ctx context.Context, t *testing.T, batch ...compiler.Job) (*Report, error) {
	t.Helper()
	f.res.NewRun()
	f.writer.Reset()
	logger := slog.New(slog.NewTextHandler(f.logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := New(f.env, append([]Option{WithLogger(logger)}, f.opts...)...)
	rep, err := e.Run(ctx, "run-test", batch)
	if err == nil {
		f.res.Commit()
	}
	return rep, err
}

func job(id string, c compiler.Compiler) compiler.Job {
	return compiler.Job{ID: ir.Identifier(id), Compiler: c}
}

// page echoes its resource, or its identifier when no resource backs it.
func page(deps ...ir.Identifier) compiler.Compiler {
	return compiler.Func{
		Deps: deps,
		Run: func(_ context.Context, c *compiler.Context) (compiler.Result, error) {
			if !c.Resources.Exists(c.ID) {
				return compiler.Done{Artifact: []byte(c.ID)}, nil
			}
			data, err := c.Resources.Read(c.ID)
			if err != nil {
				return nil, err
			}
			return compiler.Done{Artifact: data}, nil
		},
	}
}

func expander(deps []ir.Identifier, batch ...compiler.Job) compiler.Compiler {
	return compiler.Func{
		Deps: deps,
		Run: func(context.Context, *compiler.Context) (compiler.Result, error) {
			return compiler.Expand{Batch: batch}, nil
		},
	}
}

func failing(err error) compiler.Compiler {
	return compiler.Func{
		Run: func(context.Context, *compiler.Context) (compiler.Result, error) {
			return nil, err
		},
	}
}

func ids(ss ...string) []ir.Identifier {
	out := make([]ir.Identifier, len(ss))
	for i, s := range ss {
		out[i] = ir.Identifier(s)
	}
	return out
}

func siteBatch() []compiler.Job {
	return []compiler.Job{
		job("index", page("template")),
		job("post1", page("template")),
		job("template", page()),
	}
}

func TestRun_ConcreteScenario(t *testing.T) {
	f := newFixture(t, map[string]string{
		"index":    "home",
		"post1":    "first post",
		"template": "layout",
	})
	require.NoError(t, f.routes.Add("index", route.SetExtension(".html")))
	require.NoError(t, f.routes.Add("post*", route.SetExtension(".html")))

	rep, err := f.build(t, siteBatch()...)
	require.NoError(t, err)
	assert.Equal(t, ids("template", "index", "post1"), rep.Executed())
	assert.Equal(t, ids("index", "post1", "template"), rep.Modified)
	assert.Equal(t, 1, rep.Waves)
	assert.Equal(t, "run-test", rep.RunID)
	assert.Equal(t, map[string]string{
		filepath.Join(outDir, "index.html"): "home",
		filepath.Join(outDir, "post1.html"): "first post",
	}, f.writer.Files())

	f.res.Set("post1", "edited")
	rep, err = f.build(t, siteBatch()...)
	require.NoError(t, err)
	assert.Equal(t, ids("post1"), rep.Executed())
	assert.Equal(t, ids("post1"), rep.Modified)
	assert.Equal(t, map[string]string{
		filepath.Join(outDir, "post1.html"): "edited",
	}, f.writer.Files())

	f.res.Set("template", "new layout")
	rep, err = f.build(t, siteBatch()...)
	require.NoError(t, err)
	assert.Equal(t, ids("template", "index", "post1"), rep.Executed())
}

func TestRun_IdempotentSecondRun(t *testing.T) {
	f := newFixture(t, map[string]string{"index": "home", "post1": "p", "template": "t"})

	_, err := f.build(t, siteBatch()...)
	require.NoError(t, err)

	rep, err := f.build(t, siteBatch()...)
	require.NoError(t, err)
	assert.Empty(t, rep.Modified)
	assert.Empty(t, rep.Executed())
	assert.Empty(t, f.writer.Writes())
}

func TestRun_StepsCarrySeqWaveAndPath(t *testing.T) {
	f := newFixture(t, map[string]string{"index": "home", "template": "t"})
	require.NoError(t, f.routes.Add("index", route.Constant("index.html")))

	rep, err := f.build(t,
		job("index", page("template")),
		job("template", page()),
	)
	require.NoError(t, err)
	assert.Equal(t, []Step{
		{Seq: 1, Wave: 1, ID: "template"},
		{Seq: 2, Wave: 1, ID: "index", Path: "index.html"},
	}, rep.Steps)
	assert.Equal(t, map[ir.Identifier]string{"index": "index.html"}, rep.Written())
	assert.True(t, rep.Graph.Member("template"))
}

func TestRun_UnroutedArtifactsAreNotWritten(t *testing.T) {
	f := newFixture(t, map[string]string{"template": "t"})

	rep, err := f.build(t, job("template", page()))
	require.NoError(t, err)
	assert.Equal(t, ids("template"), rep.Executed())
	assert.Empty(t, f.writer.Writes())
	assert.Contains(t, f.logs.String(), "unrouted")
}

func TestRun_CompilerContext(t *testing.T) {
	f := newFixture(t, map[string]string{"a.md": "x"})
	require.NoError(t, f.routes.Add("*.md", route.SetExtension(".html")))

	var seen compiler.Context
	c := compiler.Func{Run: func(ctx context.Context, c *compiler.Context) (compiler.Result, error) {
		seen = *c
		require.NoError(t, c.Store.SaveItem(ctx, "k", c.ID, []byte("v")))
		return compiler.Done{}, nil
	}}

	_, err := f.build(t, job("a.md", c))
	require.NoError(t, err)
	assert.Equal(t, ir.Identifier("a.md"), seen.ID)
	assert.Equal(t, "a.html", seen.Route)
	assert.True(t, seen.Routed)
	assert.True(t, seen.Modified)

	v, ok, err := f.items.LoadItem(context.Background(), "k", "a.md")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", string(v))
}

func TestRun_ModifiedFlagOnlyForChangedIdentifier(t *testing.T) {
	f := newFixture(t, map[string]string{"index": "home", "template": "t"})
	_, err := f.build(t, job("index", page("template")), job("template", page()))
	require.NoError(t, err)

	f.res.Set("template", "t2")
	flags := map[ir.Identifier]bool{}
	spy := func(deps ...ir.Identifier) compiler.Compiler {
		return compiler.Func{Deps: deps, Run: func(_ context.Context, c *compiler.Context) (compiler.Result, error) {
			flags[c.ID] = c.Modified
			return compiler.Done{}, nil
		}}
	}
	_, err = f.build(t, job("index", spy("template")), job("template", spy()))
	require.NoError(t, err)
	assert.Equal(t, map[ir.Identifier]bool{"template": true, "index": false}, flags)
}

func TestRun_MetacompilerFixpoint(t *testing.T) {
	for _, depth := range []int{1, 2, 5} {
		f := newFixture(t, map[string]string{"root": "r"})
		require.NoError(t, f.routes.Add("level-*", route.SetExtension(".html")))

		// level-k expands into level-(k+1), which depends on it; the last
		// level finishes.
		var levels []compiler.Job
		leaf := job(levelID(depth), page(ir.Identifier(levelID(depth-1))))
		levels = append(levels, leaf)
		for k := depth - 1; k >= 1; k-- {
			next := levels[len(levels)-1]
			levels = append(levels, job(levelID(k), expander(ids(levelID(k-1)), next)))
		}
		root := job("root", expander(nil, levels[len(levels)-1]))
		if depth == 1 {
			root = job("root", expander(nil, leaf))
		}

		rep, err := f.build(t, root)
		require.NoError(t, err)
		assert.Equal(t, depth+1, rep.Waves, "depth %d", depth)
		assert.Len(t, rep.Executed(), depth+1)
		assert.Equal(t, ir.Identifier(levelID(depth)), rep.Executed()[depth])
		assert.Contains(t, f.writer.Files(), filepath.Join(outDir, levelID(depth)+".html"))
	}
}

func levelID(k int) string {
	if k == 0 {
		return "root"
	}
	return "level-" + string(rune('0'+k))
}

func TestRun_ExpansionRunsBeforeRestOfBatch(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a", "m": "m", "z": "z"})

	rep, err := f.build(t,
		job("a", page()),
		job("m", expander(nil, job("x", page("m")))),
		job("z", page()),
	)
	require.NoError(t, err)
	assert.Equal(t, ids("a", "m", "x", "z"), rep.Executed())
	assert.Equal(t, 2, rep.Waves)
	assert.Equal(t, 1, rep.Steps[1].Expanded)
	assert.Equal(t, 2, rep.Steps[2].Wave)
}

func TestRun_BatchIsolation(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a", "b": "b", "m": "m"})

	// x depends on a and b from the first wave; both are obsolete and
	// reachable but must not run again in the second wave.
	rep, err := f.build(t,
		job("a", page()),
		job("b", page("a")),
		job("m", expander(ids("b"), job("x", page("a", "b")))),
	)
	require.NoError(t, err)
	assert.Equal(t, ids("a", "b", "m", "x"), rep.Executed())
}

func TestRun_ExpansionNotObsoleteIsSkipped(t *testing.T) {
	f := newFixture(t, map[string]string{"m": "m"})

	// x depends on nothing modified and has no resource of its own.
	rep, err := f.build(t, job("m", expander(nil, job("x", page()))))
	require.NoError(t, err)
	assert.Equal(t, ids("m"), rep.Executed())
	assert.Equal(t, 2, rep.Waves)
}

func TestRun_ExpansionRunsAheadOfPendingDependencies(t *testing.T) {
	f := newFixture(t, map[string]string{"m": "m", "p": "p", "q": "q"})

	// x needs p from the first wave but its wave still goes first.
	rep, err := f.build(t,
		job("m", expander(nil, job("x", page("p")))),
		job("p", page()),
		job("q", page()),
	)
	require.NoError(t, err)
	assert.Equal(t, ids("m", "x", "p", "q"), rep.Executed())
	assert.Contains(t, f.logs.String(), "msg=\"wave queued\" run_id=run-test id=m queued=3")
}

func TestRun_LoopAcrossWavesCompletes(t *testing.T) {
	f := newFixture(t, map[string]string{"m": "m", "p": "p"})

	rep, err := f.build(t,
		job("m", expander(nil, job("x", page("p")))),
		job("p", page("x")),
	)
	require.NoError(t, err)
	assert.Equal(t, ids("m", "x", "p"), rep.Executed())
}

func TestRun_WithHoistingPullsPendingDependencies(t *testing.T) {
	f := newFixture(t, map[string]string{"m": "m", "p": "p", "q": "q"})
	f.opts = []Option{WithHoisting()}

	rep, err := f.build(t,
		job("m", expander(nil, job("x", page("p")))),
		job("p", page()),
		job("q", page()),
	)
	require.NoError(t, err)
	assert.Equal(t, ids("m", "p", "x", "q"), rep.Executed())
}

func TestRun_WithHoistingRejectsLoopAcrossWaves(t *testing.T) {
	f := newFixture(t, map[string]string{"m": "m", "p": "p"})
	f.opts = []Option{WithHoisting()}

	_, err := f.build(t,
		job("m", expander(nil, job("x", page("p")))),
		job("p", page("x")),
	)
	require.Error(t, err)
	assert.True(t, IsCycleError(err))
	assert.True(t, errors.Is(err, solver.ErrCyclicDependency))
}

func TestRun_CycleInBatchAborts(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a", "b": "b"})

	rep, err := f.build(t, job("a", page("b")), job("b", page("a")))
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, IsCycleError(err))

	var ce *solver.CycleError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []string{"a", "b", "a"}, ce.Path)
	assert.Empty(t, f.writer.Writes())
}

func TestRun_DuplicateIdentifier(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a"})

	_, err := f.build(t, job("a", page()), job("a", page()))
	assert.True(t, IsDuplicateError(err))

	_, err = f.build(t, job("a", expander(nil, job("a", page()))))
	assert.True(t, IsDuplicateError(err))

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, ir.Identifier("a"), re.Identifier)
}

func TestRun_NilCompiler(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.build(t, compiler.Job{ID: "a"})
	assert.True(t, IsCompilerError(err))
}

func TestRun_CompilerFailureAbortsAndDoesNotCommit(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a", "b": "b", "c": "c"})
	require.NoError(t, f.routes.Add("*", route.Identity()))
	cause := errors.New("bad front matter")

	rep, err := f.build(t, job("a", page()), job("b", failing(cause)), job("c", page()))
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, IsCompilerError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, map[string]string{filepath.Join(outDir, "a"): "a"}, f.writer.Files())

	// Nothing was committed, so the next build redoes everything.
	rep, err = f.build(t, job("a", page()), job("b", page()), job("c", page()))
	require.NoError(t, err)
	assert.Equal(t, ids("a", "b", "c"), rep.Executed())
}

func TestRun_RoutingFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a"})
	require.NoError(t, f.routes.Add("a", route.Constant("../escape.html")))

	_, err := f.build(t, job("a", page()))
	assert.True(t, IsRoutingError(err))

	var re *RuntimeError
	require.True(t, errors.As(err, &re))
	assert.Equal(t, "../escape.html", re.Path)
}

func TestRun_WriteFailure(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a"})
	require.NoError(t, f.routes.Add("a", route.Identity()))
	f.writer.Err = errors.New("disk full")

	_, err := f.build(t, job("a", page()))
	assert.True(t, IsWriteError(err))
	assert.ErrorContains(t, err, "disk full")
}

func TestRun_ProviderUnavailable(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a"})
	f.res.Err = errors.New("offline")

	_, err := f.build(t, job("a", page()))
	assert.True(t, IsProviderError(err))
}

func TestRun_ContextCancelledBetweenJobs(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a", "b": "b"})
	require.NoError(t, f.routes.Add("*", route.Identity()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	stopper := compiler.Func{Run: func(context.Context, *compiler.Context) (compiler.Result, error) {
		cancel()
		return compiler.Done{Artifact: []byte("a")}, nil
	}}

	_, err := f.buildCtx(ctx, t, job("a", stopper), job("b", page()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.writer.Writes(), 1)
	assert.Contains(t, f.logs.String(), "pending=[b]")
}

func TestRun_LogsGeneratingAndRouted(t *testing.T) {
	f := newFixture(t, map[string]string{"a": "a"})
	require.NoError(t, f.routes.Add("a", route.Identity()))

	_, err := f.build(t, job("a", page()))
	require.NoError(t, err)

	logs := f.logs.String()
	assert.Contains(t, logs, "msg=generating run_id=run-test id=a wave=1 seq=1")
	assert.Contains(t, logs, "msg=routed run_id=run-test id=a path="+filepath.Join(outDir, "a"))
}

func TestRun_WritesDependencyGraph(t *testing.T) {
	f := newFixture(t, map[string]string{"index": "i", "template": "t"})
	f.env.GraphPath = filepath.Join(t.TempDir(), "diag", "dependencies.dot")

	_, err := f.build(t, job("index", page("template")), job("template", page()))
	require.NoError(t, err)

	data, err := os.ReadFile(f.env.GraphPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"index" -> "template"`)
}

func TestRun_DependencyGraphFailureIsAdvisory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	f := newFixture(t, map[string]string{"a": "a"})
	f.env.GraphPath = filepath.Join(blocker, "dependencies.dot")

	rep, err := f.build(t, job("a", page()))
	require.NoError(t, err)
	assert.Equal(t, ids("a"), rep.Executed())
	assert.Contains(t, f.logs.String(), "dependency graph not written")
}

func TestNew_Defaults(t *testing.T) {
	e := New(Environment{})
	_, ok := e.env.Routes.(route.None)
	assert.True(t, ok)
	assert.NotNil(t, e.env.Writer)
	assert.NotNil(t, e.logger)
}
