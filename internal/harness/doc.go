// Package harness runs end-to-end build scenarios.
//
// A scenario is a content tree, a rule set and a sequence of builds. Each
// step edits the tree, runs a full build through build.Run against the same
// project directory, and checks what was executed and written. Because the
// state store persists between steps, scenarios exercise incremental
// behavior: no-op rebuilds, propagation through dependents, metacompiler
// expansion and recovery from failed builds.
//
// # Scenario Format
//
//	name: blog
//	description: "Posts and tag listings"
//	rules: |
//	  rules: posts: { match: "posts/*.md", compiler: "page", template: "t.html", route: "ext:.html" }
//	files:
//	  t.html: "<h1>${title}</h1>"
//	  posts/a.md: "---\ntitle: A\n---\n"
//	steps:
//	  - name: initial
//	    expect:
//	      executed: [t.html, posts/a.md]
//	      outputs: { posts/a.html: "<h1>A</h1>" }
//	  - name: edit
//	    write: { posts/a.md: "---\ntitle: B\n---\n" }
//	    expect:
//	      executed: [posts/a.md]
//
// Expectations: executed (exact order), contains, absent, waves, outputs
// (file content under the output root), missing, and error (a runtime
// error code such as COMPILER_FAILURE).
//
// # Deterministic Traces
//
// Run tokens are <scenario>-1, <scenario>-2, ... and step seq numbers
// restart at 1 for every build, so a scenario's trace is reproducible and
// can be compared with a golden file (see RunWithGolden).
package harness
