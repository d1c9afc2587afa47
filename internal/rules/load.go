// Package rules loads a site's rule set from CUE and turns it into the
// initial batch of jobs and the route table.
//
// A rule set is a struct of named rules, evaluated in declaration order:
//
//	rules: posts: {
//		match:    "posts/*.md"
//		compiler: "page"
//		template: "templates/post.html"
//		route:    "ext:.html"
//	}
package rules

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/kiln/internal/builtin"
	"github.com/roach88/kiln/internal/ir"
	"github.com/roach88/kiln/internal/route"
)

//go:embed schema.cue
var schemaSource string

// ErrUnknownCompiler is returned when a rule names a compiler kind that
// does not exist.
var ErrUnknownCompiler = errors.New("unknown compiler")

// LoadError is a rule set problem, with the CUE position when known.
type LoadError struct {
	Rule    string
	Message string
	Pos     token.Pos
	Err     error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Rule != "" {
		msg = fmt.Sprintf("rule %s: %s", e.Rule, msg)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), msg)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Rule is one validated rule.
type Rule struct {
	Name     string
	Compiler string
	Match    string

	// Template is the template identifier for page and collection rules.
	Template ir.Identifier

	// Route is the route specification; empty means unrouted.
	Route string

	// Identifier, GroupBy and Prefix configure collection rules.
	Identifier ir.Identifier
	GroupBy    string
	Prefix     string

	Pos    token.Pos
	router route.Router
}

// RuleSet is an ordered list of rules.
type RuleSet struct {
	Rules []Rule
}

// Load reads a rule set from a CUE file, or from every CUE file of a
// directory.
func Load(path string) (*RuleSet, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &LoadError{Message: fmt.Sprintf("rules not found: %s", path), Err: err}
	}

	cfg := &load.Config{Dir: path}
	args := []string{"."}
	if !info.IsDir() {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, &LoadError{Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError("", inst.Err)
	}

	ctx := cuecontext.New()
	return build(ctx, ctx.BuildInstance(inst))
}

// Parse reads a rule set from CUE source. name is used in positions.
func Parse(name string, src []byte) (*RuleSet, error) {
	ctx := cuecontext.New()
	return build(ctx, ctx.CompileBytes(src, cue.Filename(name)))
}

func build(ctx *cue.Context, value cue.Value) (*RuleSet, error) {
	if err := value.Err(); err != nil {
		return nil, formatCUEError("", err)
	}

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Unify(value).Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError("", err)
	}

	// Read from the user's value so positions point into their file.
	rulesVal := value.LookupPath(cue.ParsePath("rules"))
	if !rulesVal.Exists() {
		return nil, &LoadError{Message: "no rules defined", Pos: value.Pos()}
	}

	iter, err := rulesVal.Fields()
	if err != nil {
		return nil, formatCUEError("", err)
	}

	rs := &RuleSet{}
	for iter.Next() {
		r, err := parseRule(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		rs.Rules = append(rs.Rules, r)
	}
	if len(rs.Rules) == 0 {
		return nil, &LoadError{Message: "no rules defined", Pos: rulesVal.Pos()}
	}
	return rs, nil
}

func parseRule(name string, v cue.Value) (Rule, error) {
	r := Rule{Name: name, Pos: v.Pos()}

	var err error
	str := func(field string) string {
		if err != nil {
			return ""
		}
		f := v.LookupPath(cue.ParsePath(field))
		if !f.Exists() {
			return ""
		}
		var s string
		s, err = f.String()
		return s
	}

	r.Compiler = str("compiler")
	r.Match = str("match")
	r.Template = ir.NewIdentifier(str("template"))
	r.Route = str("route")
	r.Identifier = ir.NewIdentifier(str("identifier"))
	r.GroupBy = str("group_by")
	r.Prefix = str("prefix")
	if err != nil {
		return r, formatCUEError(name, err)
	}

	fail := func(format string, args ...any) (Rule, error) {
		return r, &LoadError{Rule: name, Message: fmt.Sprintf(format, args...), Pos: r.Pos}
	}

	switch r.Compiler {
	case builtin.KindCopy, builtin.KindTemplate, builtin.KindPage:
		if r.Match == "" {
			return fail("match is required")
		}
	case builtin.KindCollection:
		switch {
		case r.Match == "":
			return fail("match is required")
		case r.Identifier == "":
			return fail("identifier is required")
		case r.GroupBy == "":
			return fail("group_by is required")
		case r.Template == "":
			return fail("template is required")
		}
		if r.Prefix == "" {
			r.Prefix = string(r.Identifier)
		}
		r.Prefix = string(ir.NewIdentifier(r.Prefix))
		if !validPattern(r.Prefix + "/*") {
			return fail("bad prefix %q", r.Prefix)
		}
	default:
		return r, &LoadError{
			Rule:    name,
			Message: fmt.Sprintf("compiler %q", r.Compiler),
			Pos:     r.Pos,
			Err:     ErrUnknownCompiler,
		}
	}

	if !validPattern(r.Match) {
		return fail("bad match pattern %q", r.Match)
	}

	if r.Route != "" {
		router, err := route.Parse(r.Route)
		if err != nil {
			return r, &LoadError{Rule: name, Message: err.Error(), Pos: r.Pos, Err: err}
		}
		r.router = router
	}
	return r, nil
}

func validPattern(p string) bool {
	_, err := path.Match(p, "")
	return err == nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(rule string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Rule: rule, Message: err.Error(), Err: err}
	}
	first := errs[0]
	le := &LoadError{Rule: rule, Message: first.Error(), Err: err}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
