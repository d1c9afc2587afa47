package builtin

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/zclconf/go-cty/cty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/kiln/internal/compiler"
	"github.com/roach88/kiln/internal/ir"
	"github.com/roach88/kiln/internal/route"
)

var lower = cases.Lower(language.Und)

// Slug turns a group name into a path segment: lower case, runs of anything
// but letters and digits collapsed to "-".
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range lower.String(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Collection is a metacompiler. It groups its members by a front matter
// field and expands into one Listing per group, bound to <prefix>/<slug>.
type Collection struct {
	Members  []ir.Identifier
	GroupBy  string
	Prefix   string
	Template ir.Identifier

	// Routes resolves member URLs for the listings.
	Routes route.Policy
}

// Dependencies implements compiler.Compiler.
func (c Collection) Dependencies(compiler.Resources) []ir.Identifier {
	return withTemplate(c.Members, c.Template)
}

// Compile implements compiler.Compiler.
func (c Collection) Compile(_ context.Context, cc *compiler.Context) (compiler.Result, error) {
	type group struct {
		title   string
		members []ir.Identifier
	}
	groups := map[string]*group{}

	for _, m := range c.Members {
		doc, err := readDocument(cc.Resources, m)
		if err != nil {
			return nil, err
		}
		seen := map[string]bool{}
		for _, name := range doc.Strings(c.GroupBy) {
			slug := Slug(name)
			if slug == "" || seen[slug] {
				continue
			}
			seen[slug] = true
			g, ok := groups[slug]
			if !ok {
				g = &group{title: name}
				groups[slug] = g
			}
			g.members = append(g.members, m)
		}
	}

	slugs := make([]string, 0, len(groups))
	for s := range groups {
		slugs = append(slugs, s)
	}
	slices.Sort(slugs)

	batch := make([]compiler.Job, 0, len(slugs))
	for _, s := range slugs {
		g := groups[s]
		batch = append(batch, compiler.Job{
			ID: ir.NewIdentifier(c.Prefix + "/" + s),
			Compiler: Listing{
				Title:    g.title,
				Members:  ir.Sort(g.members),
				Template: c.Template,
				Routes:   c.Routes,
			},
		})
	}
	return compiler.Expand{Batch: batch}, nil
}

// Listing renders an index of documents.
//
// Template variables: id, title, url and items, a list of objects with id,
// url and title.
type Listing struct {
	Title    string
	Members  []ir.Identifier
	Template ir.Identifier
	Routes   route.Policy
}

// Dependencies implements compiler.Compiler.
func (l Listing) Dependencies(compiler.Resources) []ir.Identifier {
	return withTemplate(l.Members, l.Template)
}

// Compile implements compiler.Compiler.
func (l Listing) Compile(ctx context.Context, c *compiler.Context) (compiler.Result, error) {
	routes := l.Routes
	if routes == nil {
		routes = route.None{}
	}

	items := make([]cty.Value, 0, len(l.Members))
	for _, m := range l.Members {
		doc, err := readDocument(c.Resources, m)
		if err != nil {
			return nil, err
		}
		items = append(items, cty.ObjectVal(map[string]cty.Value{
			"id":    cty.StringVal(string(m)),
			"url":   cty.StringVal(URL(routes.Route(m))),
			"title": cty.StringVal(doc.Title(string(m))),
		}))
	}

	tmpl, err := loadTemplate(ctx, c, l.Template)
	if err != nil {
		return nil, err
	}
	out, err := Render(tmpl, map[string]cty.Value{
		"id":    cty.StringVal(string(c.ID)),
		"title": cty.StringVal(l.Title),
		"url":   cty.StringVal(URL(c.Route, c.Routed)),
		"items": cty.TupleVal(items),
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.ID, err)
	}
	return compiler.Done{Artifact: out}, nil
}

func readDocument(r compiler.Resources, id ir.Identifier) (Document, error) {
	data, err := r.Read(id)
	if err != nil {
		return Document{}, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", id, err)
	}
	return doc, nil
}

func withTemplate(ids []ir.Identifier, tmpl ir.Identifier) []ir.Identifier {
	out := slices.Clone(ids)
	if tmpl != "" {
		out = append(out, tmpl)
	}
	return out
}
