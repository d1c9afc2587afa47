package builtin

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/kiln/internal/compiler"
	"github.com/roach88/kiln/internal/ir"
)

// Compiler kinds accepted by rule sets.
const (
	KindCopy       = "copy"
	KindTemplate   = "template"
	KindPage       = "page"
	KindCollection = "collection"
)

// TemplateKey is the item store key under which template sources are cached.
const TemplateKey = "template"

// Copy emits the resource unchanged.
type Copy struct{}

// Dependencies implements compiler.Compiler.
func (Copy) Dependencies(compiler.Resources) []ir.Identifier { return nil }

// Compile implements compiler.Compiler.
func (Copy) Compile(_ context.Context, c *compiler.Context) (compiler.Result, error) {
	data, err := c.Resources.Read(c.ID)
	if err != nil {
		return nil, err
	}
	return compiler.Done{Artifact: data}, nil
}

// Template validates a template resource and caches its source in the item
// store, where pages and listings pick it up.
type Template struct{}

// Dependencies implements compiler.Compiler.
func (Template) Dependencies(compiler.Resources) []ir.Identifier { return nil }

// Compile implements compiler.Compiler.
func (Template) Compile(ctx context.Context, c *compiler.Context) (compiler.Result, error) {
	src, err := c.Resources.Read(c.ID)
	if err != nil {
		return nil, err
	}
	if _, err := ParseTemplate(string(c.ID), src); err != nil {
		return nil, err
	}
	if err := c.Store.SaveItem(ctx, TemplateKey, c.ID, src); err != nil {
		return nil, err
	}
	return compiler.Done{Artifact: src}, nil
}

// loadTemplate returns the parsed template id, preferring the cached source
// and falling back to the resource.
func loadTemplate(ctx context.Context, c *compiler.Context, id ir.Identifier) (hcl.Expression, error) {
	src, ok, err := c.Store.LoadItem(ctx, TemplateKey, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		if src, err = c.Resources.Read(id); err != nil {
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
	}
	return ParseTemplate(string(id), src)
}

// URL turns a route into a site-absolute URL. Unrouted items have none.
func URL(rel string, routed bool) string {
	if !routed {
		return ""
	}
	return "/" + rel
}

// Page renders a document through a template.
//
// Template variables: id, url, body and every front matter field whose name
// is a valid identifier. Without a template the body is emitted as is.
type Page struct {
	Template ir.Identifier
}

// Dependencies implements compiler.Compiler.
func (p Page) Dependencies(compiler.Resources) []ir.Identifier {
	if p.Template == "" {
		return nil
	}
	return []ir.Identifier{p.Template}
}

// Compile implements compiler.Compiler.
func (p Page) Compile(ctx context.Context, c *compiler.Context) (compiler.Result, error) {
	data, err := c.Resources.Read(c.ID)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.ID, err)
	}
	if p.Template == "" {
		return compiler.Done{Artifact: doc.Body}, nil
	}

	tmpl, err := loadTemplate(ctx, c, p.Template)
	if err != nil {
		return nil, err
	}
	vars, err := metaVars(doc.Meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.ID, err)
	}
	vars["id"] = cty.StringVal(string(c.ID))
	vars["url"] = cty.StringVal(URL(c.Route, c.Routed))
	vars["body"] = cty.StringVal(string(doc.Body))

	out, err := Render(tmpl, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", c.ID, err)
	}
	return compiler.Done{Artifact: out}, nil
}
