package rules

import (
	"github.com/roach88/kiln/internal/builtin"
	"github.com/roach88/kiln/internal/compiler"
	"github.com/roach88/kiln/internal/ir"
	"github.com/roach88/kiln/internal/route"
)

// Lister selects the identifiers of the available resources.
type Lister interface {
	// Match returns the identifiers matching pattern in ascending order.
	Match(pattern string) []ir.Identifier
}

// Build binds compilers to resources and assembles the route table.
//
// Rules are applied in order. Within a rule identifiers are bound in
// ascending order, and the first rule to claim an identifier wins. A
// collection rule binds its own identifier and routes the listings it will
// generate under <prefix>/*; its members stay free for other rules.
func (rs *RuleSet) Build(resources Lister) ([]compiler.Job, *route.Table) {
	table := &route.Table{}
	claimed := make(map[ir.Identifier]bool)

	var jobs []compiler.Job
	for _, r := range rs.Rules {
		matched := resources.Match(r.Match)

		if r.Compiler == builtin.KindCollection {
			if claimed[r.Identifier] {
				continue
			}
			claimed[r.Identifier] = true
			if r.router != nil {
				// Add only fails on a bad pattern, which parseRule rejects.
				_ = table.Add(r.Prefix+"/*", r.router)
			}
			jobs = append(jobs, compiler.Job{
				ID: r.Identifier,
				Compiler: builtin.Collection{
					Members:  matched,
					GroupBy:  r.GroupBy,
					Prefix:   r.Prefix,
					Template: r.Template,
					Routes:   table,
				},
			})
			continue
		}

		for _, id := range matched {
			if claimed[id] {
				continue
			}
			claimed[id] = true
			if r.router != nil {
				table.Pin(id, r.router)
			}
			jobs = append(jobs, compiler.Job{ID: id, Compiler: r.compiler()})
		}
	}
	return jobs, table
}

func (r Rule) compiler() compiler.Compiler {
	switch r.Compiler {
	case builtin.KindTemplate:
		return builtin.Template{}
	case builtin.KindPage:
		return builtin.Page{Template: r.Template}
	default:
		return builtin.Copy{}
	}
}
