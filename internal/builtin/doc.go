// Package builtin provides the compilers a rule set can bind to identifiers.
//
//	copy        artifact is the resource itself
//	template    validates an HCL template and caches its source
//	page        renders a document with YAML front matter through a template
//	collection  groups documents by a front matter field and expands into
//	            one listing per group
//
// Templates use HCL template syntax:
//
//	<h1>${title}</h1>
//	%{ for item in items ~}
//	<a href="${item.url}">${item.title}</a>
//	%{ endfor ~}
package builtin
