package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kiln/internal/ir"
)

func TestRouters(t *testing.T) {
	id := ir.Identifier("posts/hello.md")

	assert.Equal(t, "posts/hello.md", Identity()(id))
	assert.Equal(t, "posts/hello.html", SetExtension(".html")(id))
	assert.Equal(t, "posts/hello", SetExtension("")(id))
	assert.Equal(t, "tags/go.html", SetExtension(".html")("tags/go"), "no extension to replace")
	assert.Equal(t, "index.html", Constant("index.html")(id))
}

func TestParse(t *testing.T) {
	id := ir.Identifier("posts/hello.md")

	tests := []struct {
		spec string
		want string
	}{
		{"identity", "posts/hello.md"},
		{"ext:.html", "posts/hello.html"},
		{"ext:", "posts/hello"},
		{"const:feed.xml", "feed.xml"},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			r, err := Parse(tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r(id))
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, spec := range []string{"", "bogus", "ext:html", "const:", "identity:x"} {
		t.Run(spec, func(t *testing.T) {
			_, err := Parse(spec)
			assert.ErrorIs(t, err, ErrInvalidRoute)
		})
	}
}

func TestTable_FirstMatchWins(t *testing.T) {
	var table Table
	require.NoError(t, table.Add("posts/index.md", Constant("index.html")))
	require.NoError(t, table.Add("posts/*.md", SetExtension(".html")))

	p, ok := table.Route("posts/index.md")
	assert.True(t, ok)
	assert.Equal(t, "index.html", p)

	p, ok = table.Route("posts/a.md")
	assert.True(t, ok)
	assert.Equal(t, "posts/a.html", p)

	_, ok = table.Route("templates/post.html")
	assert.False(t, ok, "unmatched identifiers are unrouted")
	assert.Equal(t, 2, table.Len())
}

func TestTable_BadPattern(t *testing.T) {
	var table Table
	assert.ErrorIs(t, table.Add("posts/[", Identity()), ErrInvalidRoute)
}

func TestNone(t *testing.T) {
	_, ok := None{}.Route("anything")
	assert.False(t, ok)
}

func TestTable_PinnedWins(t *testing.T) {
	var table Table
	require.NoError(t, table.Add("posts/*", Identity()))
	table.Pin("posts/[draft].md", SetExtension(".html"))

	p, ok := table.Route("posts/[draft].md")
	assert.True(t, ok)
	assert.Equal(t, "posts/[draft].html", p)

	p, ok = table.Route("posts/a.md")
	assert.True(t, ok)
	assert.Equal(t, "posts/a.md", p)
	assert.Equal(t, 2, table.Len())
}
