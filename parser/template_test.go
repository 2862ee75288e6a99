package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/liquidcore/ast"
	"github.com/aledsdavies/liquidcore/lqerr"
)

// ignorePosition drops every ast.Position field from the comparison: these
// tests assert tree shape, not source offsets.
var ignorePosition = cmpopts.IgnoreTypes(ast.Position{})

func TestParseEmptyInput(t *testing.T) {
	nodes, err := Parse("", Options{})
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestParsePlainText(t *testing.T) {
	nodes, err := Parse("Hello, World!", Options{})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	text, ok := nodes[0].(*ast.Text)
	require.True(t, ok)
	assert.Equal(t, "Hello, World!", text.Value)
}

func TestParseInterpolationAmongText(t *testing.T) {
	nodes, err := Parse("Hi {{ name }}!", Options{})
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.IsType(t, &ast.Text{}, nodes[0])
	interp, ok := nodes[1].(*ast.Interpolation)
	require.True(t, ok)
	v, ok := interp.Expr.(*ast.Variable)
	require.True(t, ok)
	assert.Equal(t, "name", v.Head)
	assert.IsType(t, &ast.Text{}, nodes[2])
}

func TestParseComment(t *testing.T) {
	nodes, err := Parse("A{# note #}B", Options{})
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	comment, ok := nodes[1].(*ast.Comment)
	require.True(t, ok)
	assert.Equal(t, " note ", comment.Value)
}

func TestParseTagKinds(t *testing.T) {
	nodes, err := Parse(`{% if a %}{% elsif b %}{% else %}{% endif %}{% for x in xs %}{% endfor %}{% assign y = 1 %}`, Options{})
	require.NoError(t, err)
	require.Len(t, nodes, 7)

	wantKinds := []ast.TagKind{
		ast.TagIf, ast.TagElsif, ast.TagElse, ast.TagEndIf, ast.TagFor, ast.TagEndFor, ast.TagAssign,
	}
	for i, want := range wantKinds {
		tag, ok := nodes[i].(*ast.Tag)
		require.True(t, ok, "node %d", i)
		assert.Equal(t, want, tag.Kind)
	}
}

func TestParseAssignTag(t *testing.T) {
	nodes, err := Parse(`{% assign total = 2 + 3 %}`, Options{})
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	tag := nodes[0].(*ast.Tag)
	assert.Equal(t, ast.TagAssign, tag.Kind)
	assert.Equal(t, "total", tag.Name)
	assert.IsType(t, &ast.Binary{}, tag.Value)
}

func TestParseForTag(t *testing.T) {
	nodes, err := Parse(`{% for item in items %}`, Options{})
	require.NoError(t, err)
	tag := nodes[0].(*ast.Tag)
	assert.Equal(t, "item", tag.LoopVar)
	assert.IsType(t, &ast.Variable{}, tag.Coll)
}

func TestParseWhitespaceTrim(t *testing.T) {
	// "A  {%- if true -%}  B  {%- endif -%}  C"  ⇒  "ABC" once rendered, but
	// the trim pass itself only needs to strip the Text nodes.
	nodes, err := Parse("A  {%- if true -%}  B  {%- endif -%}  C", Options{})
	require.NoError(t, err)

	var texts []string
	for _, n := range nodes {
		if text, ok := n.(*ast.Text); ok {
			texts = append(texts, text.Value)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, texts)
}

func TestParseTrimIdempotent(t *testing.T) {
	nodes, err := Parse("A  {%- if true -%}  B  {%- endif -%}  C", Options{})
	require.NoError(t, err)
	applyTrim(nodes) // running it again must be a no-op

	var texts []string
	for _, n := range nodes {
		if text, ok := n.(*ast.Text); ok {
			texts = append(texts, text.Value)
		}
	}
	assert.Equal(t, []string{"A", "B", "C"}, texts)
}

func TestParseUnterminatedTagIsSyntaxError(t *testing.T) {
	_, err := Parse(`{% if a`, Options{})
	var synErr *lqerr.SyntaxError
	require.ErrorAs(t, err, &synErr)
}

func TestParseSourceTooLarge(t *testing.T) {
	_, err := Parse("xxxxxxxxxx", Options{MaxSourceSize: 5})
	var tooLarge *lqerr.SourceTooLarge
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, 5, tooLarge.Max)
}

// TestParseFlatTreeShape compares the full flat node sequence against an
// expected tree, ignoring source positions, rather than picking fields off
// one node at a time.
func TestParseFlatTreeShape(t *testing.T) {
	nodes, err := Parse(`Hi {% if a %}X{% endif %}!`, Options{})
	require.NoError(t, err)

	want := []ast.Node{
		&ast.Text{Value: "Hi "},
		&ast.Tag{Kind: ast.TagIf, Cond: &ast.Variable{Head: "a"}},
		&ast.Text{Value: "X"},
		&ast.Tag{Kind: ast.TagEndIf},
		&ast.Text{Value: "!"},
	}

	if diff := cmp.Diff(want, nodes, ignorePosition); diff != "" {
		t.Errorf("parsed tree mismatch (-want +got):\n%s", diff)
	}
}
