package liquidcore_test

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	liquidcore "github.com/aledsdavies/liquidcore"
	"github.com/aledsdavies/liquidcore/filter"
	"github.com/aledsdavies/liquidcore/value"
)

type scenario struct {
	Name     string         `yaml:"name"`
	Template string         `yaml:"template"`
	Context  map[string]any `yaml:"context"`
	Want     string         `yaml:"want"`
}

func loadScenarios(t *testing.T) []scenario {
	t.Helper()
	raw, err := os.ReadFile("testdata/scenarios.yaml")
	require.NoError(t, err)
	var scenarios []scenario
	require.NoError(t, yaml.Unmarshal(raw, &scenarios))
	return scenarios
}

// toValue converts a value decoded by yaml.v3 (map[string]any, []any,
// string, int, float64, bool, nil) into a value.Value context.
func toValue(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Nil{}
	case bool:
		return value.Bool(t)
	case int:
		return value.Int(int64(t))
	case float64:
		return value.Float(t)
	case string:
		return value.String(t)
	case []any:
		list := make(value.List, len(t))
		for i, e := range t {
			list[i] = toValue(e)
		}
		return list
	case map[string]any:
		m := value.NewMap()
		for k, e := range t {
			m.Set(k, toValue(e))
		}
		return m
	default:
		return value.Nil{}
	}
}

func testFilters() *filter.Registry {
	reg := filter.NewRegistry()
	reg.Register("capitalize", func(args []value.Value) (value.Value, error) {
		s := string(args[0].(value.String))
		if s == "" {
			return value.String(""), nil
		}
		return value.String(strings.ToUpper(s[:1]) + s[1:]), nil
	})
	return reg
}

func TestScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t) {
		t.Run(sc.Name, func(t *testing.T) {
			tmpl, err := liquidcore.Compile(sc.Template, liquidcore.CompileOptions{})
			require.NoError(t, err)

			ctx := map[string]value.Value{}
			for k, v := range sc.Context {
				ctx[k] = toValue(v)
			}

			out, err := liquidcore.Render(tmpl, ctx, liquidcore.RenderOptions{Filters: testFilters()})
			require.NoError(t, err)
			assert.Equal(t, sc.Want, out)
		})
	}
}

func TestRenderPreserveTypesSingleInterpolation(t *testing.T) {
	tmpl, err := liquidcore.Compile("{{ (2 + 3) * 4 }}", liquidcore.CompileOptions{})
	require.NoError(t, err)

	out, err := liquidcore.Render(tmpl, nil, liquidcore.RenderOptions{PreserveTypes: true})
	require.NoError(t, err)
	assert.Equal(t, value.Int(20), out)
}

func TestRenderPreserveTypesIgnoredForMixedContent(t *testing.T) {
	tmpl, err := liquidcore.Compile("answer: {{ 42 }}", liquidcore.CompileOptions{})
	require.NoError(t, err)

	out, err := liquidcore.Render(tmpl, nil, liquidcore.RenderOptions{PreserveTypes: true})
	require.NoError(t, err)
	assert.Equal(t, "answer: 42", out)
}

func TestRoundTripPlainText(t *testing.T) {
	const s = "no delimiters here, just words."
	tmpl, err := liquidcore.Compile(s, liquidcore.CompileOptions{})
	require.NoError(t, err)
	out, err := liquidcore.Render(tmpl, nil, liquidcore.RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, s, out)
}

func TestFilterPipeEquivalence(t *testing.T) {
	reg := filter.NewRegistry()
	reg.Register("add", func(args []value.Value) (value.Value, error) {
		a := args[0].(value.Int)
		b := args[1].(value.Int)
		return value.Int(a + b), nil
	})

	piped, err := liquidcore.Compile("{{ x | add(4) }}", liquidcore.CompileOptions{})
	require.NoError(t, err)
	direct, err := liquidcore.Compile("{{ add(x, 4) }}", liquidcore.CompileOptions{})
	require.NoError(t, err)

	ctx := map[string]value.Value{"x": value.Int(3)}
	out1, err := liquidcore.Render(piped, ctx, liquidcore.RenderOptions{Filters: reg})
	require.NoError(t, err)
	out2, err := liquidcore.Render(direct, ctx, liquidcore.RenderOptions{Filters: reg})
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestBlockWellFormedness(t *testing.T) {
	_, err := liquidcore.Compile("{% if a %}x{% endif %}", liquidcore.CompileOptions{})
	assert.NoError(t, err)

	_, err = liquidcore.Compile("{% if a %}x", liquidcore.CompileOptions{})
	assert.Error(t, err)

	_, err = liquidcore.Compile("{% elsif a %}", liquidcore.CompileOptions{})
	assert.Error(t, err)
}
