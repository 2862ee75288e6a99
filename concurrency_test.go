package liquidcore_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	liquidcore "github.com/aledsdavies/liquidcore"
	"github.com/aledsdavies/liquidcore/filter"
	"github.com/aledsdavies/liquidcore/value"
)

// TestConcurrentRenderSharedTemplate verifies that a single compiled
// Template can be rendered concurrently from many goroutines, each with
// its own context and output, without data races or cross-talk.
func TestConcurrentRenderSharedTemplate(t *testing.T) {
	t.Parallel()

	tmpl, err := liquidcore.Compile(
		`{% for x in items %}{{ x | double }}{% if forloop.last %}{% else %},{% endif %}{% endfor %}`,
		liquidcore.CompileOptions{},
	)
	require.NoError(t, err)

	reg := filter.NewRegistry()
	reg.Register("double", func(args []value.Value) (value.Value, error) {
		n := args[0].(value.Int)
		return value.Int(n * 2), nil
	})

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]string, goroutines)
	errs := make([]error, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx := map[string]value.Value{
				"items": value.List{value.Int(n), value.Int(n + 1), value.Int(n + 2)},
			}
			out, err := liquidcore.Render(tmpl, ctx, liquidcore.RenderOptions{Filters: reg})
			if err != nil {
				errs[n] = err
				return
			}
			results[n] = out.(string)
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		require.NoError(t, errs[i])
		want := fmt.Sprintf("%d,%d,%d", i*2, (i+1)*2, (i+2)*2)
		assert.Equal(t, want, results[i])
	}
}

// TestConcurrentRenderDoesNotMutateSharedTemplate checks that rendering the
// same assign-bearing template many times in parallel never lets one
// goroutine's assignment leak into another's output, since each Render call
// owns its own Context scope stack over the same immutable AST.
func TestConcurrentRenderDoesNotMutateSharedTemplate(t *testing.T) {
	t.Parallel()

	tmpl, err := liquidcore.Compile(`{% assign y = x * x %}{{ y }}`, liquidcore.CompileOptions{})
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]string, goroutines)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ctx := map[string]value.Value{"x": value.Int(n)}
			out, err := liquidcore.Render(tmpl, ctx, liquidcore.RenderOptions{})
			require.NoError(t, err)
			results[n] = out.(string)
		}(i)
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		assert.Equal(t, fmt.Sprintf("%d", i*i), results[i])
	}
}
