package filter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/liquidcore/filter"
	"github.com/aledsdavies/liquidcore/lqerr"
	"github.com/aledsdavies/liquidcore/value"
)

func TestRegistryLookupHit(t *testing.T) {
	r := filter.NewRegistry()
	r.Register("upcase", func(args []value.Value) (value.Value, error) {
		s, ok := args[0].(value.String)
		require.True(t, ok)
		return value.String(string(s) + "!"), nil
	})

	fn, err := r.Lookup("upcase", lqerr.Position{})
	require.NoError(t, err)

	out, err := fn([]value.Value{value.String("hi")})
	require.NoError(t, err)
	assert.Equal(t, value.String("hi!"), out)
}

func TestRegistryLookupMissSuggests(t *testing.T) {
	r := filter.NewRegistry()
	r.Register("capitalize", func(args []value.Value) (value.Value, error) { return args[0], nil })

	_, err := r.Lookup("capitalise", lqerr.Position{Line: 1, Column: 1})

	var unknown *lqerr.UnknownFilter
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "capitalise", unknown.Name)
	assert.Equal(t, "capitalize", unknown.Suggestion)
}

func TestRegistryLookupMissEmpty(t *testing.T) {
	r := filter.NewRegistry()
	_, err := r.Lookup("anything", lqerr.Position{})

	var unknown *lqerr.UnknownFilter
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "", unknown.Suggestion)
}
