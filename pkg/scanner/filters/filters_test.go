package filters

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

// countingFilter records invocations so dispatch tests can assert which
// checkpoints actually ran a filter.
func countingFilter(name string, params []Param, suppress bool, calls *int) Filter {
	return Filter{
		Name:       name,
		Parameters: params,
		Predicate: func(Request) (bool, error) {
			*calls++
			return suppress, nil
		},
	}
}

func TestChainDispatch(t *testing.T) {
	t.Run("secret filter does not run at the file checkpoint", func(t *testing.T) {
		calls := 0
		chain := NewChain(countingFilter("by_secret", []Param{ParamSecret}, true, &calls))

		suppressed := chain.IsFilteredOut(NewRequest().WithFilename("a.txt"), ParamFilename)
		assert.False(t, suppressed)
		assert.Equal(t, 0, calls)
	})

	t.Run("filename and secret filter waits for its secret", func(t *testing.T) {
		calls := 0
		chain := NewChain(countingFilter("by_both", []Param{ParamFilename, ParamSecret}, true, &calls))

		// Declares filename, so it is eligible at the file checkpoint, but the
		// request carries no secret value and the filter must not run.
		suppressed := chain.IsFilteredOut(NewRequest().WithFilename("a.txt"), ParamFilename)
		assert.False(t, suppressed)
		assert.Equal(t, 0, calls)

		req := NewRequest().WithFilename("a.txt").WithSecret("hunter2")
		assert.True(t, chain.IsFilteredOut(req, ParamSecret))
		assert.Equal(t, 1, calls)
	})

	t.Run("superset filter runs for a smaller required set", func(t *testing.T) {
		calls := 0
		chain := NewChain(countingFilter("by_both", []Param{ParamFilename, ParamSecret}, false, &calls))

		req := NewRequest().WithFilename("a.txt").WithSecret("hunter2")
		assert.False(t, chain.IsFilteredOut(req, ParamSecret))
		assert.Equal(t, 1, calls)
	})

	t.Run("short circuits on the first suppression", func(t *testing.T) {
		first, second := 0, 0
		chain := NewChain(
			countingFilter("first", []Param{ParamSecret}, true, &first),
			countingFilter("second", []Param{ParamSecret}, true, &second),
		)

		assert.True(t, chain.IsFilteredOut(NewRequest().WithSecret("hunter2"), ParamSecret))
		assert.Equal(t, 1, first)
		assert.Equal(t, 0, second)
	})

	t.Run("predicate errors count as not suppressed", func(t *testing.T) {
		chain := NewChain(Filter{
			Name:       "broken",
			Parameters: []Param{ParamSecret},
			Predicate: func(Request) (bool, error) {
				return true, errors.New("not applicable here")
			},
		})

		assert.False(t, chain.IsFilteredOut(NewRequest().WithSecret("hunter2"), ParamSecret))
	})

	t.Run("empty chain never suppresses", func(t *testing.T) {
		chain := NewChain()
		assert.False(t, chain.IsFilteredOut(NewRequest().WithFilename("a.txt"), ParamFilename))
	})
}

func TestChainWithout(t *testing.T) {
	calls := 0
	chain := NewChain(
		countingFilter("keep", []Param{ParamSecret}, false, &calls),
		countingFilter("drop", []Param{ParamSecret}, true, &calls),
	)

	derived := chain.Without("drop")
	assert.Len(t, derived.Filters(), 1)
	assert.False(t, derived.IsFilteredOut(NewRequest().WithSecret("hunter2"), ParamSecret))

	// The original chain is untouched.
	assert.Len(t, chain.Filters(), 2)
	assert.True(t, chain.IsFilteredOut(NewRequest().WithSecret("hunter2"), ParamSecret))
}

func TestRequestHas(t *testing.T) {
	req := NewRequest().WithLine("")
	assert.True(t, req.Has(ParamLine), "an explicitly supplied empty value still counts as supplied")
	assert.False(t, req.Has(ParamSecret))
}
