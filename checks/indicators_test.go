package checks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoLoadingIndicatorsDefaults(t *testing.T) {
	server, page := newTestPage(t)
	scriptSelectorVisibility(server) // nothing visible

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	assert.NoError(t, NoLoadingIndicators(ctx, page, IndicatorOptions{}))
}

func TestNoLoadingIndicatorsDetectsDefaultSpinner(t *testing.T) {
	server, page := newTestPage(t)
	scriptSelectorVisibility(server, ".spinner-border")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := NoLoadingIndicators(ctx, page, IndicatorOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".spinner-border")
}

func TestNoLoadingIndicatorsProfileOverride(t *testing.T) {
	server, page := newTestPage(t)
	// The default spinner stays visible, but the override profile does not
	// watch it.
	scriptSelectorVisibility(server, ".spinner")

	profile := SelectorProfile{Name: "custom", Version: 1, Selectors: []string{".my-loader"}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	assert.NoError(t, NoLoadingIndicators(ctx, page, IndicatorOptions{Profile: &profile}))

	scriptSelectorVisibility(server, ".my-loader")
	err := NoLoadingIndicators(ctx, page, IndicatorOptions{Profile: &profile})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".my-loader")
}

func TestNoLoadingIndicatorsMaxVisibleOverride(t *testing.T) {
	server, page := newTestPage(t)
	started := time.Now()
	server.HandleEvaluate(func(expression string) any {
		// .spinner stays visible for the first 300ms, then disappears.
		if strings.Contains(expression, `(".spinner")`) {
			return time.Since(started) < 300*time.Millisecond
		}
		return false
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	assert.NoError(t, NoLoadingIndicators(ctx, page, IndicatorOptions{MaxVisible: 2 * time.Second}))
}
