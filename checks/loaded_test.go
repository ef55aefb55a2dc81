package checks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageIsLoadedComplete(t *testing.T) {
	server, page := newTestPage(t)
	markLoaded(t, server)
	server.HandleEvaluate(func(expression string) any {
		if expression == "document.readyState" {
			return "complete"
		}
		return ""
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, PageIsLoaded(ctx, page))
}

func TestPageIsLoadedReportsReadyState(t *testing.T) {
	for _, state := range []string{"loading", "interactive"} {
		t.Run(state, func(t *testing.T) {
			server, page := newTestPage(t)
			markLoaded(t, server)
			server.HandleEvaluate(func(expression string) any {
				if expression == "document.readyState" {
					return state
				}
				return ""
			})

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			err := PageIsLoaded(ctx, page)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `"complete"`)
			assert.Contains(t, err.Error(), state)
		})
	}
}

func TestPageIsLoadedFailsWhenLoadNeverFires(t *testing.T) {
	server, page := newTestPage(t)
	require.NoError(t, server.Emit("Page.lifecycleEvent", map[string]any{"name": "DOMContentLoaded"}, "session-1"))

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	err := PageIsLoaded(ctx, page)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not finish loading")
}
