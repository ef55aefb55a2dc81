package checks

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pagecheck"
	"pagecheck/cdptest"
)

func newTestPage(t *testing.T) (*cdptest.Server, *pagecheck.Page) {
	t.Helper()
	server := cdptest.NewServer()
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	browser := pagecheck.NewBrowser(server.URL(), nil)
	require.NoError(t, browser.Connect(ctx))
	t.Cleanup(func() { _ = browser.Close() })

	page := browser.CurrentPage()
	require.NotNil(t, page)
	return server, page
}

// markLoaded latches the parse and load lifecycle events so load-state waits
// complete immediately.
func markLoaded(t *testing.T, server *cdptest.Server) {
	t.Helper()
	require.NoError(t, server.Emit("Page.lifecycleEvent", map[string]any{"name": "DOMContentLoaded"}, "session-1"))
	require.NoError(t, server.Emit("Page.lifecycleEvent", map[string]any{"name": "load"}, "session-1"))
}

// scriptBody serves the given markup as the document body's inner HTML.
func scriptBody(server *cdptest.Server, markup string) {
	server.HandleEvaluate(func(expression string) any {
		if strings.Contains(expression, "document.body") {
			return markup
		}
		return ""
	})
}

// scriptSelectorVisibility makes exactly the listed selectors visible.
func scriptSelectorVisibility(server *cdptest.Server, visible ...string) {
	server.HandleEvaluate(func(expression string) any {
		for _, selector := range visible {
			if strings.Contains(expression, `("`+selector+`")`) {
				return true
			}
		}
		return false
	})
}
