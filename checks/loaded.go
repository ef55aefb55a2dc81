package checks

import (
	"context"
	"fmt"
	"time"

	"pagecheck"
)

// lifecycleTimeout caps each lifecycle wait; the calling test's ctx may
// impose a tighter bound.
const lifecycleTimeout = 30 * time.Second

// PageIsLoaded waits for the document to be parsed (DOMContentLoaded) and
// fully loaded (load), then asserts document.readyState is "complete".
func PageIsLoaded(ctx context.Context, page *pagecheck.Page) error {
	if err := page.WaitForLifecycle(ctx, pagecheck.LifecycleDOMContentLoaded, lifecycleTimeout); err != nil {
		return fmt.Errorf("page did not reach DOMContentLoaded: %w", err)
	}
	if err := page.WaitForLifecycle(ctx, pagecheck.LifecycleLoad, lifecycleTimeout); err != nil {
		return fmt.Errorf("page did not finish loading: %w", err)
	}
	state, err := page.ReadyState(ctx)
	if err != nil {
		return fmt.Errorf("read document ready state: %w", err)
	}
	if state != "complete" {
		return fmt.Errorf("expected ready state %q, got %q", "complete", state)
	}
	return nil
}
