package checks

import (
	"context"
	"errors"
	"sync"
	"time"

	"pagecheck"
)

// TransientHidden asserts that every selector's element is hidden, or becomes
// hidden within maxVisible. Each selector's wait is independent and they run
// concurrently; all of them settle before the check returns, and every
// still-visible selector contributes its own error to the joined result. A
// selector with no matching element is trivially satisfied.
func TransientHidden(ctx context.Context, page *pagecheck.Page, selectors []string, maxVisible time.Duration) error {
	if len(selectors) == 0 {
		return nil
	}
	outcomes := make([]error, len(selectors))
	var wg sync.WaitGroup
	for i, selector := range selectors {
		wg.Add(1)
		go func(i int, selector string) {
			defer wg.Done()
			outcomes[i] = page.Locator(selector).WaitHidden(ctx, maxVisible)
		}(i, selector)
	}
	wg.Wait()
	return errors.Join(outcomes...)
}
