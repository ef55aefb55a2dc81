package checks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pagecheck"
)

// NetworkOptions controls how long NoUnhandledNetworkFailures observes before
// asserting. The zero value asserts against whatever has arrived by the time
// the watcher is installed, which only catches failures occurring while the
// check runs; set Observe or UntilIdle to widen the window.
type NetworkOptions struct {
	// Observe keeps collecting failures for this duration before asserting.
	Observe time.Duration
	// UntilIdle waits for the network-idle lifecycle event instead of a
	// fixed duration, bounded by IdleTimeout (default 30s).
	UntilIdle   bool
	IdleTimeout time.Duration
}

// NoUnhandledNetworkFailures asserts that no stylesheet or script request
// fails during the observation window. The watcher it installs is removed
// before the check returns, whatever the outcome.
func NoUnhandledNetworkFailures(ctx context.Context, page *pagecheck.Page, opts NetworkOptions) error {
	watcher := pagecheck.NewFailureWatcher(page)
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("install network failure watcher: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = watcher.Stop(stopCtx)
	}()

	switch {
	case opts.UntilIdle:
		timeout := opts.IdleTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		if err := watcher.ObserveUntilIdle(ctx, timeout); err != nil {
			return fmt.Errorf("wait for network idle: %w", err)
		}
	case opts.Observe > 0:
		if err := watcher.ObserveFor(ctx, opts.Observe); err != nil {
			return err
		}
	}

	failures := watcher.Failures()
	if len(failures) == 0 {
		return nil
	}
	details := make([]string, 0, len(failures))
	for _, f := range failures {
		name := f.URL
		if name == "" {
			name = f.RequestID
		}
		details = append(details, fmt.Sprintf("%s (%s: %s)", name, f.ResourceType, f.ErrorText))
	}
	return fmt.Errorf("%d stylesheet/script request(s) failed: %s", len(failures), strings.Join(details, ", "))
}
