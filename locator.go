package pagecheck

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Locator addresses elements on a page by CSS selector. It holds no element
// reference; every query re-evaluates against the live document.
type Locator struct {
	page     *Page
	selector string
}

func (l *Locator) Selector() string {
	return l.selector
}

// Count returns the number of elements currently matching the selector.
func (l *Locator) Count(ctx context.Context) (int, error) {
	out, err := l.page.Evaluate(ctx, "(sel) => document.querySelectorAll(sel).length", l.selector)
	if err != nil {
		return 0, err
	}
	count, err := strconv.Atoi(out)
	if err != nil {
		return 0, fmt.Errorf("unexpected count for %q: %q", l.selector, out)
	}
	return count, nil
}

const visibilityScript = `(sel) => {
	const el = document.querySelector(sel);
	if (!el) return false;
	const style = window.getComputedStyle(el);
	if (style.visibility === 'hidden' || style.display === 'none') return false;
	return el.getClientRects().length > 0;
}`

// IsVisible reports whether the first element matching the selector is
// rendered: attached, not display:none or visibility:hidden, and laid out
// with at least one client rect. A selector with no matches is not visible.
func (l *Locator) IsVisible(ctx context.Context) (bool, error) {
	out, err := l.page.Evaluate(ctx, visibilityScript, l.selector)
	if err != nil {
		return false, err
	}
	return out == "true", nil
}

// WaitHidden polls until the element is hidden (or absent), tolerating
// elements that stay visible up to the given duration. A non-positive
// duration means a single immediate evaluation. The returned error names the
// selector and the configured duration.
func (l *Locator) WaitHidden(ctx context.Context, within time.Duration) error {
	visible, err := l.IsVisible(ctx)
	if err != nil {
		return fmt.Errorf("evaluate visibility of %q: %w", l.selector, err)
	}
	if !visible {
		return nil
	}
	if within <= 0 {
		return fmt.Errorf("element %q is visible (max visible time 0s)", l.selector)
	}
	interval := 100 * time.Millisecond
	if quarter := within / 4; quarter < interval {
		interval = quarter
	}
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	deadline := time.NewTimer(within)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			// One last evaluation so an element that went hidden between
			// the final tick and the deadline still passes.
			visible, err := l.IsVisible(ctx)
			if err == nil && !visible {
				return nil
			}
			return fmt.Errorf("element %q still visible after %s", l.selector, within)
		case <-ticker.C:
			visible, err := l.IsVisible(ctx)
			if err != nil {
				continue
			}
			if !visible {
				return nil
			}
		}
	}
}
