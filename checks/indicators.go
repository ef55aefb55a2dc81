package checks

import (
	"context"
	"time"

	"pagecheck"
)

// IndicatorOptions overrides the defaults of NoLoadingIndicators. The zero
// value means the built-in selector profile and a max visible time of 0,
// i.e. indicators must already be hidden at check time.
type IndicatorOptions struct {
	Profile    *SelectorProfile
	MaxVisible time.Duration
}

// NoLoadingIndicators asserts that no known loading indicator (spinner or
// progress bar) stays visible. It delegates to TransientHidden with the
// DefaultLoadingSelectors profile unless overridden.
func NoLoadingIndicators(ctx context.Context, page *pagecheck.Page, opts IndicatorOptions) error {
	profile := DefaultLoadingSelectors()
	if opts.Profile != nil {
		profile = *opts.Profile
	}
	return TransientHidden(ctx, page, profile.Selectors, opts.MaxVisible)
}
