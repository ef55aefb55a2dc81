package checks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"pagecheck"
)

// BasicContentPresence asserts that rendering produced something at all: the
// serialized body markup, whitespace-trimmed, must be non-empty. No semantic
// validation of the content is attempted.
func BasicContentPresence(ctx context.Context, page *pagecheck.Page) error {
	markup, err := page.BodyHTML(ctx)
	if err != nil {
		return fmt.Errorf("read body markup: %w", err)
	}
	if strings.TrimSpace(markup) == "" {
		return errors.New("document body is empty or whitespace-only")
	}
	return nil
}

// VisibleTextPresence is a stricter variant of BasicContentPresence: the body
// must contain non-empty text once script, style and noscript content is
// stripped. Catches single-page-app shells whose body holds markup but
// renders nothing.
func VisibleTextPresence(ctx context.Context, page *pagecheck.Page) error {
	markup, err := page.BodyHTML(ctx)
	if err != nil {
		return fmt.Errorf("read body markup: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parse body markup: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	if strings.TrimSpace(doc.Text()) == "" {
		return errors.New("document body renders no visible text")
	}
	return nil
}
