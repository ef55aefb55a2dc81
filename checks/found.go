package checks

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"pagecheck"
)

// PageFound asserts the navigation response is usable: classified ok (2xx),
// not a 404, and exactly 200. The three assertions run in that order and the
// first failure returns immediately with its own message. The equals-200
// assertion is deliberately kept even though it subsumes not-404: a 2xx
// status other than 200 (say 204) fails here with the more precise message.
func PageFound(_ context.Context, _ *pagecheck.Page, resp *pagecheck.Response) error {
	if resp == nil {
		return errors.New("no navigation response recorded for page")
	}
	if !resp.Ok() {
		return fmt.Errorf("expected ok response, got status %d %s", resp.StatusCode, resp.StatusText)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("page not found: status 404 for %s", resp.URL)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	return nil
}
