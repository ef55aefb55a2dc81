// Package checks provides reusable sanity assertions for browser end-to-end
// tests: page-load completion, navigation response validity, minimal content
// presence, disappearance of transient loading indicators, and absence of
// failed stylesheet/script requests.
//
// Every check is a stateless function that borrows a page (and sometimes the
// navigation response) for the duration of one assertion. A nil return means
// the check passed; a non-nil error carries the expected-vs-actual detail and
// should be surfaced to the host test runner unchanged.
package checks
