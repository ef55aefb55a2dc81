// Package report runs named checks and renders their outcomes for a console,
// for suites that want a readable summary outside a Go test binary.
package report

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

// Result is the outcome of one named check.
type Result struct {
	Name    string
	Err     error
	Elapsed time.Duration
}

func (r Result) OK() bool {
	return r.Err == nil
}

// Results is an ordered collection of check outcomes.
type Results struct {
	All []Result
}

func (rs Results) OK() bool {
	return len(rs.Failures()) == 0
}

func (rs Results) Failures() []Result {
	var failed []Result
	for _, r := range rs.All {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// Runner executes checks sequentially and records a Result per run. Checks
// within a test execute one at a time, so Runner is not safe for concurrent
// use.
type Runner struct {
	results Results
}

func NewRunner() *Runner {
	return &Runner{}
}

// Run executes the check, records its outcome under name, and returns the
// check's error unchanged so callers can also fail fast.
func (r *Runner) Run(ctx context.Context, name string, check func(context.Context) error) error {
	started := time.Now()
	err := check(ctx)
	r.results.All = append(r.results.All, Result{Name: name, Err: err, Elapsed: time.Since(started)})
	return err
}

func (r *Runner) Results() Results {
	return r.results
}

// Print writes one PASS/FAIL line per result plus a summary line.
func (rs Results) Print(w io.Writer) {
	pass := color.New(color.FgGreen).SprintFunc()
	fail := color.New(color.FgRed).SprintFunc()
	for _, res := range rs.All {
		if res.OK() {
			fmt.Fprintf(w, "%s %s (%s)\n", pass("PASS"), res.Name, res.Elapsed.Round(time.Millisecond))
		} else {
			fmt.Fprintf(w, "%s %s (%s)\n      %v\n", fail("FAIL"), res.Name, res.Elapsed.Round(time.Millisecond), res.Err)
		}
	}
	failed := len(rs.Failures())
	if failed == 0 {
		fmt.Fprintf(w, "%s: %d check(s)\n", pass("OK"), len(rs.All))
	} else {
		fmt.Fprintf(w, "%s: %d of %d check(s)\n", fail("FAILED"), failed, len(rs.All))
	}
}
