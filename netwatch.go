package pagecheck

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Resource types as reported by the Network and Fetch domains.
const (
	ResourceStylesheet = "Stylesheet"
	ResourceScript     = "Script"
)

// RequestFailure records one failed network request observed by a
// FailureWatcher.
type RequestFailure struct {
	RequestID    string
	URL          string
	ResourceType string
	ErrorText    string
	Canceled     bool
}

// FailureWatcher collects failed requests of selected resource types for one
// page over an explicitly bounded window: Start installs a pass-through
// interception rule and the event subscriptions, Stop removes every one of
// them. Nothing the watcher registers outlives it.
type FailureWatcher struct {
	page      *Page
	types     []string
	sessionID string

	mu       sync.Mutex
	urls     map[string]string
	failures []RequestFailure
	cancels  []func()
	started  bool
}

// NewFailureWatcher watches the given resource types, defaulting to
// stylesheets and scripts.
func NewFailureWatcher(page *Page, resourceTypes ...string) *FailureWatcher {
	if len(resourceTypes) == 0 {
		resourceTypes = []string{ResourceStylesheet, ResourceScript}
	}
	return &FailureWatcher{
		page:  page,
		types: resourceTypes,
		urls:  make(map[string]string),
	}
}

func (w *FailureWatcher) watches(resourceType string) bool {
	for _, t := range w.types {
		if t == resourceType {
			return true
		}
	}
	return false
}

// Start enables pass-through interception for the watched resource types and
// begins collecting loading failures. Requests are observed, never blocked:
// every paused request is continued immediately.
func (w *FailureWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("failure watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	sessionID, err := w.page.ensureSession(ctx)
	if err != nil {
		return err
	}
	w.sessionID = sessionID
	client := w.page.browser.client

	patterns := make([]map[string]any, 0, len(w.types))
	for _, t := range w.types {
		patterns = append(patterns, map[string]any{"urlPattern": "*", "resourceType": t})
	}
	if _, err := client.Call(ctx, "Fetch.enable", map[string]any{"patterns": patterns}, sessionID); err != nil {
		return err
	}

	w.cancels = append(w.cancels,
		client.Subscribe("Fetch.requestPaused", func(ev Event) {
			if ev.SessionID != sessionID {
				return
			}
			requestID := ev.Params.Get("requestId").String()
			_, _ = client.CallWithTimeout("Fetch.continueRequest", map[string]any{"requestId": requestID}, sessionID, 5*time.Second)
		}),
		client.Subscribe("Network.requestWillBeSent", func(ev Event) {
			if ev.SessionID != sessionID {
				return
			}
			w.mu.Lock()
			w.urls[ev.Params.Get("requestId").String()] = ev.Params.Get("request.url").String()
			w.mu.Unlock()
		}),
		client.Subscribe("Network.loadingFailed", func(ev Event) {
			if ev.SessionID != sessionID {
				return
			}
			resourceType := ev.Params.Get("type").String()
			if !w.watches(resourceType) {
				return
			}
			requestID := ev.Params.Get("requestId").String()
			w.mu.Lock()
			w.failures = append(w.failures, RequestFailure{
				RequestID:    requestID,
				URL:          w.urls[requestID],
				ResourceType: resourceType,
				ErrorText:    ev.Params.Get("errorText").String(),
				Canceled:     ev.Params.Get("canceled").Bool(),
			})
			w.mu.Unlock()
		}),
	)
	slog.Debug("failure watcher started", "target", w.page.TargetID(), "types", w.types)
	return nil
}

// Stop cancels the subscriptions and removes the interception rule. Safe to
// call more than once.
func (w *FailureWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	cancels := w.cancels
	w.cancels = nil
	started := w.started
	w.started = false
	w.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	if !started || w.sessionID == "" {
		return nil
	}
	_, err := w.page.browser.client.Call(ctx, "Fetch.disable", nil, w.sessionID)
	slog.Debug("failure watcher stopped", "target", w.page.TargetID())
	return err
}

// ObserveFor keeps collecting for the given duration before the caller
// asserts. A non-positive duration returns immediately.
func (w *FailureWatcher) ObserveFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ObserveUntilIdle keeps collecting until the page reports the network-idle
// lifecycle event, bounded by timeout.
func (w *FailureWatcher) ObserveUntilIdle(ctx context.Context, timeout time.Duration) error {
	return w.page.WaitForLifecycle(ctx, LifecycleNetworkIdle, timeout)
}

// Failures returns the failures collected so far, in arrival order.
func (w *FailureWatcher) Failures() []RequestFailure {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]RequestFailure, len(w.failures))
	copy(out, w.failures)
	return out
}
