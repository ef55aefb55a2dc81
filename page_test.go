package pagecheck

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tidwall/gjson"
)

func TestPageEvaluateFormats(t *testing.T) {
	server, browser := newTestBrowser(t)

	var mu sync.Mutex
	var expressions []string
	server.HandleEvaluate(func(expression string) any {
		mu.Lock()
		expressions = append(expressions, expression)
		mu.Unlock()
		return "ok"
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	page := browser.CurrentPage()

	result, err := page.Evaluate(ctx, `() => "ok"`)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if result != "ok" {
		t.Fatalf("expected ok, got %q", result)
	}

	if _, err := page.Evaluate(ctx, `(sel) => sel`, ".spinner"); err != nil {
		t.Fatalf("evaluate with args failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(expressions) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(expressions))
	}
	if expressions[0] != `(() => "ok")()` {
		t.Fatalf("unexpected arrow expression: %q", expressions[0])
	}
	if expressions[1] != `((sel) => sel)(".spinner")` {
		t.Fatalf("unexpected argument expression: %q", expressions[1])
	}
}

func TestPageReadyState(t *testing.T) {
	server, browser := newTestBrowser(t)
	server.HandleEvaluate(func(expression string) any {
		if expression == "document.readyState" {
			return "complete"
		}
		return ""
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := browser.CurrentPage().ReadyState(ctx)
	if err != nil {
		t.Fatalf("ready state failed: %v", err)
	}
	if state != "complete" {
		t.Fatalf("expected complete, got %q", state)
	}
}

func TestPageGotoCapturesDocumentResponse(t *testing.T) {
	server, browser := newTestBrowser(t)
	server.Handle("Page.navigate", func(params gjson.Result) map[string]any {
		_ = server.Emit("Network.responseReceived", map[string]any{
			"requestId": "doc-1",
			"type":      "Document",
			"response": map[string]any{
				"status":     200,
				"statusText": "OK",
				"url":        params.Get("url").String(),
				"mimeType":   "text/html",
			},
		}, "session-1")
		_ = server.Emit("Page.lifecycleEvent", map[string]any{"name": "load"}, "session-1")
		return map[string]any{"frameId": "frame-1"}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := browser.CurrentPage().Goto(ctx, "https://example.com/page")
	if err != nil {
		t.Fatalf("goto failed: %v", err)
	}
	if resp == nil {
		t.Fatalf("expected navigation response")
	}
	if resp.StatusCode != 200 || !resp.Ok() {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.URL != "https://example.com/page" {
		t.Fatalf("unexpected response url: %q", resp.URL)
	}
}

func TestWaitForLifecycleLatchesPastEvents(t *testing.T) {
	server, browser := newTestBrowser(t)
	if err := server.Emit("Page.lifecycleEvent", map[string]any{"name": "DOMContentLoaded"}, "session-1"); err != nil {
		t.Fatalf("emit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := browser.CurrentPage().WaitForLifecycle(ctx, LifecycleDOMContentLoaded, 2*time.Second); err != nil {
		t.Fatalf("expected latched lifecycle event, got %v", err)
	}
}

func TestWaitForLifecycleTimesOut(t *testing.T) {
	_, browser := newTestBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := browser.CurrentPage().WaitForLifecycle(ctx, LifecycleNetworkIdle, 150*time.Millisecond)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if !strings.Contains(err.Error(), "networkIdle") {
		t.Fatalf("expected event name in error, got %v", err)
	}
}

func TestWaitForLifecycleTimeoutRemovesWaiter(t *testing.T) {
	_, browser := newTestBrowser(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	page := browser.CurrentPage()
	for i := 0; i < 3; i++ {
		if err := page.WaitForLifecycle(ctx, LifecycleNetworkIdle, 50*time.Millisecond); err == nil {
			t.Fatalf("expected timeout error")
		}
	}

	browser.registry.mu.Lock()
	lingering := len(browser.registry.lifecycleWaiters[page.targetID])
	browser.registry.mu.Unlock()
	if lingering != 0 {
		t.Fatalf("expected timed-out waiters to be deregistered, %d remain", lingering)
	}
}

func TestPageBodyHTML(t *testing.T) {
	server, browser := newTestBrowser(t)
	server.HandleEvaluate(func(expression string) any {
		if strings.Contains(expression, "document.body") {
			return "<div>Hello</div>"
		}
		return ""
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	markup, err := browser.CurrentPage().BodyHTML(ctx)
	if err != nil {
		t.Fatalf("body html failed: %v", err)
	}
	if markup != "<div>Hello</div>" {
		t.Fatalf("unexpected markup: %q", markup)
	}
}
