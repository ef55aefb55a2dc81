package pagecheck

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
)

// Page is a handle to one browser tab. Checks borrow a Page for the duration
// of a single assertion; they never retain or close it. A Page holds no state
// of its own beyond the attached session id.
type Page struct {
	browser   *Browser
	targetID  string
	sessionID string
	mu        sync.Mutex
}

func (p *Page) TargetID() string {
	return p.targetID
}

func (p *Page) ensureSession(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sessionID != "" {
		return p.sessionID, nil
	}
	session, err := p.browser.attachTarget(ctx, p.targetID)
	if err != nil {
		return "", err
	}
	p.sessionID = session.SessionID
	return p.sessionID, nil
}

// Goto navigates the page and waits for the load lifecycle event. The
// returned Response describes the main document navigation; it is nil for
// URLs that produce no network traffic (about:blank and friends).
func (p *Page) Goto(ctx context.Context, url string) (*Response, error) {
	sessionID, err := p.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	p.browser.registry.resetLifecycle(p.targetID)

	respCh := make(chan *Response, 1)
	cancel := p.browser.client.Subscribe("Network.responseReceived", func(ev Event) {
		if ev.SessionID != sessionID {
			return
		}
		if ev.Params.Get("type").String() != "Document" {
			return
		}
		resp := &Response{
			StatusCode: int(ev.Params.Get("response.status").Int()),
			StatusText: ev.Params.Get("response.statusText").String(),
			URL:        ev.Params.Get("response.url").String(),
			MimeType:   ev.Params.Get("response.mimeType").String(),
		}
		select {
		case respCh <- resp:
		default:
		}
	})
	defer cancel()

	if _, err := p.browser.client.Call(ctx, "Page.navigate", map[string]any{"url": url}, sessionID); err != nil {
		return nil, err
	}
	if err := p.WaitForLifecycle(ctx, LifecycleLoad, 30*time.Second); err != nil {
		return nil, err
	}
	// The Document response event normally precedes the load event, but it is
	// dispatched on its own goroutine; allow it a moment to land.
	select {
	case resp := <-respCh:
		return resp, nil
	case <-time.After(250 * time.Millisecond):
		return nil, nil
	}
}

func (p *Page) Reload(ctx context.Context) error {
	sessionID, err := p.ensureSession(ctx)
	if err != nil {
		return err
	}
	p.browser.registry.resetLifecycle(p.targetID)
	_, err = p.browser.client.Call(ctx, "Page.reload", nil, sessionID)
	return err
}

// Evaluate runs a script in the page and returns its result as a string.
// Arrow functions are invoked with the JSON-encoded args; bare expressions
// are evaluated as-is (wrapped when args are present).
func (p *Page) Evaluate(ctx context.Context, pageFunction string, args ...any) (string, error) {
	pageFunction = strings.TrimSpace(pageFunction)
	var expression string
	if strings.HasPrefix(pageFunction, "(") && strings.Contains(pageFunction, "=>") {
		if len(args) > 0 {
			argStrings, err := encodeArgs(args)
			if err != nil {
				return "", err
			}
			expression = fmt.Sprintf("(%s)(%s)", pageFunction, strings.Join(argStrings, ", "))
		} else {
			expression = fmt.Sprintf("(%s)()", pageFunction)
		}
	} else {
		if len(args) > 0 {
			argStrings, err := encodeArgs(args)
			if err != nil {
				return "", err
			}
			expression = fmt.Sprintf("(function(...args){ return (%s); })(%s)", pageFunction, strings.Join(argStrings, ", "))
		} else {
			expression = pageFunction
		}
	}
	sessionID, err := p.ensureSession(ctx)
	if err != nil {
		return "", err
	}
	result, err := p.browser.client.Call(ctx, "Runtime.evaluate", map[string]any{"expression": expression, "returnByValue": true, "awaitPromise": true}, sessionID)
	if err != nil {
		return "", err
	}
	value := result.Get("result.value")
	if !value.Exists() || value.Type == gjson.Null {
		return "", nil
	}
	if value.Type == gjson.String {
		return value.String(), nil
	}
	return value.Raw, nil
}

func encodeArgs(args []any) ([]string, error) {
	argStrings := make([]string, 0, len(args))
	for _, arg := range args {
		encoded, err := json.Marshal(arg)
		if err != nil {
			return nil, err
		}
		argStrings = append(argStrings, string(encoded))
	}
	return argStrings, nil
}

// ReadyState reports document.readyState ("loading", "interactive" or
// "complete").
func (p *Page) ReadyState(ctx context.Context) (string, error) {
	return p.Evaluate(ctx, "document.readyState")
}

// WaitForLifecycle blocks until the named lifecycle event (see the Lifecycle
// constants) has been observed for this page. Events that fired before the
// call count; the wait fails after the timeout or when ctx is done.
func (p *Page) WaitForLifecycle(ctx context.Context, event string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if _, err := p.ensureSession(ctx); err != nil {
		return err
	}
	return p.browser.registry.waitLifecycle(ctx, p.targetID, event, timeout)
}

// BodyHTML returns the serialized markup inside the document body, or the
// empty string when the document has no body.
func (p *Page) BodyHTML(ctx context.Context) (string, error) {
	return p.Evaluate(ctx, `() => document.body ? document.body.innerHTML : ""`)
}

func (p *Page) Locator(selector string) *Locator {
	return &Locator{page: p, selector: selector}
}

func (p *Page) URL(ctx context.Context) (string, error) {
	return p.Evaluate(ctx, "() => window.location.href")
}

func (p *Page) Title(ctx context.Context) (string, error) {
	return p.Evaluate(ctx, "() => document.title")
}

// CaptureScreenshot captures the current viewport and returns the raw encoded
// image bytes.
func (p *Page) CaptureScreenshot(ctx context.Context, format string) ([]byte, error) {
	if format == "" {
		format = "png"
	}
	sessionID, err := p.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	result, err := p.browser.client.Call(ctx, "Page.captureScreenshot", map[string]any{"format": format, "captureBeyondViewport": false}, sessionID)
	if err != nil {
		return nil, err
	}
	data := result.Get("data").String()
	if data == "" {
		return nil, errors.New("screenshot data missing")
	}
	return base64.StdEncoding.DecodeString(data)
}
