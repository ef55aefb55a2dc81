package pagecheck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"
)

// Browser is a connection to a running Chromium instance over the DevTools
// protocol. It owns the websocket client and the target/session registry;
// pages borrow both.
type Browser struct {
	CDPURL  string
	Headers map[string]string

	client   *Client
	registry *sessionRegistry

	mu            sync.Mutex
	currentTarget string
}

func (b *Browser) setCurrentTarget(targetID string) {
	b.mu.Lock()
	b.currentTarget = targetID
	b.mu.Unlock()
}

func NewBrowser(cdpURL string, headers map[string]string) *Browser {
	return &Browser{
		CDPURL:  cdpURL,
		Headers: headers,
	}
}

// Connect resolves the debugger websocket URL, dials it, starts target
// monitoring and attaches to the first page target (creating one when the
// browser has none).
func (b *Browser) Connect(ctx context.Context) error {
	if b.CDPURL == "" {
		return errors.New("cdp url required")
	}
	resolvedURL, err := b.resolveWebSocketURL(ctx, b.CDPURL)
	if err != nil {
		return err
	}
	b.CDPURL = resolvedURL
	headers := http.Header{}
	for key, value := range b.Headers {
		headers.Set(key, value)
	}
	b.client = NewClient(resolvedURL, headers)
	if err := b.client.Start(ctx); err != nil {
		return err
	}
	slog.Debug("connected to browser", "url", resolvedURL)
	b.registry = newSessionRegistry(b.client)
	if err := b.registry.startMonitoring(ctx); err != nil {
		return err
	}
	_, err = b.client.Call(ctx, "Target.setAutoAttach", map[string]any{"autoAttach": true, "waitForDebuggerOnStart": false, "flatten": true}, "")
	if err != nil {
		return err
	}

	pageTargets := b.registry.pageTargets()
	if len(pageTargets) == 0 {
		result, err := b.client.Call(ctx, "Target.createTarget", map[string]any{"url": "about:blank"}, "")
		if err != nil {
			return err
		}
		targetID := result.Get("targetId").String()
		if targetID == "" {
			return errors.New("failed to create target")
		}
		_, err = b.attachTarget(ctx, targetID)
		return err
	}
	_, err = b.attachTarget(ctx, pageTargets[0].TargetID)
	return err
}

func (b *Browser) resolveWebSocketURL(ctx context.Context, cdpURL string) (string, error) {
	if strings.HasPrefix(cdpURL, "ws") {
		return cdpURL, nil
	}
	parsed, err := url.Parse(cdpURL)
	if err != nil {
		return "", err
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	if !strings.HasSuffix(parsed.Path, "/json/version") {
		parsed.Path = path.Join(parsed.Path, "/json/version")
	}
	client := &http.Client{Timeout: 5 * time.Second}
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", err
	}
	for key, value := range b.Headers {
		request.Header.Set(key, value)
	}
	resp, err := client.Do(request)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	var payload struct {
		WebSocketDebuggerURL string `json:"webSocketDebuggerUrl"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("webSocketDebuggerUrl missing from response")
	}
	return payload.WebSocketDebuggerURL, nil
}

// attachTarget ensures a debugger session exists for the target and makes it
// the current target.
func (b *Browser) attachTarget(ctx context.Context, targetID string) (*Session, error) {
	if b.registry == nil {
		return nil, errors.New("browser not connected")
	}
	if targetID == "" {
		return nil, errors.New("target id required")
	}
	if session := b.registry.sessionForTarget(targetID); session != nil {
		b.setCurrentTarget(targetID)
		_, _ = b.client.Call(ctx, "Target.activateTarget", map[string]any{"targetId": targetID}, "")
		return session, nil
	}
	if waited, err := b.registry.waitForSession(targetID, 500*time.Millisecond); err == nil {
		b.setCurrentTarget(targetID)
		_, _ = b.client.Call(ctx, "Target.activateTarget", map[string]any{"targetId": targetID}, "")
		return waited, nil
	}
	_, err := b.client.Call(ctx, "Target.attachToTarget", map[string]any{"targetId": targetID, "flatten": true}, "")
	if err != nil {
		return nil, err
	}
	waited, err := b.registry.waitForSession(targetID, 2*time.Second)
	if err != nil {
		return nil, err
	}
	b.setCurrentTarget(targetID)
	_, _ = b.client.Call(ctx, "Target.activateTarget", map[string]any{"targetId": targetID}, "")
	return waited, nil
}

// NewPage opens a fresh tab and returns its page handle. The page is not
// navigated beyond the given URL ("about:blank" when empty).
func (b *Browser) NewPage(ctx context.Context, url string) (*Page, error) {
	if url == "" {
		url = "about:blank"
	}
	result, err := b.client.Call(ctx, "Target.createTarget", map[string]any{"url": url}, "")
	if err != nil {
		return nil, err
	}
	targetID := result.Get("targetId").String()
	if targetID == "" {
		return nil, errors.New("targetId missing")
	}
	return &Page{browser: b, targetID: targetID}, nil
}

func (b *Browser) Pages() []*Page {
	var pages []*Page
	if b.registry == nil {
		return pages
	}
	for _, target := range b.registry.pageTargets() {
		pages = append(pages, &Page{browser: b, targetID: target.TargetID})
	}
	return pages
}

// CurrentPage returns the page for the most recently attached target, or nil
// before Connect succeeds.
func (b *Browser) CurrentPage() *Page {
	b.mu.Lock()
	targetID := b.currentTarget
	b.mu.Unlock()
	if targetID == "" {
		return nil
	}
	return &Page{browser: b, targetID: targetID}
}

func (b *Browser) ClosePage(ctx context.Context, targetID string) error {
	_, err := b.client.Call(ctx, "Target.closeTarget", map[string]any{"targetId": targetID}, "")
	return err
}

func (b *Browser) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Stop()
}
