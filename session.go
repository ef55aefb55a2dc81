package pagecheck

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Lifecycle event names reported by Page.lifecycleEvent once
// Page.setLifecycleEventsEnabled is on.
const (
	LifecycleDOMContentLoaded = "DOMContentLoaded"
	LifecycleLoad             = "load"
	LifecycleNetworkIdle      = "networkIdle"
)

type Target struct {
	TargetID   string `json:"targetId"`
	TargetType string `json:"type"`
	URL        string `json:"url"`
	Title      string `json:"title"`
}

type Session struct {
	TargetID  string
	SessionID string
}

type lifecycleWaiter struct {
	name string
	ch   chan struct{}
}

// sessionRegistry tracks attached targets and their debugger sessions, and
// latches lifecycle events per target so waits started after an event has
// already fired still complete.
type sessionRegistry struct {
	client           *Client
	targets          map[string]*Target
	sessions         map[string]*Session
	targetSessions   map[string]map[string]struct{}
	attachWaiters    map[string][]chan *Session
	lifecycle        map[string]map[string]struct{}
	lifecycleWaiters map[string][]lifecycleWaiter
	mu               sync.Mutex
}

func newSessionRegistry(client *Client) *sessionRegistry {
	return &sessionRegistry{
		client:           client,
		targets:          make(map[string]*Target),
		sessions:         make(map[string]*Session),
		targetSessions:   make(map[string]map[string]struct{}),
		attachWaiters:    make(map[string][]chan *Session),
		lifecycle:        make(map[string]map[string]struct{}),
		lifecycleWaiters: make(map[string][]lifecycleWaiter),
	}
}

func (r *sessionRegistry) startMonitoring(ctx context.Context) error {
	r.client.Subscribe("Target.attachedToTarget", r.handleTargetAttached)
	r.client.Subscribe("Target.detachedFromTarget", r.handleTargetDetached)
	r.client.Subscribe("Target.targetInfoChanged", r.handleTargetInfoChanged)
	r.client.Subscribe("Page.lifecycleEvent", r.handleLifecycleEvent)

	_, err := r.client.Call(ctx, "Target.setDiscoverTargets", map[string]any{
		"discover": true,
		"filter": []map[string]string{
			{"type": "page"},
			{"type": "iframe"},
		},
	}, "")
	if err != nil {
		return err
	}
	return r.attachExistingTargets(ctx)
}

func (r *sessionRegistry) attachExistingTargets(ctx context.Context) error {
	result, err := r.client.Call(ctx, "Target.getTargets", nil, "")
	if err != nil {
		return err
	}
	for _, info := range result.Get("targetInfos").Array() {
		targetType := info.Get("type").String()
		if targetType != "page" && targetType != "iframe" {
			continue
		}
		target := &Target{
			TargetID:   info.Get("targetId").String(),
			TargetType: targetType,
			URL:        info.Get("url").String(),
			Title:      info.Get("title").String(),
		}
		r.mu.Lock()
		r.storeTarget(target)
		r.mu.Unlock()
		_, _ = r.client.Call(ctx, "Target.attachToTarget", map[string]any{
			"targetId": target.TargetID,
			"flatten":  true,
		}, "")
	}
	return nil
}

func (r *sessionRegistry) handleTargetAttached(ev Event) {
	sessionID := ev.Params.Get("sessionId").String()
	info := ev.Params.Get("targetInfo")
	targetID := info.Get("targetId").String()
	if sessionID == "" || targetID == "" {
		return
	}
	targetType := info.Get("type").String()
	session := &Session{TargetID: targetID, SessionID: sessionID}
	if targetType == "page" || targetType == "tab" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, _ = r.client.Call(ctx, "Page.enable", nil, sessionID)
		_, _ = r.client.Call(ctx, "Page.setLifecycleEventsEnabled", map[string]any{"enabled": true}, sessionID)
		_, _ = r.client.Call(ctx, "Network.enable", nil, sessionID)
		cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_, _ = r.client.Call(ctx, "Target.setAutoAttach", map[string]any{"autoAttach": true, "waitForDebuggerOnStart": false, "flatten": true}, sessionID)
	cancel()

	r.mu.Lock()
	r.storeTarget(&Target{
		TargetID:   targetID,
		TargetType: targetType,
		URL:        info.Get("url").String(),
		Title:      info.Get("title").String(),
	})
	r.sessions[sessionID] = session
	if r.targetSessions[targetID] == nil {
		r.targetSessions[targetID] = make(map[string]struct{})
	}
	r.targetSessions[targetID][sessionID] = struct{}{}
	waiters := r.attachWaiters[targetID]
	delete(r.attachWaiters, targetID)
	r.mu.Unlock()

	for _, waiter := range waiters {
		waiter <- session
	}
}

func (r *sessionRegistry) handleTargetDetached(ev Event) {
	sessionID := ev.Params.Get("sessionId").String()
	targetID := ev.Params.Get("targetId").String()
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	if targetID != "" {
		if sessions := r.targetSessions[targetID]; sessions != nil {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(r.targetSessions, targetID)
				delete(r.targets, targetID)
				delete(r.lifecycle, targetID)
				delete(r.lifecycleWaiters, targetID)
			}
		}
	}
}

func (r *sessionRegistry) handleTargetInfoChanged(ev Event) {
	info := ev.Params.Get("targetInfo")
	r.mu.Lock()
	r.storeTarget(&Target{
		TargetID:   info.Get("targetId").String(),
		TargetType: info.Get("type").String(),
		URL:        info.Get("url").String(),
		Title:      info.Get("title").String(),
	})
	r.mu.Unlock()
}

func (r *sessionRegistry) handleLifecycleEvent(ev Event) {
	name := ev.Params.Get("name").String()
	if name == "" || ev.SessionID == "" {
		return
	}
	r.mu.Lock()
	session := r.sessions[ev.SessionID]
	if session == nil {
		r.mu.Unlock()
		return
	}
	targetID := session.TargetID
	if r.lifecycle[targetID] == nil {
		r.lifecycle[targetID] = make(map[string]struct{})
	}
	r.lifecycle[targetID][name] = struct{}{}
	var notified []lifecycleWaiter
	remaining := r.lifecycleWaiters[targetID][:0]
	for _, waiter := range r.lifecycleWaiters[targetID] {
		if waiter.name == name {
			notified = append(notified, waiter)
		} else {
			remaining = append(remaining, waiter)
		}
	}
	r.lifecycleWaiters[targetID] = remaining
	r.mu.Unlock()

	for _, waiter := range notified {
		close(waiter.ch)
	}
}

// resetLifecycle clears latched lifecycle events for a target so a new
// navigation's events are observed fresh.
func (r *sessionRegistry) resetLifecycle(targetID string) {
	r.mu.Lock()
	delete(r.lifecycle, targetID)
	r.mu.Unlock()
}

// waitLifecycle blocks until the named lifecycle event has been observed for
// the target. Events latched before the call satisfy the wait immediately.
func (r *sessionRegistry) waitLifecycle(ctx context.Context, targetID, name string, timeout time.Duration) error {
	r.mu.Lock()
	if _, ok := r.lifecycle[targetID][name]; ok {
		r.mu.Unlock()
		return nil
	}
	waiter := lifecycleWaiter{name: name, ch: make(chan struct{})}
	r.lifecycleWaiters[targetID] = append(r.lifecycleWaiters[targetID], waiter)
	r.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-waiter.ch:
		return nil
	case <-ctx.Done():
		r.removeLifecycleWaiter(targetID, waiter)
		return ctx.Err()
	case <-timer.C:
		r.removeLifecycleWaiter(targetID, waiter)
		return fmt.Errorf("timed out after %s waiting for lifecycle event %q", timeout, name)
	}
}

// removeLifecycleWaiter drops a waiter that gave up so it does not linger in
// the registry until the event fires or the target detaches.
func (r *sessionRegistry) removeLifecycleWaiter(targetID string, waiter lifecycleWaiter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	waiters := r.lifecycleWaiters[targetID]
	for i, w := range waiters {
		if w.ch == waiter.ch {
			r.lifecycleWaiters[targetID] = append(waiters[:i], waiters[i+1:]...)
			return
		}
	}
}

func (r *sessionRegistry) storeTarget(target *Target) {
	if target == nil || target.TargetID == "" {
		return
	}
	copyTarget := *target
	r.targets[target.TargetID] = &copyTarget
}

func (r *sessionRegistry) pageTargets() []*Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	var targets []*Target
	for _, target := range r.targets {
		if target.TargetType == "page" || target.TargetType == "tab" {
			targets = append(targets, target)
		}
	}
	return targets
}

func (r *sessionRegistry) sessionForTarget(targetID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sessionID := range r.targetSessions[targetID] {
		return r.sessions[sessionID]
	}
	return nil
}

func (r *sessionRegistry) waitForSession(targetID string, timeout time.Duration) (*Session, error) {
	ch := make(chan *Session, 1)
	r.mu.Lock()
	r.attachWaiters[targetID] = append(r.attachWaiters[targetID], ch)
	r.mu.Unlock()
	select {
	case session := <-ch:
		return session, nil
	case <-time.After(timeout):
		return nil, context.DeadlineExceeded
	}
}
